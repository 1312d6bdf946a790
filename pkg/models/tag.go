package models

// Tag is identified by its name; there is no surrogate id on the wire.
type Tag struct {
	Name string `json:"name"`
}

// TagCount is a tag together with the number of tasks carrying it.
// Orphaned tags are reported with a zero count.
type TagCount struct {
	Name  string `json:"name"`
	Tasks int    `json:"tasks"`
}
