package models

import "time"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s == TaskStatusCompleted
}

// Toggle flips between pending and completed.
func (s TaskStatus) Toggle() TaskStatus {
	if s == TaskStatusCompleted {
		return TaskStatusPending
	}
	return TaskStatusCompleted
}

// DateLayout is the format of due dates: a calendar day, no time component.
const DateLayout = "2006-01-02"

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *string    `json:"due_date"`
	Location    *string    `json:"location"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskSummary is the list projection. Everything except the identity, the
// title and the due date is left out so that callers need the detail call.
type TaskSummary struct {
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	DueDate *string `json:"due_date"`
}

// TaskDetail is a full task row plus its tags.
type TaskDetail struct {
	Task
	Tags []Tag `json:"tags"`
}

// TagNames returns the names of the task's tags in their current order.
func (d *TaskDetail) TagNames() []string {
	names := make([]string, 0, len(d.Tags))
	for _, tag := range d.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// Input rebuilds the full update payload for the task, tags included.
func (d *TaskDetail) Input() TaskInput {
	return TaskInput{
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		DueDate:     d.DueDate,
		Location:    d.Location,
		Tags:        d.TagNames(),
	}
}

// TaskInput is the body of create and update calls.
// A nil Tags means "not supplied"; an empty non-nil slice clears all tags.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status,omitempty"`
	DueDate     *string    `json:"due_date,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Tags        []string   `json:"tags"`
}

// ListFilter narrows ListTasks. Empty fields are ignored.
type ListFilter struct {
	Query string `json:"q,omitempty"`
	Tag   string `json:"tag,omitempty"`
}
