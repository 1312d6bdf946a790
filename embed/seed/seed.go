package seed

import _ "embed"

// Tasks is the JSONL dataset loaded into a freshly reset store.
//
//go:embed tasks.jsonl
var Tasks []byte
