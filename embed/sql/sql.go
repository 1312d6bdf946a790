package sql

import _ "embed"

//go:embed schema.sql
var Schema string

// Drop removes every table owned by the schema, join table first.
const Drop = `
DROP TABLE IF EXISTS task_tags;
DROP TABLE IF EXISTS tags;
DROP TABLE IF EXISTS tasks;
`
