package db

import (
	"strings"
	"time"

	"github.com/ldi/taskboard/pkg/models"
)

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(timeLayout, v)
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// normalizeInput validates in and returns the copy that gets persisted.
// Updates are full replacements, so they must carry a status; creates
// default to pending.
func normalizeInput(in models.TaskInput, isUpdate bool) (models.TaskInput, error) {
	out := in

	if strings.TrimSpace(in.Title) == "" {
		return out, validationError("title is required")
	}

	switch {
	case in.Status == "" && isUpdate:
		return out, validationError("status is required")
	case in.Status == "":
		out.Status = models.TaskStatusPending
	case !in.Status.Valid():
		return out, validationError("invalid status %q", in.Status)
	}

	out.DueDate = nil
	if in.DueDate != nil && strings.TrimSpace(*in.DueDate) != "" {
		due := strings.TrimSpace(*in.DueDate)
		if _, err := time.Parse(models.DateLayout, due); err != nil {
			return out, validationError("invalid due_date %q, expected YYYY-MM-DD", *in.DueDate)
		}
		out.DueDate = &due
	}

	out.Location = nil
	if in.Location != nil && strings.TrimSpace(*in.Location) != "" {
		loc := *in.Location
		out.Location = &loc
	}

	out.Tags = NormalizeTags(in.Tags)
	return out, nil
}

// NormalizeTags trims names, drops empty ones and collapses duplicates,
// keeping the first occurrence order. A nil slice stays nil.
func NormalizeTags(names []string) []string {
	if names == nil {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
