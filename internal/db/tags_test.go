package db

import (
	"context"
	"reflect"
	"testing"

	"github.com/ldi/taskboard/pkg/models"
)

func TestFindOrCreateTag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.findOrCreateTag(ctx, db.DB, "work")
	if err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}
	second, err := db.findOrCreateTag(ctx, db.DB, "work")
	if err != nil {
		t.Fatalf("Failed to find tag: %v", err)
	}
	if first != second {
		t.Errorf("Expected the same tag id, got %d and %d", first, second)
	}

	other, err := db.findOrCreateTag(ctx, db.DB, "Work")
	if err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}
	if other == first {
		t.Errorf("Expected tag names to be case-sensitive")
	}
}

func TestTagsSharedAcrossTasks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateTask(ctx, taskInput("One", "work", "urgent")); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if _, err := db.CreateTask(ctx, taskInput("Two", "work")); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM tags WHERE name = 'work'").Scan(&count); err != nil {
		t.Fatalf("Failed to count tags: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected one work tag, got %d", count)
	}

	tags, err := db.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	want := []models.TagCount{{Name: "urgent", Tasks: 1}, {Name: "work", Tasks: 2}}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("Expected %v, got %v", want, tags)
	}
}

func TestGetTaskTagsAttachmentOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// "alpha" exists before the task so its tag id is lower than "zulu".
	if _, err := db.findOrCreateTag(ctx, db.DB, "alpha"); err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}
	task, err := db.CreateTask(ctx, taskInput("Ordered", "zulu", "alpha"))
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	detail, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got := detail.TagNames(); !reflect.DeepEqual(got, []string{"zulu", "alpha"}) {
		t.Errorf("Expected [zulu alpha], got %v", got)
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil stays nil", nil, nil},
		{"empty stays empty", []string{}, []string{}},
		{"trim and drop blanks", []string{" a ", "", "  ", "b"}, []string{"a", "b"}},
		{"dedupe keeps first", []string{"b", "a", "b", " a"}, []string{"b", "a"}},
		{"case is significant", []string{"Go", "go"}, []string{"Go", "go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %#v, got %#v", tt.want, got)
			}
		})
	}
}
