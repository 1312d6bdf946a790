package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ldi/taskboard/pkg/models"
)

// findOrCreateTag returns the id of the tag called name, inserting it first
// if it does not exist yet.
func (db *DB) findOrCreateTag(ctx context.Context, exec executor, name string) (int64, error) {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO tags (name, created_at) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to create tag %s: %w", name, err)
	}

	var id int64
	if err := exec.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get tag %s: %w", name, err)
	}
	return id, nil
}

// attachTags finds or creates each tag and associates it with the task.
func (db *DB) attachTags(ctx context.Context, exec executor, taskID int64, names []string) error {
	for _, name := range names {
		tagID, err := db.findOrCreateTag(ctx, exec, name)
		if err != nil {
			return err
		}
		if _, err := exec.ExecContext(ctx, `INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)`, taskID, tagID); err != nil {
			return fmt.Errorf("failed to attach tag %s: %w", name, err)
		}
	}
	return nil
}

// replaceTaskTags clears every association of the task, then attaches names.
// The tags themselves are never deleted, even when nothing references them.
func (db *DB) replaceTaskTags(ctx context.Context, exec executor, taskID int64, names []string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("failed to clear task tags: %w", err)
	}
	return db.attachTags(ctx, exec, taskID, names)
}

// getTaskTags returns the task's tags in the order they were attached.
func (db *DB) getTaskTags(ctx context.Context, exec executor, taskID int64) ([]models.Tag, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT g.name
		FROM tags g
		JOIN task_tags tt ON g.id = tt.tag_id
		WHERE tt.task_id = ?
		ORDER BY tt.rowid
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task tags: %w", err)
	}
	defer rows.Close()

	tags := make([]models.Tag, 0)
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tags, nil
}

// ListTags returns every tag with the number of tasks using it, orphans included.
func (db *DB) ListTags(ctx context.Context) ([]models.TagCount, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT g.name, COUNT(tt.task_id)
		FROM tags g
		LEFT JOIN task_tags tt ON tt.tag_id = g.id
		GROUP BY g.id
		ORDER BY g.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	counts := make([]models.TagCount, 0)
	for rows.Next() {
		var c models.TagCount
		if err := rows.Scan(&c.Name, &c.Tasks); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}
