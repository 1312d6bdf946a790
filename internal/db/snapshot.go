package db

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ldi/taskboard/embed/seed"
	"github.com/ldi/taskboard/pkg/models"
)

// snapshotRecord is one JSONL line: a task with its tag names.
type snapshotRecord struct {
	ID          int64             `json:"id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status,omitempty"`
	DueDate     *string           `json:"due_date,omitempty"`
	Location    *string           `json:"location,omitempty"`
	Tags        []string          `json:"tags"`
	CreatedAt   *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time        `json:"updatedAt,omitempty"`
}

// EnableAutoSnapshot sets up a hook that automatically exports a snapshot
// to the given path after every successful write operation.
func (db *DB) EnableAutoSnapshot(path string, onError func(error)) {
	db.SetOnChange(func(ctx context.Context) {
		// The write already succeeded; a failed export must not undo it.
		if err := db.ExportSnapshot(ctx, path); err != nil && onError != nil {
			onError(err)
		}
	})
}

// ExportSnapshot writes every task, ordered by id, as JSON lines to the
// given path atomically using a temporary file.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	w := bufio.NewWriter(tempFile)
	if err := db.WriteSnapshot(ctx, w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// WriteSnapshot streams every task as one JSON line to w.
func (db *DB) WriteSnapshot(ctx context.Context, w io.Writer) error {
	var ids []int64
	err := func() error {
		rows, err := db.QueryContext(ctx, `SELECT id FROM tasks ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to query snapshot tasks: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("failed to scan snapshot task: %w", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	}()
	if err != nil {
		return err
	}

	details, err := db.GetTasks(ctx, ids)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, d := range details {
		created, updated := d.CreatedAt, d.UpdatedAt
		rec := snapshotRecord{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			Status:      d.Status,
			DueDate:     d.DueDate,
			Location:    d.Location,
			Tags:        d.TagNames(),
			CreatedAt:   &created,
			UpdatedAt:   &updated,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write snapshot line: %w", err)
		}
	}
	return nil
}

// ImportSnapshot reads JSONL task records and inserts them in one transaction.
// Records carrying an id keep it; the others get a fresh one. There is no
// limit on the size of a record.
func (db *DB) ImportSnapshot(ctx context.Context, r io.Reader) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	dec := json.NewDecoder(r)
	for line := 1; dec.More(); line++ {
		var rec snapshotRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("failed to decode snapshot record %d: %w", line, err)
		}

		in, err := normalizeInput(models.TaskInput{
			Title:       rec.Title,
			Description: rec.Description,
			Status:      rec.Status,
			DueDate:     rec.DueDate,
			Location:    rec.Location,
			Tags:        rec.Tags,
		}, false)
		if err != nil {
			return fmt.Errorf("snapshot record %d: %w", line, err)
		}

		created, updated := now, now
		if rec.CreatedAt != nil {
			created = *rec.CreatedAt
		}
		if rec.UpdatedAt != nil {
			updated = *rec.UpdatedAt
		}

		id, err := db.createTask(ctx, tx, rec.ID, in, created, updated)
		if err != nil {
			return fmt.Errorf("failed to sync task %s: %w", rec.Title, err)
		}
		if err := db.attachTags(ctx, tx, id, in.Tags); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}

// Seed resets the store and loads the embedded seed dataset.
func (db *DB) Seed(ctx context.Context) error {
	if err := db.Reset(ctx); err != nil {
		return err
	}
	if err := db.ImportSnapshot(ctx, bytes.NewReader(seed.Tasks)); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	return nil
}
