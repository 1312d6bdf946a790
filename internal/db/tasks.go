package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ldi/taskboard/pkg/models"
)

const taskColumns = `t.id, t.title, t.description, t.due_date, t.location, t.status, t.created_at, t.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	t := &models.Task{}
	var due, location sql.NullString
	var created, updated string
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &due, &location, &t.Status, &created, &updated); err != nil {
		return nil, err
	}
	if due.Valid {
		t.DueDate = &due.String
	}
	if location.Valid {
		t.Location = &location.String
	}

	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return t, nil
}

// likePattern turns a keyword into a LIKE pattern matching it as a literal
// substring. Use with ESCAPE '\'.
func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(keyword) + "%"
}

// ListTasks returns the summary projection of the tasks matching filter,
// ordered by due date with undated tasks last, then by id.
func (db *DB) ListTasks(ctx context.Context, filter models.ListFilter) ([]models.TaskSummary, error) {
	query := `
		SELECT t.id, t.title, t.due_date
		FROM tasks t
		WHERE 1=1
	`
	args := []any{}

	if filter.Query != "" {
		query += ` AND (t.title LIKE ? ESCAPE '\' OR t.description LIKE ? ESCAPE '\' OR t.location LIKE ? ESCAPE '\')`
		pattern := likePattern(filter.Query)
		args = append(args, pattern, pattern, pattern)
	}

	if filter.Tag != "" {
		query += `
		AND EXISTS (
			SELECT 1
			FROM task_tags tt
			JOIN tags g ON g.id = tt.tag_id
			WHERE tt.task_id = t.id AND g.name = ?
		)`
		args = append(args, filter.Tag)
	}

	query += " ORDER BY t.due_date IS NULL, t.due_date ASC, t.id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.TaskSummary, 0)
	for rows.Next() {
		var s models.TaskSummary
		var due sql.NullString
		if err := rows.Scan(&s.ID, &s.Title, &due); err != nil {
			return nil, fmt.Errorf("failed to scan task summary: %w", err)
		}
		if due.Valid {
			s.DueDate = &due.String
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return summaries, nil
}

// GetTask retrieves a task with its tags. It returns nil, nil when the task
// does not exist.
func (db *DB) GetTask(ctx context.Context, id int64) (*models.TaskDetail, error) {
	t, err := db.getTask(ctx, db.DB, id)
	if err != nil || t == nil {
		return nil, err
	}

	tags, err := db.getTaskTags(ctx, db.DB, id)
	if err != nil {
		return nil, err
	}

	return &models.TaskDetail{Task: *t, Tags: tags}, nil
}

func (db *DB) getTask(ctx context.Context, exec executor, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = ?`
	t, err := scanTask(exec.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// GetTasks retrieves several tasks with their tags in two queries.
// Results follow the order of ids; unknown ids are skipped.
func (db *DB) GetTasks(ctx context.Context, ids []int64) ([]*models.TaskDetail, error) {
	details := make([]*models.TaskDetail, 0, len(ids))
	if len(ids) == 0 {
		return details, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	byID := make(map[int64]*models.TaskDetail, len(ids))
	err := func() error {
		rows, err := db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id IN (`+placeholders+`)`, args...)
		if err != nil {
			return fmt.Errorf("failed to get tasks: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return fmt.Errorf("failed to scan task: %w", err)
			}
			byID[t.ID] = &models.TaskDetail{Task: *t, Tags: []models.Tag{}}
		}
		return rows.Err()
	}()
	if err != nil {
		return nil, err
	}

	err = func() error {
		rows, err := db.QueryContext(ctx, `
			SELECT tt.task_id, g.name
			FROM task_tags tt
			JOIN tags g ON g.id = tt.tag_id
			WHERE tt.task_id IN (`+placeholders+`)
			ORDER BY tt.rowid
		`, args...)
		if err != nil {
			return fmt.Errorf("failed to get task tags: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var taskID int64
			var name string
			if err := rows.Scan(&taskID, &name); err != nil {
				return fmt.Errorf("failed to scan task tag: %w", err)
			}
			if d, ok := byID[taskID]; ok {
				d.Tags = append(d.Tags, models.Tag{Name: name})
			}
		}
		return rows.Err()
	}()
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			details = append(details, d)
		}
	}
	return details, nil
}

// CreateTask validates in, inserts the task and attaches its tags, creating
// unknown tags on the way. The returned task does not carry tags.
func (db *DB) CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	in, err := normalizeInput(in, false)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	id, err := db.createTask(ctx, tx, 0, in, now, now)
	if err != nil {
		return nil, err
	}

	if err := db.attachTags(ctx, tx, id, in.Tags); err != nil {
		return nil, err
	}

	t, err := db.getTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task: %w", err)
	}

	db.triggerChange(ctx)
	return t, nil
}

// createTask inserts a task row. A zero id lets SQLite assign one.
func (db *DB) createTask(ctx context.Context, exec executor, id int64, in models.TaskInput, createdAt, updatedAt time.Time) (int64, error) {
	var idArg any
	if id != 0 {
		idArg = id
	}

	res, err := exec.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, due_date, location, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		idArg, in.Title, in.Description, nullString(in.DueDate), nullString(in.Location), string(in.Status),
		formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}

	newID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get task id: %w", err)
	}
	return newID, nil
}

// UpdateTask overwrites every mutable field of the task. When in.Tags is
// non-nil the task's tags are replaced by exactly that set; the clear and
// the re-attach happen in the same transaction as the row update.
func (db *DB) UpdateTask(ctx context.Context, id int64, in models.TaskInput) (*models.Task, error) {
	in, err := normalizeInput(in, true)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, due_date = ?, location = ?, updated_at = ?
		WHERE id = ?`,
		in.Title, in.Description, string(in.Status), nullString(in.DueDate), nullString(in.Location), formatTime(time.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if err := checkRowsAffected(res); err != nil {
		return nil, err
	}

	if in.Tags != nil {
		if err := db.replaceTaskTags(ctx, tx, id, in.Tags); err != nil {
			return nil, err
		}
	}

	t, err := db.getTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task: %w", err)
	}

	db.triggerChange(ctx)
	return t, nil
}

// DeleteTask deletes a task by its ID. Its tags stay in the tags table.
func (db *DB) DeleteTask(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if err := checkRowsAffected(res); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}
