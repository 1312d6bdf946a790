package db

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an update or delete targets a missing task.
	ErrNotFound = errors.New("task not found")
	// ErrValidation wraps every rejected input; the wrapping error carries the detail.
	ErrValidation = errors.New("validation failed")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
