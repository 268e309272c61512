package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

const uniqueViolation = "23505"

// classify maps driver errors onto the repository sentinels
func classify(log logger.Logger, op string, err error, keyvals ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}

	log.Error("Failed to "+op, append([]interface{}{"error", err}, keyvals...)...)
	return fmt.Errorf("%w: %v", ErrDatabase, err)
}

// requireAffected turns a zero-row update into ErrNotFound
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// whereBuilder accumulates AND-ed conditions with bindvar-neutral placeholders
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (w *whereBuilder) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// in adds "column IN (?)" expanded through sqlx.In
func (w *whereBuilder) in(column string, values interface{}) error {
	clause, args, err := sqlx.In(column+" IN (?)", values)
	if err != nil {
		return err
	}
	w.add(clause, args...)
	return nil
}

func (w *whereBuilder) notIn(column string, values interface{}) error {
	clause, args, err := sqlx.In(column+" NOT IN (?)", values)
	if err != nil {
		return err
	}
	w.add(clause, args...)
	return nil
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	out := " WHERE " + w.clauses[0]
	for _, c := range w.clauses[1:] {
		out += " AND " + c
	}
	return out
}
