package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ClassifyError maps driver errors onto the apperr kinds. Errors it does not
// recognise are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return apperr.Duplicate(constraintField(pgErr.TableName, pgErr.ConstraintName))
	case pgForeignKeyViolation:
		return apperr.ErrNotFound
	}
	return err
}

// constraintField derives the column from PostgreSQL's default unique
// constraint naming, "<table>_<column>_key".
func constraintField(table, constraint string) string {
	field := strings.TrimSuffix(constraint, "_key")
	if table != "" {
		field = strings.TrimPrefix(field, table+"_")
	}
	return field
}
