package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements interfaces.LedgerStore on a database handle or an open transaction.
type Store struct {
	q        querier
	logger   *common.Logger
	readOnly bool
}

var errReadOnly = errors.New("write attempted inside a read snapshot")

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.readOnly {
		return nil, errReadOnly
	}
	return s.q.ExecContext(ctx, query, args...)
}

const timestampLayout = time.RFC3339Nano

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullString stores "" as NULL so partial unique indexes ignore it.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptrFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// constraintError reports which SQLite constraint an error tripped, if any.
// The detail is SQLite's message, e.g. "UNIQUE constraint failed: transactions.invoice_number".
func constraintError(err error) (code int, detail string, ok bool) {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return 0, "", false
	}
	if se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return 0, "", false
	}
	return se.Code(), se.Error(), true
}

func isUniqueViolation(err error, column string) bool {
	_, detail, ok := constraintError(err)
	return ok && strings.Contains(detail, "UNIQUE") && strings.Contains(detail, column)
}

func isForeignKeyViolation(err error) bool {
	_, detail, ok := constraintError(err)
	return ok && strings.Contains(detail, "FOREIGN KEY")
}

// Ensure Store implements LedgerStore
var _ interfaces.LedgerStore = (*Store)(nil)
