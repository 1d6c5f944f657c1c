// Package repositories provides the PostgreSQL-backed stores for decision
// analyses and raised suggestions.  Every method takes a context for
// cancellation and uses parameterised queries exclusively.
package repositories

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx abstracts pgxpool.Pool and pgx.Tx so a repository method can run
// standalone or inside a caller-owned transaction.  Begin on a pgx.Tx opens
// a savepoint, so nesting stays safe.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// marshalJSONB serializes v for a jsonb column, mapping nil-ish values to a
// SQL NULL rather than the string "null".
func marshalJSONB(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}
