package shared

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RowQuerier is satisfied by pgx.Tx and pgxpool.Pool.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NextSequence advances and returns the year-scoped counter for scope.
// The upsert is atomic, so concurrent callers in separate transactions
// never observe the same value.
func NextSequence(ctx context.Context, q RowQuerier, scope string, year int) (int64, error) {
	var value int64
	err := q.QueryRow(ctx, `
		INSERT INTO code_sequences (scope, year, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (scope, year) DO UPDATE SET value = code_sequences.value + 1
		RETURNING value
	`, scope, year).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("shared: next sequence %s/%d: %w", scope, year, err)
	}
	return value, nil
}

// FormatCode renders a document code such as PV20260042.
func FormatCode(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s%d%04d", prefix, year, seq)
}
