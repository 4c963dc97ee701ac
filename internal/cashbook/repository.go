package cashbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists the cash ledger in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn against a transaction-bound book.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxBook) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxBook(tx))
	})
}

// NewTxBook binds the cash ledger to an existing transaction. Settlement
// repositories use it to post cash inside their own unit of work.
func NewTxBook(tx pgx.Tx) TxBook {
	return &txBook{tx: tx}
}

type txBook struct {
	tx pgx.Tx
}

func (b *txBook) InsertMovement(ctx context.Context, mv Movement) (int64, error) {
	var id int64
	err := b.tx.QueryRow(ctx, `
		INSERT INTO cash_movements (kind, amount, description, reference, occurred_at, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, string(mv.Kind), mv.Amount, mv.Description, mv.Reference, mv.OccurredAt, mv.ActorID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("cashbook: insert movement: %w", err)
	}
	return id, nil
}

// ListMovements returns ledger rows newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := `
		SELECT id, kind, amount, description, reference, occurred_at, actor_id
		FROM cash_movements
		WHERE 1=1`
	args := []any{}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND occurred_at < $%d", len(args))
	}
	query += " ORDER BY occurred_at DESC, id DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cashbook: list movements: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		mv, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, mv)
	}
	return movements, rows.Err()
}

// GetMovement fetches one ledger row.
func (r *Repository) GetMovement(ctx context.Context, id int64) (Movement, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, kind, amount, description, reference, occurred_at, actor_id
		FROM cash_movements
		WHERE id = $1
	`, id)
	mv, err := scanMovement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Movement{}, shared.ErrNotFound
	}
	return mv, err
}

// Balance aggregates in minus out for the filtered window.
func (r *Repository) Balance(ctx context.Context, filter MovementFilter) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN kind = 'in' THEN amount ELSE -amount END), 0)
		FROM cash_movements
		WHERE 1=1`
	args := []any{}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND occurred_at < $%d", len(args))
	}
	var balance decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&balance); err != nil {
		return decimal.Decimal{}, fmt.Errorf("cashbook: balance: %w", err)
	}
	return balance, nil
}

// Summarize aggregates in/out/net over the window and the all-time balance
// in one scan.
func (r *Repository) Summarize(ctx context.Context, filter MovementFilter) (Summary, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'in' AND ($1::timestamptz IS NULL OR occurred_at >= $1) AND ($2::timestamptz IS NULL OR occurred_at < $2)), 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'out' AND ($1::timestamptz IS NULL OR occurred_at >= $1) AND ($2::timestamptz IS NULL OR occurred_at < $2)), 0),
			COALESCE(SUM(CASE WHEN kind = 'in' THEN amount ELSE -amount END), 0)
		FROM cash_movements`
	var from, to *time.Time
	if !filter.From.IsZero() {
		from = &filter.From
	}
	if !filter.To.IsZero() {
		to = &filter.To
	}
	var s Summary
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&s.TotalIn, &s.TotalOut, &s.Balance); err != nil {
		return Summary{}, fmt.Errorf("cashbook: summarize: %w", err)
	}
	s.Net = s.TotalIn.Sub(s.TotalOut)
	return s, nil
}

func scanMovement(row pgx.Row) (Movement, error) {
	var mv Movement
	var kind string
	if err := row.Scan(&mv.ID, &kind, &mv.Amount, &mv.Description, &mv.Reference, &mv.OccurredAt, &mv.ActorID); err != nil {
		return Movement{}, err
	}
	mv.Kind = Kind(kind)
	return mv, nil
}
