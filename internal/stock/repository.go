package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository persists the stock ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxLedger(tx))
	})
}

// NewTxLedger binds the ledger operations to an existing transaction. The
// order engines use this to post movements atomically with their own rows.
func NewTxLedger(tx pgx.Tx) TxLedger {
	return &txLedger{tx: tx}
}

type txLedger struct {
	tx pgx.Tx
}

func (l *txLedger) GetStockForUpdate(ctx context.Context, productID int64) (int64, error) {
	var qty int64
	err := l.tx.QueryRow(ctx, `SELECT current_stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("stock: product %d: %w", productID, shared.ErrNotFound)
		}
		return 0, err
	}
	return qty, nil
}

func (l *txLedger) InsertMovement(ctx context.Context, mv Movement) (int64, error) {
	var id int64
	err := l.tx.QueryRow(ctx, `
		INSERT INTO stock_movements (product_id, kind, quantity, reason, reference, occurred_at, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		mv.ProductID, string(mv.Kind), mv.Quantity, mv.Reason, mv.Reference, mv.OccurredAt, mv.ActorID,
	).Scan(&id)
	return id, err
}

func (l *txLedger) SetCachedStock(ctx context.Context, productID, qty int64) error {
	tag, err := l.tx.Exec(ctx, `UPDATE products SET current_stock = $2, updated_at = NOW() WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock: product %d: %w", productID, shared.ErrNotFound)
	}
	return nil
}

// CurrentStock returns the cached stock counter.
func (r *Repository) CurrentStock(ctx context.Context, productID int64) (int64, error) {
	var qty int64
	err := r.pool.QueryRow(ctx, `SELECT current_stock FROM products WHERE id = $1`, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("stock: product %d: %w", productID, shared.ErrNotFound)
		}
		return 0, err
	}
	return qty, nil
}

const movementColumns = `id, product_id, kind, quantity, reason, reference, occurred_at, actor_id`

// ListMovements lists ledger entries, most recent first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE 1=1`
	args := []any{}
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		query += fmt.Sprintf(" AND product_id = $%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	query += " ORDER BY occurred_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
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

// GetMovement fetches one ledger entry by id.
func (r *Repository) GetMovement(ctx context.Context, id int64) (Movement, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id)
	mv, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, fmt.Errorf("stock: movement %d: %w", id, shared.ErrNotFound)
		}
		return Movement{}, err
	}
	return mv, nil
}

func scanMovement(row pgx.Row) (Movement, error) {
	var mv Movement
	var kind string
	err := row.Scan(&mv.ID, &mv.ProductID, &kind, &mv.Quantity, &mv.Reason, &mv.Reference, &mv.OccurredAt, &mv.ActorID)
	if err != nil {
		return Movement{}, err
	}
	mv.Kind = Kind(kind)
	return mv, nil
}
