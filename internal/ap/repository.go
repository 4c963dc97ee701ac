package ap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/cashbook"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const entryColumns = `id, code, supplier_id, amount, due_date, settled_at, status, order_ref, created_at`

// Repository persists payables in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn in one transaction shared with the cash ledger.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) InsertEntry(ctx context.Context, e Entry) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payables (code, supplier_id, amount, due_date, settled_at, status, order_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, e.Code, e.SupplierID, e.Amount, e.DueDate, e.SettledAt, string(e.Status), e.OrderRef, e.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ap: insert entry: %w", err)
	}
	return id, nil
}

func (t *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (Entry, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM payables WHERE id = $1 FOR UPDATE`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, shared.ErrNotFound
	}
	return entry, err
}

func (t *txRepository) UpdateEntry(ctx context.Context, e Entry) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE payables
		SET amount = $2, due_date = $3, settled_at = $4, status = $5
		WHERE id = $1
	`, e.ID, e.Amount, e.DueDate, e.SettledAt, string(e.Status))
	if err != nil {
		return fmt.Errorf("ap: update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) DeleteEntry(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM payables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ap: delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) NextSequence(ctx context.Context, year int) (int64, error) {
	return shared.NextSequence(ctx, t.tx, "payable", year)
}

func (t *txRepository) Cashbook() cashbook.TxBook {
	return cashbook.NewTxBook(t.tx)
}

// GetEntry fetches one payable outside a transaction.
func (r *Repository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM payables WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, shared.ErrNotFound
	}
	return entry, err
}

// ListEntries lists payables newest first.
func (r *Repository) ListEntries(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM payables WHERE 1=1`
	args := []any{}
	if filter.SupplierID != 0 {
		args = append(args, filter.SupplierID)
		query += fmt.Sprintf(" AND supplier_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ap: list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var status string
	if err := row.Scan(&e.ID, &e.Code, &e.SupplierID, &e.Amount, &e.DueDate, &e.SettledAt, &status, &e.OrderRef, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	e.Status = Status(status)
	return e, nil
}
