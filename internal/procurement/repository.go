package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/stock"
)

const orderColumns = `id, code, supplier_id, status, total, notes, created_at, received_at`

// Repository persists purchase orders in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn in one transaction shared with the stock ledger.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (code, supplier_id, status, total, notes, created_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, o.Code, o.SupplierID, string(o.Status), o.Total, o.Notes, o.CreatedAt, o.ReceivedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("procurement: insert order: %w", err)
	}
	return id, nil
}

func (t *txRepository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO purchase_order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("procurement: insert item: %w", err)
	}
	return id, nil
}

func (t *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	order.Items, err = loadItems(ctx, t.tx, order.ID)
	return order, err
}

func (t *txRepository) UpdateOrder(ctx context.Context, o Order) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE purchase_orders
		SET status = $2, total = $3, notes = $4, received_at = $5
		WHERE id = $1
	`, o.ID, string(o.Status), o.Total, o.Notes, o.ReceivedAt)
	if err != nil {
		return fmt.Errorf("procurement: update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) DeleteOrder(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("procurement: delete items: %w", err)
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("procurement: delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) NextSequence(ctx context.Context, year int) (int64, error) {
	return shared.NextSequence(ctx, t.tx, "purchase_order", year)
}

func (t *txRepository) Ledger() stock.TxLedger {
	return stock.NewTxLedger(t.tx)
}

// GetOrder fetches one order with items outside a transaction.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	order.Items, err = loadItems(ctx, r.pool, order.ID)
	return order, err
}

// ListOrders lists orders newest first, items not attached.
func (r *Repository) ListOrders(ctx context.Context, filter Filter) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE 1=1`
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
		return nil, fmt.Errorf("procurement: list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, orderID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM purchase_order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("procurement: load items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	if err := row.Scan(&o.ID, &o.Code, &o.SupplierID, &status, &o.Total, &o.Notes, &o.CreatedAt, &o.ReceivedAt); err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	return o, nil
}
