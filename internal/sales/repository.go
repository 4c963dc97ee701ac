package sales

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

const orderColumns = `id, code, customer_id, seller_id, status, payment_method, freight, discount, subtotal, total, notes, created_at`

// Repository persists sales orders in Postgres.
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
		INSERT INTO sales_orders (code, customer_id, seller_id, status, payment_method, freight, discount, subtotal, total, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, o.Code, o.CustomerID, nullableID(o.SellerID), string(o.Status), string(o.PaymentMethod),
		o.Freight, o.Discount, o.Subtotal, o.Total, o.Notes, o.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sales: insert order: %w", err)
	}
	return id, nil
}

func (t *txRepository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sales_order_items (order_id, product_id, quantity, unit_price, discount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Discount).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sales: insert item: %w", err)
	}
	return id, nil
}

func (t *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id = $1 FOR UPDATE`, id)
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
		UPDATE sales_orders
		SET status = $2, payment_method = $3, freight = $4, discount = $5, subtotal = $6, total = $7, notes = $8
		WHERE id = $1
	`, o.ID, string(o.Status), string(o.PaymentMethod), o.Freight, o.Discount, o.Subtotal, o.Total, o.Notes)
	if err != nil {
		return fmt.Errorf("sales: update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) DeleteOrder(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM sales_order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("sales: delete items: %w", err)
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM sales_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sales: delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) NextSequence(ctx context.Context, year int) (int64, error) {
	return shared.NextSequence(ctx, t.tx, "sales_order", year)
}

func (t *txRepository) Ledger() stock.TxLedger {
	return stock.NewTxLedger(t.tx)
}

// GetOrder fetches one order with items outside a transaction.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id = $1`, id)
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
	query := `SELECT ` + orderColumns + ` FROM sales_orders WHERE 1=1`
	args := []any{}
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
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
		return nil, fmt.Errorf("sales: list orders: %w", err)
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
		SELECT id, order_id, product_id, quantity, unit_price, discount
		FROM sales_order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("sales: load items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.Discount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status, payment string
	var sellerID *int64
	if err := row.Scan(&o.ID, &o.Code, &o.CustomerID, &sellerID, &status, &payment,
		&o.Freight, &o.Discount, &o.Subtotal, &o.Total, &o.Notes, &o.CreatedAt); err != nil {
		return Order{}, err
	}
	if sellerID != nil {
		o.SellerID = *sellerID
	}
	o.Status = Status(status)
	o.PaymentMethod = PaymentMethod(payment)
	return o, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
