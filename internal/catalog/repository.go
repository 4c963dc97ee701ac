package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence for catalog entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, sku, name, category_id, cost_price, sale_price, min_stock, current_stock, active, created_at, updated_at`

// GetProduct fetches one product by id.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// ListProducts returns products matching the filter, ordered by name.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if filter.BelowMinimum {
		query += " AND current_stock < min_stock"
	}
	if filter.ActiveOnly {
		query += " AND active"
	}
	query += " ORDER BY name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateProduct applies an administrative edit. Stock is never touched here.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.SKU != nil {
		add("sku", *patch.SKU)
	}
	if patch.CostPrice != nil {
		add("cost_price", *patch.CostPrice)
	}
	if patch.SalePrice != nil {
		add("sale_price", *patch.SalePrice)
	}
	if patch.MinStock != nil {
		add("min_stock", *patch.MinStock)
	}
	if patch.Active != nil {
		add("active", *patch.Active)
	}
	if len(sets) == 0 {
		return Product{}, fmt.Errorf("catalog: empty patch: %w", shared.ErrValidation)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE products SET %s, updated_at = NOW() WHERE id = $%d RETURNING `+productColumns, strings.Join(sets, ", "), len(args))
	row := r.pool.QueryRow(ctx, query, args...)
	return scanProduct(row)
}

// GetPartner fetches one partner by id.
func (r *Repository) GetPartner(ctx context.Context, id int64) (Partner, error) {
	var p Partner
	var roleTag string
	err := r.pool.QueryRow(ctx, `SELECT id, name, document, role, active FROM partners WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Document, &roleTag, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Partner{}, fmt.Errorf("catalog: partner %d: %w", id, shared.ErrNotFound)
		}
		return Partner{}, err
	}
	roles, err := ParseRoleTag(roleTag)
	if err != nil {
		return Partner{}, err
	}
	p.Roles = roles
	return p, nil
}

// GetSeller fetches one seller by id.
func (r *Repository) GetSeller(ctx context.Context, id int64) (Seller, error) {
	var s Seller
	err := r.pool.QueryRow(ctx, `SELECT id, name, active FROM sellers WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Seller{}, fmt.Errorf("catalog: seller %d: %w", id, shared.ErrNotFound)
		}
		return Seller{}, err
	}
	return s, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.CostPrice, &p.SalePrice, &p.MinStock, &p.CurrentStock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("catalog: product: %w", shared.ErrNotFound)
		}
		return Product{}, err
	}
	return p, nil
}
