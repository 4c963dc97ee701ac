package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type fakeRepo struct {
	products map[int64]Product
	partners map[int64]Partner
	sellers  map[int64]Seller
}

func (f *fakeRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, fmt.Errorf("catalog: product %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

func (f *fakeRepo) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var out []Product
	for _, p := range f.products {
		if filter.BelowMinimum && !p.BelowMinimum() {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	p := f.products[id]
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.SalePrice != nil {
		p.SalePrice = *patch.SalePrice
	}
	if patch.MinStock != nil {
		p.MinStock = *patch.MinStock
	}
	f.products[id] = p
	return p, nil
}

func (f *fakeRepo) GetPartner(ctx context.Context, id int64) (Partner, error) {
	p, ok := f.partners[id]
	if !ok {
		return Partner{}, fmt.Errorf("catalog: partner %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

func (f *fakeRepo) GetSeller(ctx context.Context, id int64) (Seller, error) {
	s, ok := f.sellers[id]
	if !ok {
		return Seller{}, fmt.Errorf("catalog: seller %d: %w", id, shared.ErrNotFound)
	}
	return s, nil
}

func mustRoles(t *testing.T, tag string) RoleSet {
	t.Helper()
	roles, err := ParseRoleTag(tag)
	require.NoError(t, err)
	return roles
}

func TestParseRoleTag(t *testing.T) {
	customer := mustRoles(t, "customer")
	require.True(t, customer.CanBuy())
	require.False(t, customer.CanSupply())

	supplier := mustRoles(t, " Supplier ")
	require.False(t, supplier.CanBuy())
	require.True(t, supplier.CanSupply())

	both := mustRoles(t, "both")
	require.True(t, both.CanBuy())
	require.True(t, both.CanSupply())
	require.Equal(t, "both", both.Tag())

	_, err := ParseRoleTag("reseller")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRequireCustomerRejectsSupplierOnly(t *testing.T) {
	repo := &fakeRepo{partners: map[int64]Partner{
		1: {ID: 1, Name: "Horizonte", Roles: mustRoles(t, "supplier")},
		2: {ID: 2, Name: "Andrade", Roles: mustRoles(t, "both")},
	}}
	svc := NewService(repo)

	_, err := svc.RequireCustomer(context.Background(), 1)
	require.ErrorIs(t, err, shared.ErrInvalidRole)

	partner, err := svc.RequireCustomer(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), partner.ID)

	_, err = svc.RequireCustomer(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRequireSupplier(t *testing.T) {
	repo := &fakeRepo{partners: map[int64]Partner{
		1: {ID: 1, Roles: mustRoles(t, "customer")},
	}}
	svc := NewService(repo)

	_, err := svc.RequireSupplier(context.Background(), 1)
	require.ErrorIs(t, err, shared.ErrInvalidRole)
}

func TestUpdateProductUnknownID(t *testing.T) {
	svc := NewService(&fakeRepo{products: map[int64]Product{}})

	name := "Novo nome"
	_, err := svc.UpdateProduct(context.Background(), 5, ProductPatch{Name: &name})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBelowMinimum(t *testing.T) {
	p := Product{MinStock: 10, CurrentStock: 9, SalePrice: decimal.NewFromInt(5)}
	require.True(t, p.BelowMinimum())
	p.CurrentStock = 10
	require.False(t, p.BelowMinimum())
}
