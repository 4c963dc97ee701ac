package catalog

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service and for the
// order engines that only need existence and role checks.
type RepositoryPort interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error)
	GetPartner(ctx context.Context, id int64) (Partner, error)
	GetSeller(ctx context.Context, id int64) (Seller, error)
}

// Service exposes the read-side catalog contract consumed by the order
// fulfillment engine plus the administrative product edit.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts lists products for stock screens; BelowMinimum narrows to
// items under their threshold.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// UpdateProduct applies an administrative edit to a product.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	if _, err := s.repo.GetProduct(ctx, id); err != nil {
		return Product{}, err
	}
	return s.repo.UpdateProduct(ctx, id, patch)
}

// GetPartner returns one partner with its capability set.
func (s *Service) GetPartner(ctx context.Context, id int64) (Partner, error) {
	return s.repo.GetPartner(ctx, id)
}

// RequireCustomer resolves a partner and asserts the customer capability.
func (s *Service) RequireCustomer(ctx context.Context, id int64) (Partner, error) {
	partner, err := s.repo.GetPartner(ctx, id)
	if err != nil {
		return Partner{}, err
	}
	if !partner.Roles.CanBuy() {
		return Partner{}, fmt.Errorf("catalog: partner %d is not a customer: %w", id, shared.ErrInvalidRole)
	}
	return partner, nil
}

// RequireSupplier resolves a partner and asserts the supplier capability.
func (s *Service) RequireSupplier(ctx context.Context, id int64) (Partner, error) {
	partner, err := s.repo.GetPartner(ctx, id)
	if err != nil {
		return Partner{}, err
	}
	if !partner.Roles.CanSupply() {
		return Partner{}, fmt.Errorf("catalog: partner %d is not a supplier: %w", id, shared.ErrInvalidRole)
	}
	return partner, nil
}

// RequireSeller asserts a seller exists.
func (s *Service) RequireSeller(ctx context.Context, id int64) (Seller, error) {
	return s.repo.GetSeller(ctx, id)
}
