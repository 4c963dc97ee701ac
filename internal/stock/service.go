package stock

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error
	CurrentStock(ctx context.Context, productID int64) (int64, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	GetMovement(ctx context.Context, id int64) (Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock ledger operations.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics *observability.Metrics
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics}
}

// RecordMovement posts a manual movement. Outbound postings fail when the
// requested quantity exceeds the cached stock read under the row lock.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (Movement, error) {
	var mv Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxLedger) error {
		posted, err := Post(ctx, tx, input)
		if err != nil {
			return err
		}
		mv = posted
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	s.metrics.CountPosting("stock", string(mv.Kind))
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("stock:%s", input.Kind),
			Entity:   "stock_movement",
			EntityID: fmt.Sprintf("%d", mv.ID),
			Meta: map[string]any{
				"product_id": input.ProductID,
				"quantity":   input.Quantity,
				"reason":     input.Reason,
				"reference":  input.Reference,
			},
		})
	}
	return mv, nil
}

// CurrentStock returns the cached running balance for a product. The cache
// is consistent with the ledger because every write path updates both in
// one transaction.
func (s *Service) CurrentStock(ctx context.Context, productID int64) (int64, error) {
	return s.repo.CurrentStock(ctx, productID)
}

// History lists a product's movements, most recent first.
func (s *Service) History(ctx context.Context, productID int64, kind Kind) ([]Movement, error) {
	if productID == 0 {
		return nil, fmt.Errorf("stock: product required: %w", shared.ErrValidation)
	}
	return s.repo.ListMovements(ctx, MovementFilter{ProductID: productID, Kind: kind})
}

// ListMovements lists ledger entries matching the filter.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// GetMovement fetches one ledger entry.
func (s *Service) GetMovement(ctx context.Context, id int64) (Movement, error) {
	return s.repo.GetMovement(ctx, id)
}
