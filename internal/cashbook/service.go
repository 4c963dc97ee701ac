package cashbook

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts cash ledger persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxBook) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	GetMovement(ctx context.Context, id int64) (Movement, error)
	Balance(ctx context.Context, filter MovementFilter) (decimal.Decimal, error)
	Summarize(ctx context.Context, filter MovementFilter) (Summary, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates cash ledger operations.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics *observability.Metrics
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics}
}

// RecordMovement posts a manual cash entry.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (Movement, error) {
	var mv Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxBook) error {
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
	s.metrics.CountPosting("cash", string(mv.Kind))
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "cash:" + string(input.Kind),
			Entity:   "cash_movement",
			EntityID: fmt.Sprintf("%d", mv.ID),
			Meta:     map[string]any{"amount": input.Amount.String()},
		})
	}
	return mv, nil
}

// Summarize returns windowed in/out/net totals and the all-time balance.
func (s *Service) Summarize(ctx context.Context, filter MovementFilter) (Summary, error) {
	return s.repo.Summarize(ctx, filter)
}

// Balance returns in minus out over the filtered window. Zero filter means
// all time.
func (s *Service) Balance(ctx context.Context, filter MovementFilter) (decimal.Decimal, error) {
	return s.repo.Balance(ctx, filter)
}

// ListMovements lists ledger rows newest first.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// GetMovement fetches one ledger row.
func (s *Service) GetMovement(ctx context.Context, id int64) (Movement, error) {
	return s.repo.GetMovement(ctx, id)
}
