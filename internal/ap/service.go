package ap

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/cashbook"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// TxRepository is the transactional surface for payable writes. Cashbook is
// bound to the same transaction so settlement and its cash outflow commit
// together.
type TxRepository interface {
	InsertEntry(ctx context.Context, e Entry) (int64, error)
	GetEntryForUpdate(ctx context.Context, id int64) (Entry, error)
	UpdateEntry(ctx context.Context, e Entry) error
	DeleteEntry(ctx context.Context, id int64) error
	NextSequence(ctx context.Context, year int) (int64, error)
	Cashbook() cashbook.TxBook
}

// RepositoryPort abstracts payable persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntry(ctx context.Context, id int64) (Entry, error)
	ListEntries(ctx context.Context, filter Filter) ([]Entry, error)
}

// CatalogPort provides partner role checks.
type CatalogPort interface {
	RequireSupplier(ctx context.Context, id int64) (catalog.Partner, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PolicyPort exposes runtime-configurable guard overrides. Payables ship
// with the settled-edit override disabled; the receivable side may enable
// it independently.
type PolicyPort interface {
	AllowSettledEdit() bool
}

// Service coordinates the payable ledger.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
	policy  PolicyPort
	metrics *observability.Metrics
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, catalogSvc CatalogPort, audit AuditPort, policy PolicyPort, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, catalog: catalogSvc, audit: audit, policy: policy, metrics: metrics}
}

// Create opens a pending payable against a supplier.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (Entry, error) {
	if !input.Amount.IsPositive() {
		return Entry{}, fmt.Errorf("ap: amount must be positive: %w", shared.ErrValidation)
	}
	if input.DueDate.IsZero() {
		return Entry{}, fmt.Errorf("ap: due date required: %w", shared.ErrValidation)
	}
	if _, err := s.catalog.RequireSupplier(ctx, input.SupplierID); err != nil {
		return Entry{}, err
	}

	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year := time.Now().UTC().Year()
		seq, err := tx.NextSequence(ctx, year)
		if err != nil {
			return err
		}
		entry = Entry{
			Code:       shared.FormatCode("CP", year, seq),
			SupplierID: input.SupplierID,
			Amount:     input.Amount,
			DueDate:    input.DueDate,
			Status:     StatusPending,
			OrderRef:   input.OrderRef,
			CreatedAt:  time.Now().UTC(),
		}
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, actor, "ap:create", entry)
	return entry, nil
}

// Settle marks the entry settled and posts exactly one cash outflow for its
// amount. Re-invoking on a settled entry is rejected without posting.
func (s *Service) Settle(ctx context.Context, actor shared.Actor, id int64, settledAt *time.Time) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		e, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if e.Status != StatusPending {
			return fmt.Errorf("ap: entry %s is %s: %w", e.Code, e.Status, shared.ErrInvalidState)
		}
		when := time.Now().UTC()
		if settledAt != nil {
			when = settledAt.UTC()
		}
		e.Status = StatusSettled
		e.SettledAt = &when
		if err := tx.UpdateEntry(ctx, e); err != nil {
			return err
		}
		if _, err := cashbook.Post(ctx, tx.Cashbook(), cashbook.MovementInput{
			Kind:        cashbook.KindOut,
			Amount:      e.Amount,
			Description: "payable " + e.Code + " settled",
			Reference:   e.Code,
			ActorID:     actor.ID,
		}); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.metrics.CountSettlement("payable")
	s.metrics.CountPosting("cash", string(cashbook.KindOut))
	s.record(ctx, actor, "ap:settle", entry)
	return entry, nil
}

// Cancel voids a pending entry. No cash posting is made.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, id int64) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		e, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if e.Status != StatusPending {
			return &shared.TransitionError{Entity: "payable", From: string(e.Status), To: string(StatusCancelled)}
		}
		e.Status = StatusCancelled
		if err := tx.UpdateEntry(ctx, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, actor, "ap:cancel", entry)
	return entry, nil
}

// Update patches amount or due date on non-terminal entries.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, patch Patch) (Entry, error) {
	if patch.Amount != nil && !patch.Amount.IsPositive() {
		return Entry{}, fmt.Errorf("ap: amount must be positive: %w", shared.ErrValidation)
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		e, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch e.Status {
		case StatusCancelled:
			return fmt.Errorf("ap: entry %s is cancelled: %w", e.Code, shared.ErrInvalidState)
		case StatusSettled:
			if !actor.IsAdmin() || !s.policy.AllowSettledEdit() {
				return fmt.Errorf("ap: entry %s is settled: %w", e.Code, shared.ErrInvalidState)
			}
		}
		if patch.Amount != nil {
			e.Amount = *patch.Amount
		}
		if patch.DueDate != nil {
			e.DueDate = *patch.DueDate
		}
		if err := tx.UpdateEntry(ctx, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, actor, "ap:update", entry)
	return entry, nil
}

// Delete removes a pending entry.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		e, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if e.Status != StatusPending {
			return fmt.Errorf("ap: entry %s is %s: %w", e.Code, e.Status, shared.ErrInvalidState)
		}
		entry = e
		return tx.DeleteEntry(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, "ap:delete", entry)
	return nil
}

// Get fetches one payable.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

// List lists payables newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, entry Entry) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "payable",
		EntityID: entry.Code,
		Meta:     map[string]any{"amount": entry.Amount.String(), "status": string(entry.Status)},
	})
}
