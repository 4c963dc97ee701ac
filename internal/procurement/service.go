package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/stock"
)

// TxRepository is the transactional surface for purchase order writes.
// Ledger binds the stock ledger to the same transaction so receiving an
// order and its inbound postings commit together.
type TxRepository interface {
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	UpdateOrder(ctx context.Context, o Order) error
	DeleteOrder(ctx context.Context, id int64) error
	NextSequence(ctx context.Context, year int) (int64, error)
	Ledger() stock.TxLedger
}

// RepositoryPort abstracts purchase order persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListOrders(ctx context.Context, filter Filter) ([]Order, error)
}

// CatalogPort provides read-only product and partner lookups.
type CatalogPort interface {
	RequireSupplier(ctx context.Context, id int64) (catalog.Partner, error)
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the purchase side of the fulfillment engine.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
	metrics *observability.Metrics
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, catalogSvc CatalogPort, audit AuditPort, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, catalog: catalogSvc, audit: audit, metrics: metrics}
}

// Create persists a pending purchase order. No stock is posted until the
// order is received.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (Order, error) {
	if len(input.Items) == 0 {
		return Order{}, fmt.Errorf("procurement: order needs at least one item: %w", shared.ErrValidation)
	}
	if _, err := s.catalog.RequireSupplier(ctx, input.SupplierID); err != nil {
		return Order{}, err
	}

	items := make([]Item, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return Order{}, fmt.Errorf("procurement: quantity must be positive for product %d: %w", line.ProductID, shared.ErrValidation)
		}
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return Order{}, err
		}
		unitPrice := product.CostPrice
		if line.UnitPrice != nil {
			if line.UnitPrice.IsNegative() {
				return Order{}, fmt.Errorf("procurement: unit price cannot be negative: %w", shared.ErrValidation)
			}
			unitPrice = *line.UnitPrice
		}
		items = append(items, Item{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
		})
	}

	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year := time.Now().UTC().Year()
		seq, err := tx.NextSequence(ctx, year)
		if err != nil {
			return err
		}
		order = Order{
			Code:       shared.FormatCode("PC", year, seq),
			SupplierID: input.SupplierID,
			Status:     StatusPending,
			Notes:      input.Notes,
			CreatedAt:  time.Now().UTC(),
			Items:      items,
		}
		order.RecomputeTotal()

		orderID, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID
		for i := range order.Items {
			order.Items[i].OrderID = orderID
			itemID, err := tx.InsertItem(ctx, order.Items[i])
			if err != nil {
				return err
			}
			order.Items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, actor, "procurement:create", order)
	return order, nil
}

// Approve moves a pending order to approved.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, id int64) (Order, error) {
	order, err := s.transition(ctx, id, StatusApproved)
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, actor, "procurement:approve", order)
	return order, nil
}

// Receive transitions to received and posts one inbound stock movement per
// item in the same transaction. Re-invoking on a received or cancelled
// order fails without posting.
func (s *Service) Receive(ctx context.Context, actor shared.Actor, id int64) (Order, error) {
	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := Transition(o.Status, StatusReceived); err != nil {
			return err
		}
		for _, item := range o.Items {
			if _, err := stock.Post(ctx, tx.Ledger(), stock.MovementInput{
				ProductID: item.ProductID,
				Kind:      stock.KindIn,
				Quantity:  item.Quantity,
				Reason:    "purchase received",
				Reference: o.Code,
				ActorID:   actor.ID,
			}); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		o.Status = StatusReceived
		o.ReceivedAt = &now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	for range order.Items {
		s.metrics.CountPosting("stock", string(stock.KindIn))
	}
	s.record(ctx, actor, "procurement:receive", order)
	return order, nil
}

// Cancel voids a pending or approved order. Nothing has been posted yet in
// either state, so there is no compensation.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, id int64) (Order, error) {
	order, err := s.transition(ctx, id, StatusCancelled)
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, actor, "procurement:cancel", order)
	return order, nil
}

// Update patches header fields on non-terminal orders.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, patch Patch) (Order, error) {
	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return fmt.Errorf("procurement: order %s is %s: %w", o.Code, o.Status, shared.ErrInvalidState)
		}
		if patch.Notes != nil {
			o.Notes = *patch.Notes
		}
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, actor, "procurement:update", order)
	return order, nil
}

// Delete removes a pending order. Nothing has been posted for a pending
// order, so deletion needs no ledger compensation.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != StatusPending {
			return fmt.Errorf("procurement: order %s is %s: %w", o.Code, o.Status, shared.ErrInvalidState)
		}
		order = o
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, "procurement:delete", order)
	return nil
}

// Get fetches one order with items.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// List lists orders newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Order, error) {
	return s.repo.ListOrders(ctx, filter)
}

func (s *Service) transition(ctx context.Context, id int64, to Status) (Order, error) {
	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := Transition(o.Status, to); err != nil {
			return err
		}
		o.Status = to
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	return order, err
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, order Order) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "purchase_order",
		EntityID: order.Code,
		Meta:     map[string]any{"total": order.Total.String(), "status": string(order.Status)},
	})
}
