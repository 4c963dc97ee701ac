package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/stock"
)

// TxRepository is the transactional surface for order writes. Ledger binds
// the stock ledger to the same transaction, so order rows and their stock
// postings commit together or not at all.
type TxRepository interface {
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	UpdateOrder(ctx context.Context, o Order) error
	DeleteOrder(ctx context.Context, id int64) error
	NextSequence(ctx context.Context, year int) (int64, error)
	Ledger() stock.TxLedger
}

// RepositoryPort abstracts sales order persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListOrders(ctx context.Context, filter Filter) ([]Order, error)
}

// CatalogPort provides read-only product and partner lookups.
type CatalogPort interface {
	RequireCustomer(ctx context.Context, id int64) (catalog.Partner, error)
	RequireSeller(ctx context.Context, id int64) (catalog.Seller, error)
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PolicyPort exposes runtime-configurable guard overrides. Finalized
// orders reject edits even from admins unless the override is enabled.
type PolicyPort interface {
	AllowFinalizedEdit() bool
}

// Service is the sales side of the fulfillment engine. Every mutation runs
// as a single transaction covering the order row, its items and all stock
// ledger postings.
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

// Create validates the customer, seller and every line, persists the order
// and posts one outbound stock movement per item. Any failing line aborts
// the whole order, including movements already posted for earlier lines.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (Order, error) {
	if len(input.Items) == 0 {
		return Order{}, fmt.Errorf("sales: order needs at least one item: %w", shared.ErrValidation)
	}
	payment, err := ParsePaymentMethod(string(input.PaymentMethod))
	if err != nil {
		return Order{}, err
	}
	input.PaymentMethod = payment
	if input.Freight.IsNegative() || input.Discount.IsNegative() {
		return Order{}, fmt.Errorf("sales: freight and discount cannot be negative: %w", shared.ErrValidation)
	}
	if _, err := s.catalog.RequireCustomer(ctx, input.CustomerID); err != nil {
		return Order{}, err
	}
	if input.SellerID != 0 {
		if _, err := s.catalog.RequireSeller(ctx, input.SellerID); err != nil {
			return Order{}, err
		}
	}

	items := make([]Item, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return Order{}, fmt.Errorf("sales: quantity must be positive for product %d: %w", line.ProductID, shared.ErrValidation)
		}
		if line.Discount.IsNegative() {
			return Order{}, fmt.Errorf("sales: item discount cannot be negative: %w", shared.ErrValidation)
		}
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return Order{}, err
		}
		unitPrice := product.SalePrice
		if line.UnitPrice != nil {
			if line.UnitPrice.IsNegative() {
				return Order{}, fmt.Errorf("sales: unit price cannot be negative: %w", shared.ErrValidation)
			}
			unitPrice = *line.UnitPrice
		}
		items = append(items, Item{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			Discount:  line.Discount,
		})
	}

	var order Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year := time.Now().UTC().Year()
		seq, err := tx.NextSequence(ctx, year)
		if err != nil {
			return err
		}
		order = Order{
			Code:          shared.FormatCode("PV", year, seq),
			CustomerID:    input.CustomerID,
			SellerID:      input.SellerID,
			Status:        StatusPending,
			PaymentMethod: input.PaymentMethod,
			Freight:       input.Freight,
			Discount:      input.Discount,
			Notes:         input.Notes,
			CreatedAt:     time.Now().UTC(),
			Items:         items,
		}
		order.RecomputeTotals()

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
		// The stock check runs under the row lock inside Post, so two
		// concurrent orders cannot both pass and drive stock negative.
		for _, item := range order.Items {
			if _, err := stock.Post(ctx, tx.Ledger(), stock.MovementInput{
				ProductID: item.ProductID,
				Kind:      stock.KindOut,
				Quantity:  item.Quantity,
				Reason:    "sales order",
				Reference: order.Code,
				ActorID:   actor.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	for range order.Items {
		s.metrics.CountPosting("stock", string(stock.KindOut))
	}
	s.record(ctx, actor, "sales:create", order)
	return order, nil
}

// Update patches header fields and optionally transitions status. Total is
// recomputed whenever freight or discount change. A transition to
// cancelled fires the compensating stock postings once.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, patch Patch) (Order, error) {
	if patch.Freight != nil && patch.Freight.IsNegative() {
		return Order{}, fmt.Errorf("sales: freight cannot be negative: %w", shared.ErrValidation)
	}
	if patch.Discount != nil && patch.Discount.IsNegative() {
		return Order{}, fmt.Errorf("sales: discount cannot be negative: %w", shared.ErrValidation)
	}
	if patch.PaymentMethod != nil {
		payment, err := ParsePaymentMethod(string(*patch.PaymentMethod))
		if err != nil {
			return Order{}, err
		}
		patch.PaymentMethod = &payment
	}
	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if patch.Status != nil {
			if err := Transition("sales order", o.Status, *patch.Status); err != nil {
				return err
			}
		} else if o.Status.Terminal() && !(actor.IsAdmin() && s.policy.AllowFinalizedEdit()) {
			return fmt.Errorf("sales: order %s is %s: %w", o.Code, o.Status, shared.ErrInvalidState)
		}

		if patch.Freight != nil {
			o.Freight = *patch.Freight
		}
		if patch.Discount != nil {
			o.Discount = *patch.Discount
		}
		if patch.PaymentMethod != nil {
			o.PaymentMethod = *patch.PaymentMethod
		}
		if patch.Notes != nil {
			o.Notes = *patch.Notes
		}
		o.RecomputeTotals()

		if patch.Status != nil && *patch.Status == StatusCancelled && o.Status != StatusCancelled {
			if err := restoreStock(ctx, tx.Ledger(), o, actor.ID); err != nil {
				return err
			}
		}
		if patch.Status != nil {
			o.Status = *patch.Status
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
	if patch.Status != nil && *patch.Status == StatusCancelled {
		for range order.Items {
			s.metrics.CountPosting("stock", string(stock.KindIn))
		}
	}
	s.record(ctx, actor, "sales:update", order)
	return order, nil
}

// Finalize moves a pending order to its closed terminal state.
func (s *Service) Finalize(ctx context.Context, actor shared.Actor, id int64) (Order, error) {
	status := StatusFinalized
	return s.Update(ctx, actor, id, Patch{Status: &status})
}

// Cancel transitions a pending order to cancelled and restores its stock.
// Finalized orders cannot be cancelled, and a second cancel is rejected.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, id int64) (Order, error) {
	status := StatusCancelled
	return s.Update(ctx, actor, id, Patch{Status: &status})
}

// Delete removes a pending order after restoring its stock.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != StatusPending {
			return fmt.Errorf("sales: order %s is %s: %w", o.Code, o.Status, shared.ErrInvalidState)
		}
		if err := restoreStock(ctx, tx.Ledger(), o, actor.ID); err != nil {
			return err
		}
		order = o
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}
	for range order.Items {
		s.metrics.CountPosting("stock", string(stock.KindIn))
	}
	s.record(ctx, actor, "sales:delete", order)
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

func restoreStock(ctx context.Context, ledger stock.TxLedger, o Order, actorID int64) error {
	for _, item := range o.Items {
		if _, err := stock.Post(ctx, ledger, stock.MovementInput{
			ProductID: item.ProductID,
			Kind:      stock.KindIn,
			Quantity:  item.Quantity,
			Reason:    "order cancelled",
			Reference: o.Code,
			ActorID:   actorID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, order Order) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "sales_order",
		EntityID: order.Code,
		Meta:     map[string]any{"total": order.Total.String(), "status": string(order.Status)},
	})
}
