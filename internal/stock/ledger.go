package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// TxLedger is the transactional surface needed to post one movement. The
// order engines obtain an implementation bound to their own transaction so
// order rows and ledger postings commit or roll back together.
type TxLedger interface {
	// GetStockForUpdate reads the cached stock under a row lock held until
	// the surrounding transaction ends.
	GetStockForUpdate(ctx context.Context, productID int64) (int64, error)
	InsertMovement(ctx context.Context, mv Movement) (int64, error)
	SetCachedStock(ctx context.Context, productID, qty int64) error
}

// Post validates and applies one movement inside the caller's transaction.
// The cached counter and the ledger row always change together.
func Post(ctx context.Context, tx TxLedger, input MovementInput) (Movement, error) {
	if input.ProductID == 0 {
		return Movement{}, fmt.Errorf("stock: product required: %w", shared.ErrValidation)
	}
	if input.Quantity <= 0 {
		return Movement{}, fmt.Errorf("stock: quantity must be a positive integer: %w", shared.ErrValidation)
	}

	current, err := tx.GetStockForUpdate(ctx, input.ProductID)
	if err != nil {
		return Movement{}, err
	}

	var newQty int64
	switch input.Kind {
	case KindIn:
		newQty = current + input.Quantity
	case KindOut:
		if input.Quantity > current {
			return Movement{}, &shared.InsufficientStockError{
				ProductID: input.ProductID,
				Requested: input.Quantity,
				Available: current,
			}
		}
		newQty = current - input.Quantity
	case KindAdjustment:
		// Absolute target, not a delta.
		newQty = input.Quantity
	default:
		return Movement{}, fmt.Errorf("stock: unknown movement kind %q: %w", input.Kind, shared.ErrValidation)
	}

	mv := Movement{
		ProductID:  input.ProductID,
		Kind:       input.Kind,
		Quantity:   input.Quantity,
		Reason:     input.Reason,
		Reference:  input.Reference,
		OccurredAt: time.Now().UTC(),
		ActorID:    input.ActorID,
	}
	id, err := tx.InsertMovement(ctx, mv)
	if err != nil {
		return Movement{}, err
	}
	mv.ID = id

	if err := tx.SetCachedStock(ctx, input.ProductID, newQty); err != nil {
		return Movement{}, err
	}
	return mv, nil
}
