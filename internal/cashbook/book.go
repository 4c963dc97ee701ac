package cashbook

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// TxBook is the transactional surface of the cash ledger. Settlement flows
// bind it to their own transaction so the ledger write commits together with
// the status change that triggered it.
type TxBook interface {
	InsertMovement(ctx context.Context, mv Movement) (int64, error)
}

// Post validates and appends one cash movement through tx.
func Post(ctx context.Context, tx TxBook, input MovementInput) (Movement, error) {
	if input.Kind != KindIn && input.Kind != KindOut {
		return Movement{}, fmt.Errorf("cashbook: unknown movement kind %q: %w", input.Kind, shared.ErrValidation)
	}
	if !input.Amount.IsPositive() {
		return Movement{}, fmt.Errorf("cashbook: amount must be positive: %w", shared.ErrValidation)
	}
	mv := Movement{
		Kind:        input.Kind,
		Amount:      input.Amount,
		Description: input.Description,
		Reference:   input.Reference,
		OccurredAt:  time.Now().UTC(),
		ActorID:     input.ActorID,
	}
	id, err := tx.InsertMovement(ctx, mv)
	if err != nil {
		return Movement{}, fmt.Errorf("cashbook: insert movement: %w", err)
	}
	mv.ID = id
	return mv, nil
}
