package stock

import (
	"fmt"
	"strings"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Kind enumerates supported stock movements.
type Kind string

const (
	// KindIn represents an inbound movement adding quantity.
	KindIn Kind = "in"
	// KindOut represents an outbound movement removing quantity.
	KindOut Kind = "out"
	// KindAdjustment sets the cached stock to an absolute target value.
	// The quantity is the new stock level, not a delta.
	KindAdjustment Kind = "adjustment"
)

// ParseKind normalises a movement kind. Comparison is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindIn:
		return KindIn, nil
	case KindOut:
		return KindOut, nil
	case KindAdjustment:
		return KindAdjustment, nil
	default:
		return "", fmt.Errorf("stock: unknown movement kind %q: %w", s, shared.ErrValidation)
	}
}

// Movement is one immutable ledger entry. The ledger is the sole source of
// truth for current stock; the cached counter on products is written in the
// same transaction as every insert.
type Movement struct {
	ID         int64
	ProductID  int64
	Kind       Kind
	Quantity   int64
	Reason     string
	Reference  string
	OccurredAt time.Time
	ActorID    int64
}

// MovementInput describes a posting request.
type MovementInput struct {
	ProductID int64
	Kind      Kind
	Quantity  int64
	Reason    string
	Reference string
	ActorID   int64
}

// MovementFilter narrows ledger listings.
type MovementFilter struct {
	ProductID int64
	Kind      Kind
	Limit     int
}
