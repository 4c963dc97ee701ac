package cashbook

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Kind classifies the direction of a cash movement.
type Kind string

const (
	KindIn  Kind = "in"
	KindOut Kind = "out"
)

// ParseKind normalizes a cash movement kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindIn:
		return KindIn, nil
	case KindOut:
		return KindOut, nil
	default:
		return "", fmt.Errorf("cashbook: unknown movement kind %q: %w", s, shared.ErrValidation)
	}
}

// Movement is an immutable cash ledger row.
type Movement struct {
	ID          int64
	Kind        Kind
	Amount      decimal.Decimal
	Description string
	Reference   string
	OccurredAt  time.Time
	ActorID     int64
}

// MovementInput describes a movement to post.
type MovementInput struct {
	Kind        Kind
	Amount      decimal.Decimal
	Description string
	Reference   string
	ActorID     int64
}

// MovementFilter narrows ledger listings.
type MovementFilter struct {
	Kind  Kind
	From  time.Time
	To    time.Time
	Limit int
}

// Summary aggregates the ledger over a window. Balance covers all time
// regardless of the window so the caller always sees the real position.
type Summary struct {
	TotalIn  decimal.Decimal
	TotalOut decimal.Decimal
	Net      decimal.Decimal
	Balance  decimal.Decimal
}
