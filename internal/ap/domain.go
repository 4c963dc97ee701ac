package ap

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Status is the lifecycle state of a payable entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSettled   Status = "settled"
	StatusCancelled Status = "cancelled"
)

// ParseStatus normalizes a payable status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusSettled:
		return StatusSettled, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("ap: unknown status %q: %w", s, shared.ErrValidation)
	}
}

// Entry is a payable ledger row.
type Entry struct {
	ID         int64
	Code       string
	SupplierID int64
	Amount     decimal.Decimal
	DueDate    time.Time
	SettledAt  *time.Time
	Status     Status
	OrderRef   string
	CreatedAt  time.Time
}

// CreateInput describes a new payable.
type CreateInput struct {
	SupplierID int64
	Amount     decimal.Decimal
	DueDate    time.Time
	OrderRef   string
}

// Patch carries optional field updates. Nil fields are left untouched.
type Patch struct {
	Amount  *decimal.Decimal
	DueDate *time.Time
}

// Filter narrows payable listings.
type Filter struct {
	SupplierID int64
	Status     Status
	Limit      int
}
