package procurement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Status is the lifecycle state of a purchase order. The stored canonical
// form is lowercase.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusReceived, StatusCancelled},
	StatusApproved:  {StatusReceived, StatusCancelled},
	StatusReceived:  {},
	StatusCancelled: {},
}

// ParseStatus normalizes a purchase order status, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusReceived:
		return StatusReceived, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("procurement: unknown status %q: %w", s, shared.ErrValidation)
	}
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Transition validates from -> to against the allowed set.
func Transition(from, to Status) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &shared.TransitionError{Entity: "purchase order", From: string(from), To: string(to)}
}

// Item is an immutable purchase order line.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

// LineTotal is unit price * quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Order is a purchase order with its line items attached.
type Order struct {
	ID         int64
	Code       string
	SupplierID int64
	Status     Status
	Total      decimal.Decimal
	Notes      string
	CreatedAt  time.Time
	ReceivedAt *time.Time
	Items      []Item
}

// RecomputeTotal derives the total from the current items.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	o.Total = total
}

// ItemInput describes one requested line. A nil UnitPrice means the
// product's current cost price.
type ItemInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice *decimal.Decimal
}

// CreateInput describes a new purchase order.
type CreateInput struct {
	SupplierID int64
	Notes      string
	Items      []ItemInput
}

// Patch carries optional header updates. Items are immutable after
// creation.
type Patch struct {
	Notes *string
}

// Filter narrows order listings.
type Filter struct {
	SupplierID int64
	Status     Status
	Limit      int
}
