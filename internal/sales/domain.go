package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PaymentMethod is how the customer pays a sales order.
type PaymentMethod string

const (
	PayCash       PaymentMethod = "cash"
	PayCreditCard PaymentMethod = "credit_card"
	PayDebitCard  PaymentMethod = "debit_card"
	PayBoleto     PaymentMethod = "boleto"
	PayPix        PaymentMethod = "pix"
	PayTransfer   PaymentMethod = "transfer"
)

// ParsePaymentMethod normalizes a payment method.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case PayCash:
		return PayCash, nil
	case PayCreditCard:
		return PayCreditCard, nil
	case PayDebitCard:
		return PayDebitCard, nil
	case PayBoleto:
		return PayBoleto, nil
	case PayPix:
		return PayPix, nil
	case PayTransfer:
		return PayTransfer, nil
	default:
		return "", fmt.Errorf("sales: unknown payment method %q: %w", s, shared.ErrValidation)
	}
}

// Item is an immutable sales order line.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// LineTotal is (unit price - item discount) * quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Sub(i.Discount).Mul(decimal.NewFromInt(i.Quantity))
}

// Order is a sales order with its line items attached.
type Order struct {
	ID            int64
	Code          string
	CustomerID    int64
	SellerID      int64
	Status        Status
	PaymentMethod PaymentMethod
	Freight       decimal.Decimal
	Discount      decimal.Decimal
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	Notes         string
	CreatedAt     time.Time
	Items         []Item
}

// RecomputeTotals derives subtotal and total from the current items,
// freight and discount. Total is never settable on its own.
func (o *Order) RecomputeTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.Freight).Sub(o.Discount)
}

// ItemInput describes one requested line. A nil UnitPrice means the
// product's current sale price.
type ItemInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice *decimal.Decimal
	Discount  decimal.Decimal
}

// CreateInput describes a new sales order.
type CreateInput struct {
	CustomerID    int64
	SellerID      int64
	PaymentMethod PaymentMethod
	Freight       decimal.Decimal
	Discount      decimal.Decimal
	Notes         string
	Items         []ItemInput
}

// Patch carries optional header updates. Items are immutable after
// creation. A non-nil Status requests a transition.
type Patch struct {
	Freight       *decimal.Decimal
	Discount      *decimal.Decimal
	PaymentMethod *PaymentMethod
	Notes         *string
	Status        *Status
}

// Filter narrows order listings.
type Filter struct {
	CustomerID int64
	Status     Status
	Limit      int
}
