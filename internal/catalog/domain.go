package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Product is a catalog item. CurrentStock is a cached running balance owned
// by the stock ledger; the only writers are ledger postings and the
// administrative edit in this package.
type Product struct {
	ID           int64
	SKU          string
	Name         string
	CategoryID   int64
	CostPrice    decimal.Decimal
	SalePrice    decimal.Decimal
	MinStock     int64
	CurrentStock int64
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelowMinimum reports whether the cached stock dropped under the threshold.
func (p Product) BelowMinimum() bool {
	return p.CurrentStock < p.MinStock
}

// RoleSet is the capability set a partner holds. The store keeps a single
// tag ("customer", "supplier", "both"); everything outside this package
// works with capabilities, never the raw tag.
type RoleSet struct {
	customer bool
	supplier bool
}

// CanBuy reports whether the partner may appear as a sales customer.
func (r RoleSet) CanBuy() bool { return r.customer }

// CanSupply reports whether the partner may appear as a purchase supplier.
func (r RoleSet) CanSupply() bool { return r.supplier }

// Tag returns the canonical stored form of the role set.
func (r RoleSet) Tag() string {
	switch {
	case r.customer && r.supplier:
		return "both"
	case r.supplier:
		return "supplier"
	default:
		return "customer"
	}
}

// ParseRoleTag converts a stored role tag into a capability set.
// Comparison is case-insensitive.
func ParseRoleTag(tag string) (RoleSet, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "customer":
		return RoleSet{customer: true}, nil
	case "supplier":
		return RoleSet{supplier: true}, nil
	case "both":
		return RoleSet{customer: true, supplier: true}, nil
	default:
		return RoleSet{}, fmt.Errorf("catalog: unknown partner role %q: %w", tag, shared.ErrValidation)
	}
}

// Partner plays the customer and/or supplier role against orders and the
// receivable/payable ledgers.
type Partner struct {
	ID       int64
	Name     string
	Document string
	Roles    RoleSet
	Active   bool
}

// Seller is a salesperson referenced by sales orders.
type Seller struct {
	ID     int64
	Name   string
	Active bool
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID   int64
	BelowMinimum bool
	ActiveOnly   bool
	Limit        int
}

// ProductPatch carries the administrative edit fields. Nil means unchanged.
type ProductPatch struct {
	Name      *string
	SKU       *string
	CostPrice *decimal.Decimal
	SalePrice *decimal.Decimal
	MinStock  *int64
	Active    *bool
}
