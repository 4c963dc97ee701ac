package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidRole indicates a partner used outside its role capabilities.
	ErrInvalidRole = errors.New("partner role not allowed for this operation")
	// ErrInvalidState indicates an edit attempted on a terminal or settled entity.
	ErrInvalidState = errors.New("entity state forbids this change")
	// ErrInvalidTransition indicates a status change outside the allowed set.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInsufficientStock indicates a requested quantity above available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TransitionError carries the current and requested status of a rejected
// state change so callers can correct the request.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: transition %q -> %q not permitted", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// InsufficientStockError reports which product lacked stock and by how much.
type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
