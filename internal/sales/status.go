package sales

import (
	"fmt"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Status is the lifecycle state of a sales order. The stored canonical
// form is lowercase.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFinalized Status = "finalized"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusFinalized, StatusCancelled},
	StatusFinalized: {},
	StatusCancelled: {},
}

// ParseStatus normalizes a sales order status, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusFinalized:
		return StatusFinalized, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("sales: unknown status %q: %w", s, shared.ErrValidation)
	}
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Transition validates from -> to against the allowed set.
func Transition(entity string, from, to Status) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &shared.TransitionError{Entity: entity, From: string(from), To: string(to)}
}
