package engine

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidOrder rejects placements with an unknown side or non-positive
// price or quantity before they touch the book.
var ErrInvalidOrder = errors.New("order side must be bid or ask, price and quantity positive")

type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// State tracks an order's lifecycle. Filled and Cancelled are terminal; an
// order never re-activates.
type State int

const (
	Active State = iota
	Filled
	Cancelled
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Order is a resting bid or ask. Price and post time are immutable after
// placement; Quantity is the remaining size and shrinks on partial fills.
// Only the book mutates orders; callers hold the ID and read copies.
type Order struct {
	ID     uuid.UUID
	Side   Side
	Issuer uuid.UUID
	Price  decimal.Decimal
	// Quantity is the authoritative remaining size.
	Quantity decimal.Decimal
	// PostTime is a monotonic placement sequence used for time priority and
	// the settlement price rule. Step is the clock step it was posted in.
	PostTime uint64
	Step     uint64

	state State
}

func (o *Order) State() State {
	return o.state
}
