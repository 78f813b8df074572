package engine

import "fmt"

// Side is which book side an order trades on.
type Side uint8

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType is one of Limit, Market, or StopLoss (spec §3).
type OrderType uint8

const (
	TypeLimit OrderType = iota + 1
	TypeMarket
	TypeStopLoss
)

func (t OrderType) String() string {
	switch t {
	case TypeLimit:
		return "limit"
	case TypeMarket:
		return "market"
	case TypeStopLoss:
		return "stop_loss"
	default:
		return "unknown"
	}
}

// Status is an order's lifecycle state. It is monotonic along
// Pending -> (PartialFill)* -> Filled / Cancelled / Rejected, with Triggered
// marking the instant a stop-loss order converts to a market order.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusPartialFill
	StatusFilled
	StatusCancelled
	StatusRejected
	StatusTriggered
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPartialFill:
		return "partial_fill"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	case StatusRejected:
		return "rejected"
	case StatusTriggered:
		return "triggered"
	default:
		return "unknown"
	}
}

// Order is the engine's internal representation: immutable identity fields
// plus mutable residual state. Prices are integer ticks (see
// internal/types for the decimal<->tick boundary conversion); ticks avoid
// float/decimal rounding and map-key hazards on the hot matching path.
type Order struct {
	ID                string
	Owner             string
	Symbol            string
	Side              Side
	Type              OrderType
	LimitPriceTicks   int64 // > 0 iff Type == TypeLimit; ignored for Market
	TriggerPriceTicks int64 // > 0 iff Type == TypeStopLoss
	OriginalQty       int64
	RemainingQty      int64
	Status            Status
	CreatedAt         int64 // monotonic microseconds; arrival timestamp for FIFO priority
}

// IsLive reports whether the order can still rest or trade.
func (o *Order) IsLive() bool {
	return o.Status == StatusPending || o.Status == StatusPartialFill
}

// Fill reduces the order's remaining quantity by qty, updating status.
func (o *Order) Fill(qty int64) error {
	if qty <= 0 || qty > o.RemainingQty {
		return fmt.Errorf("engine: invalid fill quantity %d against remaining %d", qty, o.RemainingQty)
	}
	o.RemainingQty -= qty
	if o.RemainingQty == 0 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartialFill
	}
	return nil
}

// Cancel transitions a live order to Cancelled. Allowed only from
// Pending/PartialFill.
func (o *Order) Cancel() error {
	if !o.IsLive() {
		return fmt.Errorf("engine: cannot cancel order %s in terminal status %s", o.ID, o.Status)
	}
	o.Status = StatusCancelled
	return nil
}

// CompatibleWith reports whether o and other may trade against each other:
// same symbol, opposite sides, both live, both with remaining quantity, and
// either side is a market order or the limit prices cross (buy >= sell).
func (o *Order) CompatibleWith(other *Order) bool {
	if o == nil || other == nil {
		return false
	}
	if o.Symbol != other.Symbol || o.Side == other.Side {
		return false
	}
	if !o.IsLive() || !other.IsLive() {
		return false
	}
	if o.RemainingQty <= 0 || other.RemainingQty <= 0 {
		return false
	}
	if o.Type == TypeMarket || other.Type == TypeMarket {
		return true
	}
	buy, sell := o, other
	if o.Side == SideSell {
		buy, sell = other, o
	}
	return buy.LimitPriceTicks >= sell.LimitPriceTicks
}
