// Package risk provides a starter engine.Risk implementation. Balance
// reservation and full risk-limit evaluation are explicitly out of scope
// (spec.md Non-goals); this package only demonstrates the collaborator
// boundary with a configurable notional cap per order, the simplest check
// a real risk engine would also apply before anything more elaborate.
package risk

import (
	"github.com/oakline-markets/matching-engine/internal/engine"
)

// NotionalCap rejects any order whose price*quantity (at its own limit
// price, or the book's last trade price for a Market order) exceeds
// MaxNotionalTicks. Zero disables the check for that field.
type NotionalCap struct {
	MaxNotionalTicks int64
}

func (c NotionalCap) Admit(order *engine.Order, snapshot engine.BookSnapshot) error {
	if c.MaxNotionalTicks <= 0 {
		return nil
	}
	price := order.LimitPriceTicks
	if price == 0 {
		price = snapshot.LastTradePriceTicks
	}
	if price == 0 {
		return nil
	}
	notional := price * order.OriginalQty
	if notional > c.MaxNotionalTicks {
		return engine.NewValidationError("order notional %d exceeds cap %d", notional, c.MaxNotionalTicks)
	}
	return nil
}
