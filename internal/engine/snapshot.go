package engine

import (
	"fmt"
	"log/slog"
)

// OrderSnapshot serializes every field of an Order (spec §6 "Orders
// serialize every field of §3").
type OrderSnapshot struct {
	ID                string
	Owner             string
	Symbol            string
	Side              Side
	Type              OrderType
	LimitPriceTicks   int64
	TriggerPriceTicks int64
	OriginalQty       int64
	RemainingQty      int64
	Status            Status
	CreatedAt         int64
}

// BookState is one symbol's exported state: last-trade price, counters, and
// the sequence of live orders and stop orders needed to reconstruct the book
// deterministically (spec §4.7, §6 "Snapshot format").
type BookState struct {
	Symbol              string
	LastTradePriceTicks int64
	CumulativeTrades    int64
	CumulativeVolume    int64
	Orders              []OrderSnapshot // matchable side orders, in (side, price, arrival) order
	Stops               []OrderSnapshot // stop-index orders
}

func snapshotOf(o *Order) OrderSnapshot {
	return OrderSnapshot{
		ID:                o.ID,
		Owner:             o.Owner,
		Symbol:            o.Symbol,
		Side:              o.Side,
		Type:              o.Type,
		LimitPriceTicks:   o.LimitPriceTicks,
		TriggerPriceTicks: o.TriggerPriceTicks,
		OriginalQty:       o.OriginalQty,
		RemainingQty:      o.RemainingQty,
		Status:            o.Status,
		CreatedAt:         o.CreatedAt,
	}
}

func orderOf(s OrderSnapshot) *Order {
	return &Order{
		ID:                s.ID,
		Owner:             s.Owner,
		Symbol:            s.Symbol,
		Side:              s.Side,
		Type:              s.Type,
		LimitPriceTicks:   s.LimitPriceTicks,
		TriggerPriceTicks: s.TriggerPriceTicks,
		OriginalQty:       s.OriginalQty,
		RemainingQty:      s.RemainingQty,
		Status:            s.Status,
		CreatedAt:         s.CreatedAt,
	}
}

// ExportState dumps this book's entire live state in the order (side, price,
// arrival-timestamp) that spec §4.7 requires.
func (b *OrderBook) ExportState() BookState {
	return BookState{
		Symbol:              b.symbol,
		LastTradePriceTicks: b.lastTradePriceTicks,
		CumulativeTrades:    b.cumulativeTrades,
		CumulativeVolume:    b.cumulativeVolume,
		Orders:              append(exportSide(b.bids), exportSide(b.asks)...),
		Stops:               append(exportSide(b.buyStops), exportSide(b.sellStops)...),
	}
}

func exportSide(idx *priceIndex) []OrderSnapshot {
	var out []OrderSnapshot
	for _, p := range idx.prices {
		lvl := idx.levels[p]
		for i := lvl.head; i < len(lvl.orders); i++ {
			out = append(out, snapshotOf(lvl.orders[i]))
		}
	}
	return out
}

// NewOrderBookFromState reconstructs a book from a previously exported
// BookState. It rejects streams whose invariants (spec §3) do not hold,
// rather than silently loading corrupt state.
func NewOrderBookFromState(state BookState, maxTriggerDepth int, stopLossEnabled bool, logger *slog.Logger) (*OrderBook, error) {
	b := NewOrderBook(state.Symbol, maxTriggerDepth, stopLossEnabled, logger)
	b.lastTradePriceTicks = state.LastTradePriceTicks
	b.cumulativeTrades = state.CumulativeTrades
	b.cumulativeVolume = state.CumulativeVolume

	for _, s := range state.Orders {
		if s.Symbol != state.Symbol {
			return nil, fmt.Errorf("engine: order %q belongs to symbol %q, not %q", s.ID, s.Symbol, state.Symbol)
		}
		o := orderOf(s)
		if err := validateReloadedOrder(o); err != nil {
			return nil, err
		}
		if _, exists := b.orders[o.ID]; exists {
			return nil, fmt.Errorf("engine: duplicate order id %q in snapshot", o.ID)
		}
		b.rest(o)
	}

	for _, s := range state.Stops {
		if s.Symbol != state.Symbol {
			return nil, fmt.Errorf("engine: stop order %q belongs to symbol %q, not %q", s.ID, s.Symbol, state.Symbol)
		}
		o := orderOf(s)
		o.Type = TypeStopLoss
		if err := validateReloadedOrder(o); err != nil {
			return nil, err
		}
		if _, exists := b.orders[o.ID]; exists {
			return nil, fmt.Errorf("engine: duplicate order id %q in snapshot", o.ID)
		}
		b.restStop(o)
	}

	return b, nil
}

// validateReloadedOrder enforces the invariants of spec §3 against a
// deserialized order before it is admitted back into a book.
func validateReloadedOrder(o *Order) error {
	if o.ID == "" {
		return fmt.Errorf("engine: snapshot order has empty id")
	}
	if o.OriginalQty <= 0 {
		return fmt.Errorf("engine: order %q has non-positive original quantity", o.ID)
	}
	if o.RemainingQty < 0 || o.RemainingQty > o.OriginalQty {
		return fmt.Errorf("engine: order %q has remaining quantity %d out of [0, %d]", o.ID, o.RemainingQty, o.OriginalQty)
	}
	if o.RemainingQty == 0 && o.Status != StatusFilled {
		return fmt.Errorf("engine: order %q has zero remaining but status %s", o.ID, o.Status)
	}
	if !o.IsLive() {
		return fmt.Errorf("engine: order %q is not live (status %s), should not be in a snapshot's live-order list", o.ID, o.Status)
	}
	switch o.Type {
	case TypeLimit:
		if o.LimitPriceTicks <= 0 {
			return fmt.Errorf("engine: limit order %q has non-positive price", o.ID)
		}
	case TypeStopLoss:
		if o.TriggerPriceTicks <= 0 {
			return fmt.Errorf("engine: stop-loss order %q has non-positive trigger", o.ID)
		}
	case TypeMarket:
		return fmt.Errorf("engine: order %q is a market order but market orders never rest", o.ID)
	default:
		return fmt.Errorf("engine: order %q has unknown type", o.ID)
	}
	return nil
}
