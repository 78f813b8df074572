package engine

import (
	"log/slog"
)

// Trade is a value record of one fill event. The core emits it to
// subscribers and discards it; persistence is external (spec §3 "Ownership
// and lifecycle").
type Trade struct {
	ID          string
	Symbol      string
	BuyOrderID  string
	SellOrderID string
	Price       int64 // ticks
	Qty         int64
	Timestamp   int64 // monotonic microseconds
}

// MarketData is a point-in-time pull query over one symbol's book, distinct
// from the push-based market-data delta the dispatcher fans out on every
// top-of-book change. Grounded in original_source/MatchingEngine.hpp's
// MarketData struct (supplemented feature, SPEC_FULL.md Part D.2).
type MarketData struct {
	Symbol              string
	BestBid             int64
	BestBidOK           bool
	BestAsk             int64
	BestAskOK           bool
	LastTradePriceTicks int64
	TotalVolume         int64
	TotalTrades         int64
}

// BookStats is this book's contribution to the dispatcher-wide statistics
// snapshot (SPEC_FULL.md Part D.1).
type BookStats struct {
	Symbol            string
	RestingBuyOrders  int
	RestingSellOrders int
	BuyStopOrders     int
	SellStopOrders    int
	CumulativeTrades  int64
	CumulativeVolume  int64
	CircuitBreakerOn  bool
}

// circuitBreaker halts matching for a symbol when the last-trade price moves
// more than a configured threshold from the price at which it was armed.
// Grounded in original_source/MatchingEngine.hpp's setCircuitBreaker
// (SPEC_FULL.md Part D.5).
type circuitBreaker struct {
	enabled       bool
	thresholdBps  int64
	durationMicros int64
	armedPrice    int64
	trippedUntil  int64 // 0 means not tripped
}

// OrderBook is a price-time priority limit order book for a single symbol.
// It is deliberately not internally synchronized: the MatchingDispatcher's
// per-symbol actor is the sole caller of every method below, which is what
// makes the per-symbol exclusion in spec §5 structural rather than
// lock-based (see DESIGN.md).
type OrderBook struct {
	symbol string

	bids *priceIndex // descending: best = highest
	asks *priceIndex // ascending: best = lowest

	buyStops  *priceIndex // ascending by trigger: smallest first
	sellStops *priceIndex // descending by trigger: largest first

	orders     map[string]*Order            // id -> live order, across both sides and both stop indices
	ownerIndex map[string]map[string]struct{} // owner -> set of live order ids

	lastTradePriceTicks int64
	cumulativeTrades    int64
	cumulativeVolume    int64

	maxTriggerDepth int
	stopLossEnabled bool

	breaker circuitBreaker

	logger *slog.Logger
}

// NewOrderBook constructs an empty book for symbol.
func NewOrderBook(symbol string, maxTriggerDepth int, stopLossEnabled bool, logger *slog.Logger) *OrderBook {
	if maxTriggerDepth <= 0 {
		maxTriggerDepth = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderBook{
		symbol:          symbol,
		bids:            newPriceIndex(false),
		asks:            newPriceIndex(true),
		buyStops:        newPriceIndex(true),
		sellStops:       newPriceIndex(false),
		orders:          make(map[string]*Order),
		ownerIndex:      make(map[string]map[string]struct{}),
		maxTriggerDepth: maxTriggerDepth,
		stopLossEnabled: stopLossEnabled,
		logger:          logger,
	}
}

// Symbol returns the symbol this book serves.
func (b *OrderBook) Symbol() string { return b.symbol }

// Submit is the public entry point for a brand-new order (spec §4.3).
func (b *OrderBook) Submit(o *Order) ([]Trade, error) {
	if o.Symbol != b.symbol {
		return nil, newErr(KindValidation, "order symbol %q does not match book symbol %q", o.Symbol, b.symbol)
	}
	if b.breakerTripped() {
		return nil, newErr(KindNotRunning, "circuit breaker tripped for %s", b.symbol)
	}
	if o.Type == TypeStopLoss && !b.stopLossEnabled {
		o.Status = StatusRejected
		return nil, newErr(KindValidation, "stop-loss orders are disabled")
	}
	return b.submit(o, 0)
}

// submit is the recursive core shared by Submit and stop-loss triggering.
// depth counts trigger-cascade recursion (spec §4.5); depth == 0 for a
// directly-submitted order.
func (b *OrderBook) submit(o *Order, depth int) ([]Trade, error) {
	if o.Type == TypeStopLoss {
		b.restStop(o)
		return nil, nil
	}

	trades, rejectErr := b.matchLoop(o)

	if o.RemainingQty > 0 {
		switch o.Type {
		case TypeLimit:
			b.rest(o)
		default: // Market: never rests
			o.Status = StatusCancelled
		}
	}

	triggered := b.runTriggers(depth)
	trades = append(trades, triggered...)

	return trades, rejectErr
}

// matchLoop runs spec §4.4 against the incoming live order o, mutating it
// and any resting orders it trades against in place, and returns every trade
// produced in execution order. A non-nil error means the order was rejected
// mid-loop (no_reference_price); trades already produced are still returned
// and kept, per spec §7.
func (b *OrderBook) matchLoop(o *Order) ([]Trade, error) {
	var trades []Trade

	for o.RemainingQty > 0 {
		contra := b.asks
		if o.Side == SideSell {
			contra = b.bids
		}

		bestPrice, ok := contra.best()
		if !ok {
			break
		}
		if o.Type == TypeLimit {
			if o.Side == SideBuy && bestPrice > o.LimitPriceTicks {
				break
			}
			if o.Side == SideSell && bestPrice < o.LimitPriceTicks {
				break
			}
		}

		level := contra.levels[bestPrice]
		if level.empty() {
			contra.pruneIfEmpty(bestPrice)
			continue
		}

		resting := level.front()
		if !o.CompatibleWith(resting) {
			b.logger.Error("book invariant violation: discarding incompatible resting order",
				slog.String("symbol", b.symbol), slog.String("order_id", resting.ID))
			level.popHead()
			if level.empty() {
				contra.pruneIfEmpty(bestPrice)
			}
			b.unregister(resting)
			continue
		}

		tradePrice, ok := b.tradePrice(o, resting)
		if !ok {
			o.Status = StatusRejected
			return trades, newErr(KindNoReferencePrice, "no prior trade price to cross two market orders on %s", b.symbol)
		}

		qty := min64(o.RemainingQty, resting.RemainingQty)
		_ = o.Fill(qty)
		_ = resting.Fill(qty)

		trade := Trade{ID: newTradeID(), Symbol: b.symbol, Price: tradePrice, Qty: qty, Timestamp: nowMicros()}
		if o.Side == SideBuy {
			trade.BuyOrderID, trade.SellOrderID = o.ID, resting.ID
		} else {
			trade.BuyOrderID, trade.SellOrderID = resting.ID, o.ID
		}
		trades = append(trades, trade)

		if resting.RemainingQty == 0 {
			level.popHead()
			b.unregister(resting)
		}
		if level.empty() {
			contra.pruneIfEmpty(bestPrice)
		}

		b.lastTradePriceTicks = tradePrice
		b.cumulativeTrades++
		b.cumulativeVolume += qty
		b.checkBreaker(tradePrice)
	}

	return trades, nil
}

// tradePrice implements spec §4.4 step 4.
func (b *OrderBook) tradePrice(incoming, resting *Order) (int64, bool) {
	if resting.Type == TypeLimit {
		return resting.LimitPriceTicks, true
	}
	if b.lastTradePriceTicks == 0 && incoming.Type == TypeMarket {
		return 0, false
	}
	return b.lastTradePriceTicks, true
}

// runTriggers drains every eligible stop-loss order against the current
// last-trade price (spec §4.5), recursing through submit for each one. depth
// is the recursion depth of the submit that produced the last trade print.
func (b *OrderBook) runTriggers(depth int) []Trade {
	var trades []Trade
	for {
		fired := false

		if p, ok := b.buyStops.best(); ok && p <= b.lastTradePriceTicks {
			if lvl := b.buyStops.levels[p]; !lvl.empty() {
				stop := lvl.front()
				lvl.popHead()
				if lvl.empty() {
					b.buyStops.pruneIfEmpty(p)
				}
				b.unregister(stop)
				trades = append(trades, b.fireTrigger(stop, depth)...)
				fired = true
			}
		}

		if p, ok := b.sellStops.best(); ok && p >= b.lastTradePriceTicks {
			if lvl := b.sellStops.levels[p]; !lvl.empty() {
				stop := lvl.front()
				lvl.popHead()
				if lvl.empty() {
					b.sellStops.pruneIfEmpty(p)
				}
				b.unregister(stop)
				trades = append(trades, b.fireTrigger(stop, depth)...)
				fired = true
			}
		}

		if !fired {
			return trades
		}
	}
}

// fireTrigger converts a popped stop order to a market order and recursively
// submits it, guarded by maxTriggerDepth (spec §4.5 last paragraph).
func (b *OrderBook) fireTrigger(stop *Order, depth int) []Trade {
	if depth+1 > b.maxTriggerDepth {
		stop.Status = StatusRejected
		b.logger.Error("trigger cascade exceeded max depth, dropping remaining triggers",
			slog.String("symbol", b.symbol), slog.String("order_id", stop.ID), slog.Int("max_depth", b.maxTriggerDepth))
		return nil
	}
	stop.Status = StatusTriggered
	stop.Type = TypeMarket
	// Triggered marks the conversion only; the resulting market order
	// re-enters matching as a live order so CompatibleWith accepts it.
	stop.Status = StatusPending
	trades, _ := b.submit(stop, depth+1)
	return trades
}

// rest adds a live limit order to its book side and registers it.
func (b *OrderBook) rest(o *Order) {
	side := b.bids
	if o.Side == SideSell {
		side = b.asks
	}
	side.getOrCreate(o.LimitPriceTicks).push(o)
	b.register(o)
}

// restStop adds an untriggered stop-loss order to its stop index and
// registers it. Per spec §9's resolved Open Question, a stop-loss order is
// never placed on the matchable bids/asks side while untriggered.
func (b *OrderBook) restStop(o *Order) {
	idx := b.buyStops
	if o.Side == SideSell {
		idx = b.sellStops
	}
	idx.getOrCreate(o.TriggerPriceTicks).push(o)
	b.register(o)
}

func (b *OrderBook) register(o *Order) {
	b.orders[o.ID] = o
	set, ok := b.ownerIndex[o.Owner]
	if !ok {
		set = make(map[string]struct{})
		b.ownerIndex[o.Owner] = set
	}
	set[o.ID] = struct{}{}
}

func (b *OrderBook) unregister(o *Order) {
	delete(b.orders, o.ID)
	if set, ok := b.ownerIndex[o.Owner]; ok {
		delete(set, o.ID)
		if len(set) == 0 {
			delete(b.ownerIndex, o.Owner)
		}
	}
}

// Cancel removes a live order by id (spec §4.3). Returns false (not an
// error) if the order is known but already terminal — idempotent cancel,
// spec §8 property 5. Returns unknown_order if id was never in this book.
func (b *OrderBook) Cancel(id, owner string, authz Authorization) (bool, error) {
	o, ok := b.orders[id]
	if !ok {
		return false, newErr(KindUnknownOrder, "no such order %q", id)
	}
	if !ownerOK(o, owner, authz) {
		return false, newErr(KindNotOwner, "owner %q does not own order %q", owner, id)
	}
	if !o.IsLive() {
		return false, nil
	}

	if o.Type == TypeStopLoss {
		idx := b.buyStops
		if o.Side == SideSell {
			idx = b.sellStops
		}
		if lvl, ok := idx.levelAt(o.TriggerPriceTicks); ok {
			lvl.remove(id)
			if lvl.empty() {
				idx.pruneIfEmpty(o.TriggerPriceTicks)
			}
		}
	} else {
		side := b.bids
		if o.Side == SideSell {
			side = b.asks
		}
		if lvl, ok := side.levelAt(o.LimitPriceTicks); ok {
			lvl.remove(id)
			if lvl.empty() {
				side.pruneIfEmpty(o.LimitPriceTicks)
			}
		}
	}

	_ = o.Cancel()
	b.unregister(o)
	return true, nil
}

// Modify atomically cancels and resubmits an existing order with updated
// fields (spec §4.3). A pure quantity decrease keeps the order's arrival
// timestamp (and therefore its time priority); any price change, or a
// quantity increase, loses it.
func (b *OrderBook) Modify(id, owner string, newPriceTicks, newQty *int64, authz Authorization) ([]Trade, error) {
	o, ok := b.orders[id]
	if !ok {
		return nil, newErr(KindUnknownOrder, "no such order %q", id)
	}
	if !ownerOK(o, owner, authz) {
		return nil, newErr(KindNotOwner, "owner %q does not own order %q", owner, id)
	}
	if !o.IsLive() {
		return nil, newErr(KindUnknownOrder, "order %q is not live", id)
	}
	if o.Type == TypeStopLoss {
		return nil, newErr(KindValidation, "stop-loss orders cannot be modified in place")
	}

	priceChanged := newPriceTicks != nil && *newPriceTicks != o.LimitPriceTicks
	qtyIncreased := newQty != nil && *newQty > o.RemainingQty

	if !priceChanged && !qtyIncreased {
		if newQty != nil && *newQty < o.RemainingQty {
			if *newQty <= 0 {
				return nil, newErr(KindValidation, "modified quantity must be positive")
			}
			o.RemainingQty = *newQty
			return nil, nil
		}
		return nil, nil // no-op: nothing changed
	}

	if priceChanged && *newPriceTicks <= 0 {
		return nil, newErr(KindValidation, "modified price must be positive")
	}

	if _, err := b.Cancel(id, owner, authz); err != nil {
		return nil, err
	}

	fresh := &Order{
		ID:              o.ID,
		Owner:           o.Owner,
		Symbol:          o.Symbol,
		Side:            o.Side,
		Type:            o.Type,
		LimitPriceTicks: o.LimitPriceTicks,
		OriginalQty:     o.OriginalQty,
		RemainingQty:    o.RemainingQty,
		Status:          StatusPending,
		CreatedAt:       nowMicros(),
	}
	if newPriceTicks != nil {
		fresh.LimitPriceTicks = *newPriceTicks
	}
	if newQty != nil {
		fresh.RemainingQty = *newQty
		fresh.OriginalQty = *newQty
	}
	return b.submit(fresh, 0)
}

// ─── read queries (spec §4.3 "snapshot reads under the book's exclusive section") ───

func (b *OrderBook) BestBid() (int64, bool) { return b.bids.best() }
func (b *OrderBook) BestAsk() (int64, bool) { return b.asks.best() }

// Spread returns best_ask - best_bid; ok is false if either side is empty.
func (b *OrderBook) Spread() (int64, bool) {
	bid, bok := b.bids.best()
	ask, aok := b.asks.best()
	if !bok || !aok {
		return 0, false
	}
	return ask - bid, true
}

func (b *OrderBook) Depth(n int, side Side) []PriceLevelView {
	if side == SideBuy {
		return b.bids.depth(n)
	}
	return b.asks.depth(n)
}

func (b *OrderBook) GetOrder(id string) (*Order, bool) {
	o, ok := b.orders[id]
	return o, ok
}

func (b *OrderBook) UserOrders(owner string) []*Order {
	ids := b.ownerIndex[owner]
	out := make([]*Order, 0, len(ids))
	for id := range ids {
		if o, ok := b.orders[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

func (b *OrderBook) MarketData() MarketData {
	bid, bok := b.bids.best()
	ask, aok := b.asks.best()
	return MarketData{
		Symbol:              b.symbol,
		BestBid:             bid,
		BestBidOK:           bok,
		BestAsk:             ask,
		BestAskOK:           aok,
		LastTradePriceTicks: b.lastTradePriceTicks,
		TotalVolume:         b.cumulativeVolume,
		TotalTrades:         b.cumulativeTrades,
	}
}

func (b *OrderBook) Stats() BookStats {
	return BookStats{
		Symbol:            b.symbol,
		RestingBuyOrders:  countLive(b.bids),
		RestingSellOrders: countLive(b.asks),
		BuyStopOrders:     countLive(b.buyStops),
		SellStopOrders:    countLive(b.sellStops),
		CumulativeTrades:  b.cumulativeTrades,
		CumulativeVolume:  b.cumulativeVolume,
		CircuitBreakerOn:  b.breakerTripped(),
	}
}

func (b *OrderBook) Snapshot() BookSnapshot {
	bid, bok := b.bids.best()
	ask, aok := b.asks.best()
	return BookSnapshot{
		Symbol:              b.symbol,
		BestBid:             bid,
		BestBidOK:           bok,
		BestAsk:             ask,
		BestAskOK:           aok,
		LastTradePriceTicks: b.lastTradePriceTicks,
	}
}

func (b *OrderBook) HasLiveOrders() bool {
	return len(b.orders) > 0
}

func countLive(idx *priceIndex) int {
	n := 0
	for _, p := range idx.prices {
		n += idx.levels[p].count()
	}
	return n
}

// ─── circuit breaker (SPEC_FULL.md Part D.5) ───

// ArmCircuitBreaker enables the breaker at the current last-trade price: if
// a subsequent trade print moves more than thresholdBps (basis points) away
// from that price, the symbol halts new submits for durationSecs.
func (b *OrderBook) ArmCircuitBreaker(thresholdBps int64, durationSecs int) {
	b.breaker = circuitBreaker{
		enabled:        true,
		thresholdBps:   thresholdBps,
		durationMicros: int64(durationSecs) * 1_000_000,
		armedPrice:     b.lastTradePriceTicks,
	}
}

func (b *OrderBook) DisarmCircuitBreaker() {
	b.breaker = circuitBreaker{}
}

func (b *OrderBook) checkBreaker(newPrice int64) {
	if !b.breaker.enabled || b.breaker.armedPrice == 0 || b.breaker.trippedUntil != 0 {
		return
	}
	movedBps := abs64((newPrice - b.breaker.armedPrice) * 10_000 / b.breaker.armedPrice)
	if movedBps > b.breaker.thresholdBps {
		b.breaker.trippedUntil = nowMicros() + b.breaker.durationMicros
		b.logger.Error("circuit breaker tripped", slog.String("symbol", b.symbol), slog.Int64("moved_bps", movedBps))
	}
}

func (b *OrderBook) breakerTripped() bool {
	if b.breaker.trippedUntil == 0 {
		return false
	}
	if nowMicros() >= b.breaker.trippedUntil {
		b.breaker.trippedUntil = 0
		b.breaker.armedPrice = b.lastTradePriceTicks
		return false
	}
	return true
}
