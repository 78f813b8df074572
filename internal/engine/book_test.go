package engine

import "testing"

// ─── helpers ──────────────────────────────────────────────────────────────

func newTestBook() *OrderBook {
	return NewOrderBook("SIM", 64, true, nil)
}

func limitOrder(id, owner string, side Side, qty, price int64) *Order {
	return &Order{ID: id, Owner: owner, Symbol: "SIM", Side: side, Type: TypeLimit,
		LimitPriceTicks: price, OriginalQty: qty, RemainingQty: qty, Status: StatusPending, CreatedAt: int64(len(id))}
}

func marketOrder(id, owner string, side Side, qty int64) *Order {
	return &Order{ID: id, Owner: owner, Symbol: "SIM", Side: side, Type: TypeMarket,
		OriginalQty: qty, RemainingQty: qty, Status: StatusPending}
}

func stopOrder(id, owner string, side Side, qty, trigger int64) *Order {
	return &Order{ID: id, Owner: owner, Symbol: "SIM", Side: side, Type: TypeStopLoss,
		TriggerPriceTicks: trigger, OriginalQty: qty, RemainingQty: qty, Status: StatusPending}
}

// ─── resting ──────────────────────────────────────────────────────────────

func TestSubmitRestingLimitOrder(t *testing.T) {
	b := newTestBook()
	trades, err := b.Submit(limitOrder("o1", "alice", SideBuy, 10, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}

	bid, ok := b.BestBid()
	if !ok || bid != 100 {
		t.Fatalf("expected best bid 100, got %d ok=%v", bid, ok)
	}

	o, ok := b.GetOrder("o1")
	if !ok || o.RemainingQty != 10 {
		t.Fatalf("GetOrder: unexpected state: %+v ok=%v", o, ok)
	}
}

// ─── price-time priority ───────────────────────────────────────────────────

func TestPriceTimePriority(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("o1", "alice", SideBuy, 5, 100))
	b.Submit(limitOrder("o2", "bob", SideBuy, 5, 100))

	trades, err := b.Submit(limitOrder("o3", "carol", SideSell, 5, 90))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].BuyOrderID != "o1" {
		t.Errorf("expected o1 (first at price) to fill first, got %s", trades[0].BuyOrderID)
	}

	if _, ok := b.GetOrder("o1"); ok {
		t.Error("o1 should have been removed after full fill")
	}
	o2, ok := b.GetOrder("o2")
	if !ok || o2.RemainingQty != 5 {
		t.Errorf("o2 should still be resting with qty 5, got %+v ok=%v", o2, ok)
	}
}

// ─── full cross and partial fill ───────────────────────────────────────────

func TestFullLimitCross(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("sell1", "seller", SideSell, 10, 100))

	trades, err := b.Submit(limitOrder("buy1", "buyer", SideBuy, 10, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Price != 100 || trades[0].Qty != 10 {
		t.Errorf("unexpected trade: %+v", trades[0])
	}
	if b.HasLiveOrders() {
		t.Error("book should be empty after full cross")
	}
}

func TestPartialFill(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("sell1", "seller", SideSell, 3, 100))

	trades, err := b.Submit(limitOrder("buy1", "buyer", SideBuy, 10, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 || trades[0].Qty != 3 {
		t.Fatalf("unexpected trades: %+v", trades)
	}

	if _, ok := b.GetOrder("sell1"); ok {
		t.Error("sell1 should have been fully consumed")
	}
	buy, ok := b.GetOrder("buy1")
	if !ok || buy.RemainingQty != 7 {
		t.Errorf("buy1 remaining: want 7, got %+v ok=%v", buy, ok)
	}
}

// ─── market orders ──────────────────────────────────────────────────────────

func TestMarketOrderSweepsLevels(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("s1", "s", SideSell, 5, 100))
	b.Submit(limitOrder("s2", "s", SideSell, 5, 105))

	trades, err := b.Submit(marketOrder("mb1", "buyer", SideBuy, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].Price != 100 || trades[1].Price != 105 {
		t.Errorf("market order should sweep best price first: %+v", trades)
	}
}

func TestMarketOrderNoLiquidityNeverRests(t *testing.T) {
	b := newTestBook()
	trades, err := b.Submit(marketOrder("mb1", "buyer", SideBuy, 10))
	if err != nil {
		t.Fatalf("market order with no liquidity should not error, got %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}
	o, ok := b.GetOrder("mb1")
	if ok {
		t.Errorf("market order should never rest, got %+v", o)
	}
}

func TestMarketCrossWithNoReferencePriceRejected(t *testing.T) {
	b := newTestBook()
	// Submit never rests a market order, so the resting market ask is placed
	// on the book directly to reach the market-against-market price rule.
	b.rest(marketOrder("ask-rest", "s", SideSell, 5))

	_, err := b.Submit(marketOrder("mb1", "buyer", SideBuy, 5))
	if err == nil {
		t.Fatal("expected no_reference_price error")
	}
	ee, ok := AsEngineError(err)
	if !ok || ee.Kind != KindNoReferencePrice {
		t.Errorf("expected no_reference_price, got %v", err)
	}
}

// ─── stop-loss triggers ─────────────────────────────────────────────────────

func TestStopLossTriggersOnCross(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("s1", "s", SideSell, 10, 100))
	b.Submit(limitOrder("b1", "b", SideBuy, 10, 100)) // establishes last trade price 100

	// sell-stop triggers when last trade price falls to/below 95
	b.Submit(stopOrder("stop1", "owner", SideSell, 5, 95))

	// liquidity stop1 can fill into once triggered and converted to a market
	// order; must still be resting at the moment the trigger fires.
	b.Submit(limitOrder("b3", "b", SideBuy, 5, 85))

	b.Submit(limitOrder("s2", "s", SideSell, 10, 90))
	trades, err := b.Submit(limitOrder("b2", "b", SideBuy, 10, 90))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	foundTriggerFill := false
	for _, tr := range trades {
		if tr.SellOrderID == "stop1" {
			foundTriggerFill = true
		}
	}
	if !foundTriggerFill {
		t.Errorf("expected stop1 to trigger and fill, trades: %+v", trades)
	}
}

func TestStopLossNeverRestsOnMatchableSide(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("s1", "s", SideSell, 10, 100))
	b.Submit(limitOrder("b1", "b", SideBuy, 10, 100))

	b.Submit(stopOrder("stop1", "owner", SideSell, 5, 50))

	asks := b.Depth(10, SideSell)
	for _, lvl := range asks {
		if lvl.Price == 50 {
			t.Error("untriggered stop order must not appear on the matchable ask side")
		}
	}
}

// ─── cancel ─────────────────────────────────────────────────────────────────

func TestCancelRestingOrder(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("o1", "alice", SideBuy, 10, 100))

	ok, err := b.Cancel("o1", "alice", nil)
	if err != nil || !ok {
		t.Fatalf("expected successful cancel, got ok=%v err=%v", ok, err)
	}
	if _, found := b.GetOrder("o1"); found {
		t.Error("order should be gone after cancel")
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	b := newTestBook()
	_, err := b.Cancel("nonexistent", "alice", nil)
	ee, ok := AsEngineError(err)
	if !ok || ee.Kind != KindUnknownOrder {
		t.Errorf("expected unknown_order, got %v", err)
	}
}

func TestCancelNotOwner(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("o1", "alice", SideBuy, 10, 100))

	_, err := b.Cancel("o1", "mallory", nil)
	ee, ok := AsEngineError(err)
	if !ok || ee.Kind != KindNotOwner {
		t.Errorf("expected not_owner, got %v", err)
	}
}

func TestCancelAlreadyTerminalIsIdempotent(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("s1", "s", SideSell, 10, 100))
	b.Submit(limitOrder("b1", "b", SideBuy, 10, 100)) // fully fills s1

	ok, err := b.Cancel("s1", "s", nil)
	if err != nil {
		t.Fatalf("cancel of an already-filled order should return false without an error, got %v", err)
	}
	if ok {
		t.Error("cancel of an already-filled order should report false, not true")
	}
}

// ─── modify ─────────────────────────────────────────────────────────────────

func TestModifyQuantityDecreaseKeepsPriority(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("o1", "alice", SideBuy, 10, 100))

	newQty := int64(4)
	trades, err := b.Modify("o1", "alice", nil, &newQty, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("pure qty decrease should not trade, got %+v", trades)
	}
	o, ok := b.GetOrder("o1")
	if !ok || o.RemainingQty != 4 {
		t.Errorf("expected remaining 4, got %+v ok=%v", o, ok)
	}
}

func TestModifyPriceChangeLosesPriority(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("o1", "alice", SideBuy, 10, 100))
	b.Submit(limitOrder("o2", "bob", SideBuy, 10, 100))

	bumped := int64(101)
	_, err := b.Modify("o1", "alice", &bumped, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o, ok := b.GetOrder("o1")
	if !ok || o.LimitPriceTicks != 101 {
		t.Errorf("expected price 101, got %+v ok=%v", o, ok)
	}
}

// ─── snapshot export/import ────────────────────────────────────────────────

func TestExportImportRoundTrip(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("o1", "alice", SideBuy, 10, 100))
	b.Submit(limitOrder("o2", "bob", SideSell, 5, 105))
	b.Submit(stopOrder("stop1", "carol", SideSell, 3, 90))

	state := b.ExportState()

	rebuilt, err := NewOrderBookFromState(state, 64, true, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := rebuilt.GetOrder("o1"); !ok {
		t.Error("o1 missing after reload")
	}
	if _, ok := rebuilt.GetOrder("o2"); !ok {
		t.Error("o2 missing after reload")
	}
	if _, ok := rebuilt.GetOrder("stop1"); !ok {
		t.Error("stop1 missing after reload")
	}
	bid, ok := rebuilt.BestBid()
	if !ok || bid != 100 {
		t.Errorf("expected best bid 100 after reload, got %d ok=%v", bid, ok)
	}
}

func TestImportRejectsDuplicateIDs(t *testing.T) {
	state := BookState{
		Symbol: "SIM",
		Orders: []OrderSnapshot{
			snapshotOf(limitOrder("dup", "a", SideBuy, 5, 100)),
			snapshotOf(limitOrder("dup", "b", SideSell, 5, 110)),
		},
	}
	if _, err := NewOrderBookFromState(state, 64, true, nil); err == nil {
		t.Fatal("expected duplicate id rejection")
	}
}

// ─── circuit breaker ────────────────────────────────────────────────────────

func TestCircuitBreakerTripsOnLargeMove(t *testing.T) {
	b := newTestBook()
	b.Submit(limitOrder("s1", "s", SideSell, 10, 100))
	b.Submit(limitOrder("b1", "b", SideBuy, 10, 100))

	b.ArmCircuitBreaker(500, 60) // 5% threshold

	b.Submit(limitOrder("s2", "s", SideSell, 10, 120))
	b.Submit(limitOrder("b2", "b", SideBuy, 10, 120))

	if !b.breakerTripped() {
		t.Error("expected circuit breaker to trip on a 20%% move")
	}

	_, err := b.Submit(limitOrder("b3", "b", SideBuy, 5, 120))
	if err == nil {
		t.Error("expected submit to be rejected while breaker is tripped")
	}
}
