package engine

import "testing"

func testDispatcher() *MatchingDispatcher {
	cfg := DefaultConfig()
	cfg.OrderTimeoutSecs = 0 // no sweeper in tests
	d := NewMatchingDispatcher(cfg)
	d.Start()
	return d
}

func TestDispatcherStartIsIdempotent(t *testing.T) {
	d := testDispatcher()
	defer d.Stop()

	startedAt := d.startedAt
	d.Start()
	if d.startedAt != startedAt {
		t.Error("calling Start twice should not reset startedAt")
	}
	if !d.running() {
		t.Error("dispatcher should be running")
	}
}

func TestDispatcherStopIsIdempotent(t *testing.T) {
	d := testDispatcher()
	d.Stop()
	d.Stop() // must not panic or block
	if d.running() {
		t.Error("dispatcher should not be running after Stop")
	}
}

func TestSubmitOrderRejectedWhenNotRunning(t *testing.T) {
	d := NewMatchingDispatcher(DefaultConfig())
	resp := d.SubmitOrder(SubmitRequest{ID: "o1", Owner: "alice", Symbol: "SIM", Side: SideBuy, Type: TypeLimit, PriceTicks: 100, Qty: 10})
	ee, ok := AsEngineError(resp.Err)
	if !ok || ee.Kind != KindNotRunning {
		t.Errorf("expected not_running, got %v", resp.Err)
	}
}

func TestSubmitOrderAutoCreatesSymbol(t *testing.T) {
	d := testDispatcher()
	defer d.Stop()

	resp := d.SubmitOrder(SubmitRequest{ID: "o1", Owner: "alice", Symbol: "NEWSYM", Side: SideBuy, Type: TypeLimit, PriceTicks: 100, Qty: 10})
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if !resp.Accepted {
		t.Error("expected order to be accepted")
	}
	found := false
	for _, s := range d.GetSupportedSymbols() {
		if s == "NEWSYM" {
			found = true
		}
	}
	if !found {
		t.Error("expected NEWSYM to be auto-created")
	}
}

func TestSubmitOrderRejectsUnknownSymbolWithoutAutoCreate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoCreateSymbols = false
	d := NewMatchingDispatcher(cfg)
	d.Start()
	defer d.Stop()

	resp := d.SubmitOrder(SubmitRequest{ID: "o1", Owner: "alice", Symbol: "NOPE", Side: SideBuy, Type: TypeLimit, PriceTicks: 100, Qty: 10})
	ee, ok := AsEngineError(resp.Err)
	if !ok || ee.Kind != KindUnknownSymbol {
		t.Errorf("expected unknown_symbol, got %v", resp.Err)
	}
}

func TestSubmitOrderCrossesAndPublishesTrade(t *testing.T) {
	d := testDispatcher()
	defer d.Stop()

	_, tradeCh := d.SubscribeTrades(4)

	d.SubmitOrder(SubmitRequest{ID: "s1", Owner: "seller", Symbol: "SIM", Side: SideSell, Type: TypeLimit, PriceTicks: 100, Qty: 10})
	resp := d.SubmitOrder(SubmitRequest{ID: "b1", Owner: "buyer", Symbol: "SIM", Side: SideBuy, Type: TypeLimit, PriceTicks: 100, Qty: 10})

	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if len(resp.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(resp.Trades))
	}

	select {
	case tr := <-tradeCh:
		if tr.BuyOrderID != "b1" || tr.SellOrderID != "s1" {
			t.Errorf("unexpected trade on bus: %+v", tr)
		}
	default:
		t.Fatal("expected a trade to be published on the trades hub")
	}
}

func TestCancelOrderResolvesSymbolFromIndex(t *testing.T) {
	d := testDispatcher()
	defer d.Stop()

	d.SubmitOrder(SubmitRequest{ID: "o1", Owner: "alice", Symbol: "SIM", Side: SideBuy, Type: TypeLimit, PriceTicks: 100, Qty: 10})

	resp := d.CancelOrder(CancelRequest{ID: "o1", Owner: "alice"})
	if resp.Err != nil || !resp.Accepted {
		t.Fatalf("expected successful cancel, got accepted=%v err=%v", resp.Accepted, resp.Err)
	}
}

func TestCancelOrderUnknownID(t *testing.T) {
	d := testDispatcher()
	defer d.Stop()

	resp := d.CancelOrder(CancelRequest{ID: "nonexistent", Owner: "alice"})
	ee, ok := AsEngineError(resp.Err)
	if !ok || ee.Kind != KindUnknownOrder {
		t.Errorf("expected unknown_order, got %v", resp.Err)
	}
}

func TestModifyOrderRoutesToOwningSymbol(t *testing.T) {
	d := testDispatcher()
	defer d.Stop()

	d.SubmitOrder(SubmitRequest{ID: "o1", Owner: "alice", Symbol: "SIM", Side: SideBuy, Type: TypeLimit, PriceTicks: 100, Qty: 10})

	newQty := int64(5)
	resp := d.ModifyOrder(ModifyRequest{ID: "o1", Owner: "alice", NewQty: &newQty})
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}

	o, ok := d.GetOrder("o1")
	if !ok || o.RemainingQty != 5 {
		t.Errorf("expected remaining 5, got %+v ok=%v", o, ok)
	}
}

func TestStatsAggregatesAcrossSymbols(t *testing.T) {
	d := testDispatcher()
	defer d.Stop()

	d.SubmitOrder(SubmitRequest{ID: "s1", Owner: "seller", Symbol: "SIM", Side: SideSell, Type: TypeLimit, PriceTicks: 100, Qty: 10})
	d.SubmitOrder(SubmitRequest{ID: "b1", Owner: "buyer", Symbol: "SIM", Side: SideBuy, Type: TypeLimit, PriceTicks: 100, Qty: 10})
	d.SubmitOrder(SubmitRequest{ID: "o2", Owner: "carol", Symbol: "OTHER", Side: SideBuy, Type: TypeLimit, PriceTicks: 50, Qty: 5})

	stats := d.Stats()
	if stats.OrdersAccepted != 3 {
		t.Errorf("OrdersAccepted = %d, want 3", stats.OrdersAccepted)
	}
	if stats.TradesExecuted != 1 {
		t.Errorf("TradesExecuted = %d, want 1", stats.TradesExecuted)
	}
	if stats.ActiveSymbols != 2 {
		t.Errorf("ActiveSymbols = %d, want 2", stats.ActiveSymbols)
	}
}

func TestRemoveSymbolRejectsWithLiveOrders(t *testing.T) {
	d := testDispatcher()
	defer d.Stop()

	d.SubmitOrder(SubmitRequest{ID: "o1", Owner: "alice", Symbol: "SIM", Side: SideBuy, Type: TypeLimit, PriceTicks: 100, Qty: 10})

	if err := d.RemoveSymbol("SIM"); err == nil {
		t.Fatal("expected an error removing a symbol with live orders")
	}
}

func TestExportAllThenRestoreRoundTrip(t *testing.T) {
	d := testDispatcher()
	d.SubmitOrder(SubmitRequest{ID: "o1", Owner: "alice", Symbol: "SIM", Side: SideBuy, Type: TypeLimit, PriceTicks: 100, Qty: 10})
	d.SubmitOrder(SubmitRequest{ID: "o2", Owner: "bob", Symbol: "OTHER", Side: SideSell, Type: TypeLimit, PriceTicks: 50, Qty: 5})

	states := d.ExportAll()
	d.Stop()
	if len(states) != 2 {
		t.Fatalf("ExportAll returned %d states, want 2", len(states))
	}

	restored := NewMatchingDispatcher(DefaultConfig())
	if err := restored.Restore(states); err != nil {
		t.Fatalf("Restore: unexpected error: %v", err)
	}
	restored.Start()
	defer restored.Stop()

	o, ok := restored.GetOrder("o1")
	if !ok || o.RemainingQty != 10 {
		t.Errorf("expected o1 to survive restore, got %+v ok=%v", o, ok)
	}
	if syms := restored.GetSupportedSymbols(); len(syms) != 2 {
		t.Errorf("expected both symbols restored, got %v", syms)
	}

	resp := restored.CancelOrder(CancelRequest{ID: "o2", Owner: "bob"})
	if resp.Err != nil || !resp.Accepted {
		t.Errorf("expected o2 to be cancellable after restore, got accepted=%v err=%v", resp.Accepted, resp.Err)
	}
}

func TestRestoreRejectedWhileRunning(t *testing.T) {
	d := testDispatcher()
	defer d.Stop()

	if err := d.Restore(nil); err == nil {
		t.Fatal("expected an error restoring into a running dispatcher")
	}
}

func TestRemoveSymbolSucceedsWhenEmpty(t *testing.T) {
	d := testDispatcher()
	defer d.Stop()

	d.AddSymbol("EMPTY")
	if err := d.RemoveSymbol("EMPTY"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range d.GetSupportedSymbols() {
		if s == "EMPTY" {
			t.Error("EMPTY should no longer be registered")
		}
	}
}
