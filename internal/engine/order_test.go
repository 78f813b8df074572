package engine

import "testing"

func TestSideString(t *testing.T) {
	if SideBuy.String() != "buy" {
		t.Errorf("SideBuy.String() = %q", SideBuy.String())
	}
	if SideSell.String() != "sell" {
		t.Errorf("SideSell.String() = %q", SideSell.String())
	}
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Error("Opposite() should flip side")
	}
}

func TestOrderTypeString(t *testing.T) {
	cases := map[OrderType]string{
		TypeLimit:    "limit",
		TypeMarket:   "market",
		TypeStopLoss: "stop_loss",
		OrderType(0): "unknown",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("OrderType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusPending:     "pending",
		StatusPartialFill: "partial_fill",
		StatusFilled:      "filled",
		StatusCancelled:   "cancelled",
		StatusRejected:    "rejected",
		StatusTriggered:   "triggered",
		Status(0):         "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestOrderFillPartialThenFull(t *testing.T) {
	o := limitOrder("o1", "alice", SideBuy, 10, 100)

	if err := o.Fill(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.RemainingQty != 6 || o.Status != StatusPartialFill {
		t.Errorf("after partial fill: remaining=%d status=%s", o.RemainingQty, o.Status)
	}

	if err := o.Fill(6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.RemainingQty != 0 || o.Status != StatusFilled {
		t.Errorf("after full fill: remaining=%d status=%s", o.RemainingQty, o.Status)
	}
}

func TestOrderFillRejectsOverfill(t *testing.T) {
	o := limitOrder("o1", "alice", SideBuy, 10, 100)
	if err := o.Fill(11); err == nil {
		t.Fatal("expected error filling beyond remaining quantity")
	}
}

func TestOrderFillRejectsNonPositive(t *testing.T) {
	o := limitOrder("o1", "alice", SideBuy, 10, 100)
	if err := o.Fill(0); err == nil {
		t.Fatal("expected error filling zero quantity")
	}
	if err := o.Fill(-1); err == nil {
		t.Fatal("expected error filling negative quantity")
	}
}

func TestOrderCancelFromLiveStates(t *testing.T) {
	o := limitOrder("o1", "alice", SideBuy, 10, 100)
	if err := o.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != StatusCancelled {
		t.Errorf("expected cancelled status, got %s", o.Status)
	}
}

func TestOrderCancelRejectsTerminal(t *testing.T) {
	o := limitOrder("o1", "alice", SideBuy, 10, 100)
	o.Status = StatusFilled
	if err := o.Cancel(); err == nil {
		t.Fatal("expected error cancelling a filled order")
	}
}

func TestOrderIsLive(t *testing.T) {
	o := limitOrder("o1", "alice", SideBuy, 10, 100)
	if !o.IsLive() {
		t.Error("pending order should be live")
	}
	o.Status = StatusPartialFill
	if !o.IsLive() {
		t.Error("partial_fill order should be live")
	}
	for _, s := range []Status{StatusFilled, StatusCancelled, StatusRejected, StatusTriggered} {
		o.Status = s
		if o.IsLive() {
			t.Errorf("status %s should not be live", s)
		}
	}
}

func TestCompatibleWithCrossingLimits(t *testing.T) {
	buy := limitOrder("b", "alice", SideBuy, 10, 105)
	sell := limitOrder("s", "bob", SideSell, 10, 100)
	if !buy.CompatibleWith(sell) {
		t.Error("crossing limit orders should be compatible")
	}
	if !sell.CompatibleWith(buy) {
		t.Error("compatibility should be symmetric")
	}
}

func TestCompatibleWithNonCrossingLimits(t *testing.T) {
	buy := limitOrder("b", "alice", SideBuy, 10, 95)
	sell := limitOrder("s", "bob", SideSell, 10, 100)
	if buy.CompatibleWith(sell) {
		t.Error("non-crossing limit orders should not be compatible")
	}
}

func TestCompatibleWithRejectsSameSide(t *testing.T) {
	a := limitOrder("a", "alice", SideBuy, 10, 100)
	b := limitOrder("b", "bob", SideBuy, 10, 100)
	if a.CompatibleWith(b) {
		t.Error("same-side orders should never be compatible")
	}
}

func TestCompatibleWithRejectsDifferentSymbol(t *testing.T) {
	buy := limitOrder("b", "alice", SideBuy, 10, 100)
	sell := limitOrder("s", "bob", SideSell, 10, 100)
	sell.Symbol = "OTHER"
	if buy.CompatibleWith(sell) {
		t.Error("different-symbol orders should not be compatible")
	}
}

func TestCompatibleWithMarketAlwaysCrosses(t *testing.T) {
	buy := marketOrder("mb", "alice", SideBuy, 10)
	sell := limitOrder("s", "bob", SideSell, 10, 1_000_000)
	if !buy.CompatibleWith(sell) {
		t.Error("a market order should be compatible regardless of limit price")
	}
}

func TestCompatibleWithTerminalOrderRejected(t *testing.T) {
	buy := limitOrder("b", "alice", SideBuy, 10, 105)
	sell := limitOrder("s", "bob", SideSell, 10, 100)
	sell.Status = StatusCancelled
	if buy.CompatibleWith(sell) {
		t.Error("a cancelled order should never be compatible")
	}
}
