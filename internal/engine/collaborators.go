package engine

// Authorization gates cancel/modify requests (spec §6). If absent (nil is
// passed wherever one of these is accepted), the core falls back to
// comparing the request's owner against the order's own Owner field.
type Authorization interface {
	Owns(owner, orderID string) bool
}

// Risk is consulted synchronously before an order is routed to its book
// (spec §6). A stub that always returns nil is an acceptable core default —
// see NoopRisk.
type Risk interface {
	Admit(order *Order, snapshot BookSnapshot) error
}

// BookSnapshot is the read-only view handed to Risk.Admit.
type BookSnapshot struct {
	Symbol              string
	BestBid             int64
	BestBidOK           bool
	BestAsk             int64
	BestAskOK           bool
	LastTradePriceTicks int64
}

// Persistence is an optional write-behind sink for trades and orders.
// Failures must not block matching: callers invoke it outside the hot path
// and log rather than propagate errors.
type Persistence interface {
	RecordTrade(t Trade) error
	RecordOrder(o *Order) error
}

// NoopRisk always admits. It is the core's default when no Risk collaborator
// is configured.
type NoopRisk struct{}

func (NoopRisk) Admit(*Order, BookSnapshot) error { return nil }

// ownerOK applies the Authorization fallback rule described above.
func ownerOK(o *Order, owner string, authz Authorization) bool {
	if authz != nil {
		return authz.Owns(owner, o.ID)
	}
	return o.Owner == owner
}
