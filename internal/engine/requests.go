package engine

// Wire-level request/response shapes (spec §6), expressed in ticks — the
// decimal<->tick boundary conversion lives in internal/types, one layer out.

type SubmitRequest struct {
	ID                string
	Owner             string
	Symbol            string
	Side              Side
	Type              OrderType
	PriceTicks        int64
	Qty               int64
	TriggerPriceTicks int64
	Priority          int // orders requests with the same symbol only; spec §4.6
}

type CancelRequest struct {
	ID    string
	Owner string
}

type ModifyRequest struct {
	ID            string
	Owner         string
	NewPriceTicks *int64
	NewQty        *int64
}

type SubmitResponse struct {
	Accepted bool
	OrderID  string
	Trades   []Trade
	Err      error
}

type CancelResponse struct {
	Accepted bool
	Err      error
}

type ModifyResponse struct {
	Accepted bool
	Trades   []Trade
	Err      error
}

// validateSubmit applies spec §7's validation kind before any book state
// changes: empty id, non-positive qty, Limit with p <= 0, StopLoss with
// t <= 0.
func validateSubmit(req SubmitRequest) error {
	if req.ID == "" {
		return newErr(KindValidation, "order id must not be empty")
	}
	if req.Symbol == "" {
		return newErr(KindValidation, "symbol must not be empty")
	}
	if req.Side != SideBuy && req.Side != SideSell {
		return newErr(KindValidation, "side must be buy or sell")
	}
	if req.Qty <= 0 {
		return newErr(KindValidation, "quantity must be positive, got %d", req.Qty)
	}
	switch req.Type {
	case TypeLimit:
		if req.PriceTicks <= 0 {
			return newErr(KindValidation, "limit order must have a positive price")
		}
	case TypeMarket:
		// price is ignored
	case TypeStopLoss:
		if req.TriggerPriceTicks <= 0 {
			return newErr(KindValidation, "stop-loss order must have a positive trigger price")
		}
	default:
		return newErr(KindValidation, "unknown order type")
	}
	return nil
}

func (req SubmitRequest) toOrder() *Order {
	return &Order{
		ID:                req.ID,
		Owner:             req.Owner,
		Symbol:            req.Symbol,
		Side:              req.Side,
		Type:              req.Type,
		LimitPriceTicks:   req.PriceTicks,
		TriggerPriceTicks: req.TriggerPriceTicks,
		OriginalQty:       req.Qty,
		RemainingQty:      req.Qty,
		Status:            StatusPending,
		CreatedAt:         nowMicros(),
	}
}
