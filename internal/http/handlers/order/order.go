// Package order exposes the matching dispatcher over HTTP. This is the
// out-of-scope "thin demo driver" spec.md describes as an external
// collaborator of the engine, not a specified component itself; it exists
// so the engine has somewhere to be exercised end to end, the same role the
// teacher's own handlers played.
package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/oakline-markets/matching-engine/internal/engine"
	"github.com/oakline-markets/matching-engine/internal/http/response"
	"github.com/oakline-markets/matching-engine/internal/types"
)

type Handler struct {
	dispatcher *engine.MatchingDispatcher
	validate   *validator.Validate
}

func NewHandler(d *engine.MatchingDispatcher) *Handler {
	return &Handler{dispatcher: d, validate: validator.New()}
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req types.SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			response.WriteJson(w, http.StatusBadRequest, response.GeneralErrorString("empty body"))
			return
		}
		response.WriteJson(w, http.StatusBadRequest, response.GeneralError(err))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			response.WriteJson(w, http.StatusBadRequest, response.ValidationError(verr))
			return
		}
		response.WriteJson(w, http.StatusBadRequest, response.GeneralError(err))
		return
	}

	resp := h.dispatcher.SubmitOrder(engine.SubmitRequest{
		ID:                req.OrderID,
		Owner:             req.Owner,
		Symbol:            req.Symbol,
		Side:              sideOf(req.Side),
		Type:              typeOf(req.Type),
		PriceTicks:        types.ToTicks(req.Price),
		Qty:               req.Quantity,
		TriggerPriceTicks: types.ToTicks(req.TriggerPrice),
	})
	if resp.Err != nil {
		writeEngineError(w, resp.Err)
		return
	}

	slog.Info("order accepted", slog.String("order_id", resp.OrderID), slog.Int("trades", len(resp.Trades)))
	response.WriteJson(w, http.StatusOK, map[string]any{
		"order_id": resp.OrderID,
		"trades":   tradesToView(resp.Trades),
	})
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	owner := r.URL.Query().Get("owner")

	resp := h.dispatcher.CancelOrder(engine.CancelRequest{ID: orderID, Owner: owner})
	if resp.Err != nil {
		writeEngineError(w, resp.Err)
		return
	}
	response.WriteJson(w, http.StatusOK, map[string]any{"cancelled": resp.Accepted})
}

func (h *Handler) ModifyOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")

	var req types.ModifyOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJson(w, http.StatusBadRequest, response.GeneralError(err))
		return
	}

	var newPriceTicks, newQty *int64
	if req.Price != nil {
		p := types.ToTicks(*req.Price)
		newPriceTicks = &p
	}
	if req.Quantity != nil {
		newQty = req.Quantity
	}

	resp := h.dispatcher.ModifyOrder(engine.ModifyRequest{
		ID:            orderID,
		Owner:         req.Owner,
		NewPriceTicks: newPriceTicks,
		NewQty:        newQty,
	})
	if resp.Err != nil {
		writeEngineError(w, resp.Err)
		return
	}
	response.WriteJson(w, http.StatusOK, map[string]any{"trades": tradesToView(resp.Trades)})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	o, ok := h.dispatcher.GetOrder(orderID)
	if !ok {
		response.WriteJson(w, http.StatusNotFound, response.GeneralErrorString("order not found"))
		return
	}
	response.WriteJson(w, http.StatusOK, orderToView(o))
}

func (h *Handler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		response.WriteJson(w, http.StatusBadRequest, response.GeneralErrorString("symbol is required"))
		return
	}
	depth := h.dispatcher.GetMultiSymbolDepth([]string{symbol}, 25)
	sides, ok := depth[symbol]
	if !ok {
		response.WriteJson(w, http.StatusNotFound, response.GeneralErrorString("unknown symbol"))
		return
	}
	response.WriteJson(w, http.StatusOK, types.OrderBookView{
		Symbol: symbol,
		Bids:   depthToView(sides[0]),
		Asks:   depthToView(sides[1]),
	})
}

func sideOf(s types.OrderSide) engine.Side {
	if s == types.Sell {
		return engine.SideSell
	}
	return engine.SideBuy
}

func typeOf(t types.OrderType) engine.OrderType {
	switch t {
	case types.Market:
		return engine.TypeMarket
	case types.StopLoss:
		return engine.TypeStopLoss
	default:
		return engine.TypeLimit
	}
}

func orderToView(o *engine.Order) types.OrderView {
	return types.OrderView{
		OrderID:      o.ID,
		Owner:        o.Owner,
		Symbol:       o.Symbol,
		Side:         types.OrderSide(o.Side.String()),
		Type:         types.OrderType(o.Type.String()),
		Price:        types.FromTicks(o.LimitPriceTicks),
		TriggerPrice: types.FromTicks(o.TriggerPriceTicks),
		Quantity:     o.OriginalQty,
		Remaining:    o.RemainingQty,
		Status:       types.OrderStatus(o.Status.String()),
	}
}

func tradesToView(trades []engine.Trade) []types.TradeView {
	out := make([]types.TradeView, 0, len(trades))
	for _, t := range trades {
		out = append(out, types.TradeView{
			TradeID:     t.ID,
			Symbol:      t.Symbol,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Price:       types.FromTicks(t.Price),
			Quantity:    t.Qty,
		})
	}
	return out
}

func depthToView(levels []engine.PriceLevelView) []types.DepthLevel {
	out := make([]types.DepthLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, types.DepthLevel{Price: types.FromTicks(l.Price), Quantity: l.Qty, Orders: l.OrderCount})
	}
	return out
}

// writeEngineError maps an engine.EngineError's Kind to an HTTP status
// (spec §7 does not mandate a status mapping, this is the demo driver's own
// choice).
func writeEngineError(w http.ResponseWriter, err error) {
	ee, ok := engine.AsEngineError(err)
	if !ok {
		response.WriteJson(w, http.StatusInternalServerError, response.GeneralError(err))
		return
	}
	status := http.StatusInternalServerError
	switch ee.Kind {
	case engine.KindValidation:
		status = http.StatusBadRequest
	case engine.KindUnknownSymbol, engine.KindUnknownOrder:
		status = http.StatusNotFound
	case engine.KindNotOwner:
		status = http.StatusForbidden
	case engine.KindOverloaded:
		status = http.StatusServiceUnavailable
	case engine.KindNoLiquidity, engine.KindNoReferencePrice, engine.KindTriggerCascade:
		status = http.StatusUnprocessableEntity
	case engine.KindNotRunning:
		status = http.StatusServiceUnavailable
	}
	response.WriteJson(w, status, response.GeneralErrorString(fmt.Sprintf("%s: %s", ee.Kind, ee.Message)))
}
