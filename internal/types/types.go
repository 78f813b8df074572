// Package types holds the wire-level request/response shapes exchanged with
// callers of the matching engine (spec §6). Prices cross this boundary as
// shopspring/decimal.Decimal — never as floats — and are converted to the
// engine's internal int64 "price ticks" representation at the edge, the
// same boundary chycee-CryptoGo draws between its decimal exchange-rate
// types and its int64-micros domain types.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TickScale is the number of ticks per unit of decimal price. A price of
// 101.25 with TickScale 1_000_000 is stored internally as 101_250_000
// ticks, letting the hot matching path compare plain int64s instead of
// decimals.
const TickScale = 1_000_000

// ToTicks converts a decimal price to its internal integer tick
// representation, rounding to the nearest tick.
func ToTicks(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(TickScale)).Round(0).IntPart()
}

// FromTicks converts an internal tick count back to a decimal price.
func FromTicks(ticks int64) decimal.Decimal {
	return decimal.NewFromInt(ticks).Div(decimal.NewFromInt(TickScale))
}

type OrderSide string
type OrderType string
type OrderStatus string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

const (
	Limit    OrderType = "limit"
	Market   OrderType = "market"
	StopLoss OrderType = "stop_loss"
)

const (
	Pending   OrderStatus = "pending"
	Partial   OrderStatus = "partial_fill"
	Filled    OrderStatus = "filled"
	Cancelled OrderStatus = "cancelled"
	Rejected  OrderStatus = "rejected"
	Triggered OrderStatus = "triggered"
)

// SubmitOrderRequest is the body of POST /api/orders.
type SubmitOrderRequest struct {
	OrderID       string          `json:"order_id" validate:"required"`
	Owner         string          `json:"owner" validate:"required"`
	Symbol        string          `json:"symbol" validate:"required"`
	Side          OrderSide       `json:"side" validate:"required,oneof=buy sell"`
	Type          OrderType       `json:"type" validate:"required,oneof=limit market stop_loss"`
	Price         decimal.Decimal `json:"price,omitempty"`
	TriggerPrice  decimal.Decimal `json:"trigger_price,omitempty"`
	Quantity      int64           `json:"quantity" validate:"required,gt=0"`
}

type CancelOrderRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Owner   string `json:"owner" validate:"required"`
}

type ModifyOrderRequest struct {
	OrderID  string           `json:"order_id" validate:"required"`
	Owner    string           `json:"owner" validate:"required"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Quantity *int64           `json:"quantity,omitempty"`
}

// OrderView is the read-facing representation of a resting or historical
// order (decimal prices, RFC3339 timestamps).
type OrderView struct {
	OrderID      string          `json:"order_id"`
	Owner        string          `json:"owner"`
	Symbol       string          `json:"symbol"`
	Side         OrderSide       `json:"side"`
	Type         OrderType       `json:"type"`
	Price        decimal.Decimal `json:"price,omitempty"`
	TriggerPrice decimal.Decimal `json:"trigger_price,omitempty"`
	Quantity     int64           `json:"quantity"`
	Remaining    int64           `json:"remaining"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type TradeView struct {
	TradeID     string          `json:"trade_id"`
	Symbol      string          `json:"symbol"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

type DepthLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Orders   int             `json:"orders"`
}

type OrderBookView struct {
	Symbol string       `json:"symbol"`
	Bids   []DepthLevel `json:"bids"`
	Asks   []DepthLevel `json:"asks"`
}

type MarketDataView struct {
	Symbol      string          `json:"symbol"`
	BestBid     decimal.Decimal `json:"best_bid,omitempty"`
	BestAsk     decimal.Decimal `json:"best_ask,omitempty"`
	LastPrice   decimal.Decimal `json:"last_price,omitempty"`
	Volume      int64           `json:"volume"`
	TradeCount  int64           `json:"trade_count"`
}

// EngineStatsView is the read-facing shape of engine.EngineStats
// (SPEC_FULL.md Part D.1).
type EngineStatsView struct {
	OrdersAccepted int64  `json:"orders_accepted"`
	TradesExecuted int64  `json:"trades_executed"`
	VolumeTraded   int64  `json:"volume_traded"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	ActiveSymbols  int    `json:"active_symbols"`
	QueueDepth     int    `json:"queue_depth"`
}
