package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oakline-markets/matching-engine/internal/bus"
)

// Config carries the dispatcher's tunables (spec §6 "Configuration
// options").
type Config struct {
	WorkerCount       int  // degree of cross-symbol parallelism (informational: actors are created on demand)
	MaxQueueSize      int  // per-symbol mailbox bound
	OrderTimeoutSecs  int  // sweep threshold; 0 disables sweep
	EnableStopLoss    bool // reject StopLoss submissions if false
	MaxTriggerDepth   int  // guard against trigger cascades
	EnableMarketData  bool // gate top-of-book fan-out
	AutoCreateSymbols bool // create a book on first reference instead of unknown_symbol
}

// DefaultConfig returns sane defaults matching the original's EngineConfig
// (original_source/MatchingEngine.hpp).
func DefaultConfig() Config {
	return Config{
		WorkerCount:       4,
		MaxQueueSize:      10_000,
		OrderTimeoutSecs:  86_400,
		EnableStopLoss:    true,
		MaxTriggerDepth:   64,
		EnableMarketData:  true,
		AutoCreateSymbols: true,
	}
}

// MarketDataDelta is the push-based top-of-book event (spec §6 "Market-data
// delta").
type MarketDataDelta struct {
	Symbol              string
	BestBid             int64
	BestBidOK           bool
	BestAsk             int64
	BestAskOK           bool
	LastTradePriceTicks int64
	Volume              int64
	TradeCount          int64
	Timestamp           int64
}

type dispatcherState int32

const (
	stateCreated dispatcherState = iota
	stateRunning
	stateStopped
)

// EngineStats is the dispatcher-wide statistics snapshot (SPEC_FULL.md Part
// D.1, grounded in original_source/MatchingEngine.hpp's EngineStatistics).
type EngineStats struct {
	OrdersAccepted int64
	TradesExecuted int64
	VolumeTraded   int64
	UptimeSeconds  int64
	ActiveSymbols  int
	QueueDepth     int
	Symbols        []BookStats
}

// symbolActor serializes every request against one symbol's OrderBook by
// running jobs off a single goroutine reading a bounded channel. This is
// scheduling model (b) of spec §5: "one actor per symbol fed by a bounded
// mailbox."
type symbolActor struct {
	symbol  string
	book    *OrderBook
	mailbox chan func()
	done    chan struct{}
}

func newSymbolActor(symbol string, book *OrderBook, maxQueueSize int) *symbolActor {
	a := &symbolActor{
		symbol:  symbol,
		book:    book,
		mailbox: make(chan func(), maxQueueSize),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *symbolActor) run() {
	defer close(a.done)
	for job := range a.mailbox {
		job()
	}
}

// submit enqueues job without blocking; returns false (overloaded) if the
// mailbox is full.
func (a *symbolActor) submit(job func()) bool {
	select {
	case a.mailbox <- job:
		return true
	default:
		return false
	}
}

func (a *symbolActor) close() {
	close(a.mailbox)
	<-a.done
}

// MatchingDispatcher is the process-wide front end described in spec §4.6.
// It validates and routes OrderRequests to per-symbol actors, guaranteeing
// per-symbol serialization with cross-symbol parallelism, maintains
// engine-wide counters, and fans out trades and top-of-book deltas on the
// subscription bus.
type MatchingDispatcher struct {
	cfg Config

	mu      sync.RWMutex
	actors  map[string]*symbolActor
	idIndex map[string]string // order id -> owning symbol; retained past terminal state, see DESIGN.md

	state atomic.Int32

	trades     *bus.Hub[Trade]
	marketData *bus.Hub[MarketDataDelta]

	metrics     *Metrics
	persistence Persistence
	risk        Risk
	authz       Authorization
	logger      *slog.Logger

	ordersAccepted atomic.Int64
	tradesExecuted atomic.Int64
	volumeTraded   atomic.Int64
	startedAt      int64

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// DispatcherOption configures optional collaborators on construction.
type DispatcherOption func(*MatchingDispatcher)

func WithPersistence(p Persistence) DispatcherOption {
	return func(d *MatchingDispatcher) { d.persistence = p }
}

func WithRisk(r Risk) DispatcherOption {
	return func(d *MatchingDispatcher) { d.risk = r }
}

func WithAuthorization(a Authorization) DispatcherOption {
	return func(d *MatchingDispatcher) { d.authz = a }
}

func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *MatchingDispatcher) { d.metrics = m }
}

func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *MatchingDispatcher) { d.logger = l }
}

// NewMatchingDispatcher constructs a dispatcher in the Created state. Call
// Start to begin accepting requests.
func NewMatchingDispatcher(cfg Config, opts ...DispatcherOption) *MatchingDispatcher {
	d := &MatchingDispatcher{
		cfg:     cfg,
		actors:  make(map[string]*symbolActor),
		idIndex: make(map[string]string),
		risk:    NoopRisk{},
		logger:  slog.Default(),
		trades:  bus.NewHub[Trade]("trades", nil),
	}
	d.marketData = bus.NewHub[MarketDataDelta]("market-data", nil)
	for _, opt := range opts {
		opt(d)
	}
	d.state.Store(int32(stateCreated))
	return d
}

// Start transitions Created -> Running. Idempotent while already Running
// (spec §4.6 "start is idempotent in Running"). A Stopped dispatcher stays
// Stopped: Stop has closed every actor's mailbox.
func (d *MatchingDispatcher) Start() {
	if s := d.state.Load(); s == int32(stateRunning) || s == int32(stateStopped) {
		return
	}
	d.startedAt = nowMicros()
	d.state.Store(int32(stateRunning))

	if d.cfg.OrderTimeoutSecs > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		d.sweepCancel = cancel
		d.sweepDone = make(chan struct{})
		go d.runSweeper(ctx)
	}
	d.logger.Info("matching dispatcher started", slog.Int("order_timeout_secs", d.cfg.OrderTimeoutSecs))
}

// Stop transitions to Stopped, halts the expiry sweeper, then drains every
// actor's mailbox to completion (already-accepted requests are not
// rejected). Submissions after Stop fail with not_running.
func (d *MatchingDispatcher) Stop() {
	if d.state.Load() == int32(stateStopped) {
		return
	}
	d.state.Store(int32(stateStopped))

	if d.sweepCancel != nil {
		d.sweepCancel()
		<-d.sweepDone
	}

	d.mu.Lock()
	actors := make([]*symbolActor, 0, len(d.actors))
	for _, a := range d.actors {
		actors = append(actors, a)
	}
	d.mu.Unlock()

	for _, a := range actors {
		a.close()
	}
	d.logger.Info("matching dispatcher stopped")
}

func (d *MatchingDispatcher) running() bool { return d.state.Load() == int32(stateRunning) }

// actorFor returns the actor for symbol, creating both the book and the
// actor on first reference if AutoCreateSymbols is set. Returns
// unknown_symbol otherwise.
func (d *MatchingDispatcher) actorFor(symbol string) (*symbolActor, error) {
	d.mu.RLock()
	a, ok := d.actors[symbol]
	d.mu.RUnlock()
	if ok {
		return a, nil
	}

	if !d.cfg.AutoCreateSymbols {
		return nil, newErr(KindUnknownSymbol, "symbol %q is not registered", symbol)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if a, ok := d.actors[symbol]; ok {
		return a, nil
	}
	book := NewOrderBook(symbol, d.cfg.MaxTriggerDepth, d.cfg.EnableStopLoss, d.logger)
	a = newSymbolActor(symbol, book, d.cfg.MaxQueueSize)
	d.actors[symbol] = a
	d.metrics.setActiveSymbols(len(d.actors))
	return a, nil
}

// AddSymbol explicitly registers a symbol ahead of any order referencing it
// (SPEC_FULL.md Part D.3).
func (d *MatchingDispatcher) AddSymbol(symbol string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.actors[symbol]; ok {
		return
	}
	book := NewOrderBook(symbol, d.cfg.MaxTriggerDepth, d.cfg.EnableStopLoss, d.logger)
	d.actors[symbol] = newSymbolActor(symbol, book, d.cfg.MaxQueueSize)
	d.metrics.setActiveSymbols(len(d.actors))
}

// RemoveSymbol tears down a symbol's book, rejecting if live orders remain
// (spec §3 "Ownership and lifecycle").
func (d *MatchingDispatcher) RemoveSymbol(symbol string) error {
	d.mu.Lock()
	a, ok := d.actors[symbol]
	d.mu.Unlock()
	if !ok {
		return newErr(KindUnknownSymbol, "symbol %q is not registered", symbol)
	}

	var rejectErr error
	done := make(chan struct{})
	a.submit(func() {
		defer close(done)
		if a.book.HasLiveOrders() {
			rejectErr = newErr(KindValidation, "cannot remove symbol %q with live orders resting", symbol)
		}
	})
	<-done
	if rejectErr != nil {
		return rejectErr
	}

	d.mu.Lock()
	delete(d.actors, symbol)
	d.mu.Unlock()
	a.close()
	d.metrics.setActiveSymbols(len(d.actors))
	return nil
}

// GetSupportedSymbols lists every currently registered symbol
// (SPEC_FULL.md Part D.3).
func (d *MatchingDispatcher) GetSupportedSymbols() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.actors))
	for s := range d.actors {
		out = append(out, s)
	}
	return out
}

// SubmitOrder validates and routes req (spec §4.6).
func (d *MatchingDispatcher) SubmitOrder(req SubmitRequest) SubmitResponse {
	if !d.running() {
		return SubmitResponse{Err: newErr(KindNotRunning, "dispatcher is not running")}
	}
	if err := validateSubmit(req); err != nil {
		return SubmitResponse{Err: err}
	}

	actor, err := d.actorFor(req.Symbol)
	if err != nil {
		return SubmitResponse{Err: err}
	}

	order := req.toOrder()

	var snap BookSnapshot
	snapDone := make(chan struct{})
	if !actor.submit(func() { defer close(snapDone); snap = actor.book.Snapshot() }) {
		return SubmitResponse{Err: newErr(KindOverloaded, "symbol %q mailbox is full", req.Symbol)}
	}
	<-snapDone

	if err := d.risk.Admit(order, snap); err != nil {
		return SubmitResponse{Err: err}
	}

	d.mu.Lock()
	d.idIndex[req.ID] = req.Symbol
	d.mu.Unlock()

	var resp SubmitResponse
	done := make(chan struct{})
	accepted := actor.submit(func() {
		defer close(done)
		before := actor.book.Snapshot()
		trades, submitErr := actor.book.Submit(order)
		resp = SubmitResponse{Accepted: submitErr == nil, OrderID: order.ID, Trades: trades, Err: submitErr}
		d.afterBookOp(actor, before, trades)
	})
	d.metrics.setQueueDepth(req.Symbol, len(actor.mailbox))
	if !accepted {
		return SubmitResponse{Err: newErr(KindOverloaded, "symbol %q mailbox is full", req.Symbol)}
	}
	<-done

	d.ordersAccepted.Add(1)
	d.metrics.observeAccepted()
	d.recordOrder(order)
	return resp
}

// CancelOrder validates and routes req (spec §4.6). CancelOrder carries no
// symbol (spec §6), so the dispatcher resolves it via idIndex.
func (d *MatchingDispatcher) CancelOrder(req CancelRequest) CancelResponse {
	if !d.running() {
		return CancelResponse{Err: newErr(KindNotRunning, "dispatcher is not running")}
	}
	if req.ID == "" {
		return CancelResponse{Err: newErr(KindValidation, "order id must not be empty")}
	}

	d.mu.RLock()
	symbol, ok := d.idIndex[req.ID]
	d.mu.RUnlock()
	if !ok {
		return CancelResponse{Err: newErr(KindUnknownOrder, "no such order %q", req.ID)}
	}

	actor, err := d.actorFor(symbol)
	if err != nil {
		return CancelResponse{Err: err}
	}

	var resp CancelResponse
	done := make(chan struct{})
	accepted := actor.submit(func() {
		defer close(done)
		ok, cancelErr := actor.book.Cancel(req.ID, req.Owner, d.authz)
		if ee, isEE := AsEngineError(cancelErr); isEE && ee.Kind == KindUnknownOrder {
			// idIndex knows the id but the book no longer holds it: the order
			// has gone terminal, so the cancel is an idempotent no-op.
			ok, cancelErr = false, nil
		}
		resp = CancelResponse{Accepted: ok, Err: cancelErr}
	})
	d.metrics.setQueueDepth(symbol, len(actor.mailbox))
	if !accepted {
		return CancelResponse{Err: newErr(KindOverloaded, "symbol %q mailbox is full", symbol)}
	}
	<-done
	return resp
}

// ModifyOrder validates and routes req (spec §4.6). Like CancelOrder, it
// carries no symbol and is resolved via idIndex.
func (d *MatchingDispatcher) ModifyOrder(req ModifyRequest) ModifyResponse {
	if !d.running() {
		return ModifyResponse{Err: newErr(KindNotRunning, "dispatcher is not running")}
	}
	if req.ID == "" {
		return ModifyResponse{Err: newErr(KindValidation, "order id must not be empty")}
	}

	d.mu.RLock()
	symbol, ok := d.idIndex[req.ID]
	d.mu.RUnlock()
	if !ok {
		return ModifyResponse{Err: newErr(KindUnknownOrder, "no such order %q", req.ID)}
	}

	actor, err := d.actorFor(symbol)
	if err != nil {
		return ModifyResponse{Err: err}
	}

	var resp ModifyResponse
	done := make(chan struct{})
	accepted := actor.submit(func() {
		defer close(done)
		before := actor.book.Snapshot()
		trades, modifyErr := actor.book.Modify(req.ID, req.Owner, req.NewPriceTicks, req.NewQty, d.authz)
		resp = ModifyResponse{Accepted: modifyErr == nil, Trades: trades, Err: modifyErr}
		d.afterBookOp(actor, before, trades)
	})
	d.metrics.setQueueDepth(symbol, len(actor.mailbox))
	if !accepted {
		return ModifyResponse{Err: newErr(KindOverloaded, "symbol %q mailbox is full", symbol)}
	}
	<-done
	return resp
}

// SubmitBatch submits every request in order and returns one response per
// request (SPEC_FULL.md Part D.4). Each still goes through the normal
// per-symbol serialization; a batch spanning two symbols is not atomic
// across them.
func (d *MatchingDispatcher) SubmitBatch(reqs []SubmitRequest) []SubmitResponse {
	out := make([]SubmitResponse, len(reqs))
	for i, req := range reqs {
		out[i] = d.SubmitOrder(req)
	}
	return out
}

// afterBookOp runs on the symbol actor goroutine immediately after a book
// mutation: it publishes trades and, if the top of book changed, a
// market-data delta, and updates engine-wide counters. Everything here is
// spec §5's "publish ... outside the hot matching path" — it happens after
// the match loop has already returned, still inside the actor's
// serialization but outside of what spec calls the "exclusive section" for
// matching itself.
func (d *MatchingDispatcher) afterBookOp(a *symbolActor, before BookSnapshot, trades []Trade) {
	for _, t := range trades {
		d.trades.Broadcast(t)
		if d.persistence != nil {
			if err := d.persistence.RecordTrade(t); err != nil {
				d.logger.Error("persistence: failed to record trade", slog.String("error", err.Error()))
			}
		}
	}
	d.tradesExecuted.Add(int64(len(trades)))
	var vol int64
	for _, t := range trades {
		vol += t.Qty
	}
	d.volumeTraded.Add(vol)
	d.metrics.observeTrades(trades)

	if !d.cfg.EnableMarketData {
		return
	}
	after := a.book.Snapshot()
	if after.BestBid != before.BestBid || after.BestBidOK != before.BestBidOK ||
		after.BestAsk != before.BestAsk || after.BestAskOK != before.BestAskOK {
		md := a.book.MarketData()
		d.marketData.Broadcast(MarketDataDelta{
			Symbol:              md.Symbol,
			BestBid:             md.BestBid,
			BestBidOK:           md.BestBidOK,
			BestAsk:             md.BestAsk,
			BestAskOK:           md.BestAskOK,
			LastTradePriceTicks: md.LastTradePriceTicks,
			Volume:              md.TotalVolume,
			TradeCount:          md.TotalTrades,
			Timestamp:           nowMicros(),
		})
	}
}

func (d *MatchingDispatcher) recordOrder(o *Order) {
	if d.persistence == nil {
		return
	}
	if err := d.persistence.RecordOrder(o); err != nil {
		d.logger.Error("persistence: failed to record order", slog.String("error", err.Error()))
	}
}

// SubscribeTrades registers a new trade subscriber (spec §6 "Trade event").
func (d *MatchingDispatcher) SubscribeTrades(bufSize int) (int64, <-chan Trade) {
	return d.trades.Subscribe(bufSize)
}

// TradesHub exposes the underlying trade bus so sinks (websocket, kafka)
// can attach directly instead of re-subscribing and rebroadcasting.
func (d *MatchingDispatcher) TradesHub() *bus.Hub[Trade] { return d.trades }

// MarketDataHub exposes the underlying market-data bus for the same reason.
func (d *MatchingDispatcher) MarketDataHub() *bus.Hub[MarketDataDelta] { return d.marketData }

func (d *MatchingDispatcher) UnsubscribeTrades(id int64) { d.trades.Unsubscribe(id) }

// SubscribeMarketData registers a new top-of-book subscriber (spec §6
// "Market-data delta").
func (d *MatchingDispatcher) SubscribeMarketData(bufSize int) (int64, <-chan MarketDataDelta) {
	return d.marketData.Subscribe(bufSize)
}

func (d *MatchingDispatcher) UnsubscribeMarketData(id int64) { d.marketData.Unsubscribe(id) }

// GetOrder, GetMarketData, GetAllMarketData, GetMultiSymbolDepth, and Stats
// are read queries; each is executed on the owning symbol's actor so it
// observes a point-in-time consistent snapshot.

func (d *MatchingDispatcher) GetOrder(id string) (*Order, bool) {
	d.mu.RLock()
	symbol, ok := d.idIndex[id]
	d.mu.RUnlock()
	if !ok {
		return nil, false
	}
	actor, err := d.actorFor(symbol)
	if err != nil {
		return nil, false
	}
	var o *Order
	var found bool
	done := make(chan struct{})
	if !actor.submit(func() { defer close(done); o, found = actor.book.GetOrder(id) }) {
		return nil, false
	}
	<-done
	return o, found
}

func (d *MatchingDispatcher) GetMarketData(symbol string) (MarketData, bool) {
	d.mu.RLock()
	actor, ok := d.actors[symbol]
	d.mu.RUnlock()
	if !ok {
		return MarketData{}, false
	}
	var md MarketData
	done := make(chan struct{})
	if !actor.submit(func() { defer close(done); md = actor.book.MarketData() }) {
		return MarketData{}, false
	}
	<-done
	return md, true
}

func (d *MatchingDispatcher) GetAllMarketData() []MarketData {
	d.mu.RLock()
	actors := make([]*symbolActor, 0, len(d.actors))
	for _, a := range d.actors {
		actors = append(actors, a)
	}
	d.mu.RUnlock()

	out := make([]MarketData, 0, len(actors))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, a := range actors {
		a := a
		wg.Add(1)
		done := make(chan struct{})
		ok := a.submit(func() {
			defer close(done)
			defer wg.Done()
			md := a.book.MarketData()
			mu.Lock()
			out = append(out, md)
			mu.Unlock()
		})
		if !ok {
			wg.Done()
		}
		<-done
	}
	wg.Wait()
	return out
}

// GetMultiSymbolDepth returns up to levels price levels on each side for
// every requested symbol (SPEC_FULL.md Part D, original
// getMultiSymbolDepth).
func (d *MatchingDispatcher) GetMultiSymbolDepth(symbols []string, levels int) map[string][2][]PriceLevelView {
	out := make(map[string][2][]PriceLevelView, len(symbols))
	for _, symbol := range symbols {
		d.mu.RLock()
		actor, ok := d.actors[symbol]
		d.mu.RUnlock()
		if !ok {
			continue
		}
		var bids, asks []PriceLevelView
		done := make(chan struct{})
		if !actor.submit(func() {
			defer close(done)
			bids = actor.book.Depth(levels, SideBuy)
			asks = actor.book.Depth(levels, SideSell)
		}) {
			continue
		}
		<-done
		out[symbol] = [2][]PriceLevelView{bids, asks}
	}
	return out
}

// Stats returns the engine-wide statistics snapshot (SPEC_FULL.md Part D.1).
func (d *MatchingDispatcher) Stats() EngineStats {
	d.mu.RLock()
	actors := make([]*symbolActor, 0, len(d.actors))
	for _, a := range d.actors {
		actors = append(actors, a)
	}
	d.mu.RUnlock()

	stats := make([]BookStats, 0, len(actors))
	queueDepth := 0
	for _, a := range actors {
		depth := len(a.mailbox)
		queueDepth += depth
		d.metrics.setQueueDepth(a.symbol, depth)
		var s BookStats
		done := make(chan struct{})
		if a.submit(func() { defer close(done); s = a.book.Stats() }) {
			<-done
			stats = append(stats, s)
		}
	}

	var uptime int64
	if d.startedAt != 0 {
		uptime = (nowMicros() - d.startedAt) / 1_000_000
	}

	return EngineStats{
		OrdersAccepted: d.ordersAccepted.Load(),
		TradesExecuted: d.tradesExecuted.Load(),
		VolumeTraded:   d.volumeTraded.Load(),
		UptimeSeconds:  uptime,
		ActiveSymbols:  len(actors),
		QueueDepth:     queueDepth,
		Symbols:        stats,
	}
}

// ArmCircuitBreaker arms the named symbol's circuit breaker (SPEC_FULL.md
// Part D.5).
func (d *MatchingDispatcher) ArmCircuitBreaker(symbol string, thresholdBps int64, durationSecs int) error {
	d.mu.RLock()
	actor, ok := d.actors[symbol]
	d.mu.RUnlock()
	if !ok {
		return newErr(KindUnknownSymbol, "symbol %q is not registered", symbol)
	}
	done := make(chan struct{})
	actor.submit(func() { defer close(done); actor.book.ArmCircuitBreaker(thresholdBps, durationSecs) })
	<-done
	return nil
}

// ExportAll collects every registered symbol's BookState (spec §4.7 "the
// entire book set"), each gathered on its own actor so the snapshot of a
// given book is internally consistent. Used by the durable snapshot store at
// shutdown/on a periodic timer.
func (d *MatchingDispatcher) ExportAll() []BookState {
	d.mu.RLock()
	actors := make([]*symbolActor, 0, len(d.actors))
	for _, a := range d.actors {
		actors = append(actors, a)
	}
	d.mu.RUnlock()

	out := make([]BookState, 0, len(actors))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, a := range actors {
		a := a
		wg.Add(1)
		done := make(chan struct{})
		ok := a.submit(func() {
			defer close(done)
			defer wg.Done()
			state := a.book.ExportState()
			mu.Lock()
			out = append(out, state)
			mu.Unlock()
		})
		if !ok {
			wg.Done()
		}
		<-done
	}
	wg.Wait()
	return out
}

// Restore rebuilds one actor per book in states, re-populating the id index
// so Cancel/ModifyOrder can resolve the reloaded orders' owning symbol. It
// must run before Start (spec §4.7 "restart recovery" is a boot-time
// operation, not a live one) — called while other actors might already be
// serving requests would race the id index and the actors map.
func (d *MatchingDispatcher) Restore(states []BookState) error {
	if d.running() {
		return newErr(KindValidation, "cannot restore book state while the dispatcher is running")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, state := range states {
		book, err := NewOrderBookFromState(state, d.cfg.MaxTriggerDepth, d.cfg.EnableStopLoss, d.logger)
		if err != nil {
			return err
		}
		d.actors[state.Symbol] = newSymbolActor(state.Symbol, book, d.cfg.MaxQueueSize)
		for _, s := range state.Orders {
			d.idIndex[s.ID] = state.Symbol
		}
		for _, s := range state.Stops {
			d.idIndex[s.ID] = state.Symbol
		}
	}
	d.metrics.setActiveSymbols(len(d.actors))
	return nil
}

// runSweeper periodically cancels resting orders whose arrival timestamp is
// older than OrderTimeoutSecs (spec §4.6 "Expiry sweep"). Sweeps run under
// the same per-symbol exclusion as submits, since they execute as a job on
// each actor.
func (d *MatchingDispatcher) runSweeper(ctx context.Context) {
	defer close(d.sweepDone)
	interval := time.Second * 30
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweepOnce()
		}
	}
}

func (d *MatchingDispatcher) sweepOnce() {
	cutoff := nowMicros() - int64(d.cfg.OrderTimeoutSecs)*1_000_000

	d.mu.RLock()
	actors := make([]*symbolActor, 0, len(d.actors))
	for _, a := range d.actors {
		actors = append(actors, a)
	}
	d.mu.RUnlock()

	for _, a := range actors {
		a := a
		a.submit(func() {
			var stale []string
			for id, o := range a.book.orders {
				if o.CreatedAt < cutoff {
					stale = append(stale, id)
				}
			}
			for _, id := range stale {
				if o, ok := a.book.GetOrder(id); ok {
					a.book.Cancel(id, o.Owner, nil)
				}
			}
		})
	}
}
