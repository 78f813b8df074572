// Command matcher-api is the demo HTTP driver wiring MatchingDispatcher to
// a MySQL write-behind audit sink, Prometheus metrics, and a websocket feed
// for trades and market data. It merges what the teacher shipped as two
// near-duplicate entrypoints (matcher-api and stock-api) into the one
// binary that actually wires every handler — see DESIGN.md.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oakline-markets/matching-engine/internal/bus"
	"github.com/oakline-markets/matching-engine/internal/config"
	"github.com/oakline-markets/matching-engine/internal/engine"
	"github.com/oakline-markets/matching-engine/internal/http/handlers/order"
	"github.com/oakline-markets/matching-engine/internal/http/handlers/trade"
	"github.com/oakline-markets/matching-engine/internal/snapshot"
	"github.com/oakline-markets/matching-engine/internal/storage/mysql"
)

func main() {
	cfg := config.MustLoad()

	store, err := mysql.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("storage initialized", slog.String("env", cfg.Env))

	registry := prometheus.NewRegistry()
	metrics := engine.NewMetrics(registry)

	dispatcher := engine.NewMatchingDispatcher(engine.Config{
		WorkerCount:       cfg.Engine.WorkerCount,
		MaxQueueSize:      cfg.Engine.MaxQueueSize,
		OrderTimeoutSecs:  cfg.Engine.OrderTimeoutSecs,
		EnableStopLoss:    cfg.Engine.EnableStopLoss,
		MaxTriggerDepth:   cfg.Engine.MaxTriggerDepth,
		EnableMarketData:  cfg.Engine.EnableMarketData,
		AutoCreateSymbols: cfg.Engine.AutoCreateSymbols,
	},
		engine.WithPersistence(mysql.NewPersistenceAdapter(store)),
		engine.WithMetrics(metrics),
	)
	var snapStore *snapshot.Store
	if cfg.Snapshot.Enabled {
		snapStore, err = snapshot.OpenStore(cfg.Snapshot.Dir)
		if err != nil {
			log.Fatal(err)
		}
		defer snapStore.Close()

		books, err := snapStore.LoadAll()
		if err != nil {
			log.Fatal(err)
		}
		if err := dispatcher.Restore(books); err != nil {
			log.Fatal(err)
		}
		slog.Info("restored book snapshots", slog.Int("count", len(books)))
	}

	dispatcher.Start()
	defer dispatcher.Stop()

	if snapStore != nil {
		snapshotCtx, cancelSnapshot := context.WithCancel(context.Background())
		defer cancelSnapshot()
		go runSnapshotLoop(snapshotCtx, dispatcher, snapStore)
		defer saveAllSnapshots(dispatcher, snapStore)
	}

	if cfg.Kafka.Enabled {
		kafkaSink := bus.NewKafkaSink[engine.Trade](cfg.Kafka.Brokers, cfg.Kafka.TradeTopic, nil)
		kafkaCtx, cancelKafka := context.WithCancel(context.Background())
		defer cancelKafka()
		defer kafkaSink.Close()
		go kafkaSink.Run(kafkaCtx, dispatcher.TradesHub(), func(t engine.Trade) []byte { return []byte(t.Symbol) }, 256)
	}

	tradesWS := bus.NewWebSocketSink[engine.Trade](dispatcher.TradesHub(), 64, nil)
	marketDataWS := bus.NewWebSocketSink[engine.MarketDataDelta](dispatcher.MarketDataHub(), 64, nil)

	orderHandler := order.NewHandler(dispatcher)
	tradeHandler := trade.NewHandler(store)

	router := http.NewServeMux()
	router.HandleFunc("POST /api/orders", orderHandler.PlaceOrder)
	router.HandleFunc("GET /api/orders/{orderId}", orderHandler.GetOrder)
	router.HandleFunc("PATCH /api/orders/{orderId}", orderHandler.ModifyOrder)
	router.HandleFunc("DELETE /api/orders/{orderId}", orderHandler.CancelOrder)
	router.HandleFunc("GET /api/orderbook", orderHandler.GetOrderBook)
	router.HandleFunc("GET /api/trades", tradeHandler.ListTrades)
	router.Handle("GET /ws/trades", tradesWS)
	router.Handle("GET /ws/market-data", marketDataWS)
	router.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	slog.Info("server started", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-done

	slog.Info("shutting down the server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if err := store.DB.Close(); err != nil {
		slog.Error("failed to close database connection", slog.String("error", err.Error()))
	}

	slog.Info("server shutdown successfully")
}

// runSnapshotLoop periodically persists every book's state to the durable
// snapshot store (spec §4.7), so a crash loses at most one interval's worth
// of resting orders instead of the whole book set.
func runSnapshotLoop(ctx context.Context, dispatcher *engine.MatchingDispatcher, store *snapshot.Store) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saveAllSnapshots(dispatcher, store)
		}
	}
}

func saveAllSnapshots(dispatcher *engine.MatchingDispatcher, store *snapshot.Store) {
	now := time.Now().UnixMicro()
	for _, state := range dispatcher.ExportAll() {
		if err := store.SaveSnapshot(state, now); err != nil {
			slog.Error("failed to save book snapshot", slog.String("symbol", state.Symbol), slog.String("error", err.Error()))
		}
	}
}
