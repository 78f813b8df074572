package bus

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSink serves one Hub[T]'s events to any number of browser/CLI
// clients over a websocket connection, one subscriber per connection.
// Grounded on the server-side Upgrade pattern exercised in
// chycee-CryptoGo's bitget worker_test.go (the rest of that repo only ever
// dials outbound, since it is a market-data consumer rather than a
// producer).
type WebSocketSink[T any] struct {
	hub      *Hub[T]
	upgrader websocket.Upgrader
	bufSize  int
	logger   *slog.Logger
}

// NewWebSocketSink wraps hub for serving over HTTP. bufSize is the
// per-connection subscriber channel depth passed to Hub.Subscribe.
func NewWebSocketSink[T any](hub *Hub[T], bufSize int, logger *slog.Logger) *WebSocketSink[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketSink[T]{
		hub:     hub,
		bufSize: bufSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request to a websocket and streams every event
// published to the hub, JSON-encoded one per message, until the client
// disconnects or is evicted as a lagging subscriber.
func (s *WebSocketSink[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("bus: websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	id, ch := s.hub.Subscribe(s.bufSize)
	defer s.hub.Unsubscribe(id)

	var writeMu sync.Mutex
	closed := make(chan struct{})

	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(30 * time.Second)
	defer pinger.Stop()

	for {
		select {
		case <-closed:
			conn.Close()
			return
		case <-pinger.C:
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				conn.Close()
				return
			}
		case event, ok := <-ch:
			if !ok {
				conn.Close()
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				s.logger.Error("bus: failed to marshal event for websocket", slog.String("error", err.Error()))
				continue
			}
			writeMu.Lock()
			err = conn.WriteMessage(websocket.TextMessage, payload)
			writeMu.Unlock()
			if err != nil {
				conn.Close()
				return
			}
		}
	}
}
