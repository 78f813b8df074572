package trade

import (
	"log/slog"
	"net/http"

	"github.com/oakline-markets/matching-engine/internal/http/response"
	"github.com/oakline-markets/matching-engine/internal/storage"
)

type Handler struct {
	store storage.Storage
}

func NewHandler(store storage.Storage) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		response.WriteJson(w, http.StatusBadRequest, response.GeneralErrorString("symbol is required"))
		return
	}

	slog.Info("fetching trades", slog.String("symbol", symbol))

	trades, err := h.store.ListTradesBySymbol(symbol)
	if err != nil {
		slog.Error("failed to fetch trades", slog.String("error", err.Error()))
		response.WriteJson(w, http.StatusInternalServerError, response.GeneralErrorString("failed to fetch trades"))
		return
	}

	response.WriteJson(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"trades": trades,
	})
}
