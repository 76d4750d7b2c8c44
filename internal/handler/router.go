package handler

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/psmarinho/paperarena/internal/service"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware.
func NewRouter(
	tradeSvc *service.TradeService,
	marketSvc *service.MarketService,
	webhookSvc *service.WebhookService,
	streamInterval time.Duration,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	tradeH := NewTradeHandler(tradeSvc)
	marketH := NewMarketHandler(marketSvc)
	webhookH := NewWebhookHandler(webhookSvc)
	streamH := NewStreamHandler(marketSvc, streamInterval, logger)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Catalog and market data routes.
	r.Get("/instruments", marketH.Instruments)
	r.Get("/snapshot", marketH.Snapshot)
	r.Get("/candles", marketH.Candles)
	r.Get("/leaderboard", marketH.Leaderboard)
	r.Get("/stream", streamH.Stream)

	// Trading routes.
	r.Post("/orders", tradeH.PlaceOrder)
	r.Delete("/orders/{order_id}", tradeH.CancelOrder)
	r.Post("/positions/{position_id}/close", tradeH.ClosePosition)

	// Webhook routes.
	r.Post("/webhooks", webhookH.Upsert)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack delegates to the underlying writer so the websocket upgrade on
// /stream works through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT,
// and PATCH requests carrying a body. Body-less POSTs (position close) pass
// through. If the Content-Type header doesn't start with "application/json",
// it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if r.ContentLength != 0 {
				ct := r.Header.Get("Content-Type")
				if ct == "" || !strings.HasPrefix(ct, "application/json") {
					WriteError(w, http.StatusBadRequest, "invalid_request",
						"Content-Type must be application/json")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
