package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/psmarinho/paperarena/internal/service"
)

// StreamHandler serves GET /stream: a websocket that pushes the full
// snapshot at a fixed interval until the client disconnects.
type StreamHandler struct {
	marketSvc *service.MarketService
	interval  time.Duration
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler pushing every interval.
func NewStreamHandler(marketSvc *service.MarketService, interval time.Duration, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		marketSvc: marketSvc,
		interval:  interval,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Stream handles GET /stream.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	closed := make(chan struct{})
	go h.readLoop(conn, closed)
	go h.writeLoop(conn, closed)
}

// readLoop drains client frames so close and ping control messages are
// processed, and signals the writer when the connection dies.
func (h *StreamHandler) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) writeLoop(conn *websocket.Conn, closed <-chan struct{}) {
	defer conn.Close()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	// First frame immediately, then one per tick.
	if !h.push(conn) {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if !h.push(conn) {
				return
			}
		}
	}
}

func (h *StreamHandler) push(conn *websocket.Conn) bool {
	snap, err := h.marketSvc.Snapshot(1, 50)
	if err != nil {
		return false
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(buildSnapshotResponse(snap)); err != nil {
		return false
	}
	return true
}
