package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/psmarinho/paperarena/internal/domain"
	"github.com/psmarinho/paperarena/internal/service"
)

// TradeHandler handles HTTP requests for order and position endpoints.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// placeOrderRequest is the JSON request body for POST /orders.
type placeOrderRequest struct {
	Type       string   `json:"type"`
	Symbol     string   `json:"symbol"`
	Month      string   `json:"month"`
	Side       string   `json:"side"`
	Lots       int64    `json:"lots"`
	LimitPrice *float64 `json:"limit_price"`
}

// positionResponse is an open position in JSON form.
type positionResponse struct {
	PositionID     string  `json:"position_id"`
	Symbol         string  `json:"symbol"`
	Month          string  `json:"month"`
	Side           string  `json:"side"`
	Lots           int64   `json:"lots"`
	EntryPrice     float64 `json:"entry_price"`
	MarginReserved float64 `json:"margin_reserved"`
	OpenFees       float64 `json:"open_fees"`
	OpenedAt       string  `json:"opened_at"`
}

// pendingOrderResponse is a resting order in JSON form.
type pendingOrderResponse struct {
	OrderID        string  `json:"order_id"`
	Symbol         string  `json:"symbol"`
	Month          string  `json:"month"`
	Side           string  `json:"side"`
	Lots           int64   `json:"lots"`
	LimitPrice     float64 `json:"limit_price"`
	MarginReserved float64 `json:"margin_reserved"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
}

// placeOrderResponse is the JSON response for POST /orders. Exactly one of
// position and order is set, matching the outcome.
type placeOrderResponse struct {
	Status   string                `json:"status"` // "filled" or "resting"
	Position *positionResponse     `json:"position,omitempty"`
	Order    *pendingOrderResponse `json:"order,omitempty"`
}

// closePositionResponse is the JSON response for POST /positions/{position_id}/close.
type closePositionResponse struct {
	PositionID string  `json:"position_id"`
	Symbol     string  `json:"symbol"`
	Month      string  `json:"month"`
	ClosePrice float64 `json:"close_price"`
	RealizedPL float64 `json:"realized_pl"`
}

// PlaceOrder handles POST /orders.
func (h *TradeHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.tradeSvc.PlaceOrder(service.PlaceOrderRequest{
		Type:       domain.OrderType(req.Type),
		Symbol:     req.Symbol,
		Month:      req.Month,
		Side:       domain.OrderSide(req.Side),
		Lots:       req.Lots,
		LimitPrice: req.LimitPrice,
	})
	if err != nil {
		mapTradeError(w, err)
		return
	}

	resp := placeOrderResponse{}
	if res.Position != nil {
		resp.Status = "filled"
		resp.Position = buildPositionResponse(res.Position)
	} else {
		resp.Status = "resting"
		resp.Order = buildPendingOrderResponse(res.Order)
	}
	WriteJSON(w, http.StatusCreated, resp)
}

// CancelOrder handles DELETE /orders/{order_id}.
func (h *TradeHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	order, err := h.tradeSvc.CancelOrder(orderID)
	if err != nil {
		mapTradeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildPendingOrderResponse(order))
}

// ClosePosition handles POST /positions/{position_id}/close.
func (h *TradeHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "position_id")

	res, err := h.tradeSvc.ClosePosition(positionID)
	if err != nil {
		mapTradeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, closePositionResponse{
		PositionID: res.Position.PositionID,
		Symbol:     res.Position.Symbol,
		Month:      res.Position.Month,
		ClosePrice: res.ClosePrice,
		RealizedPL: res.RealizedPL,
	})
}

func buildPositionResponse(p *domain.Position) *positionResponse {
	return &positionResponse{
		PositionID:     p.PositionID,
		Symbol:         p.Symbol,
		Month:          p.Month,
		Side:           string(p.Side),
		Lots:           p.Lots,
		EntryPrice:     p.EntryPrice,
		MarginReserved: p.MarginReserved,
		OpenFees:       p.OpenFees,
		OpenedAt:       p.OpenedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func buildPendingOrderResponse(o *domain.PendingOrder) *pendingOrderResponse {
	return &pendingOrderResponse{
		OrderID:        o.OrderID,
		Symbol:         o.Symbol,
		Month:          o.Month,
		Side:           string(o.Side),
		Lots:           o.Lots,
		LimitPrice:     o.LimitPrice,
		MarginReserved: o.MarginReserved,
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// mapTradeError maps domain errors to HTTP responses for trade endpoints.
func mapTradeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrSymbolNotFound):
		WriteError(w, http.StatusNotFound, "symbol_not_found", err.Error())
	case errors.Is(err, domain.ErrMonthNotFound):
		WriteError(w, http.StatusNotFound, "month_not_found", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, domain.ErrPositionNotFound):
		WriteError(w, http.StatusNotFound, "position_not_found", err.Error())
	case errors.Is(err, domain.ErrInsufficientMargin):
		WriteError(w, http.StatusConflict, "insufficient_margin", err.Error())
	case errors.Is(err, domain.ErrQuoteUnavailable):
		WriteError(w, http.StatusConflict, "quote_unavailable", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
