package service

import (
	"fmt"

	"github.com/psmarinho/paperarena/internal/domain"
	"github.com/psmarinho/paperarena/internal/engine"
)

// PlaceOrderRequest represents the input for order placement.
type PlaceOrderRequest struct {
	Type       domain.OrderType
	Symbol     string
	Month      string
	Side       domain.OrderSide
	Lots       int64
	LimitPrice *float64 // required for limit, must be nil for market
}

// TradeService validates trading requests and forwards them to the
// simulator. All validation happens before any state is touched, so a
// rejected request leaves the account untouched.
type TradeService struct {
	sim      *engine.Simulator
	registry *domain.Registry
	lotStep  int64
}

// NewTradeService creates a new TradeService with the given dependencies.
func NewTradeService(sim *engine.Simulator, registry *domain.Registry, lotStep int64) *TradeService {
	if lotStep < 1 {
		lotStep = 1
	}
	return &TradeService{sim: sim, registry: registry, lotStep: lotStep}
}

// PlaceOrder validates the request and submits it to the simulator. The
// result carries either an immediately opened position or a resting order.
func (s *TradeService) PlaceOrder(req PlaceOrderRequest) (*engine.PlaceOrderResult, error) {
	if req.Type != domain.OrderTypeLimit && req.Type != domain.OrderTypeMarket {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown order type: %s. Must be one of: limit, market", req.Type),
		}
	}
	if req.Side != domain.OrderSideBuy && req.Side != domain.OrderSideSell {
		return nil, &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}

	inst, err := s.registry.Get(req.Symbol)
	if err != nil {
		return nil, err
	}
	if !inst.HasMonth(req.Month) {
		return nil, domain.ErrMonthNotFound
	}

	if req.Lots <= 0 {
		return nil, &domain.ValidationError{
			Message: "lots must be a positive integer",
		}
	}
	if req.Lots%s.lotStep != 0 {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("lots must be a multiple of %d", s.lotStep),
		}
	}

	engineReq := engine.PlaceOrderRequest{
		Symbol: req.Symbol,
		Month:  req.Month,
		Side:   req.Side,
		Lots:   req.Lots,
		Type:   req.Type,
	}

	if req.Type == domain.OrderTypeLimit {
		if req.LimitPrice == nil {
			return nil, &domain.ValidationError{
				Message: "limit_price is required for limit orders",
			}
		}
		if *req.LimitPrice <= 0 {
			return nil, &domain.ValidationError{
				Message: "limit_price must be greater than 0",
			}
		}
		if !domain.IsTickAligned(*req.LimitPrice, inst.TickSize) {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("limit_price must be a multiple of the %s tick size %s", inst.Symbol, inst.FormatPrice(inst.TickSize)),
			}
		}
		engineReq.LimitPrice = *req.LimitPrice
	} else if req.LimitPrice != nil {
		return nil, &domain.ValidationError{
			Message: "market orders must not include limit_price",
		}
	}

	return s.sim.PlaceOrder(engineReq)
}

// CancelOrder cancels a resting order and releases its margin.
func (s *TradeService) CancelOrder(orderID string) (*domain.PendingOrder, error) {
	return s.sim.CancelOrder(orderID)
}

// ClosePosition closes an open position at the live quote.
func (s *TradeService) ClosePosition(positionID string) (*engine.CloseResult, error) {
	return s.sim.ClosePosition(positionID)
}
