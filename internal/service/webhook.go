package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/psmarinho/paperarena/internal/domain"
	"github.com/psmarinho/paperarena/internal/store"
)

// Valid webhook event types.
var validWebhookEvents = map[string]bool{
	"order.filled":    true,
	"order.cancelled": true,
	"position.closed": true,
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	URL    string
	Events []string
}

// WebhookService handles webhook CRUD and event dispatch. It implements
// engine.Notifier, so the simulator calls it directly when orders fill,
// orders are cancelled, or positions close.
type WebhookService struct {
	store  *store.WebhookStore
	client *http.Client
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(webhookStore *store.WebhookStore, webhookTimeout time.Duration) *WebhookService {
	return &WebhookService{
		store: webhookStore,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
	}
}

// Upsert validates the request and creates or updates subscriptions, one
// per event. Returns the resulting webhooks, whether any new subscriptions
// were created, and any error.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	// Validate URL.
	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	// Validate events.
	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[string]bool, len(req.Events))
	dedupedEvents := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event + ". Must be one of: order.filled, order.cancelled, position.closed",
			}
		}
		if !seen[event] {
			seen[event] = true
			dedupedEvents = append(dedupedEvents, event)
		}
	}

	// Upsert each event subscription.
	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(dedupedEvents))

	for _, event := range dedupedEvents {
		w := &domain.Webhook{
			WebhookID: uuid.New().String(),
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		}

		created := s.store.Upsert(w)
		if created {
			anyCreated = true
			webhooks = append(webhooks, w)
		} else {
			// Fetch the existing webhook to return it.
			existing := s.store.GetByEvent(event)
			if existing != nil {
				webhooks = append(webhooks, existing)
			}
		}
	}

	return webhooks, anyCreated, nil
}

// List returns all webhook subscriptions.
func (s *WebhookService) List() []*domain.Webhook {
	return s.store.List()
}

// Delete removes a webhook subscription by ID.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

// orderEventPayload is the JSON payload for order.filled and
// order.cancelled webhooks.
type orderEventPayload struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      orderEventData `json:"data"`
}

type orderEventData struct {
	OrderID    string  `json:"order_id"`
	PositionID string  `json:"position_id,omitempty"`
	Symbol     string  `json:"symbol"`
	Month      string  `json:"month"`
	Side       string  `json:"side"`
	LimitPrice float64 `json:"limit_price"`
	Lots       int64   `json:"lots"`
	Status     string  `json:"status"`
}

// positionClosedPayload is the JSON payload for position.closed webhooks.
type positionClosedPayload struct {
	Event     string             `json:"event"`
	Timestamp string             `json:"timestamp"`
	Data      positionClosedData `json:"data"`
}

type positionClosedData struct {
	PositionID string  `json:"position_id"`
	Symbol     string  `json:"symbol"`
	Month      string  `json:"month"`
	Side       string  `json:"side"`
	EntryPrice float64 `json:"entry_price"`
	ClosePrice float64 `json:"close_price"`
	Lots       int64   `json:"lots"`
	RealizedPL float64 `json:"realized_pl"`
}

// OrderFilled dispatches an order.filled webhook notification when a
// resting order triggers. Fire-and-forget.
func (s *WebhookService) OrderFilled(order *domain.PendingOrder, pos *domain.Position) {
	wh := s.store.GetByEvent("order.filled")
	if wh == nil {
		return
	}

	payload := orderEventPayload{
		Event:     "order.filled",
		Timestamp: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: orderEventData{
			OrderID:    order.OrderID,
			PositionID: pos.PositionID,
			Symbol:     order.Symbol,
			Month:      order.Month,
			Side:       string(order.Side),
			LimitPrice: order.LimitPrice,
			Lots:       order.Lots,
			Status:     string(order.Status),
		},
	}

	go s.deliver(wh, "order.filled", payload)
}

// OrderCancelled dispatches an order.cancelled webhook notification.
// Fire-and-forget.
func (s *WebhookService) OrderCancelled(order *domain.PendingOrder) {
	wh := s.store.GetByEvent("order.cancelled")
	if wh == nil {
		return
	}

	payload := orderEventPayload{
		Event:     "order.cancelled",
		Timestamp: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: orderEventData{
			OrderID:    order.OrderID,
			Symbol:     order.Symbol,
			Month:      order.Month,
			Side:       string(order.Side),
			LimitPrice: order.LimitPrice,
			Lots:       order.Lots,
			Status:     string(order.Status),
		},
	}

	go s.deliver(wh, "order.cancelled", payload)
}

// PositionClosed dispatches a position.closed webhook notification.
// Fire-and-forget.
func (s *WebhookService) PositionClosed(pos *domain.Position, closePrice, realizedPL float64) {
	wh := s.store.GetByEvent("position.closed")
	if wh == nil {
		return
	}

	payload := positionClosedPayload{
		Event:     "position.closed",
		Timestamp: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: positionClosedData{
			PositionID: pos.PositionID,
			Symbol:     pos.Symbol,
			Month:      pos.Month,
			Side:       string(pos.Side),
			EntryPrice: pos.EntryPrice,
			ClosePrice: closePrice,
			Lots:       pos.Lots,
			RealizedPL: realizedPL,
		},
	}

	go s.deliver(wh, "position.closed", payload)
}

// deliver sends the webhook payload via HTTP POST with the required
// headers. Errors are silently ignored (fire-and-forget).
func (s *WebhookService) deliver(wh *domain.Webhook, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", eventType)

	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
