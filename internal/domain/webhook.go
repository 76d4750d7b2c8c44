package domain

import "time"

// Webhook is a subscription to an engine event notification. The arena
// runs a single account, so subscriptions are keyed by event alone.
type Webhook struct {
	WebhookID string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
