package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrSymbolNotFound     = errors.New("symbol_not_found")
	ErrMonthNotFound      = errors.New("contract_month_not_found")
	ErrOrderNotFound      = errors.New("order_not_found")
	ErrPositionNotFound   = errors.New("position_not_found")
	ErrWebhookNotFound    = errors.New("webhook_not_found")
	ErrQuoteUnavailable   = errors.New("quote_unavailable")
	ErrInsufficientMargin = errors.New("insufficient_margin")
)

// ValidationError represents a request validation failure. Validation
// happens at command acceptance, before any state mutation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
