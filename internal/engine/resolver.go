package engine

import (
	"time"

	"github.com/psmarinho/paperarena/internal/domain"
	"github.com/psmarinho/paperarena/internal/store"
)

// Fill records one triggered limit order and the position it became.
type Fill struct {
	Order    *domain.PendingOrder
	Position *domain.Position
	Fees     Fees
}

// Resolver scans resting limit orders against the live quotes once per
// cycle and fills every order whose trigger condition holds.
type Resolver struct {
	orders *store.PendingOrderStore
	ledger *Ledger
}

// NewResolver creates a Resolver over the resting set and ledger.
func NewResolver(orders *store.PendingOrderStore, ledger *Ledger) *Resolver {
	return &Resolver{orders: orders, ledger: ledger}
}

// Resolve walks resting orders in submission order (FIFO; there is no
// competing counterparty, so no further priority applies) and converts
// each crossed order into a position at its limit price. An order whose
// quote is missing is skipped this cycle; one bad order never blocks the
// rest of the scan.
func (r *Resolver) Resolve(quotes map[domain.QuoteKey]*domain.Quote, now time.Time) []Fill {
	var triggered []*domain.PendingOrder
	r.orders.Ascend(func(o *domain.PendingOrder) bool {
		q, ok := quotes[domain.QuoteKey{Symbol: o.Symbol, Month: o.Month}]
		if !ok {
			return true
		}
		if o.Crossed(q.Price) {
			triggered = append(triggered, o)
		}
		return true
	})

	fills := make([]Fill, 0, len(triggered))
	for _, o := range triggered {
		if _, err := r.orders.Remove(o.OrderID); err != nil {
			continue
		}
		pos, fees := r.ledger.OpenFromPending(o, now)
		o.Status = domain.OrderStatusTriggered
		fills = append(fills, Fill{Order: o, Position: pos, Fees: fees})
	}
	return fills
}
