package domain

import "time"

// QuoteKey identifies a quoted contract: symbol plus contract month.
type QuoteKey struct {
	Symbol string
	Month  string
}

// Quote is the live price for one contract. It is mutated in place once
// per simulation cycle; readers always see the latest write for a key.
// Change and ChangePercent carry session-change semantics: they are
// measured against the instrument's base price, not the previous tick.
type Quote struct {
	Symbol        string
	Month         string
	Price         float64
	Change        float64
	ChangePercent float64
	UpdatedAt     time.Time
}

// Key returns the quote's lookup key.
func (q *Quote) Key() QuoteKey {
	return QuoteKey{Symbol: q.Symbol, Month: q.Month}
}
