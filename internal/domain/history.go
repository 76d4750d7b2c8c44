package domain

import "time"

// HistoryType classifies audit-log entries.
type HistoryType string

const (
	HistoryTypeOpen  HistoryType = "open"  // market order filled at the live quote
	HistoryTypeLimit HistoryType = "limit" // limit order placed, resting
	HistoryTypeFill  HistoryType = "fill"  // limit order triggered and filled
	HistoryTypeClose HistoryType = "close" // position closed, P&L realized
)

// HistoryEntry is one immutable row of the account audit log. RealizedPL
// is set only on close entries.
type HistoryEntry struct {
	EntryID    string
	Type       HistoryType
	Symbol     string
	Month      string
	Side       OrderSide
	Price      float64
	Lots       int64
	RealizedPL *float64
	CreatedAt  time.Time
}
