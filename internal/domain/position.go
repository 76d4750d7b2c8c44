package domain

import "time"

// Position is an open contract position. EntryPrice, MarginReserved, and
// OpenFees are fixed at open time; the mark price is a read-through view
// of the latest quote and is never stored here.
type Position struct {
	PositionID     string
	Symbol         string
	Month          string
	Side           OrderSide
	Lots           int64
	EntryPrice     float64
	MarginReserved float64
	OpenFees       float64
	OpenedAt       time.Time
}
