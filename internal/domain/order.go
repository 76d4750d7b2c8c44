package domain

import "time"

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderSide indicates whether an order buys or sells the contract.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Sign returns +1 for buy and -1 for sell, the direction factor used in
// P&L arithmetic.
func (s OrderSide) Sign() float64 {
	if s == OrderSideSell {
		return -1
	}
	return 1
}

// OrderStatus is the lifecycle state of a pending limit order.
type OrderStatus string

const (
	OrderStatusResting   OrderStatus = "resting"
	OrderStatusTriggered OrderStatus = "triggered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PendingOrder is a limit order resting until its trigger condition is
// met. It is created when immediate execution is not possible and is never
// mutated except for the terminal status transition. MarginReserved is
// locked against the account at submission and either moves to the
// resulting position on trigger or is released on cancellation.
type PendingOrder struct {
	OrderID        string
	Symbol         string
	Month          string
	Side           OrderSide
	Lots           int64
	LimitPrice     float64
	MarginReserved float64
	Status         OrderStatus
	CreatedAt      time.Time
}

// Crossed reports whether the current price satisfies the order's trigger
// condition: buys trigger at or below the limit, sells at or above.
func (o *PendingOrder) Crossed(price float64) bool {
	if o.Side == OrderSideBuy {
		return price <= o.LimitPrice
	}
	return price >= o.LimitPrice
}
