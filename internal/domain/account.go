package domain

// Account holds the paper-trading cash balance. ReservedMargin tracks
// capital locked by resting orders and open positions; it is released
// unchanged when the reservation ends, never recomputed against the
// current price.
//
// Account is mutated only by the simulator goroutine (single-writer rule),
// so it carries no lock.
type Account struct {
	CashBalance    float64
	ReservedMargin float64
}

// AvailableCash returns the cash not locked by margin reservations.
func (a *Account) AvailableCash() float64 {
	return a.CashBalance - a.ReservedMargin
}
