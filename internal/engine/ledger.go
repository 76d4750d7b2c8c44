package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/psmarinho/paperarena/internal/domain"
)

// Fees is the breakdown of charges for one fill or close.
type Fees struct {
	Clearing   float64
	Commission float64
	Total      float64
}

// Ledger owns the fee, margin, and P&L arithmetic against a single
// account. Cash moves exactly once per fee event: open fees are debited at
// open and appear in reported net P&L but are never re-debited at close.
//
// The ledger mutates account state and must only be called from the
// simulator goroutine.
type Ledger struct {
	account           *domain.Account
	clearingFeePerLot float64
	commissionRate    float64
}

// NewLedger creates a Ledger over the given account.
func NewLedger(account *domain.Account, clearingFeePerLot, commissionRate float64) *Ledger {
	return &Ledger{
		account:           account,
		clearingFeePerLot: clearingFeePerLot,
		commissionRate:    commissionRate,
	}
}

// CalculateFees computes the charges for trading lots at price:
// a flat per-lot clearing fee plus a notional-proportional commission.
// The same formula applies on open and close.
func (l *Ledger) CalculateFees(price float64, lots int64) Fees {
	clearing := float64(lots) * l.clearingFeePerLot
	commission := price * float64(lots) * l.commissionRate
	return Fees{
		Clearing:   clearing,
		Commission: commission,
		Total:      clearing + commission,
	}
}

// MarginRequired returns the capital reserved against a fill at price.
func (l *Ledger) MarginRequired(inst *domain.Instrument, price float64, lots int64) float64 {
	return price * float64(lots) * inst.MarginRatio
}

// OpenPosition performs an immediate fill: margin is reserved, open fees
// are debited from cash, and a new position is created. It returns
// domain.ErrInsufficientMargin without mutating anything when the account
// cannot cover margin plus fees.
func (l *Ledger) OpenPosition(inst *domain.Instrument, month string, side domain.OrderSide, lots int64, price float64, now time.Time) (*domain.Position, Fees, error) {
	fees := l.CalculateFees(price, lots)
	margin := l.MarginRequired(inst, price, lots)
	if margin+fees.Total > l.account.AvailableCash() {
		return nil, Fees{}, domain.ErrInsufficientMargin
	}

	l.account.CashBalance -= fees.Total
	l.account.ReservedMargin += margin

	pos := &domain.Position{
		PositionID:     uuid.New().String(),
		Symbol:         inst.Symbol,
		Month:          month,
		Side:           side,
		Lots:           lots,
		EntryPrice:     price,
		MarginReserved: margin,
		OpenFees:       fees.Total,
		OpenedAt:       now,
	}
	return pos, fees, nil
}

// ReserveResting locks margin for a limit order that will rest. Fees are
// charged only at trigger time, but headroom for them is required up
// front so a triggered fill cannot be rejected later.
func (l *Ledger) ReserveResting(inst *domain.Instrument, limitPrice float64, lots int64) (float64, error) {
	fees := l.CalculateFees(limitPrice, lots)
	margin := l.MarginRequired(inst, limitPrice, lots)
	if margin+fees.Total > l.account.AvailableCash() {
		return 0, domain.ErrInsufficientMargin
	}
	l.account.ReservedMargin += margin
	return margin, nil
}

// ReleaseReservation returns previously reserved margin to the account.
func (l *Ledger) ReleaseReservation(amount float64) {
	l.account.ReservedMargin -= amount
}

// OpenFromPending converts a triggered limit order into a position. The
// contract fills exactly at the limit price, not the crossing market
// price; there is no slippage. Margin was already reserved at
// submission and carries over; only the open fees move cash now.
func (l *Ledger) OpenFromPending(o *domain.PendingOrder, now time.Time) (*domain.Position, Fees) {
	fees := l.CalculateFees(o.LimitPrice, o.Lots)
	l.account.CashBalance -= fees.Total

	pos := &domain.Position{
		PositionID:     uuid.New().String(),
		Symbol:         o.Symbol,
		Month:          o.Month,
		Side:           o.Side,
		Lots:           o.Lots,
		EntryPrice:     o.LimitPrice,
		MarginReserved: o.MarginReserved,
		OpenFees:       fees.Total,
		OpenedAt:       now,
	}
	return pos, fees
}

// ClosePosition realizes P&L at closePrice. Cash moves by gross P&L minus
// close fees; the margin reservation is released unchanged. The returned
// realized figure additionally nets out the open fees already debited at
// open, so it is the number reported to the caller, not the cash delta.
func (l *Ledger) ClosePosition(pos *domain.Position, closePrice float64) (float64, Fees) {
	gross := (closePrice - pos.EntryPrice) * float64(pos.Lots) * pos.Side.Sign()
	fees := l.CalculateFees(closePrice, pos.Lots)

	l.account.CashBalance += gross - fees.Total
	l.account.ReservedMargin -= pos.MarginReserved

	realized := gross - pos.OpenFees - fees.Total
	return realized, fees
}

// UnrealizedPL is the mark-to-market view of an open position: gross P&L
// at the mark, and net after open fees and the close fees a close at the
// mark would incur.
func (l *Ledger) UnrealizedPL(pos *domain.Position, markPrice float64) (gross, net float64) {
	gross = (markPrice - pos.EntryPrice) * float64(pos.Lots) * pos.Side.Sign()
	net = gross - pos.OpenFees - l.CalculateFees(markPrice, pos.Lots).Total
	return gross, net
}
