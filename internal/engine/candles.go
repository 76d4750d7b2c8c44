package engine

import (
	"math"
	"math/rand"
	"time"

	"github.com/psmarinho/paperarena/internal/domain"
)

// CandleSeries is the OHLC window for the one symbol+timeframe pair
// currently being watched. Only the newest bar mutates between bar
// boundaries; Roll starts a fresh bar and evicts beyond the window.
type CandleSeries struct {
	instrument *domain.Instrument
	timeframe  domain.Timeframe
	window     int
	bars       []domain.Candle
}

// SynthesizeHistory rebuilds a full bar series ending at seedPrice.
// Chart history is not persisted; every symbol or timeframe switch
// re-synthesizes it with the tick-generation formula, walking backwards
// from the live price so the newest close matches the current quote.
func SynthesizeHistory(inst *domain.Instrument, tf domain.Timeframe, seedPrice float64, window int, scale float64, rng *rand.Rand, now time.Time) []domain.Candle {
	if window <= 0 {
		return nil
	}

	closes := make([]float64, window)
	closes[window-1] = domain.RoundToTick(seedPrice, inst.TickSize)
	for i := window - 2; i >= 0; i-- {
		move := (rng.Float64()*2 - 1) * inst.BasePrice * inst.Volatility * scale
		p := domain.RoundToTick(closes[i+1]-move, inst.TickSize)
		if p < inst.TickSize {
			p = inst.TickSize
		}
		closes[i] = p
	}

	bars := make([]domain.Candle, window)
	for i := range bars {
		open := closes[i]
		if i > 0 {
			open = closes[i-1]
		}
		high := math.Max(open, closes[i])
		low := math.Min(open, closes[i])
		wick := rng.Float64() * inst.BasePrice * inst.Volatility * scale
		high = domain.RoundToTick(high+wick, inst.TickSize)
		low = domain.RoundToTick(low-wick, inst.TickSize)
		if low < inst.TickSize {
			low = inst.TickSize
		}
		bars[i] = domain.Candle{
			Timestamp: now.Add(-time.Duration(window-1-i) * tf.Duration()),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closes[i],
			Symbol:    inst.Symbol,
		}
	}
	return bars
}

// NewCandleSeries synthesizes history and returns a live series.
func NewCandleSeries(inst *domain.Instrument, tf domain.Timeframe, seedPrice float64, window int, scale float64, rng *rand.Rand, now time.Time) *CandleSeries {
	return &CandleSeries{
		instrument: inst,
		timeframe:  tf,
		window:     window,
		bars:       SynthesizeHistory(inst, tf, seedPrice, window, scale, rng, now),
	}
}

// Tick extends the in-progress bar: the close takes a tick-rounded small
// move, high and low stretch to cover it. Earlier bars never change.
func (s *CandleSeries) Tick(move float64) {
	if len(s.bars) == 0 {
		return
	}
	last := &s.bars[len(s.bars)-1]
	c := domain.RoundToTick(last.Close+move, s.instrument.TickSize)
	if c < s.instrument.TickSize {
		c = s.instrument.TickSize
	}
	last.Close = c
	if c > last.High {
		last.High = c
	}
	if c < last.Low {
		last.Low = c
	}
}

// Roll appends a new in-progress bar opening at the previous close and
// evicts the oldest bar beyond the window. The bar cadence is the
// caller's policy; the series only knows how to mutate-or-append.
func (s *CandleSeries) Roll(now time.Time) {
	open := s.instrument.BasePrice
	if len(s.bars) > 0 {
		open = s.bars[len(s.bars)-1].Close
	}
	s.bars = append(s.bars, domain.Candle{
		Timestamp: now,
		Open:      open,
		High:      open,
		Low:       open,
		Close:     open,
		Symbol:    s.instrument.Symbol,
	})
	if len(s.bars) > s.window {
		s.bars = s.bars[len(s.bars)-s.window:]
	}
}

// Bars returns a copy of the series, oldest first.
func (s *CandleSeries) Bars() []domain.Candle {
	result := make([]domain.Candle, len(s.bars))
	copy(result, s.bars)
	return result
}

// Symbol returns the watched symbol.
func (s *CandleSeries) Symbol() string {
	return s.instrument.Symbol
}

// Timeframe returns the watched timeframe.
func (s *CandleSeries) Timeframe() domain.Timeframe {
	return s.timeframe
}
