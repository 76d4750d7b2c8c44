package engine

import (
	"math"
	"math/rand"
	"time"

	"github.com/psmarinho/paperarena/internal/domain"
)

// QuoteSource advances the live quote set by one cycle. The simulator
// depends on this interface so tests can drive cycles with a scripted
// price sequence.
type QuoteSource interface {
	Advance(quotes map[domain.QuoteKey]*domain.Quote, now time.Time)
}

// upTickProbability biases the forced anti-staleness tick: when a cycle's
// raw move is smaller than half a tick, the generator moves exactly one
// tick anyway, up with this probability.
const upTickProbability = 0.2

// QuoteGenerator produces a bounded random walk per contract, rounded to
// the instrument's tick size. Change figures carry session semantics:
// always measured against the base price, never the previous tick.
type QuoteGenerator struct {
	registry *domain.Registry
	scale    float64
	rng      *rand.Rand
}

// NewQuoteGenerator creates a generator. scale is the global volatility
// multiplier applied on top of each instrument's own volatility.
func NewQuoteGenerator(registry *domain.Registry, scale float64, rng *rand.Rand) *QuoteGenerator {
	return &QuoteGenerator{registry: registry, scale: scale, rng: rng}
}

// rawMove draws one cycle's unrounded price move for an instrument.
func (g *QuoteGenerator) rawMove(inst *domain.Instrument) float64 {
	return (g.rng.Float64()*2 - 1) * inst.BasePrice * inst.Volatility * g.scale
}

// Advance mutates every quote in place. A zero-volatility instrument
// stays flat; everything else moves at least one tick per cycle.
func (g *QuoteGenerator) Advance(quotes map[domain.QuoteKey]*domain.Quote, now time.Time) {
	for _, q := range quotes {
		inst, err := g.registry.Get(q.Symbol)
		if err != nil {
			continue
		}
		if inst.Volatility == 0 || g.scale == 0 {
			q.UpdatedAt = now
			continue
		}

		move := g.rawMove(inst)
		if math.Abs(move) < inst.TickSize/2 {
			// Too small to register at this tick size. Force one tick so
			// wide-notional contracts still visibly move.
			if g.rng.Float64() < upTickProbability {
				move = inst.TickSize
			} else {
				move = -inst.TickSize
			}
		}

		price := domain.RoundToTick(q.Price+move, inst.TickSize)
		if price == q.Price {
			// A half-tick tie rounded back to the old price; nudge one
			// tick in the move's direction.
			if move > 0 {
				price = q.Price + inst.TickSize
			} else {
				price = q.Price - inst.TickSize
			}
		}
		if price < inst.TickSize {
			price = inst.TickSize
		}

		q.Price = price
		q.Change = price - inst.BasePrice
		q.ChangePercent = q.Change / inst.BasePrice * 100
		q.UpdatedAt = now
	}
}

// InitialQuotes builds the starting quote set: one quote per
// instrument+month at the instrument's base price.
func InitialQuotes(registry *domain.Registry, now time.Time) map[domain.QuoteKey]*domain.Quote {
	quotes := make(map[domain.QuoteKey]*domain.Quote)
	for _, inst := range registry.All() {
		for _, month := range inst.Months {
			q := &domain.Quote{
				Symbol:    inst.Symbol,
				Month:     month,
				Price:     inst.BasePrice,
				UpdatedAt: now,
			}
			quotes[q.Key()] = q
		}
	}
	return quotes
}
