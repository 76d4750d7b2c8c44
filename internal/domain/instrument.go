package domain

import (
	"fmt"
	"strconv"
)

// Instrument is the static reference data for one tradable contract.
// Instances are immutable after registry construction.
type Instrument struct {
	Symbol        string
	Name          string
	TickSize      float64 // minimum price increment
	BasePrice     float64 // session reference price; change figures are computed against it
	MarginRatio   float64 // fraction of notional reserved at open
	DecimalPlaces int
	Volatility    float64  // per-cycle fractional move scale
	Months        []string // active contract months
}

// FormatPrice renders a price using the instrument's decimal-places rule.
func (i *Instrument) FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', i.DecimalPlaces, 64)
}

// HasMonth reports whether the given contract month is active for
// this instrument.
func (i *Instrument) HasMonth(month string) bool {
	for _, m := range i.Months {
		if m == month {
			return true
		}
	}
	return false
}

// Registry resolves instrument symbols to their reference data. It is
// built once at startup and read-only afterwards, so no locking is needed.
// Unknown symbols fail fast with ErrSymbolNotFound; there is no default
// fallback.
type Registry struct {
	instruments map[string]*Instrument
	order       []string // registration order, for deterministic listings
}

// NewRegistry validates the catalog and builds a registry. It rejects
// duplicate symbols and instruments with non-positive tick size, base
// price, or margin ratio.
func NewRegistry(instruments []*Instrument) (*Registry, error) {
	r := &Registry{
		instruments: make(map[string]*Instrument, len(instruments)),
		order:       make([]string, 0, len(instruments)),
	}
	for _, inst := range instruments {
		if inst.Symbol == "" {
			return nil, fmt.Errorf("instrument with empty symbol")
		}
		if _, dup := r.instruments[inst.Symbol]; dup {
			return nil, fmt.Errorf("duplicate instrument symbol %q", inst.Symbol)
		}
		if inst.TickSize <= 0 {
			return nil, fmt.Errorf("instrument %s: tick size must be > 0", inst.Symbol)
		}
		if inst.BasePrice <= 0 {
			return nil, fmt.Errorf("instrument %s: base price must be > 0", inst.Symbol)
		}
		if inst.MarginRatio <= 0 || inst.MarginRatio > 1 {
			return nil, fmt.Errorf("instrument %s: margin ratio must be in (0, 1]", inst.Symbol)
		}
		if inst.Volatility < 0 {
			return nil, fmt.Errorf("instrument %s: volatility must be >= 0", inst.Symbol)
		}
		if len(inst.Months) == 0 {
			return nil, fmt.Errorf("instrument %s: at least one contract month is required", inst.Symbol)
		}
		r.instruments[inst.Symbol] = inst
		r.order = append(r.order, inst.Symbol)
	}
	return r, nil
}

// Get resolves a symbol. It returns ErrSymbolNotFound for unknown symbols.
func (r *Registry) Get(symbol string) (*Instrument, error) {
	inst, ok := r.instruments[symbol]
	if !ok {
		return nil, ErrSymbolNotFound
	}
	return inst, nil
}

// All returns instruments in registration order.
func (r *Registry) All() []*Instrument {
	result := make([]*Instrument, 0, len(r.order))
	for _, sym := range r.order {
		result = append(result, r.instruments[sym])
	}
	return result
}

// standardMonths is the shared contract-month strip quoted for every
// instrument in the default catalog.
var standardMonths = []string{"SEP26", "OCT26", "NOV26", "Q4-26", "CAL27"}

// DefaultCatalog returns the freight forward agreement catalog: time-charter
// baskets quoted in $/day (tick 5) and voyage routes quoted in $/tonne
// (tick 0.05). Route volatility is deliberately higher so low-priced
// contracts keep visible percentage movement. This is a display-scaling
// rule, not market realism.
func DefaultCatalog() []*Instrument {
	return []*Instrument{
		{Symbol: "C5TC", Name: "Capesize 5TC Average", TickSize: 5, BasePrice: 24860, MarginRatio: 0.10, DecimalPlaces: 0, Volatility: 0.0020, Months: standardMonths},
		{Symbol: "P4TC", Name: "Panamax 4TC Average", TickSize: 5, BasePrice: 15750, MarginRatio: 0.10, DecimalPlaces: 0, Volatility: 0.0022, Months: standardMonths},
		{Symbol: "S10TC", Name: "Supramax 10TC Average", TickSize: 5, BasePrice: 13205, MarginRatio: 0.10, DecimalPlaces: 0, Volatility: 0.0024, Months: standardMonths},
		{Symbol: "HS7TC", Name: "Handysize 7TC Average", TickSize: 5, BasePrice: 11850, MarginRatio: 0.10, DecimalPlaces: 0, Volatility: 0.0025, Months: standardMonths},
		{Symbol: "C3", Name: "Tubarao-Qingdao Iron Ore", TickSize: 0.05, BasePrice: 22.40, MarginRatio: 0.12, DecimalPlaces: 2, Volatility: 0.0080, Months: standardMonths},
		{Symbol: "C5", Name: "W Australia-Qingdao Iron Ore", TickSize: 0.05, BasePrice: 8.85, MarginRatio: 0.12, DecimalPlaces: 2, Volatility: 0.0110, Months: standardMonths},
	}
}
