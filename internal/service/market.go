package service

import (
	"github.com/psmarinho/paperarena/internal/domain"
	"github.com/psmarinho/paperarena/internal/engine"
)

// MarketService serves read-side queries: the full snapshot, candle series
// switching, the leaderboard, and the instrument catalog.
type MarketService struct {
	sim      *engine.Simulator
	registry *domain.Registry
}

// NewMarketService creates a new MarketService with the given dependencies.
func NewMarketService(sim *engine.Simulator, registry *domain.Registry) *MarketService {
	return &MarketService{sim: sim, registry: registry}
}

// Snapshot returns a consistent copy of the whole simulation state.
// page/limit paginate the history log.
func (s *MarketService) Snapshot(page, limit int) (*engine.Snapshot, error) {
	if page < 1 {
		return nil, &domain.ValidationError{
			Message: "page must be >= 1",
		}
	}
	if limit < 1 || limit > 100 {
		return nil, &domain.ValidationError{
			Message: "limit must be between 1 and 100",
		}
	}
	return s.sim.Snapshot(page, limit), nil
}

// SwitchCandles changes the watched symbol and timeframe and returns the
// resulting bar window.
func (s *MarketService) SwitchCandles(symbol, timeframe string) ([]domain.Candle, error) {
	tf, err := domain.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	return s.sim.SwitchCandles(symbol, tf)
}

// Leaderboard recomputes the ranking from live account state.
func (s *MarketService) Leaderboard() []engine.LeaderboardEntry {
	return s.sim.Leaderboard()
}

// Instruments returns the catalog in registration order.
func (s *MarketService) Instruments() []*domain.Instrument {
	return s.registry.All()
}
