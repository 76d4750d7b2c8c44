package store

import "github.com/psmarinho/paperarena/internal/domain"

// PositionStore holds open positions keyed by ID, preserving open order
// for deterministic listings.
//
// Owned by the simulator goroutine; not safe for concurrent use.
type PositionStore struct {
	positions map[string]*domain.Position
	order     []string // position IDs in open order
}

// NewPositionStore creates an empty PositionStore.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		positions: make(map[string]*domain.Position),
	}
}

// Add inserts a position.
func (s *PositionStore) Add(p *domain.Position) {
	s.positions[p.PositionID] = p
	s.order = append(s.order, p.PositionID)
}

// Get retrieves a position by ID. It returns domain.ErrPositionNotFound
// if the position does not exist.
func (s *PositionStore) Get(id string) (*domain.Position, error) {
	p, ok := s.positions[id]
	if !ok {
		return nil, domain.ErrPositionNotFound
	}
	return p, nil
}

// Remove deletes a position by ID and returns it. It returns
// domain.ErrPositionNotFound if the position does not exist.
func (s *PositionStore) Remove(id string) (*domain.Position, error) {
	p, ok := s.positions[id]
	if !ok {
		return nil, domain.ErrPositionNotFound
	}
	delete(s.positions, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return p, nil
}

// List returns positions in open order.
func (s *PositionStore) List() []*domain.Position {
	result := make([]*domain.Position, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.positions[id])
	}
	return result
}

// Len returns the number of open positions.
func (s *PositionStore) Len() int {
	return len(s.positions)
}
