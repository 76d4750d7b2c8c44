package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/psmarinho/paperarena/internal/domain"
)

func newPosition(id string) *domain.Position {
	return &domain.Position{
		PositionID: id,
		Symbol:     "P4TC",
		Month:      "OCT26",
		Side:       domain.OrderSideSell,
		Lots:       10,
		EntryPrice: 15750,
	}
}

func TestPositionStore_AddGetRemove(t *testing.T) {
	s := NewPositionStore()
	p := newPosition("p1")
	s.Add(p)

	got, err := s.Get("p1")
	if err != nil {
		t.Fatalf("Get(p1) error: %v", err)
	}
	if got != p {
		t.Error("Get(p1) returned a different position")
	}

	removed, err := s.Remove("p1")
	if err != nil {
		t.Fatalf("Remove(p1) error: %v", err)
	}
	if removed != p {
		t.Error("Remove(p1) returned a different position")
	}
	if s.Len() != 0 {
		t.Errorf("Len() after removal = %d, want 0", s.Len())
	}
}

func TestPositionStore_NotFound(t *testing.T) {
	s := NewPositionStore()
	if _, err := s.Get("missing"); !errors.Is(err, domain.ErrPositionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrPositionNotFound", err)
	}
	if _, err := s.Remove("missing"); !errors.Is(err, domain.ErrPositionNotFound) {
		t.Errorf("Remove(missing) error = %v, want ErrPositionNotFound", err)
	}
}

func TestPositionStore_ListPreservesOpenOrder(t *testing.T) {
	s := NewPositionStore()
	for i := 0; i < 4; i++ {
		s.Add(newPosition(fmt.Sprintf("p%d", i)))
	}
	s.Remove("p2")

	got := s.List()
	want := []string{"p0", "p1", "p3"}
	if len(got) != len(want) {
		t.Fatalf("List() returned %d positions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].PositionID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i].PositionID, want[i])
		}
	}
}
