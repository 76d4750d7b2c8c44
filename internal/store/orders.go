package store

import (
	"github.com/google/btree"

	"github.com/psmarinho/paperarena/internal/domain"
)

// restingEntry keys the resting set by submission sequence so iteration
// is FIFO in submission order.
type restingEntry struct {
	seq   uint64
	order *domain.PendingOrder
}

func restingLess(a, b restingEntry) bool {
	return a.seq < b.seq
}

// PendingOrderStore holds resting limit orders in a B-tree ordered by
// submission sequence, with a secondary index for O(log n) removal by
// order ID. Same-cycle triggers therefore resolve in submission order.
//
// The store is owned by the simulator goroutine and is not safe for
// concurrent use; external reads go through the command queue and
// receive copies.
type PendingOrderStore struct {
	tree    *btree.BTreeG[restingEntry]
	index   map[string]restingEntry // order_id → entry
	nextSeq uint64
}

// NewPendingOrderStore creates an empty PendingOrderStore.
func NewPendingOrderStore() *PendingOrderStore {
	const degree = 32
	return &PendingOrderStore{
		tree:  btree.NewG[restingEntry](degree, restingLess),
		index: make(map[string]restingEntry),
	}
}

// Add inserts an order at the back of the FIFO set.
func (s *PendingOrderStore) Add(o *domain.PendingOrder) {
	s.nextSeq++
	entry := restingEntry{seq: s.nextSeq, order: o}
	s.tree.ReplaceOrInsert(entry)
	s.index[o.OrderID] = entry
}

// Get retrieves a resting order by ID. It returns domain.ErrOrderNotFound
// if the order is not resting.
func (s *PendingOrderStore) Get(id string) (*domain.PendingOrder, error) {
	entry, ok := s.index[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return entry.order, nil
}

// Remove deletes an order by ID and returns it. It returns
// domain.ErrOrderNotFound if the order is not resting.
func (s *PendingOrderStore) Remove(id string) (*domain.PendingOrder, error) {
	entry, ok := s.index[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	delete(s.index, id)
	s.tree.Delete(entry)
	return entry.order, nil
}

// Ascend walks resting orders in submission order. The callback returns
// true to continue, false to stop.
func (s *PendingOrderStore) Ascend(fn func(*domain.PendingOrder) bool) {
	s.tree.Ascend(func(entry restingEntry) bool {
		return fn(entry.order)
	})
}

// List returns all resting orders in submission order.
func (s *PendingOrderStore) List() []*domain.PendingOrder {
	result := make([]*domain.PendingOrder, 0, s.tree.Len())
	s.Ascend(func(o *domain.PendingOrder) bool {
		result = append(result, o)
		return true
	})
	return result
}

// Len returns the number of resting orders.
func (s *PendingOrderStore) Len() int {
	return s.tree.Len()
}
