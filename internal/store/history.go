package store

import "github.com/psmarinho/paperarena/internal/domain"

// HistoryStore is the append-only, insertion-ordered audit log. Entries
// are immutable once appended.
//
// Owned by the simulator goroutine; not safe for concurrent use.
type HistoryStore struct {
	entries []*domain.HistoryEntry
}

// NewHistoryStore creates an empty HistoryStore.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Append adds an entry to the log.
func (s *HistoryStore) Append(e *domain.HistoryEntry) {
	s.entries = append(s.entries, e)
}

// List returns entries in reverse chronological order (newest first).
// Pagination is 1-based. Returns the page and the total entry count.
func (s *HistoryStore) List(page, limit int) ([]*domain.HistoryEntry, int) {
	total := len(s.entries)

	reversed := make([]*domain.HistoryEntry, 0, total)
	for i := total - 1; i >= 0; i-- {
		reversed = append(reversed, s.entries[i])
	}

	start := (page - 1) * limit
	if start >= total {
		return []*domain.HistoryEntry{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return reversed[start:end], total
}

// All returns every entry in chronological order. The returned slice is a
// copy; the entries themselves are shared but immutable.
func (s *HistoryStore) All() []*domain.HistoryEntry {
	result := make([]*domain.HistoryEntry, len(s.entries))
	copy(result, s.entries)
	return result
}

// Len returns the number of log entries.
func (s *HistoryStore) Len() int {
	return len(s.entries)
}
