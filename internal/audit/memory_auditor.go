package audit

import "sync"

var _ Auditor = (*InMemoryAuditor)(nil)

// InMemoryAuditor keeps trial entries in memory, mainly for tests.
type InMemoryAuditor struct {
	mu      sync.Mutex
	entries []TrialEntry
}

func NewInMemoryAuditor() *InMemoryAuditor {
	return &InMemoryAuditor{
		entries: make([]TrialEntry, 0),
	}
}

func (i *InMemoryAuditor) Log(entry TrialEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries = append(i.entries, entry)
	return nil
}

func (i *InMemoryAuditor) Entries() []TrialEntry {
	i.mu.Lock()
	defer i.mu.Unlock()

	cpy := make([]TrialEntry, len(i.entries))
	copy(cpy, i.entries)
	return cpy
}

func (i *InMemoryAuditor) Close() error {
	return nil // nothing to close :)
}
