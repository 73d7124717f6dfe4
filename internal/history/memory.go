package history

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is a Recorder that keeps runs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string][]Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]Run)}
}

func (m *MemoryStore) Record(ctx context.Context, run Run) (Run, error) {
	if err := validate(&run); err != nil {
		return Run{}, err
	}
	m.mu.Lock()
	m.runs[run.CertificateID] = append(m.runs[run.CertificateID], run)
	m.mu.Unlock()
	return run, nil
}

func (m *MemoryStore) ListByCertificate(ctx context.Context, certificateID string, limit int) ([]Run, error) {
	m.mu.RLock()
	runs := slices.Clone(m.runs[certificateID])
	m.mu.RUnlock()

	// most recent first; ties keep the reverse insertion order
	slices.Reverse(runs)
	slices.SortStableFunc(runs, func(a, b Run) int {
		return b.CompletedAt.Compare(a.CompletedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
