// Package jobstore holds the ordered, in-memory collection of asset jobs for a
// studio session.
package jobstore

import (
	"sync"
	"time"

	"studio/internal/domain"
)

// Store is safe for concurrent use. Every update is applied against the
// current contents under the write lock, so concurrent completions for
// different ids never overwrite each other.
type Store struct {
	mu      sync.RWMutex
	jobs    []domain.AssetJob
	index   map[string]int
	version uint64
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{index: make(map[string]int), now: time.Now}
}

// Append adds records to the end in one step. Readers see all of them or none.
func (s *Store) Append(records ...domain.AssetJob) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.index[rec.ID] = len(s.jobs)
		s.jobs = append(s.jobs, rec)
	}
	s.version++
}

// UpdateByID applies patch to the record with id and reports whether one was
// found. A missing id is not an error: late results after a reset land here.
func (s *Store) UpdateByID(id string, patch domain.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.jobs[i] = s.jobs[i].Apply(patch, s.now())
	s.version++
	return true
}

// UpdateIf applies patch only when cond holds for the current record and
// returns the record as stored afterwards.
func (s *Store) UpdateIf(id string, cond func(domain.AssetJob) bool, patch domain.Patch) (domain.AssetJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok || !cond(s.jobs[i]) {
		return domain.AssetJob{}, false
	}
	s.jobs[i] = s.jobs[i].Apply(patch, s.now())
	s.version++
	return s.jobs[i], true
}

// ReplaceAll discards the current contents.
func (s *Store) ReplaceAll(records []domain.AssetJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make([]domain.AssetJob, 0, len(records))
	s.index = make(map[string]int, len(records))
	for _, rec := range records {
		s.index[rec.ID] = len(s.jobs)
		s.jobs = append(s.jobs, rec)
	}
	s.version++
}

// Get returns a copy of the record with id.
func (s *Store) Get(id string) (domain.AssetJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.AssetJob{}, false
	}
	return s.jobs[i], true
}

// Snapshot returns a copy of every record in store order.
func (s *Store) Snapshot() []domain.AssetJob {
	return s.filter(func(domain.AssetJob) bool { return true })
}

// FilterByKind returns the records of one kind in store order.
func (s *Store) FilterByKind(kind domain.AssetKind) []domain.AssetJob {
	return s.filter(func(j domain.AssetJob) bool { return j.Kind == kind })
}

// CompletedOnly returns the completed records in store order.
func (s *Store) CompletedOnly() []domain.AssetJob {
	return s.filter(func(j domain.AssetJob) bool { return j.Status == domain.StatusCompleted })
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Version increases on every mutation. Pollers compare it to skip unchanged reads.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) filter(keep func(domain.AssetJob) bool) []domain.AssetJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AssetJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		if keep(j) {
			out = append(out, j)
		}
	}
	return out
}
