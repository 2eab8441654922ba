package studio

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
)

// Registry keeps the live sessions of the process.
type Registry struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns a registry whose sessions share opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts.withDefaults(), sessions: make(map[string]*Session)}
}

// Create starts a new session with a random id.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.opts)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get looks up a session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Evict drops sessions untouched for longer than maxIdle that have no
// generation pass running, and returns how many were removed.
func (r *Registry) Evict(maxIdle time.Duration) int {
	cutoff := r.opts.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.IdleSince().After(cutoff) || s.State().Generating {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	return removed
}

// Shutdown waits for background work in every session or until ctx is done.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()
	for _, s := range sessions {
		if err := s.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
