package credentials

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"studio/internal/infra"
)

// ErrNoCredential means no provider key is available from any source.
var ErrNoCredential = errors.New("no provider api key configured")

// KeyStore is the persistent side of the selector.
type KeyStore interface {
	GeminiAPIKey(ctx context.Context) (string, error)
	SetGeminiAPIKey(ctx context.Context, key string) error
}

// Selector resolves the provider key for each call and tracks whether the
// operator has been asked to pick a new one. Resolution order: a key selected
// at runtime, then the persisted key, then the environment.
type Selector struct {
	store  KeyStore
	envKey string
	logger infra.Logger
	now    func() time.Time

	mu          sync.RWMutex
	selected    string
	pending     bool
	prompts     int
	requestedAt time.Time
}

// NewSelector builds a selector. store may be nil when no database is configured.
func NewSelector(store KeyStore, envKey string, logger infra.Logger) *Selector {
	return &Selector{store: store, envKey: strings.TrimSpace(envKey), logger: logger, now: time.Now}
}

// APIKey returns the key to use for the next provider call.
func (s *Selector) APIKey(ctx context.Context) (string, error) {
	key, _, err := s.resolve(ctx)
	return key, err
}

func (s *Selector) resolve(ctx context.Context) (string, string, error) {
	s.mu.RLock()
	selected := s.selected
	s.mu.RUnlock()
	if selected != "" {
		return selected, "selected", nil
	}
	if s.store != nil {
		key, err := s.store.GeminiAPIKey(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("credentials: stored key lookup failed")
		} else if key != "" {
			return key, "database", nil
		}
	}
	if s.envKey != "" {
		return s.envKey, "environment", nil
	}
	return "", "", ErrNoCredential
}

// HasCredential reports whether any key is available.
func (s *Selector) HasCredential(ctx context.Context) bool {
	_, err := s.APIKey(ctx)
	return err == nil
}

// PromptForCredential records that a new key should be selected and returns
// immediately. Callers proceed as if the selection succeeded.
func (s *Selector) PromptForCredential(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts++
	if !s.pending {
		s.pending = true
		s.requestedAt = s.now()
		s.logger.Warn().Msg("credentials: provider key selection requested")
	}
	return nil
}

// Select stores a new key and clears any pending request.
func (s *Selector) Select(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is required")
	}
	if s.store != nil {
		if err := s.store.SetGeminiAPIKey(ctx, key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = key
	s.pending = false
	s.requestedAt = time.Time{}
	s.logger.Info().Msg("credentials: provider key selected")
	return nil
}

// Status describes the credential state for operators.
type Status struct {
	Configured         bool       `json:"configured"`
	Source             string     `json:"source,omitempty"`
	SelectionRequested bool       `json:"selection_requested"`
	RequestedAt        *time.Time `json:"requested_at,omitempty"`
	Prompts            int        `json:"prompts"`
}

// Status reports where the current key comes from and whether a new one was requested.
func (s *Selector) Status(ctx context.Context) Status {
	_, source, err := s.resolve(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Configured:         err == nil,
		Source:             source,
		SelectionRequested: s.pending,
		Prompts:            s.prompts,
	}
	if s.pending {
		at := s.requestedAt
		st.RequestedAt = &at
	}
	return st
}
