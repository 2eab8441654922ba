package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
)

// Store persists provider API keys in the integration_tokens table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// TokenInfo is a stored key and when it was last written.
type TokenInfo struct {
	Token     string
	UpdatedAt time.Time
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	info, err := s.Token(ctx, ProviderGemini)
	return info.Token, err
}

// Token returns the key stored for provider, or a zero TokenInfo when none is.
func (s *Store) Token(ctx context.Context, provider string) (TokenInfo, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var info TokenInfo
	if err := row.Scan(&info.Token, &info.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return TokenInfo{}, nil
		}
		return TokenInfo{}, fmt.Errorf("select %s token: %w", provider, err)
	}
	info.Token = strings.TrimSpace(info.Token)
	return info, nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	return s.upsert(ctx, ProviderGemini, key, map[string]any{"source": "studio"})
}

// Delete removes the key stored for provider.
func (s *Store) Delete(ctx context.Context, provider string) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QDeleteIntegrationToken, provider); err != nil {
		return fmt.Errorf("delete %s token: %w", provider, err)
	}
	return nil
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw); err != nil {
		return fmt.Errorf("upsert %s token: %w", provider, err)
	}
	return nil
}
