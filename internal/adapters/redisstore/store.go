// Package redisstore provides a redis-backed credential store for hosts that
// run the session core server-side (kiosks, shared POS terminals) and want
// the renewal credential to survive process restarts without local files.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
	"github.com/shopdesk/shopdesk-go/internal/ports"
)

var _ ports.CredentialStore = (*Store)(nil)

// Store persists the credential blob under a single fixed key. No TTL is
// applied: the renewal credential's lifetime is owned by the backend, and an
// expired one simply fails the next renewal.
type Store struct {
	client redis.UniversalClient
	key    string
}

// New creates a redis-backed credential store with the default key.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client, key: "shopdesk:credentials"}
}

// NewWithKey creates a redis credential store with a custom key.
func NewWithKey(client redis.UniversalClient, key string) *Store {
	return &Store{client: client, key: key}
}

// Load reads the persisted state. A missing key is not an error; it returns
// the zero state.
func (s *Store) Load(ctx context.Context) (domainauth.PersistedState, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.PersistedState{}, nil
		}
		return domainauth.PersistedState{}, fmt.Errorf("redis get: %w", err)
	}

	var state domainauth.PersistedState
	if unmarshalErr := json.Unmarshal([]byte(data), &state); unmarshalErr != nil {
		return domainauth.PersistedState{}, fmt.Errorf("unmarshal credential state: %w", unmarshalErr)
	}
	return state, nil
}

// Save writes the whole blob, replacing any previous state. A single SET is
// atomic, so the renewal credential and profile can never diverge.
func (s *Store) Save(ctx context.Context, state domainauth.PersistedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal credential state: %w", err)
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

// Clear removes the credential blob. Clearing an absent key is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
