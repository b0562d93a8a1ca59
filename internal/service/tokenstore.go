package service

import (
	"context"
	"fmt"
	"sync"

	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
	"github.com/shopdesk/shopdesk-go/internal/ports"
)

// TokenEventKind identifies the mutation a TokenStore subscriber is told about.
type TokenEventKind string

const (
	// TokenSaved fires after a credential pair is stored.
	TokenSaved TokenEventKind = "saved"
	// TokenCleared fires after the store is emptied.
	TokenCleared TokenEventKind = "cleared"
)

// TokenEvent is delivered synchronously to TokenStore subscribers.
type TokenEvent struct {
	Kind TokenEventKind
}

// TokenStore is the single source of truth for the current credentials. The
// access credential lives only in memory; the renewal credential and cached
// profile are persisted through the injected CredentialStore. All mutation
// goes through this type; no other component writes credentials.
type TokenStore struct {
	mu      sync.Mutex
	access  string
	renewal string
	profile *domainauth.UserProfile
	epoch   uint64

	persist ports.CredentialStore
	subs    []func(TokenEvent)
}

// TokenStoreOptions groups dependencies for TokenStore.
type TokenStoreOptions struct {
	Persist ports.CredentialStore
}

// NewTokenStore constructs a new TokenStore.
func NewTokenStore(opts TokenStoreOptions) *TokenStore {
	if opts.Persist == nil {
		panic("CredentialStore is required")
	}
	return &TokenStore{persist: opts.Persist}
}

// Subscribe registers fn to be called synchronously after every Save and
// Clear. Subscribers must not call back into mutating TokenStore methods.
func (t *TokenStore) Subscribe(fn func(TokenEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, fn)
}

// Load hydrates the in-memory state from the persisted blob. The access
// credential is never persisted, so it stays empty after a restart.
func (t *TokenStore) Load(ctx context.Context) error {
	state, err := t.persist.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credential state: %w", err)
	}

	t.mu.Lock()
	t.renewal = state.Renewal
	t.profile = state.Profile
	t.mu.Unlock()
	return nil
}

// Access returns the current in-memory access credential, or "" if none.
func (t *TokenStore) Access() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.access
}

// Renewal returns the current renewal credential, or "" if none.
func (t *TokenStore) Renewal() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.renewal
}

// Profile returns the cached user profile, or nil if none.
func (t *TokenStore) Profile() *domainauth.UserProfile {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.profile
}

// HasSession reports whether any credential exists. When false, protected
// calls can be rejected locally without touching the network.
func (t *TokenStore) HasSession() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.access != "" || t.renewal != ""
}

// Epoch returns the store's mutation counter. The refresh coordinator
// captures it before a renewal and discards results if it moved.
func (t *TokenStore) Epoch() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Save stores a new access credential and, when renewal is non-empty, the
// rotated renewal credential. Backends that do not rotate return an empty
// renewal and the stored one is kept. Subscribers are notified synchronously.
func (t *TokenStore) Save(ctx context.Context, access, renewal string) error {
	_, err := t.save(ctx, access, renewal, nil)
	return err
}

// SaveIfEpoch is Save guarded by an epoch check: it does nothing and returns
// false when the store was mutated since the epoch was captured. This is how
// a renewal that raced a logout is discarded instead of resurrecting the
// session.
func (t *TokenStore) SaveIfEpoch(ctx context.Context, epoch uint64, access, renewal string) (bool, error) {
	return t.save(ctx, access, renewal, &epoch)
}

func (t *TokenStore) save(ctx context.Context, access, renewal string, ifEpoch *uint64) (bool, error) {
	t.mu.Lock()
	if ifEpoch != nil && t.epoch != *ifEpoch {
		t.mu.Unlock()
		return false, nil
	}

	t.access = access
	if renewal != "" {
		t.renewal = renewal
	}
	t.epoch++
	state := domainauth.PersistedState{Renewal: t.renewal, Profile: t.profile}
	subs := append([]func(TokenEvent){}, t.subs...)
	t.mu.Unlock()

	if err := t.persist.Save(ctx, state); err != nil {
		return false, fmt.Errorf("persist credential state: %w", err)
	}

	for _, fn := range subs {
		fn(TokenEvent{Kind: TokenSaved})
	}
	return true, nil
}

// SaveProfile updates the cached user profile and persists it alongside the
// renewal credential. No subscriber notification: the profile is advisory.
func (t *TokenStore) SaveProfile(ctx context.Context, profile *domainauth.UserProfile) error {
	t.mu.Lock()
	t.profile = profile
	state := domainauth.PersistedState{Renewal: t.renewal, Profile: t.profile}
	t.mu.Unlock()

	if err := t.persist.Save(ctx, state); err != nil {
		return fmt.Errorf("persist credential state: %w", err)
	}
	return nil
}

// Clear erases both credentials and the cached profile, in memory and in the
// persisted blob. Clearing an already-empty store is a no-op and does not
// notify, so a sign-out cascade fires at most once.
func (t *TokenStore) Clear(ctx context.Context) error {
	_, err := t.clear(ctx, nil)
	return err
}

// ClearIfEpoch is Clear guarded by an epoch check, used by the refresh
// coordinator so a failed renewal does not clobber a session established
// after the renewal started.
func (t *TokenStore) ClearIfEpoch(ctx context.Context, epoch uint64) (bool, error) {
	return t.clear(ctx, &epoch)
}

func (t *TokenStore) clear(ctx context.Context, ifEpoch *uint64) (bool, error) {
	t.mu.Lock()
	if ifEpoch != nil && t.epoch != *ifEpoch {
		t.mu.Unlock()
		return false, nil
	}
	if t.access == "" && t.renewal == "" && t.profile == nil {
		t.mu.Unlock()
		return false, nil
	}

	t.access = ""
	t.renewal = ""
	t.profile = nil
	t.epoch++
	subs := append([]func(TokenEvent){}, t.subs...)
	t.mu.Unlock()

	if err := t.persist.Clear(ctx); err != nil {
		return false, fmt.Errorf("clear credential state: %w", err)
	}

	for _, fn := range subs {
		fn(TokenEvent{Kind: TokenCleared})
	}
	return true, nil
}
