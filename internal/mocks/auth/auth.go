// Package auth contains simple hand-written test doubles for the session
// ports. These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"sync"

	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
	"github.com/shopdesk/shopdesk-go/internal/domain/billing"
	"github.com/shopdesk/shopdesk-go/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.CredentialStore = (*MemoryCredentialStore)(nil)
	_ ports.AuthAPI         = (*MockAuthAPI)(nil)
	_ ports.SubscriptionAPI = (*MockSubscriptionAPI)(nil)
	_ ports.Navigator       = (*RecordingNavigator)(nil)
)

// MemoryCredentialStore is an in-memory credential store for tests.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	state domainauth.PersistedState
	set   bool

	// Error overrides, applied to every call when non-nil.
	LoadErr  error
	SaveErr  error
	ClearErr error

	// Call counters.
	SaveCalls  int
	ClearCalls int
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (m *MemoryCredentialStore) Load(context.Context) (domainauth.PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return domainauth.PersistedState{}, m.LoadErr
	}
	return m.state, nil
}

func (m *MemoryCredentialStore) Save(_ context.Context, state domainauth.PersistedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.state = state
	m.set = true
	return nil
}

func (m *MemoryCredentialStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.state = domainauth.PersistedState{}
	m.set = false
	return nil
}

// State returns the currently persisted blob.
func (m *MemoryCredentialStore) State() domainauth.PersistedState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Persisted reports whether a blob is currently stored.
func (m *MemoryCredentialStore) Persisted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set
}

// MockAuthAPI scripts the auth endpoints with func fields. Unset fields
// return zero values.
type MockAuthAPI struct {
	LoginFunc  func(ctx context.Context, username, password string) (ports.LoginResult, error)
	RenewFunc  func(ctx context.Context, renewal string) (ports.RenewResult, error)
	MeFunc     func(ctx context.Context) (domainauth.UserProfile, error)
	LogoutFunc func(ctx context.Context) error

	mu          sync.Mutex
	RenewCalls  int
	LogoutCalls int
}

func (m *MockAuthAPI) Login(ctx context.Context, username, password string) (ports.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return ports.LoginResult{}, nil
}

func (m *MockAuthAPI) Renew(ctx context.Context, renewal string) (ports.RenewResult, error) {
	m.mu.Lock()
	m.RenewCalls++
	m.mu.Unlock()
	if m.RenewFunc != nil {
		return m.RenewFunc(ctx, renewal)
	}
	return ports.RenewResult{}, nil
}

func (m *MockAuthAPI) Me(ctx context.Context) (domainauth.UserProfile, error) {
	if m.MeFunc != nil {
		return m.MeFunc(ctx)
	}
	return domainauth.UserProfile{}, nil
}

func (m *MockAuthAPI) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.LogoutCalls++
	m.mu.Unlock()
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

// Renewals returns how many times Renew was called.
func (m *MockAuthAPI) Renewals() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RenewCalls
}

// MockSubscriptionAPI scripts the subscriptions endpoint.
type MockSubscriptionAPI struct {
	ListFunc func(ctx context.Context) ([]billing.Subscription, error)

	mu        sync.Mutex
	ListCalls int
}

func (m *MockSubscriptionAPI) ListSubscriptions(ctx context.Context) ([]billing.Subscription, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// Fetches returns how many times ListSubscriptions was called.
func (m *MockSubscriptionAPI) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCalls
}

// RecordingNavigator records navigation requests.
type RecordingNavigator struct {
	mu    sync.Mutex
	calls int
}

func (n *RecordingNavigator) ToLogin(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
}

// Calls returns how many times ToLogin was invoked.
func (n *RecordingNavigator) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}
