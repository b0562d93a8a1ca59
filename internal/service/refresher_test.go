package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk-go/internal/apperrors"
	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
	mockauth "github.com/shopdesk/shopdesk-go/internal/mocks/auth"
	"github.com/shopdesk/shopdesk-go/internal/ports"
)

func TestRefreshCoordinator_SingleFlight(t *testing.T) {
	persist := mockauth.NewMemoryCredentialStore()
	tokens := NewTokenStore(TokenStoreOptions{Persist: persist})
	require.NoError(t, tokens.Save(context.Background(), "stale-access", "renewal-1"))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	api := &mockauth.MockAuthAPI{
		RenewFunc: func(context.Context, string) (ports.RenewResult, error) {
			once.Do(func() { close(entered) })
			<-release
			return ports.RenewResult{Access: "fresh-access", Renewal: "renewal-2"}, nil
		},
	}
	coord := NewRefreshCoordinator(RefreshCoordinatorOptions{API: api, Tokens: tokens})

	const callers = 5
	results := make([]string, callers)
	errs := make([]error, callers)

	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], errs[i] = coord.EnsureRenewed(context.Background())
		}(i)
	}

	started.Wait()
	<-entered
	// Give the remaining callers time to join the in-flight renewal.
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "fresh-access", results[i], "every waiter gets the credential the shared renewal produced")
	}
	assert.Equal(t, 1, api.Renewals(), "concurrent demand collapses to one renewal")
	assert.Equal(t, "fresh-access", tokens.Access())
	assert.Equal(t, "renewal-2", tokens.Renewal())
}

func TestRefreshCoordinator_FailureCascadesExactlyOnce(t *testing.T) {
	persist := mockauth.NewMemoryCredentialStore()
	tokens := NewTokenStore(TokenStoreOptions{Persist: persist})

	cleared := 0
	tokens.Subscribe(func(ev TokenEvent) {
		if ev.Kind == TokenCleared {
			cleared++
		}
	})

	require.NoError(t, tokens.Save(context.Background(), "stale-access", "renewal-1"))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	api := &mockauth.MockAuthAPI{
		RenewFunc: func(context.Context, string) (ports.RenewResult, error) {
			once.Do(func() { close(entered) })
			<-release
			return ports.RenewResult{}, apperrors.RenewalExpired("renewal credential rejected")
		},
	}
	coord := NewRefreshCoordinator(RefreshCoordinatorOptions{API: api, Tokens: tokens})

	const callers = 3
	errs := make([]error, callers)
	var done sync.WaitGroup
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			_, errs[i] = coord.EnsureRenewed(context.Background())
		}(i)
	}

	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	for i := 0; i < callers; i++ {
		require.Error(t, errs[i])
		assert.True(t, apperrors.IsRenewalExpired(errs[i]))
	}
	assert.Equal(t, 1, api.Renewals())
	assert.Equal(t, 1, cleared, "the sign-out cascade fires exactly once")
	assert.Equal(t, 1, persist.ClearCalls)
	assert.False(t, tokens.HasSession())
}

func TestRefreshCoordinator_TimeoutIsRenewalFailure(t *testing.T) {
	persist := mockauth.NewMemoryCredentialStore()
	tokens := NewTokenStore(TokenStoreOptions{Persist: persist})
	require.NoError(t, tokens.Save(context.Background(), "stale-access", "renewal-1"))

	cleared := 0
	tokens.Subscribe(func(ev TokenEvent) {
		if ev.Kind == TokenCleared {
			cleared++
		}
	})

	api := &mockauth.MockAuthAPI{
		RenewFunc: func(ctx context.Context, _ string) (ports.RenewResult, error) {
			// A backend that never answers: the bounded timeout has to cut
			// the call off.
			<-ctx.Done()
			return ports.RenewResult{}, ctx.Err()
		},
	}
	coord := NewRefreshCoordinator(RefreshCoordinatorOptions{
		API:    api,
		Tokens: tokens,
		Config: RefreshCoordinatorConfig{Timeout: 50 * time.Millisecond},
	})

	_, err := coord.EnsureRenewed(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsRenewalExpired(err), "exceeding the renewal bound is renewal failure")
	assert.Equal(t, 1, cleared, "the timed-out renewal signs the session out")
	assert.False(t, tokens.HasSession())
}

func TestRefreshCoordinator_NoCredentialFastFail(t *testing.T) {
	tokens := NewTokenStore(TokenStoreOptions{Persist: mockauth.NewMemoryCredentialStore()})
	api := &mockauth.MockAuthAPI{}
	coord := NewRefreshCoordinator(RefreshCoordinatorOptions{API: api, Tokens: tokens})

	_, err := coord.EnsureRenewed(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsRenewalExpired(err))
	assert.Equal(t, 0, api.Renewals(), "no wire call without a renewal credential")
}

func TestRefreshCoordinator_LogoutDiscardsPendingRenewal(t *testing.T) {
	persist := mockauth.NewMemoryCredentialStore()
	tokens := NewTokenStore(TokenStoreOptions{Persist: persist})
	require.NoError(t, tokens.Save(context.Background(), "stale-access", "renewal-1"))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	api := &mockauth.MockAuthAPI{
		RenewFunc: func(context.Context, string) (ports.RenewResult, error) {
			once.Do(func() { close(entered) })
			<-release
			return ports.RenewResult{Access: "late-access", Renewal: "late-renewal"}, nil
		},
	}
	coord := NewRefreshCoordinator(RefreshCoordinatorOptions{API: api, Tokens: tokens})

	errCh := make(chan error, 1)
	go func() {
		_, err := coord.EnsureRenewed(context.Background())
		errCh <- err
	}()

	<-entered
	// Sign out while the renewal is on the wire.
	require.NoError(t, tokens.Clear(context.Background()))
	close(release)

	err := <-errCh
	require.Error(t, err)
	assert.True(t, apperrors.IsRenewalExpired(err))
	assert.False(t, tokens.HasSession(), "a late renewal success must not resurrect the session")
	assert.Empty(t, tokens.Access())
	assert.False(t, persist.Persisted())
}

func TestRefreshCoordinator_CallerCancelDoesNotAbortRenewal(t *testing.T) {
	persist := mockauth.NewMemoryCredentialStore()
	tokens := NewTokenStore(TokenStoreOptions{Persist: persist})
	require.NoError(t, tokens.Save(context.Background(), "stale-access", "renewal-1"))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	api := &mockauth.MockAuthAPI{
		RenewFunc: func(context.Context, string) (ports.RenewResult, error) {
			once.Do(func() { close(entered) })
			<-release
			return ports.RenewResult{Access: "fresh-access", Renewal: ""}, nil
		},
	}
	coord := NewRefreshCoordinator(RefreshCoordinatorOptions{API: api, Tokens: tokens})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := coord.EnsureRenewed(ctx)
		errCh <- err
	}()

	<-entered
	cancel()

	err := <-errCh
	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err), "the impatient caller gets its own context error")

	// The renewal itself keeps going and still lands in the store.
	close(release)
	assert.Eventually(t, func() bool {
		return tokens.Access() == "fresh-access"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "renewal-1", tokens.Renewal(), "non-rotating backend keeps the stored renewal")
}

// Session wiring: a renewal failure must drive exactly one Unauthenticated
// transition and one login navigation, no matter how many callers hit the
// expired credential at once.
func TestRefreshCoordinator_FailureSignsOutSessionOnce(t *testing.T) {
	persist := mockauth.NewMemoryCredentialStore()
	tokens := NewTokenStore(TokenStoreOptions{Persist: persist})

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	api := &mockauth.MockAuthAPI{
		LoginFunc: func(context.Context, string, string) (ports.LoginResult, error) {
			return ports.LoginResult{Access: "access-1", Renewal: "renewal-1"}, nil
		},
		MeFunc: func(context.Context) (domainauth.UserProfile, error) {
			return domainauth.UserProfile{ID: "u-1", Username: "awa"}, nil
		},
		RenewFunc: func(context.Context, string) (ports.RenewResult, error) {
			once.Do(func() { close(entered) })
			<-release
			return ports.RenewResult{}, apperrors.RenewalExpired("renewal credential rejected")
		},
	}

	coord := NewRefreshCoordinator(RefreshCoordinatorOptions{API: api, Tokens: tokens})
	nav := &mockauth.RecordingNavigator{}
	session := NewSessionService(SessionServiceOptions{
		Tokens:    tokens,
		Refresher: coord,
		Config:    SessionServiceConfig{API: api, Nav: nav},
	})

	_, err := session.Login(context.Background(), "awa", "secret")
	require.NoError(t, err)
	require.Equal(t, domainauth.StatusAuthenticated, session.Current().Status)

	signOuts := 0
	session.Subscribe(func(s domainauth.Session) {
		if s.Status == domainauth.StatusUnauthenticated {
			signOuts++
		}
	})

	const callers = 3
	var done sync.WaitGroup
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			_, _ = coord.EnsureRenewed(context.Background())
		}()
	}

	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, domainauth.StatusUnauthenticated, session.Current().Status)
	assert.Equal(t, 1, signOuts)
	assert.Equal(t, 1, nav.Calls())
	assert.Equal(t, 1, api.Renewals())
}
