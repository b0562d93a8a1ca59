package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopdesk/shopdesk-go/internal/apperrors"
	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
	"github.com/shopdesk/shopdesk-go/internal/observability/statsd"
	"github.com/shopdesk/shopdesk-go/internal/ports"
)

// renewer is the slice of the refresh coordinator the session needs.
type renewer interface {
	EnsureRenewed(ctx context.Context) (string, error)
}

// SessionService is the application-wide session state machine. It owns all
// Session transitions:
//
//	Initializing  -> Authenticated    (bootstrap renewal + identity succeed)
//	Initializing  -> Unauthenticated  (bootstrap fails in any way)
//	Authenticated -> Unauthenticated  (logout, or forced sign-out on renewal failure)
//	Unauthenticated -> Authenticated  (explicit user-initiated login only)
//
// Forced sign-outs arrive through the TokenStore subscription: whoever clears
// the store (logout, refresh coordinator) triggers exactly one transition.
type SessionService struct {
	mu      sync.Mutex
	session domainauth.Session
	subs    []func(domainauth.Session)

	tokens    *TokenStore
	refresher renewer
	api       ports.AuthAPI
	nav       ports.Navigator
	logger    *slog.Logger
	metrics   statsd.Sink
}

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Tokens    *TokenStore
	Refresher renewer
	Config    SessionServiceConfig
}

// SessionServiceConfig holds the remaining collaborators and observability deps.
type SessionServiceConfig struct {
	API ports.AuthAPI
	// Nav is invoked on sign-out to move the user to the login surface.
	// Optional: headless hosts may leave it nil.
	Nav     ports.Navigator
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// NewSessionService constructs a SessionService in the Initializing state
// and subscribes it to token store mutations.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	if opts.Tokens == nil {
		panic("TokenStore is required")
	}
	if opts.Refresher == nil {
		panic("RefreshCoordinator is required")
	}
	if opts.Config.API == nil {
		panic("AuthAPI is required")
	}

	s := &SessionService{
		session:   domainauth.Session{Status: domainauth.StatusInitializing},
		tokens:    opts.Tokens,
		refresher: opts.Refresher,
		api:       opts.Config.API,
		nav:       opts.Config.Nav,
		logger:    opts.Config.Logger,
		metrics:   opts.Config.Metrics,
	}

	s.tokens.Subscribe(func(ev TokenEvent) {
		if ev.Kind == TokenCleared {
			s.forceSignOut(context.Background())
		}
	})

	return s
}

// Current returns a snapshot of the session.
func (s *SessionService) Current() domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Subscribe registers fn to be called synchronously after every session
// transition. Route protection hangs off this.
func (s *SessionService) Subscribe(fn func(domainauth.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Bootstrap resolves the initial session state: renew the persisted
// credential, then fetch identity. Every failure resolves to
// Unauthenticated. "No valid session" is the only failure outcome of boot,
// never an error state the user has to retry.
func (s *SessionService) Bootstrap(ctx context.Context) domainauth.Session {
	if err := s.tokens.Load(ctx); err != nil {
		s.logWarn(ctx, "load persisted credentials failed", err)
		s.transition(domainauth.StatusUnauthenticated, nil)
		return s.Current()
	}

	if !s.tokens.HasSession() {
		s.transition(domainauth.StatusUnauthenticated, nil)
		return s.Current()
	}

	if _, err := s.refresher.EnsureRenewed(ctx); err != nil {
		// The coordinator already cleared the store; the subscription has
		// moved us to Unauthenticated. Cover the empty-store fast path too.
		s.logInfo(ctx, "bootstrap renewal failed", "error", err)
		s.transition(domainauth.StatusUnauthenticated, nil)
		return s.Current()
	}

	profile, err := s.api.Me(ctx)
	if err != nil {
		s.logWarn(ctx, "bootstrap identity fetch failed", err)
		s.transition(domainauth.StatusUnauthenticated, nil)
		return s.Current()
	}

	if err := s.tokens.SaveProfile(ctx, &profile); err != nil {
		s.logWarn(ctx, "cache profile failed", err)
	}
	s.transition(domainauth.StatusAuthenticated, &profile)
	return s.Current()
}

// Login performs an explicit, user-initiated sign-in. On failure the session
// stays Unauthenticated, nothing is stored, and the error is returned to the
// caller for inline display; it never becomes global state.
func (s *SessionService) Login(ctx context.Context, username, password string) (domainauth.UserProfile, error) {
	result, err := s.api.Login(ctx, username, password)
	if err != nil {
		return domainauth.UserProfile{}, fmt.Errorf("login: %w", err)
	}

	if err := s.tokens.Save(ctx, result.Access, result.Renewal); err != nil {
		return domainauth.UserProfile{}, apperrors.Wrap(err, apperrors.CodeInternal, "store credentials")
	}
	if result.User != nil {
		if err := s.tokens.SaveProfile(ctx, result.User); err != nil {
			s.logWarn(ctx, "cache profile failed", err)
		}
	}

	profile, err := s.api.Me(ctx)
	if err != nil {
		// Identity is part of the login sequence: roll the stored
		// credentials back so a half-open session cannot survive.
		if clearErr := s.tokens.Clear(ctx); clearErr != nil {
			s.logWarn(ctx, "rollback credentials failed", clearErr)
		}
		return domainauth.UserProfile{}, fmt.Errorf("fetch identity: %w", err)
	}

	if err := s.tokens.SaveProfile(ctx, &profile); err != nil {
		s.logWarn(ctx, "cache profile failed", err)
	}
	s.transition(domainauth.StatusAuthenticated, &profile)
	s.logInfo(ctx, "signed in", "user", profile.Username)
	return profile, nil
}

// Logout signs the user out. The server-side invalidation is best-effort
// (its failure is swallowed), then the store is cleared unconditionally,
// which drives the Unauthenticated transition and login navigation.
func (s *SessionService) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.logInfo(ctx, "server-side logout failed, continuing", "error", err)
	}

	if err := s.tokens.Clear(ctx); err != nil {
		s.logWarn(ctx, "clear credentials failed", err)
	}
}

// forceSignOut handles a TokenCleared event. Idempotent: if the session is
// already Unauthenticated nothing happens, so concurrent failure cascades
// produce exactly one transition and one navigation.
func (s *SessionService) forceSignOut(ctx context.Context) {
	s.mu.Lock()
	if s.session.Status == domainauth.StatusUnauthenticated {
		s.mu.Unlock()
		return
	}
	s.session = domainauth.Session{Status: domainauth.StatusUnauthenticated}
	subs := append([]func(domainauth.Session){}, s.subs...)
	snapshot := s.session
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Count("auth.signout", 1, nil)
	}
	s.logInfo(ctx, "signed out")

	for _, fn := range subs {
		fn(snapshot)
	}
	if s.nav != nil {
		s.nav.ToLogin(ctx)
	}
}

func (s *SessionService) transition(status domainauth.Status, user *domainauth.UserProfile) {
	s.mu.Lock()
	if s.session.Status == status && s.session.User == user {
		s.mu.Unlock()
		return
	}
	s.session = domainauth.Session{Status: status, User: user}
	subs := append([]func(domainauth.Session){}, s.subs...)
	snapshot := s.session
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (s *SessionService) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *SessionService) logWarn(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "error", err)
	}
}
