// Package ports defines interfaces (hexagonal ports) for the session core.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"

	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
	"github.com/shopdesk/shopdesk-go/internal/domain/billing"
)

// CredentialStore persists the renewal credential and a minimal cached
// profile. The access credential never passes through this interface.
// Save overwrites the whole blob; Clear removes it atomically so no partial
// logout state can survive a crash between the two fields.
type CredentialStore interface {
	Load(ctx context.Context) (domainauth.PersistedState, error)
	Save(ctx context.Context, state domainauth.PersistedState) error
	Clear(ctx context.Context) error
}

// LoginResult is the backend's response to a successful login.
type LoginResult struct {
	Access  string
	Renewal string
	User    *domainauth.UserProfile
}

// RenewResult is the backend's response to a successful renewal. Renewal is
// empty when the backend did not rotate the renewal credential.
type RenewResult struct {
	Access  string
	Renewal string
}

// AuthAPI is the wire-level auth surface. Implementations must not attach
// the Authorization header on Login or Renew.
type AuthAPI interface {
	// Login exchanges credentials for a token pair and the user profile.
	Login(ctx context.Context, username, password string) (LoginResult, error)

	// Renew exchanges the renewal credential for a fresh access credential.
	Renew(ctx context.Context, renewal string) (RenewResult, error)

	// Me fetches the profile of the signed-in user.
	Me(ctx context.Context) (domainauth.UserProfile, error)

	// Logout invalidates the renewal credential server-side.
	Logout(ctx context.Context) error
}

// SubscriptionAPI fetches the account's subscription history.
type SubscriptionAPI interface {
	ListSubscriptions(ctx context.Context) ([]billing.Subscription, error)
}

// Navigator is implemented by the hosting platform to move the user to the
// login surface after a sign-out. Implementations must be safe to call from
// any goroutine.
type Navigator interface {
	ToLogin(ctx context.Context)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(ctx context.Context)

func (f NavigatorFunc) ToLogin(ctx context.Context) { f(ctx) }
