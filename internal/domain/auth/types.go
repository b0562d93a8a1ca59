// Package auth contains domain-level types for the client session lifecycle.
// It is pure and free of transport/adapter concerns.
package auth

// Status represents the lifecycle state of the application session.
// Keep string form for easy logging and persistence.
type Status string

const (
	// StatusInitializing is the boot state before the renewal+identity
	// sequence has resolved.
	StatusInitializing Status = "initializing"
	// StatusAuthenticated means a user is signed in and identity is known.
	StatusAuthenticated Status = "authenticated"
	// StatusUnauthenticated means no valid session exists.
	StatusUnauthenticated Status = "unauthenticated"
)

// UserProfile represents the signed-in principal as reported by the backend.
type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
}

// Session is the application-wide session snapshot.
// Invariant: User != nil iff Status == StatusAuthenticated.
type Session struct {
	Status Status
	User   *UserProfile
}

// IsAuthenticated returns true when the session holds a signed-in user.
func (s Session) IsAuthenticated() bool { return s.Status == StatusAuthenticated }

// Valid reports whether the session satisfies the status/user invariant.
func (s Session) Valid() bool {
	if s.Status == StatusAuthenticated {
		return s.User != nil
	}
	return s.User == nil
}

// Credentials pairs the in-memory access credential with the persisted
// renewal credential. The access credential must never reach durable storage.
type Credentials struct {
	Access  string
	Renewal string
}

// PersistedState is the durable blob a CredentialStore owns: the renewal
// credential plus a minimal cached profile. The access credential is
// deliberately absent.
type PersistedState struct {
	Renewal string       `json:"renewal"`
	Profile *UserProfile `json:"profile,omitempty"`
}

// Empty returns true when there is nothing persisted.
func (p PersistedState) Empty() bool { return p.Renewal == "" && p.Profile == nil }
