// Package billing contains domain-level types for subscription records and
// the authorization decision derived from them.
package billing

import "time"

// SubscriptionStatus is the backend-reported status of a subscription record.
type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
	SubscriptionNone    SubscriptionStatus = "none"
)

// Subscription is one subscription record for the account. Accounts keep
// their full history, so multiple records may exist at once.
type Subscription struct {
	ID        int64              `json:"id"`
	PlanName  string             `json:"plan_name"`
	Status    SubscriptionStatus `json:"status"`
	IsExpired bool               `json:"is_expired"`
	EndDate   time.Time          `json:"end_date"`
}

// Current selects the current subscription from the account history.
// The backend contract defines "current" as the record with the greatest
// numeric ID (insertion-order proxy). This convention is load-bearing: do
// not replace it with an EndDate comparison without a backend change.
// Returns nil when the list is empty.
func Current(subs []Subscription) *Subscription {
	var current *Subscription
	for i := range subs {
		if current == nil || subs[i].ID > current.ID {
			current = &subs[i]
		}
	}
	return current
}

// Decision is the derived authorization verdict for mutating actions.
type Decision struct {
	Allowed bool
	// Current is the record the verdict was computed from, nil when the
	// account has no subscription history.
	Current *Subscription
}

// Decide computes the authorization decision from the account's subscription
// history: allowed iff a current record exists, its status is active, and it
// is not flagged expired. An empty history always denies.
func Decide(subs []Subscription) Decision {
	current := Current(subs)
	if current == nil {
		return Decision{Allowed: false}
	}
	allowed := current.Status == SubscriptionActive && !current.IsExpired
	return Decision{Allowed: allowed, Current: current}
}
