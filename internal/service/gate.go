package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopdesk/shopdesk-go/internal/apperrors"
	"github.com/shopdesk/shopdesk-go/internal/domain/billing"
	"github.com/shopdesk/shopdesk-go/internal/observability/statsd"
	"github.com/shopdesk/shopdesk-go/internal/ports"
)

// AuthorizationGate blocks mutating actions when the account has no active
// subscription. It is orthogonal to the credential lifecycle: callers consult
// it before dispatching a mutating request, whatever the session state.
//
// The gate is advisory. Server-side enforcement stays authoritative; the
// point here is to abort the action before any network request and give the
// user an immediate denial notice.
//
// Caching: the subscription list is fetched on demand and kept for a short
// TTL, so each gated action re-checks data at most TTL stale. A zero TTL
// fetches on every check. Single-flighted implicitly: checks hold the gate
// mutex across the fetch, so concurrent checks cannot stampede the backend.
type AuthorizationGate struct {
	api ports.SubscriptionAPI
	ttl time.Duration

	mu        sync.Mutex
	cached    []billing.Subscription
	fetchedAt time.Time

	logger  *slog.Logger
	metrics statsd.Sink
}

// AuthorizationGateOptions groups dependencies for AuthorizationGate.
type AuthorizationGateOptions struct {
	API    ports.SubscriptionAPI
	Config AuthorizationGateConfig
}

// AuthorizationGateConfig holds tuning and optional observability deps.
type AuthorizationGateConfig struct {
	// CacheTTL is how long a fetched subscription list stays fresh.
	CacheTTL time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// NewAuthorizationGate constructs a new AuthorizationGate.
func NewAuthorizationGate(opts AuthorizationGateOptions) *AuthorizationGate {
	if opts.API == nil {
		panic("SubscriptionAPI is required")
	}
	return &AuthorizationGate{
		api:     opts.API,
		ttl:     opts.Config.CacheTTL,
		logger:  opts.Config.Logger,
		metrics: opts.Config.Metrics,
	}
}

// Check returns nil when the action is allowed, a subscription-required
// error when denied, and the underlying error when the list could not be
// fetched. An unreachable subscription endpoint does not silently allow.
func (g *AuthorizationGate) Check(ctx context.Context) error {
	subs, err := g.subscriptions(ctx)
	if err != nil {
		return fmt.Errorf("fetch subscriptions: %w", err)
	}

	decision := billing.Decide(subs)
	if !decision.Allowed {
		g.count("gate.denied", denialTags(decision))
		return apperrors.SubscriptionRequired("an active subscription is required for this action")
	}

	g.count("gate.allowed", nil)
	return nil
}

// Allowed is the boolean form of Check for call sites that only branch.
func (g *AuthorizationGate) Allowed(ctx context.Context) bool {
	err := g.Check(ctx)
	if err != nil && !apperrors.IsSubscriptionRequired(err) && g.logger != nil {
		g.logger.WarnContext(ctx, "authorization check failed", "error", err)
	}
	return err == nil
}

// Guard runs action only when the gate allows it. This is the single choke
// point feature modules call instead of re-implementing the check.
func (g *AuthorizationGate) Guard(ctx context.Context, action func(context.Context) error) error {
	if err := g.Check(ctx); err != nil {
		return err
	}
	return action(ctx)
}

// Invalidate drops the cached subscription list. Wired to sign-out so a new
// account's first check never sees the previous account's subscriptions.
func (g *AuthorizationGate) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cached = nil
	g.fetchedAt = time.Time{}
}

func (g *AuthorizationGate) subscriptions(ctx context.Context) ([]billing.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.fetchedAt.IsZero() && time.Since(g.fetchedAt) < g.ttl {
		return g.cached, nil
	}

	subs, err := g.api.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	g.cached = subs
	g.fetchedAt = time.Now()
	return subs, nil
}

func (g *AuthorizationGate) count(name string, tags map[string]string) {
	if g.metrics != nil {
		g.metrics.Count(name, 1, tags)
	}
}

func denialTags(d billing.Decision) map[string]string {
	if d.Current == nil {
		return map[string]string{"reason": "no_subscription"}
	}
	return map[string]string{"reason": "expired", "plan": d.Current.PlanName}
}
