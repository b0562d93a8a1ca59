package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shopdesk/shopdesk-go/internal/apperrors"
	"github.com/shopdesk/shopdesk-go/internal/observability/statsd"
	"github.com/shopdesk/shopdesk-go/internal/ports"
)

const renewalFlightKey = "renewal"

// RefreshCoordinator guarantees that at most one credential renewal is in
// flight at any time. Concurrent callers that observe an expired access
// credential join the pending renewal and all receive the credential that
// renewal produced, never one from an earlier or later renewal. This
// matters when the backend rotates the renewal credential on each use: a
// second concurrent renewal would consume an already-rotated credential and
// sign the user out even though the first renewal succeeded.
type RefreshCoordinator struct {
	api     ports.AuthAPI
	tokens  *TokenStore
	timeout time.Duration

	group   singleflight.Group
	logger  *slog.Logger
	metrics statsd.Sink
}

// RefreshCoordinatorOptions groups dependencies for RefreshCoordinator.
type RefreshCoordinatorOptions struct {
	API    ports.AuthAPI
	Tokens *TokenStore
	Config RefreshCoordinatorConfig
}

// RefreshCoordinatorConfig holds tuning and optional observability deps.
type RefreshCoordinatorConfig struct {
	// Timeout bounds the renewal wire call. Exceeding it is renewal failure.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// NewRefreshCoordinator constructs a new RefreshCoordinator.
func NewRefreshCoordinator(opts RefreshCoordinatorOptions) *RefreshCoordinator {
	if opts.API == nil {
		panic("AuthAPI is required")
	}
	if opts.Tokens == nil {
		panic("TokenStore is required")
	}

	timeout := opts.Config.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}

	return &RefreshCoordinator{
		api:     opts.API,
		tokens:  opts.Tokens,
		timeout: timeout,
		logger:  opts.Config.Logger,
		metrics: opts.Config.Metrics,
	}
}

// EnsureRenewed returns a fresh access credential, starting a renewal if
// none is in flight or joining the pending one otherwise. On renewal failure
// the token store is cleared (which cascades a sign-out through its
// subscribers) and all waiters receive a terminal renewal-expired error.
//
// The caller's context only bounds its own wait: the renewal itself runs on
// a detached context so one impatient caller cannot cancel a renewal that
// other callers are waiting on.
func (c *RefreshCoordinator) EnsureRenewed(ctx context.Context) (string, error) {
	ch := c.group.DoChan(renewalFlightKey, func() (any, error) {
		return c.renewOnce()
	})

	select {
	case <-ctx.Done():
		return "", apperrors.Wrap(ctx.Err(), apperrors.CodeNetwork, "wait for credential renewal")
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// renewOnce performs exactly one renewal attempt against the backend. The
// store epoch is captured first: if it moves while the call is on the wire
// (logout raced the renewal), the result is discarded either way: a late
// success must not resurrect a signed-out session, and a late failure must
// not clobber a session established afterwards.
func (c *RefreshCoordinator) renewOnce() (any, error) {
	epoch := c.tokens.Epoch()
	renewal := c.tokens.Renewal()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if renewal == "" {
		// Nothing to renew. Clear cascades at most once; on an already
		// empty store it is a no-op.
		if _, err := c.tokens.ClearIfEpoch(ctx, epoch); err != nil {
			c.logWarn(ctx, "clear after missing renewal credential failed", err)
		}
		c.count("auth.renewal.failure", map[string]string{"reason": "no_credential"})
		return nil, apperrors.RenewalExpired("no renewal credential")
	}

	started := time.Now()
	result, renewErr := c.api.Renew(ctx, renewal)
	c.timing("auth.renewal.duration", time.Since(started))

	if c.tokens.Epoch() != epoch {
		c.logInfo(ctx, "renewal result discarded: credentials changed mid-flight")
		return nil, apperrors.RenewalExpired("session ended during renewal")
	}

	if renewErr != nil {
		// The sign-out must still land when the renewal itself timed out,
		// so the clear does not inherit the expired deadline.
		cleanupCtx := context.WithoutCancel(ctx)
		if _, err := c.tokens.ClearIfEpoch(cleanupCtx, epoch); err != nil {
			c.logWarn(cleanupCtx, "clear after failed renewal failed", err)
		}
		c.count("auth.renewal.failure", map[string]string{"reason": "rejected"})
		return nil, apperrors.Wrap(renewErr, apperrors.CodeRenewalExpired, "renew credential")
	}

	saved, err := c.tokens.SaveIfEpoch(ctx, epoch, result.Access, result.Renewal)
	if err != nil {
		c.count("auth.renewal.failure", map[string]string{"reason": "persist"})
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "store renewed credential")
	}
	if !saved {
		c.logInfo(ctx, "renewal result discarded: credentials changed mid-flight")
		return nil, apperrors.RenewalExpired("session ended during renewal")
	}

	c.count("auth.renewal.success", nil)
	return result.Access, nil
}

func (c *RefreshCoordinator) count(name string, tags map[string]string) {
	if c.metrics != nil {
		c.metrics.Count(name, 1, tags)
	}
}

func (c *RefreshCoordinator) timing(name string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.Timing(name, d, nil)
	}
}

func (c *RefreshCoordinator) logInfo(ctx context.Context, msg string) {
	if c.logger != nil {
		c.logger.InfoContext(ctx, msg)
	}
}

func (c *RefreshCoordinator) logWarn(ctx context.Context, msg string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, "error", err)
	}
}
