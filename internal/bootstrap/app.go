package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/shopdesk/shopdesk-go/config"
	"github.com/shopdesk/shopdesk-go/internal/adapters/api"
	"github.com/shopdesk/shopdesk-go/internal/adapters/filestore"
	"github.com/shopdesk/shopdesk-go/internal/adapters/redisstore"
	"github.com/shopdesk/shopdesk-go/internal/observability/statsd"
	"github.com/shopdesk/shopdesk-go/internal/ports"
	"github.com/shopdesk/shopdesk-go/internal/service"
)

// App holds the wired session core. Hosts embed it and hang their feature
// modules off Client and Gate.
type App struct {
	Config  config.AppConfig
	Logger  *slog.Logger
	Client  *api.Client
	Tokens  *service.TokenStore
	Session *service.SessionService
	Gate    *service.AuthorizationGate

	metrics     *statsd.Client
	redisClient redis.UniversalClient
}

// AppDeps groups host-provided dependencies for BuildApp.
type AppDeps struct {
	Config config.AppConfig
	Logger *slog.Logger
	// Nav is invoked on sign-out. Optional: headless hosts leave it nil.
	Nav ports.Navigator
}

// authorizer is the production Authorizer wiring: the token store supplies
// the credential accessors and the coordinator supplies the renewal.
type authorizer struct {
	*service.TokenStore
	coordinator *service.RefreshCoordinator
}

func (a authorizer) EnsureRenewed(ctx context.Context) (string, error) {
	return a.coordinator.EnsureRenewed(ctx)
}

// BuildApp wires the session core: credential store, backend client, token
// store, refresh coordinator, session service, and authorization gate.
func BuildApp(deps AppDeps) (*App, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{Config: cfg, Logger: logger}

	store, err := app.buildCredentialStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	if cfg.Observability.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Observability.Metrics.StatsdAddress,
			Prefix:  "shopdesk",
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			app.metrics = client
		}
	}

	app.Client = api.NewClient(api.ClientOptions{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Config: api.ClientConfig{
			Logger:  logger,
			Metrics: app.metrics,
		},
	})

	app.Tokens = service.NewTokenStore(service.TokenStoreOptions{Persist: store})

	coordinator := service.NewRefreshCoordinator(service.RefreshCoordinatorOptions{
		API:    app.Client,
		Tokens: app.Tokens,
		Config: service.RefreshCoordinatorConfig{
			Timeout: cfg.API.RenewalTimeout,
			Logger:  logger,
			Metrics: app.metrics,
		},
	})
	app.Client.UseAuthorizer(authorizer{TokenStore: app.Tokens, coordinator: coordinator})

	app.Session = service.NewSessionService(service.SessionServiceOptions{
		Tokens:    app.Tokens,
		Refresher: coordinator,
		Config: service.SessionServiceConfig{
			API:     app.Client,
			Nav:     deps.Nav,
			Logger:  logger,
			Metrics: app.metrics,
		},
	})

	app.Gate = service.NewAuthorizationGate(service.AuthorizationGateOptions{
		API: app.Client,
		Config: service.AuthorizationGateConfig{
			CacheTTL: cfg.Gate.CacheTTL,
			Logger:   logger,
			Metrics:  app.metrics,
		},
	})

	// A sign-out must not leave the previous account's subscriptions cached.
	app.Tokens.Subscribe(func(ev service.TokenEvent) {
		if ev.Kind == service.TokenCleared {
			app.Gate.Invalidate()
		}
	})

	return app, nil
}

func (a *App) buildCredentialStore(cfg config.StoreConfig) (ports.CredentialStore, error) {
	switch cfg.Backend {
	case config.StoreBackendFile:
		return filestore.New(cfg.Path), nil
	case config.StoreBackendRedis:
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisstore.NewWithKey(a.redisClient, cfg.Key), nil
	default:
		return nil, fmt.Errorf("unknown credential store backend: %q", cfg.Backend)
	}
}

// Close releases the infrastructure the app holds open.
func (a *App) Close() error {
	var firstErr error
	if a.metrics != nil {
		if err := a.metrics.Close(); err != nil {
			firstErr = fmt.Errorf("close statsd client: %w", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close redis client: %w", err)
		}
	}
	return firstErr
}
