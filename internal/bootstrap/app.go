package bootstrap

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	consumerhandlers "novac/cmd/consumers/handlers"
	"novac/internal/access"
	"novac/internal/audit"
	"novac/internal/checkout"
	"novac/internal/config"
	"novac/internal/events"
	"novac/internal/health"
	"novac/internal/metrics"
	"novac/internal/notification"
	"novac/internal/readmodels"
	"novac/internal/reconcile"
	"novac/internal/recovery"
	"novac/internal/transaction"
	"novac/kit/broker"
	"novac/kit/db"
	gateway "novac/kit/external_payment_gateway"
	"novac/kit/observability"
)

const recoveryDelay = 30 * time.Second

// Repository is the full transaction store surface the binaries use.
type Repository = transaction.RepositoryContract

// App holds every wired component. Close releases files and connections in
// reverse order of opening.
type App struct {
	Config   *config.Config
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Bus      *broker.Bus
	Journal  *db.Journal
	Audit    *audit.Service
	DLQ      *recovery.Service
	Notifier *notification.Service

	DB         *db.GormClient
	Repository Repository
	Gateway    gateway.Gateway
	Breaker    *gateway.CircuitBreakerGateway
	Sandbox    *gateway.FakeGateway

	Reconcile *reconcile.Service
	Sweeper   *reconcile.Sweeper
	Checkout  *checkout.Service
	Health    *health.Service
	Snapshot  *metrics.Service
	Tokens    *access.TokenVerifier
	Activity  *readmodels.Projector

	closers []func() error
}

func NewLogger(cfg config.Log) (*observability.Logger, io.Closer, error) {
	if cfg.File == "" {
		return observability.NewLoggerWithConfig(observability.LoggerConfig{Level: cfg.Level, Format: cfg.Format}), nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return observability.NewLoggerWithConfig(observability.LoggerConfig{Level: cfg.Level, Format: cfg.Format, Output: f}), f, nil
}

// New wires the service from cfg. Subscribers are attached to the bus
// before New returns.
func New(cfg *config.Config, logger *observability.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}
	a.Bus = broker.New(logger)
	a.closers = append(a.closers, func() error { a.Bus.Close(); return nil })

	if err := a.openStores(); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openRepository(); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.openGateway()

	a.Notifier = notification.NewService(logger)
	a.Snapshot = metrics.NewService(a.Metrics)
	a.Tokens = access.NewTokenVerifier(cfg.Auth.JWTSecret)

	a.Reconcile = reconcile.NewService(reconcile.Dependencies{
		Gateway:    a.Gateway,
		Repository: a.Repository,
		Bus:        a.Bus,
		Journal:    a.Journal,
		DeadLetter: a.DLQ,
		Metrics:    a.Metrics,
		Logger:     logger,
	}, reconcile.Config{
		SiteURL:                cfg.Site.URL,
		AllowedRedirectHosts:   cfg.Site.AllowedRedirectHosts,
		CallbackCreatesMissing: cfg.Reconcile.CallbackCreatesMissing,
	})
	a.Sweeper = reconcile.NewSweeper(a.Repository, a.Reconcile, logger)
	a.Checkout = checkout.NewService(checkout.Dependencies{
		Gateway:    a.Gateway,
		Repository: a.Repository,
		Bus:        a.Bus,
		Journal:    a.Journal,
		DeadLetter: a.DLQ,
		Metrics:    a.Metrics,
		Logger:     logger,
	}, checkout.Config{PublicBaseURL: cfg.Site.URL})

	checks := map[string]health.CheckFunc{"gateway": health.GatewayCheck(a.Breaker)}
	if a.DB != nil {
		checks["db"] = health.DatabaseCheck(a.DB)
	}
	a.Health = health.NewService(5*time.Second, checks)

	a.Activity = readmodels.NewProjector()
	if err := a.Activity.Replay(context.Background(), a.Journal); err != nil {
		logger.Error("activity replay failed", "layer", "bootstrap", "error", err.Error())
		_ = a.Close()
		return nil, err
	}
	a.subscribe()
	return a, nil
}

func (a *App) openStores() error {
	var err error
	if a.Journal, err = db.OpenJournal(a.Config.Paths.Journal, a.Logger); err != nil {
		return err
	}
	a.closers = append(a.closers, a.Journal.Close)

	if a.Audit, err = audit.NewServiceWithFile(a.Logger, a.Config.Paths.Audit); err != nil {
		return err
	}
	a.closers = append(a.closers, a.Audit.Close)

	if a.DLQ, err = recovery.NewServiceWithFile(a.Logger, a.Config.Paths.DeadLetter); err != nil {
		return err
	}
	a.closers = append(a.closers, a.DLQ.Close)
	return nil
}

func (a *App) openRepository() error {
	var repo Repository
	switch a.Config.DB.Driver {
	case config.DriverMemory:
		repo = transaction.NewInMemoryRepository()
	case config.DriverMySQL, config.DriverPostgres:
		client, err := db.OpenGorm(a.Config.DB.Driver, a.Config.DB.DSN, db.PoolConfig{
			MaxOpenConns:    a.Config.DB.MaxOpenConns,
			MaxIdleConns:    a.Config.DB.MaxIdleConns,
			ConnMaxLifetime: a.Config.DB.ConnMaxLifetime,
		})
		if err != nil {
			a.Logger.Error("db open failed", "layer", "bootstrap", "component", "db", "driver", a.Config.DB.Driver, "error", err.Error())
			return err
		}
		a.DB = client
		a.closers = append(a.closers, client.Close)
		repo = transaction.NewSQLRepository(client, a.Logger)
	default:
		return errors.Join(config.ErrInvalidConfig, errors.New("unsupported db driver "+a.Config.DB.Driver))
	}

	if a.Config.Cache.Enabled {
		repo = transaction.NewCachedRepository(repo, a.Config.Cache.TTL)
	}
	a.Repository = repo
	return nil
}

func (a *App) openGateway() {
	var next gateway.Gateway
	if a.Config.Gateway.Mode == config.GatewayModeSandbox {
		a.Sandbox = gateway.NewFakeGateway(a.Config.Site.URL + "/sandbox")
		next = a.Sandbox
		a.Logger.Warn("gateway sandbox mode", "layer", "bootstrap", "component", "gateway")
	} else {
		next = gateway.NewHTTPGateway(gateway.HTTPConfig{
			BaseURL:   a.Config.Gateway.BaseURL,
			PublicKey: a.Config.Gateway.PublicKey,
			SecretKey: a.Config.Gateway.SecretKey,
			Timeout:   a.Config.Gateway.Timeout,
		}, a.Logger)
	}
	a.Breaker = gateway.NewCircuitBreakerGateway(next, gateway.CircuitBreakerConfig{
		FailureThreshold: a.Config.Gateway.Breaker.FailureThreshold,
		SuccessThreshold: a.Config.Gateway.Breaker.SuccessThreshold,
		OpenTimeout:      a.Config.Gateway.Breaker.OpenTimeout,
	}, a.Logger)
	a.Gateway = a.Breaker
}

func (a *App) subscribe() {
	auditHandler := consumerhandlers.NewAuditEvent(a.Audit)
	metricsHandler := consumerhandlers.NewMetricsEvent(a.Metrics)
	notificationHandler := consumerhandlers.NewNotificationEvent(a.Notifier)
	recoveryHandler := consumerhandlers.NewRecoveryEvent(a.Logger, a.Reconcile, recoveryDelay, nil)

	for _, name := range events.Names() {
		a.Bus.Subscribe(name, auditHandler.HandleAny)
		a.Bus.Subscribe(name, metricsHandler.HandleAny)
		a.Bus.Subscribe(name, a.Activity.Apply)
	}
	a.Bus.Subscribe(events.WebhookReceived{}.Name(), notificationHandler.HandleWebhookReceived)
	// Appended last so Close cancels pending retries before any store closes.
	detacher := consumerhandlers.NewDetacher(a.Logger)
	a.closers = append(a.closers, detacher.Close)
	a.Bus.Subscribe(events.ReconciliationFailed{}.Name(), detacher.Wrap(recoveryHandler.HandleReconciliationFailed))
}

// Migrate creates the transaction schema. It is a no-op for the memory
// driver.
func (a *App) Migrate(ctx context.Context) error {
	if a.DB == nil {
		a.Logger.Info("migrate skipped", "layer", "bootstrap", "component", "db", "driver", a.Config.DB.Driver)
		return nil
	}
	return transaction.Migrate(a.DB)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
