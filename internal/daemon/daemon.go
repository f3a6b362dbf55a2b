package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/plugpoint/plugpoint/internal/api"
	"github.com/plugpoint/plugpoint/internal/app/engagement"
	"github.com/plugpoint/plugpoint/internal/app/gamification"
	"github.com/plugpoint/plugpoint/internal/domain"
	"github.com/plugpoint/plugpoint/internal/health"
	"github.com/plugpoint/plugpoint/internal/infra/catalog"
	"github.com/plugpoint/plugpoint/internal/infra/postgres"
	"github.com/plugpoint/plugpoint/internal/infra/sqlite"
	"github.com/plugpoint/plugpoint/internal/jobs"
)

// openTimeout bounds store connection and catalog seeding at startup.
const openTimeout = 15 * time.Second

// Daemon is the core PlugPoint runtime. It wires together all services.
type Daemon struct {
	Config  Config
	Store   domain.Store
	Catalog *catalog.Cache
	Service *gamification.Service
	Health  *health.Checker
	Jobs    *jobs.Scheduler
	Server  *api.Server
	cancel  context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateActionCounters(); err != nil {
		return nil, err
	}
	SetupLogging(cfg.Logging)

	rewards, err := engagement.NewRewardTable(cfg.Rewards.BasePoints)
	if err != nil {
		return nil, fmt.Errorf("rewards: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	store, dataDir, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	cache := catalog.NewCache(store, cfg.Catalog.Staleness())
	if cfg.Catalog.SeedDefaults {
		if _, err := cache.SeedIfEmpty(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}
	if _, err := cache.Refresh(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	svc := gamification.NewService(store, cache, engagement.NewRules(rewards))
	checker := health.NewChecker(store, cache, dataDir)

	srv := api.NewServer(svc, cache)
	srv.SetHealth(checker)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:  cfg,
		Store:   store,
		Catalog: cache,
		Service: svc,
		Health:  checker,
		Jobs:    jobs.NewScheduler(cache, cfg.Catalog.RefreshSchedule),
		Server:  srv,
	}, nil
}

// openStore opens the configured backend. dataDir is empty for remote stores.
func openStore(ctx context.Context, cfg StorageConfig) (domain.Store, string, error) {
	switch cfg.Driver {
	case DriverPostgres:
		store, err := postgres.Open(ctx, postgres.Options{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		return store, "", nil
	default:
		db, err := sqlite.Open(cfg.Dir)
		if err != nil {
			return nil, "", fmt.Errorf("open database: %w", err)
		}
		return db, cfg.Dir, nil
	}
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)

	if err := d.Jobs.Start(ctx); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			log.Info("shutdown signal received")
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		cancel()
		d.Jobs.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
	}()

	log.WithFields(log.Fields{
		"addr":    addr,
		"storage": d.Config.Storage.Driver,
		"metrics": d.Config.Telemetry.Prometheus,
	}).Infof("PlugPoint serving on http://%s", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			log.WithError(err).Warn("close store")
		}
	}
}
