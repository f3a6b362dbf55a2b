// Package health provides periodic health checks with auto-recovery.
// Checks cover the store connection, catalog freshness and the data directory.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/plugpoint/plugpoint/internal/domain"
	"github.com/plugpoint/plugpoint/internal/infra/metrics"
)

// DefaultInterval is how often checks run.
const DefaultInterval = 30 * time.Second

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is a store connection that answers a liveness ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CatalogCache is the part of the catalog cache the checker watches.
type CatalogCache interface {
	Age() (time.Duration, bool)
	MaxStaleness() time.Duration
	Refresh(ctx context.Context) (domain.Catalog, error)
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a checker for the store and catalog cache.
// dataDir is the SQLite directory; pass "" for remote stores.
func NewChecker(store Pinger, catalog CatalogCache, dataDir string) *Checker {
	checks := []Check{
		{
			Name:    "store",
			CheckFn: store.Ping,
		},
		{
			Name: "catalog",
			CheckFn: func(ctx context.Context) error {
				return checkCatalogFresh(catalog)
			},
			RecoverFn: func(ctx context.Context) error {
				_, err := catalog.Refresh(ctx)
				return err
			},
		},
	}
	if dataDir != "" {
		checks = append(checks, Check{
			Name: "data_dir",
			CheckFn: func(ctx context.Context) error {
				return checkDataDir(dataDir)
			},
		})
	}
	return &Checker{interval: DefaultInterval, checks: checks}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
			log.WithFields(log.Fields{"check": check.Name, "error": err}).Warn("health check failed")
			if check.RecoverFn != nil {
				metrics.HealthRecoveries.WithLabelValues(check.Name).Inc()
				if rerr := check.RecoverFn(ctx); rerr != nil {
					log.WithFields(log.Fields{"check": check.Name, "error": rerr}).Error("recovery failed")
				}
			}
		} else {
			s.Healthy = true
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

// checkCatalogFresh fails when the snapshot is missing or older than twice
// the staleness bound, meaning scheduled refreshes are not landing.
func checkCatalogFresh(c CatalogCache) error {
	age, ok := c.Age()
	if !ok {
		return fmt.Errorf("catalog not loaded")
	}
	if limit := 2 * c.MaxStaleness(); age > limit {
		return fmt.Errorf("catalog snapshot is %s old (limit %s)", age.Round(time.Second), limit)
	}
	return nil
}

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
