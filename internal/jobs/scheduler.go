// Package jobs runs PlugPoint background tasks on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// DefaultRefreshSchedule reloads the catalog well inside the default staleness bound.
const DefaultRefreshSchedule = "@every 15s"

// CatalogRefresher reloads catalog definitions.
type CatalogRefresher interface {
	Refresh(ctx context.Context) (domain.Catalog, error)
}

// Scheduler owns the background jobs.
type Scheduler struct {
	cron     *cron.Cron
	catalog  CatalogRefresher
	schedule string
}

// NewScheduler creates a scheduler that refreshes the catalog on schedule.
// An empty schedule uses DefaultRefreshSchedule. Schedules run in UTC.
func NewScheduler(catalog CatalogRefresher, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		catalog:  catalog,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.refreshCatalog(ctx) }); err != nil {
		return fmt.Errorf("catalog refresh schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	log.WithField("schedule", s.schedule).Info("[CRON] scheduler started")
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("[CRON] scheduler stopped")
}

func (s *Scheduler) refreshCatalog(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cat, err := s.catalog.Refresh(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] catalog refresh failed")
		return
	}
	log.WithFields(log.Fields{
		"items":  len(cat.Items),
		"badges": len(cat.Badges),
		"quests": len(cat.Quests),
	}).Debug("[CRON] catalog refreshed")
}
