// Package catalog provides the read-through catalog cache and the built-in
// PlugPoint catalog. The cache hands the rule engine immutable snapshots and
// reloads from the store once a snapshot is older than the staleness bound.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/plugpoint/plugpoint/internal/domain"
	"github.com/plugpoint/plugpoint/internal/infra/metrics"
)

// DefaultMaxStaleness bounds how old a served snapshot may be.
const DefaultMaxStaleness = 30 * time.Second

// Cache is a read-through cache over a domain.CatalogStore.
type Cache struct {
	store        domain.CatalogStore
	maxStaleness time.Duration
	now          func() time.Time

	refresh singleflight.Group

	mu       sync.RWMutex
	snapshot domain.Catalog
	loaded   bool
	skipped  int
}

var _ domain.CatalogSource = (*Cache)(nil)

// NewCache creates a cache. maxStaleness <= 0 uses DefaultMaxStaleness.
func NewCache(store domain.CatalogStore, maxStaleness time.Duration) *Cache {
	if maxStaleness <= 0 {
		maxStaleness = DefaultMaxStaleness
	}
	return &Cache{store: store, maxStaleness: maxStaleness, now: time.Now}
}

// Snapshot returns the current catalog, reloading first if it is stale.
// Concurrent stale readers share one reload. If the reload fails, the old
// snapshot is served until it is older than twice the staleness bound.
func (c *Cache) Snapshot(ctx context.Context) (domain.Catalog, error) {
	c.mu.RLock()
	snap, loaded := c.snapshot, c.loaded
	c.mu.RUnlock()
	if loaded && c.now().Sub(snap.LoadedAt) < c.maxStaleness {
		return snap, nil
	}

	v, err, _ := c.refresh.Do("catalog", func() (any, error) {
		return c.Refresh(ctx)
	})
	if err == nil {
		return v.(domain.Catalog), nil
	}
	if !loaded {
		return domain.Catalog{}, err
	}

	c.mu.RLock()
	snap = c.snapshot
	c.mu.RUnlock()
	age := c.now().Sub(snap.LoadedAt)
	if age > c.HardLimit() {
		return domain.Catalog{}, domain.StorageError("catalog snapshot",
			fmt.Errorf("snapshot is %s old, limit %s: %w", age.Round(time.Second), c.HardLimit(), err))
	}
	log.WithError(err).WithField("age", age.Round(time.Second)).Warn("catalog refresh failed, serving stale snapshot")
	return snap, nil
}

// Refresh reloads the catalog from the store unconditionally.
// Definitions that fail validation are dropped with a warning.
func (c *Cache) Refresh(ctx context.Context) (domain.Catalog, error) {
	raw, err := c.store.LoadCatalog(ctx)
	if err != nil {
		metrics.CatalogRefreshes.WithLabelValues("error").Inc()
		return domain.Catalog{}, domain.StorageError("load catalog", err)
	}

	snap, skipped := sanitize(raw)
	snap.LoadedAt = c.now()
	snap.Sort()

	c.mu.Lock()
	c.snapshot = snap
	c.loaded = true
	c.skipped = skipped
	c.mu.Unlock()

	metrics.CatalogRefreshes.WithLabelValues("ok").Inc()
	metrics.CatalogDefinitions.WithLabelValues("item").Set(float64(len(snap.Items)))
	metrics.CatalogDefinitions.WithLabelValues("badge").Set(float64(len(snap.Badges)))
	metrics.CatalogDefinitions.WithLabelValues("quest").Set(float64(len(snap.Quests)))
	return snap, nil
}

// Age reports how long ago the current snapshot was loaded.
// ok is false before the first load.
func (c *Cache) Age() (age time.Duration, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return 0, false
	}
	return c.now().Sub(c.snapshot.LoadedAt), true
}

// MaxStaleness returns the configured staleness bound.
func (c *Cache) MaxStaleness() time.Duration { return c.maxStaleness }

// HardLimit is the oldest snapshot age served when reloads keep failing.
func (c *Cache) HardLimit() time.Duration { return 2 * c.maxStaleness }

// Skipped returns how many definitions the last refresh rejected.
func (c *Cache) Skipped() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skipped
}

// Import validates c, writes it to the store and refreshes the cache.
func (c *Cache) Import(ctx context.Context, defs domain.Catalog) error {
	if err := defs.Validate(); err != nil {
		return err
	}
	if err := c.store.UpsertCatalog(ctx, defs); err != nil {
		return domain.StorageError("upsert catalog", err)
	}
	_, err := c.Refresh(ctx)
	return err
}

// SeedIfEmpty writes the built-in catalog when the store holds no definitions.
// Returns true if it seeded.
func (c *Cache) SeedIfEmpty(ctx context.Context) (bool, error) {
	existing, err := c.store.LoadCatalog(ctx)
	if err != nil {
		return false, domain.StorageError("load catalog", err)
	}
	if len(existing.Items)+len(existing.Badges)+len(existing.Quests) > 0 {
		return false, nil
	}
	if err := c.Import(ctx, Defaults()); err != nil {
		return false, fmt.Errorf("seed default catalog: %w", err)
	}
	log.Info("seeded built-in catalog")
	return true, nil
}

// sanitize drops badges and quests whose criteria fail validation.
func sanitize(raw domain.Catalog) (domain.Catalog, int) {
	out := domain.Catalog{
		Items:  make([]domain.CatalogItem, 0, len(raw.Items)),
		Badges: make([]domain.Badge, 0, len(raw.Badges)),
		Quests: make([]domain.Quest, 0, len(raw.Quests)),
	}
	skipped := 0

	out.Items = append(out.Items, raw.Items...)
	for _, b := range raw.Badges {
		if err := b.Criteria.Validate(); err != nil {
			log.WithFields(log.Fields{"badge_id": b.ID, "error": err}).Warn("skipping invalid badge")
			skipped++
			continue
		}
		out.Badges = append(out.Badges, b)
	}
	for _, q := range raw.Quests {
		if err := q.Criteria.Validate(); err != nil {
			log.WithFields(log.Fields{"quest_id": q.ID, "error": err}).Warn("skipping invalid quest")
			skipped++
			continue
		}
		out.Quests = append(out.Quests, q)
	}
	return out, skipped
}
