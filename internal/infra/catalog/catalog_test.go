package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/plugpoint/plugpoint/internal/domain"
	"github.com/plugpoint/plugpoint/internal/infra/sqlite"
)

// fakeStore counts loads and can be told to fail.
type fakeStore struct {
	cat   domain.Catalog
	loads int
	err   error
}

func (f *fakeStore) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	f.loads++
	if f.err != nil {
		return domain.Catalog{}, f.err
	}
	return f.cat, nil
}

func (f *fakeStore) UpsertCatalog(ctx context.Context, c domain.Catalog) error {
	f.cat.Items = append(f.cat.Items, c.Items...)
	f.cat.Badges = append(f.cat.Badges, c.Badges...)
	f.cat.Quests = append(f.cat.Quests, c.Quests...)
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestCache(store domain.CatalogStore, staleness time.Duration) (*Cache, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache(store, staleness)
	c.now = clk.Now
	return c, clk
}

// ─── Cache Tests ────────────────────────────────────────────────────────────

func TestCache_ReadThroughAndStaleness(t *testing.T) {
	store := &fakeStore{cat: domain.Catalog{Items: []domain.CatalogItem{{ID: "i1"}}}}
	c, clk := newTestCache(store, 10*time.Second)
	ctx := context.Background()

	if _, ok := c.Age(); ok {
		t.Error("Age() should report not loaded before first snapshot")
	}

	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if len(snap.Items) != 1 || store.loads != 1 {
		t.Fatalf("items = %d, loads = %d", len(snap.Items), store.loads)
	}

	clk.t = clk.t.Add(5 * time.Second)
	c.Snapshot(ctx)
	if store.loads != 1 {
		t.Errorf("fresh snapshot reloaded: loads = %d", store.loads)
	}

	clk.t = clk.t.Add(6 * time.Second)
	c.Snapshot(ctx)
	if store.loads != 2 {
		t.Errorf("stale snapshot not reloaded: loads = %d", store.loads)
	}
}

func TestCache_ServesStaleOnError(t *testing.T) {
	store := &fakeStore{cat: domain.Catalog{Items: []domain.CatalogItem{{ID: "i1"}}}}
	c, clk := newTestCache(store, time.Second)
	ctx := context.Background()

	if _, err := c.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	store.err = errors.New("db down")
	clk.t = clk.t.Add(1500 * time.Millisecond)

	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() should serve stale data, got %v", err)
	}
	if len(snap.Items) != 1 {
		t.Errorf("stale items = %d, want 1", len(snap.Items))
	}
}

func TestCache_StaleBeyondHardLimitFails(t *testing.T) {
	store := &fakeStore{cat: domain.Catalog{Items: []domain.CatalogItem{{ID: "i1"}}}}
	c, clk := newTestCache(store, time.Second)
	ctx := context.Background()

	if _, err := c.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if c.HardLimit() != 2*time.Second {
		t.Errorf("HardLimit() = %v, want 2s", c.HardLimit())
	}
	store.err = errors.New("db down")
	clk.t = clk.t.Add(time.Minute)

	if _, err := c.Snapshot(ctx); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("error = %v, want ErrStorage once past the hard limit", err)
	}

	store.err = nil
	snap, err := c.Snapshot(ctx)
	if err != nil || len(snap.Items) != 1 {
		t.Errorf("recovered Snapshot() = %+v, %v", snap, err)
	}
}

// gatedStore blocks every load until release is closed.
type gatedStore struct {
	cat     domain.Catalog
	loads   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	if g.loads.Add(1) == 1 {
		close(g.entered)
	}
	<-g.release
	return g.cat, nil
}

func (g *gatedStore) UpsertCatalog(ctx context.Context, c domain.Catalog) error { return nil }

func TestCache_ConcurrentStaleReadersShareReload(t *testing.T) {
	store := &gatedStore{
		cat:     domain.Catalog{Items: []domain.CatalogItem{{ID: "i1"}}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c, _ := newTestCache(store, time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.Snapshot(context.Background())
			if err == nil && len(snap.Items) != 1 {
				err = fmt.Errorf("items = %d", len(snap.Items))
			}
			errs <- err
		}()
	}

	<-store.entered
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Snapshot() error: %v", err)
		}
	}
	if n := store.loads.Load(); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
}

func TestCache_ErrorBeforeFirstLoad(t *testing.T) {
	c, _ := newTestCache(&fakeStore{err: errors.New("db down")}, time.Second)
	_, err := c.Snapshot(context.Background())
	if !errors.Is(err, domain.ErrStorage) {
		t.Errorf("error = %v, want ErrStorage", err)
	}
}

func TestCache_SkipsInvalidDefinitions(t *testing.T) {
	store := &fakeStore{cat: domain.Catalog{
		Badges: []domain.Badge{
			{ID: "ok", Status: domain.StatusActive, Criteria: domain.Criteria{ActionType: domain.ActionCheckIn}},
			{ID: "bad", Status: domain.StatusActive, Criteria: domain.Criteria{SourceCounter: "spins", Threshold: 1}},
		},
		Quests: []domain.Quest{{ID: "empty", Status: domain.StatusActive}},
	}}
	c, _ := newTestCache(store, time.Second)

	snap, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if len(snap.Badges) != 1 || snap.Badges[0].ID != "ok" {
		t.Errorf("badges = %+v", snap.Badges)
	}
	if len(snap.Quests) != 0 {
		t.Errorf("quests = %+v", snap.Quests)
	}
	if c.Skipped() != 2 {
		t.Errorf("Skipped() = %d, want 2", c.Skipped())
	}
}

func TestCache_ImportRejectsInvalid(t *testing.T) {
	store := &fakeStore{}
	c, _ := newTestCache(store, time.Second)
	err := c.Import(context.Background(), domain.Catalog{Badges: []domain.Badge{{ID: "x"}}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if len(store.cat.Badges) != 0 {
		t.Error("invalid catalog was written")
	}
}

// ─── Defaults & Seeding ─────────────────────────────────────────────────────

func TestDefaults_Valid(t *testing.T) {
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("Defaults().Validate() error: %v", err)
	}
	if len(d.Items) == 0 || len(d.Badges) == 0 || len(d.Quests) == 0 {
		t.Errorf("defaults incomplete: %d items, %d badges, %d quests", len(d.Items), len(d.Badges), len(d.Quests))
	}
	for i := 1; i < len(d.Badges); i++ {
		if d.Badges[i-1].ID >= d.Badges[i].ID {
			t.Errorf("badges not sorted at %d", i)
		}
	}
	if item, ok := d.Item("pin-founder"); !ok || item.Purchasable() {
		t.Error("pin-founder should exist and not be purchasable")
	}
}

func TestSeedIfEmpty_SQLite(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	c := NewCache(db, time.Minute)
	seeded, err := c.SeedIfEmpty(ctx)
	if err != nil || !seeded {
		t.Fatalf("SeedIfEmpty() = %v, %v", seeded, err)
	}
	again, err := c.SeedIfEmpty(ctx)
	if err != nil || again {
		t.Errorf("second SeedIfEmpty() = %v, %v; want false", again, err)
	}

	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if len(snap.Items) != len(Defaults().Items) {
		t.Errorf("items = %d, want %d", len(snap.Items), len(Defaults().Items))
	}
}

// ─── File Import ────────────────────────────────────────────────────────────

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	content := `
[[items]]
id = "sticker-plug"
name = "Plug Sticker"
cost_points = 20
value_points = 25

[[badges]]
id = "night-owl"
name = "Night Owl"
criteria = { action_type = "route_plan" }

[[quests]]
id = "summer-charge"
name = "Summer charging"
start_date = 2025-06-01T00:00:00Z
end_date = 2025-08-31T23:59:59Z
criteria = { source_counter = "checkIns", threshold = 20 }
rewards = { points = 200, badge_id = "night-owl" }
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if len(c.Items) != 1 || *c.Items[0].CostPoints != 20 || c.Items[0].Rarity != domain.RarityCommon {
		t.Errorf("items = %+v", c.Items)
	}
	if c.Badges[0].Status != domain.StatusActive || c.Badges[0].Criteria.ActionType != domain.ActionRoutePlan {
		t.Errorf("badge = %+v", c.Badges[0])
	}
	q := c.Quests[0]
	if q.StartDate == nil || q.EndDate == nil || *q.Rewards.Points != 200 || q.Criteria.Threshold != 20 {
		t.Errorf("quest = %+v", q)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("[[badges]]\nid = \"x\"\ncriteria = { source_counter = \"spins\", threshold = 1 }\n"), 0600)
	if _, err := LoadFile(bad); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown counter error = %v, want ErrValidation", err)
	}

	typo := filepath.Join(dir, "typo.toml")
	os.WriteFile(typo, []byte("[[items]]\nid = \"x\"\ncost = 5\n"), 0600)
	if _, err := LoadFile(typo); err == nil {
		t.Error("unknown key should be rejected")
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("missing file should fail")
	}
}
