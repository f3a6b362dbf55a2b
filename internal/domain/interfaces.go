package domain

import "context"

// ─── Storage Ports ──────────────────────────────────────────────────────────
// Implemented by infra/sqlite and infra/postgres.

// Tx is the unit of work for one profile mutation. Everything written through
// a Tx commits together or not at all.
type Tx interface {
	// LoadProfile returns ErrProfileNotFound when the user has no profile yet.
	LoadProfile(ctx context.Context, userID string) (Profile, error)
	// SaveProfile inserts when p.Version is 0, otherwise updates only if the
	// stored version still equals p.Version. On success p.Version is bumped.
	// A lost race yields ErrVersionConflict.
	SaveProfile(ctx context.Context, p *Profile) error
	// AppendEvents adds events to the log in order.
	AppendEvents(ctx context.Context, events []Event) error
}

// ProfileStore persists profiles and the event log.
type ProfileStore interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	ListEvents(ctx context.Context, userID string, limit int) ([]Event, error)
	Ping(ctx context.Context) error
}

// CatalogStore reads and seeds catalog definitions.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (Catalog, error)
	UpsertCatalog(ctx context.Context, c Catalog) error
}

// Store is a complete backend.
type Store interface {
	ProfileStore
	CatalogStore
	Close() error
}

// CatalogSource hands out catalog snapshots to the engine.
type CatalogSource interface {
	Snapshot(ctx context.Context) (Catalog, error)
}
