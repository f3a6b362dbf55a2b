// Package sqlite provides SQLite-based persistent storage for PlugPoint.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/plugpoint/plugpoint/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
// It implements domain.Store.
type DB struct {
	db *sql.DB
}

var _ domain.Store = (*DB)(nil)

// Open creates or opens the SQLite database at dir/plugpoint.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout. Transactions
// begin IMMEDIATE so a second process waits on the busy timeout instead of
// failing on lock upgrade.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "plugpoint.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer; one connection also serialises transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Profiles: one row per user, counters as a JSON object
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id          TEXT PRIMARY KEY,
			points_balance   INTEGER NOT NULL DEFAULT 0 CHECK (points_balance >= 0),
			net_worth        INTEGER NOT NULL DEFAULT 0,
			persona          TEXT NOT NULL DEFAULT 'NEWCOMER',
			streak_current   INTEGER NOT NULL DEFAULT 0,
			streak_longest   INTEGER NOT NULL DEFAULT 0,
			streak_last_date TEXT,
			counters         TEXT NOT NULL DEFAULT '{}',
			version          INTEGER NOT NULL DEFAULT 1,
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_net_worth ON profiles(net_worth DESC, user_id)`,

		// Inventory and quest membership (insert-only except quest state)
		`CREATE TABLE IF NOT EXISTS profile_badges (
			user_id   TEXT NOT NULL REFERENCES profiles(user_id),
			badge_id  TEXT NOT NULL,
			earned_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, badge_id)
		)`,
		`CREATE TABLE IF NOT EXISTS profile_items (
			user_id     TEXT NOT NULL REFERENCES profiles(user_id),
			item_id     TEXT NOT NULL,
			acquired_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS profile_quests (
			user_id    TEXT NOT NULL REFERENCES profiles(user_id),
			quest_id   TEXT NOT NULL,
			state      TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, quest_id)
		)`,

		// Append-only event log
		`CREATE TABLE IF NOT EXISTS events (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			user_id     TEXT NOT NULL,
			session_id  TEXT,
			kind        TEXT NOT NULL,
			action_type TEXT,
			timestamp   INTEGER NOT NULL,
			details     TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id, seq)`,

		// Catalog definitions
		`CREATE TABLE IF NOT EXISTS catalog_items (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			cost_points  INTEGER,
			value_points INTEGER NOT NULL DEFAULT 0,
			rarity       TEXT NOT NULL DEFAULT 'COMMON'
		)`,
		`CREATE TABLE IF NOT EXISTS catalog_badges (
			id       TEXT PRIMARY KEY,
			name     TEXT NOT NULL,
			status   TEXT NOT NULL,
			criteria TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS catalog_quests (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			status        TEXT NOT NULL,
			criteria      TEXT NOT NULL,
			reward_points INTEGER,
			reward_badge  TEXT,
			start_date    INTEGER,
			end_date      INTEGER
		)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// WithTx runs fn inside a SQL transaction. fn's error rolls everything back.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// Update runs fn against a transactional view of the store.
func (d *DB) Update(ctx context.Context, fn func(tx domain.Tx) error) error {
	return WithTx(ctx, d.db, func(tx *sql.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

// txStore is the domain.Tx backed by an open *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timeFromNull(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func nullableInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intFromNull(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
