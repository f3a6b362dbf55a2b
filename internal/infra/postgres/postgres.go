// Package postgres is the PostgreSQL backend for PlugPoint.
// It keeps the same schema shape as the SQLite store and uses pgxpool so
// many goroutines can share connections. Profile rows are locked with
// SELECT ... FOR UPDATE for the length of a mutation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// Options configures the connection pool.
type Options struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// Store implements domain.Store over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ domain.Store = (*Store)(nil)

// Open connects, pings and migrates.
func Open(ctx context.Context, opts Options) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = opts.MinConns
	}
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("max_conns", poolConfig.MaxConns).Info("connected to PostgreSQL")
	return s, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id          TEXT PRIMARY KEY,
			points_balance   BIGINT NOT NULL DEFAULT 0 CHECK (points_balance >= 0),
			net_worth        BIGINT NOT NULL DEFAULT 0,
			persona          TEXT NOT NULL DEFAULT 'NEWCOMER',
			streak_current   INTEGER NOT NULL DEFAULT 0,
			streak_longest   INTEGER NOT NULL DEFAULT 0,
			streak_last_date DATE,
			counters         JSONB NOT NULL DEFAULT '{}',
			version          BIGINT NOT NULL DEFAULT 1,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_net_worth ON profiles(net_worth DESC, user_id)`,
		`CREATE TABLE IF NOT EXISTS profile_badges (
			user_id   TEXT NOT NULL REFERENCES profiles(user_id),
			badge_id  TEXT NOT NULL,
			earned_at TIMESTAMPTZ NOT NULL,
			seq       BIGSERIAL,
			PRIMARY KEY (user_id, badge_id)
		)`,
		`CREATE TABLE IF NOT EXISTS profile_items (
			user_id     TEXT NOT NULL REFERENCES profiles(user_id),
			item_id     TEXT NOT NULL,
			acquired_at TIMESTAMPTZ NOT NULL,
			seq         BIGSERIAL,
			PRIMARY KEY (user_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS profile_quests (
			user_id    TEXT NOT NULL REFERENCES profiles(user_id),
			quest_id   TEXT NOT NULL,
			state      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			seq        BIGSERIAL,
			PRIMARY KEY (user_id, quest_id)
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			seq         BIGSERIAL PRIMARY KEY,
			id          TEXT NOT NULL UNIQUE,
			user_id     TEXT NOT NULL,
			session_id  TEXT,
			kind        TEXT NOT NULL,
			action_type TEXT,
			timestamp   TIMESTAMPTZ NOT NULL,
			details     JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id, seq)`,
		`CREATE TABLE IF NOT EXISTS catalog_items (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			cost_points  BIGINT,
			value_points BIGINT NOT NULL DEFAULT 0,
			rarity       TEXT NOT NULL DEFAULT 'COMMON'
		)`,
		`CREATE TABLE IF NOT EXISTS catalog_badges (
			id       TEXT PRIMARY KEY,
			name     TEXT NOT NULL,
			status   TEXT NOT NULL,
			criteria JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS catalog_quests (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			status        TEXT NOT NULL,
			criteria      JSONB NOT NULL,
			reward_points BIGINT,
			reward_badge  TEXT,
			start_date    TIMESTAMPTZ,
			end_date      TIMESTAMPTZ
		)`,
	}

	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Update runs fn in one database transaction.
func (s *Store) Update(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// txStore is the domain.Tx backed by a pgx transaction.
type txStore struct {
	tx pgx.Tx
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
