package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// ─── Profiles ───────────────────────────────────────────────────────────────

// LoadProfile reads and row-locks the profile until the transaction ends.
func (s *txStore) LoadProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	var persona string
	var counters []byte
	var lastLogin *time.Time

	err := s.tx.QueryRow(ctx,
		`SELECT user_id, points_balance, net_worth, persona, streak_current, streak_longest,
			streak_last_date, counters, version, created_at, updated_at
		 FROM profiles WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&p.UserID, &p.PointsBalance, &p.NetWorth, &persona,
		&p.LoginStreak.Current, &p.LoginStreak.Longest, &lastLogin,
		&counters, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if isNoRows(err) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile %s: %w", userID, err)
	}

	p.Persona = domain.Persona(persona)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if lastLogin != nil {
		d := time.Date(lastLogin.Year(), lastLogin.Month(), lastLogin.Day(), 0, 0, 0, 0, time.UTC)
		p.LoginStreak.LastLoginDate = &d
	}
	p.Counters = map[domain.Counter]int64{}
	if err := json.Unmarshal(counters, &p.Counters); err != nil {
		return domain.Profile{}, fmt.Errorf("decode counters: %w", err)
	}

	if p.Inventory.BadgesEarned, err = s.ids(ctx,
		`SELECT badge_id FROM profile_badges WHERE user_id = $1 ORDER BY seq`, userID); err != nil {
		return domain.Profile{}, err
	}
	if p.Inventory.ItemsOwned, err = s.ids(ctx,
		`SELECT item_id FROM profile_items WHERE user_id = $1 ORDER BY seq`, userID); err != nil {
		return domain.Profile{}, err
	}
	if p.ActiveQuests, err = s.ids(ctx,
		`SELECT quest_id FROM profile_quests WHERE user_id = $1 AND state = 'ACTIVE' ORDER BY seq`, userID); err != nil {
		return domain.Profile{}, err
	}
	if p.CompletedQuests, err = s.ids(ctx,
		`SELECT quest_id FROM profile_quests WHERE user_id = $1 AND state = 'COMPLETED' ORDER BY seq`, userID); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

// SaveProfile inserts or version-checks and updates the profile row.
func (s *txStore) SaveProfile(ctx context.Context, p *domain.Profile) error {
	counters, err := json.Marshal(p.Counters)
	if err != nil {
		return fmt.Errorf("encode counters: %w", err)
	}

	var affected int64
	if p.Version == 0 {
		tag, err := s.tx.Exec(ctx,
			`INSERT INTO profiles (user_id, points_balance, net_worth, persona, streak_current, streak_longest,
				streak_last_date, counters, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)
			 ON CONFLICT (user_id) DO NOTHING`,
			p.UserID, p.PointsBalance, p.NetWorth, string(p.Persona), p.LoginStreak.Current, p.LoginStreak.Longest,
			p.LoginStreak.LastLoginDate, string(counters), p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert profile %s: %w", p.UserID, err)
		}
		affected = tag.RowsAffected()
	} else {
		tag, err := s.tx.Exec(ctx,
			`UPDATE profiles SET
				points_balance=$1, net_worth=$2, persona=$3, streak_current=$4, streak_longest=$5,
				streak_last_date=$6, counters=$7, version=version+1, updated_at=$8
			 WHERE user_id = $9 AND version = $10`,
			p.PointsBalance, p.NetWorth, string(p.Persona), p.LoginStreak.Current, p.LoginStreak.Longest,
			p.LoginStreak.LastLoginDate, string(counters), p.UpdatedAt, p.UserID, p.Version,
		)
		if err != nil {
			return fmt.Errorf("update profile %s: %w", p.UserID, err)
		}
		affected = tag.RowsAffected()
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}

	for _, id := range p.Inventory.BadgesEarned {
		if _, err := s.tx.Exec(ctx,
			`INSERT INTO profile_badges (user_id, badge_id, earned_at) VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`, p.UserID, id, p.UpdatedAt); err != nil {
			return fmt.Errorf("save badge %s: %w", id, err)
		}
	}
	for _, id := range p.Inventory.ItemsOwned {
		if _, err := s.tx.Exec(ctx,
			`INSERT INTO profile_items (user_id, item_id, acquired_at) VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`, p.UserID, id, p.UpdatedAt); err != nil {
			return fmt.Errorf("save item %s: %w", id, err)
		}
	}
	if _, err := s.tx.Exec(ctx,
		`DELETE FROM profile_quests WHERE user_id = $1 AND state = 'ACTIVE'`, p.UserID); err != nil {
		return fmt.Errorf("clear active quests: %w", err)
	}
	for state, ids := range map[string][]string{"ACTIVE": p.ActiveQuests, "COMPLETED": p.CompletedQuests} {
		for _, id := range ids {
			if _, err := s.tx.Exec(ctx,
				`INSERT INTO profile_quests (user_id, quest_id, state, updated_at) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (user_id, quest_id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
				 WHERE profile_quests.state <> EXCLUDED.state`,
				p.UserID, id, state, p.UpdatedAt); err != nil {
				return fmt.Errorf("save quest %s: %w", id, err)
			}
		}
	}

	p.Version++
	return nil
}

func (s *txStore) ids(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.tx.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Leaderboard returns the top profiles by net worth, ties broken by user id.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, persona, net_worth FROM profiles
		 ORDER BY net_worth DESC, user_id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.LeaderboardEntry{}
	for rows.Next() {
		var e domain.LeaderboardEntry
		var persona string
		if err := rows.Scan(&e.UserID, &persona, &e.NetWorth); err != nil {
			return nil, err
		}
		e.Persona = domain.Persona(persona)
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ─── Events ─────────────────────────────────────────────────────────────────

// AppendEvents inserts events in slice order.
func (s *txStore) AppendEvents(ctx context.Context, events []domain.Event) error {
	for _, e := range events {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode event details: %w", err)
		}
		if _, err := s.tx.Exec(ctx,
			`INSERT INTO events (id, user_id, session_id, kind, action_type, timestamp, details)
			 VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7)`,
			e.ID, e.UserID, e.SessionID, string(e.Kind), string(e.ActionType), e.Timestamp, string(details),
		); err != nil {
			return fmt.Errorf("append event %s: %w", e.ID, err)
		}
	}
	return nil
}

// ListEvents returns a user's most recent events, newest first.
func (s *Store) ListEvents(ctx context.Context, userID string, limit int) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, id, user_id, COALESCE(session_id, ''), kind, COALESCE(action_type, ''), timestamp, details
		 FROM events WHERE user_id = $1 ORDER BY seq DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		var kind, action string
		var details []byte
		if err := rows.Scan(&e.Seq, &e.ID, &e.UserID, &e.SessionID, &kind, &action, &e.Timestamp, &details); err != nil {
			return nil, err
		}
		e.Kind = domain.EventKind(kind)
		e.ActionType = domain.ActionType(action)
		e.Timestamp = e.Timestamp.UTC()
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode event details: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ─── Catalog ────────────────────────────────────────────────────────────────

// LoadCatalog reads every definition, sorted by id.
func (s *Store) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	cat := domain.Catalog{
		Items:    []domain.CatalogItem{},
		Badges:   []domain.Badge{},
		Quests:   []domain.Quest{},
		LoadedAt: time.Now().UTC(),
	}

	rows, err := s.pool.Query(ctx, `SELECT id, name, cost_points, value_points, rarity FROM catalog_items ORDER BY id`)
	if err != nil {
		return cat, fmt.Errorf("load items: %w", err)
	}
	for rows.Next() {
		var it domain.CatalogItem
		var rarity string
		if err := rows.Scan(&it.ID, &it.Name, &it.CostPoints, &it.ValuePoints, &rarity); err != nil {
			rows.Close()
			return cat, err
		}
		it.Rarity = domain.Rarity(rarity)
		cat.Items = append(cat.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return cat, err
	}

	rows, err = s.pool.Query(ctx, `SELECT id, name, status, criteria FROM catalog_badges ORDER BY id`)
	if err != nil {
		return cat, fmt.Errorf("load badges: %w", err)
	}
	for rows.Next() {
		var b domain.Badge
		var status string
		var criteria []byte
		if err := rows.Scan(&b.ID, &b.Name, &status, &criteria); err != nil {
			rows.Close()
			return cat, err
		}
		b.Status = domain.Status(status)
		if err := json.Unmarshal(criteria, &b.Criteria); err != nil {
			rows.Close()
			return cat, fmt.Errorf("decode badge %s criteria: %w", b.ID, err)
		}
		cat.Badges = append(cat.Badges, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return cat, err
	}

	rows, err = s.pool.Query(ctx,
		`SELECT id, name, status, criteria, reward_points, COALESCE(reward_badge, ''), start_date, end_date
		 FROM catalog_quests ORDER BY id`)
	if err != nil {
		return cat, fmt.Errorf("load quests: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var q domain.Quest
		var status string
		var criteria []byte
		if err := rows.Scan(&q.ID, &q.Name, &status, &criteria, &q.Rewards.Points, &q.Rewards.BadgeID,
			&q.StartDate, &q.EndDate); err != nil {
			return cat, err
		}
		q.Status = domain.Status(status)
		if err := json.Unmarshal(criteria, &q.Criteria); err != nil {
			return cat, fmt.Errorf("decode quest %s criteria: %w", q.ID, err)
		}
		cat.Quests = append(cat.Quests, q)
	}
	return cat, rows.Err()
}

// UpsertCatalog inserts or replaces the given definitions in one transaction.
func (s *Store) UpsertCatalog(ctx context.Context, c domain.Catalog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, it := range c.Items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO catalog_items (id, name, cost_points, value_points, rarity) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, cost_points = EXCLUDED.cost_points,
				value_points = EXCLUDED.value_points, rarity = EXCLUDED.rarity`,
			it.ID, it.Name, it.CostPoints, it.ValuePoints, string(it.Rarity)); err != nil {
			return fmt.Errorf("upsert item %s: %w", it.ID, err)
		}
	}
	for _, b := range c.Badges {
		criteria, err := json.Marshal(b.Criteria)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO catalog_badges (id, name, status, criteria) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status, criteria = EXCLUDED.criteria`,
			b.ID, b.Name, string(b.Status), string(criteria)); err != nil {
			return fmt.Errorf("upsert badge %s: %w", b.ID, err)
		}
	}
	for _, q := range c.Quests {
		criteria, err := json.Marshal(q.Criteria)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO catalog_quests (id, name, status, criteria, reward_points, reward_badge, start_date, end_date)
			 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status, criteria = EXCLUDED.criteria,
				reward_points = EXCLUDED.reward_points, reward_badge = EXCLUDED.reward_badge,
				start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date`,
			q.ID, q.Name, string(q.Status), string(criteria), q.Rewards.Points, q.Rewards.BadgeID,
			q.StartDate, q.EndDate); err != nil {
			return fmt.Errorf("upsert quest %s: %w", q.ID, err)
		}
	}
	return tx.Commit(ctx)
}
