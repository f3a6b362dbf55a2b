package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/plugpoint/plugpoint/internal/domain"
)

const dateLayout = "2006-01-02"

const (
	questActive    = "ACTIVE"
	questCompleted = "COMPLETED"
)

// ─── Profile Repository ─────────────────────────────────────────────────────

// LoadProfile reads a full profile, including inventory and quest sets.
func (s *txStore) LoadProfile(ctx context.Context, userID string) (domain.Profile, error) {
	return loadProfile(ctx, s.tx, userID)
}

// SaveProfile writes p with an optimistic version check.
func (s *txStore) SaveProfile(ctx context.Context, p *domain.Profile) error {
	counters, err := json.Marshal(p.Counters)
	if err != nil {
		return fmt.Errorf("encode counters: %w", err)
	}
	var lastLogin sql.NullString
	if p.LoginStreak.LastLoginDate != nil {
		lastLogin = sql.NullString{String: p.LoginStreak.LastLoginDate.UTC().Format(dateLayout), Valid: true}
	}

	var res sql.Result
	if p.Version == 0 {
		res, err = s.tx.ExecContext(ctx,
			`INSERT INTO profiles (user_id, points_balance, net_worth, persona, streak_current, streak_longest,
				streak_last_date, counters, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			 ON CONFLICT(user_id) DO NOTHING`,
			p.UserID, p.PointsBalance, p.NetWorth, string(p.Persona), p.LoginStreak.Current, p.LoginStreak.Longest,
			lastLogin, string(counters), millis(p.CreatedAt), millis(p.UpdatedAt),
		)
	} else {
		res, err = s.tx.ExecContext(ctx,
			`UPDATE profiles SET
				points_balance=?, net_worth=?, persona=?, streak_current=?, streak_longest=?,
				streak_last_date=?, counters=?, version=version+1, updated_at=?
			 WHERE user_id = ? AND version = ?`,
			p.PointsBalance, p.NetWorth, string(p.Persona), p.LoginStreak.Current, p.LoginStreak.Longest,
			lastLogin, string(counters), millis(p.UpdatedAt),
			p.UserID, p.Version,
		)
	}
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.UserID, err)
	}
	if err := versionApplied(res); err != nil {
		return fmt.Errorf("save profile %s: %w", p.UserID, err)
	}

	at := millis(p.UpdatedAt)
	for _, id := range p.Inventory.BadgesEarned {
		if _, err := s.tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO profile_badges (user_id, badge_id, earned_at) VALUES (?, ?, ?)`,
			p.UserID, id, at,
		); err != nil {
			return fmt.Errorf("save badge %s: %w", id, err)
		}
	}
	for _, id := range p.Inventory.ItemsOwned {
		if _, err := s.tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO profile_items (user_id, item_id, acquired_at) VALUES (?, ?, ?)`,
			p.UserID, id, at,
		); err != nil {
			return fmt.Errorf("save item %s: %w", id, err)
		}
	}
	// Active quests are rewritten whole so dropped ones disappear.
	if _, err := s.tx.ExecContext(ctx,
		`DELETE FROM profile_quests WHERE user_id = ? AND state = ?`, p.UserID, questActive,
	); err != nil {
		return fmt.Errorf("clear active quests: %w", err)
	}
	if err := upsertQuestStates(ctx, s.tx, p.UserID, p.ActiveQuests, questActive, at); err != nil {
		return err
	}
	if err := upsertQuestStates(ctx, s.tx, p.UserID, p.CompletedQuests, questCompleted, at); err != nil {
		return err
	}

	p.Version++
	return nil
}

func upsertQuestStates(ctx context.Context, db execer, userID string, ids []string, state string, at int64) error {
	for _, id := range ids {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO profile_quests (user_id, quest_id, state, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id, quest_id) DO UPDATE SET
				state=excluded.state,
				updated_at=excluded.updated_at
			 WHERE profile_quests.state <> excluded.state`,
			userID, id, state, at,
		); err != nil {
			return fmt.Errorf("save quest %s: %w", id, err)
		}
	}
	return nil
}

// Leaderboard returns the top profiles by net worth, ties broken by user id.
func (d *DB) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT user_id, persona, net_worth FROM profiles
		 ORDER BY net_worth DESC, user_id ASC LIMIT ?`, limit,
	)
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

// ProfileCount returns how many profiles exist.
func (d *DB) ProfileCount(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, err
}

func loadProfile(ctx context.Context, q queryer, userID string) (domain.Profile, error) {
	row := q.QueryRowContext(ctx,
		`SELECT user_id, points_balance, net_worth, persona, streak_current, streak_longest,
			streak_last_date, counters, version, created_at, updated_at
		 FROM profiles WHERE user_id = ?`, userID,
	)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile %s: %w", userID, err)
	}

	if p.Inventory.BadgesEarned, err = listIDs(ctx, q,
		`SELECT badge_id FROM profile_badges WHERE user_id = ? ORDER BY rowid`, userID); err != nil {
		return domain.Profile{}, err
	}
	if p.Inventory.ItemsOwned, err = listIDs(ctx, q,
		`SELECT item_id FROM profile_items WHERE user_id = ? ORDER BY rowid`, userID); err != nil {
		return domain.Profile{}, err
	}
	if p.ActiveQuests, err = listIDs(ctx, q,
		`SELECT quest_id FROM profile_quests WHERE user_id = ? AND state = 'ACTIVE' ORDER BY rowid`, userID); err != nil {
		return domain.Profile{}, err
	}
	if p.CompletedQuests, err = listIDs(ctx, q,
		`SELECT quest_id FROM profile_quests WHERE user_id = ? AND state = 'COMPLETED' ORDER BY rowid`, userID); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

func scanProfile(s scanner) (domain.Profile, error) {
	var p domain.Profile
	var persona, counters string
	var lastLogin sql.NullString
	var createdAt, updatedAt int64

	err := s.Scan(&p.UserID, &p.PointsBalance, &p.NetWorth, &persona,
		&p.LoginStreak.Current, &p.LoginStreak.Longest, &lastLogin,
		&counters, &p.Version, &createdAt, &updatedAt)
	if err != nil {
		return p, err
	}

	p.Persona = domain.Persona(persona)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	p.Counters = map[domain.Counter]int64{}
	if err := json.Unmarshal([]byte(counters), &p.Counters); err != nil {
		return p, fmt.Errorf("decode counters: %w", err)
	}
	if lastLogin.Valid {
		d, err := time.Parse(dateLayout, lastLogin.String)
		if err != nil {
			return p, fmt.Errorf("decode last login date: %w", err)
		}
		p.LoginStreak.LastLoginDate = &d
	}
	return p, nil
}

func listIDs(ctx context.Context, q queryer, query, userID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// versionApplied maps a zero-row profile write to a version conflict.
func versionApplied(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}
