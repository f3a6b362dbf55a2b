package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// ─── Catalog Repository ─────────────────────────────────────────────────────

// LoadCatalog reads every item, badge and quest definition, sorted by id.
func (d *DB) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	cat := domain.Catalog{
		Items:    []domain.CatalogItem{},
		Badges:   []domain.Badge{},
		Quests:   []domain.Quest{},
		LoadedAt: time.Now().UTC(),
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, cost_points, value_points, rarity FROM catalog_items ORDER BY id`)
	if err != nil {
		return cat, fmt.Errorf("load items: %w", err)
	}
	for rows.Next() {
		var it domain.CatalogItem
		var cost sql.NullInt64
		var rarity string
		if err := rows.Scan(&it.ID, &it.Name, &cost, &it.ValuePoints, &rarity); err != nil {
			rows.Close()
			return cat, err
		}
		it.CostPoints = intFromNull(cost)
		it.Rarity = domain.Rarity(rarity)
		cat.Items = append(cat.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return cat, err
	}

	rows, err = d.db.QueryContext(ctx,
		`SELECT id, name, status, criteria FROM catalog_badges ORDER BY id`)
	if err != nil {
		return cat, fmt.Errorf("load badges: %w", err)
	}
	for rows.Next() {
		var b domain.Badge
		var status, criteria string
		if err := rows.Scan(&b.ID, &b.Name, &status, &criteria); err != nil {
			rows.Close()
			return cat, err
		}
		b.Status = domain.Status(status)
		if err := json.Unmarshal([]byte(criteria), &b.Criteria); err != nil {
			rows.Close()
			return cat, fmt.Errorf("decode badge %s criteria: %w", b.ID, err)
		}
		cat.Badges = append(cat.Badges, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return cat, err
	}

	rows, err = d.db.QueryContext(ctx,
		`SELECT id, name, status, criteria, reward_points, reward_badge, start_date, end_date
		 FROM catalog_quests ORDER BY id`)
	if err != nil {
		return cat, fmt.Errorf("load quests: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var q domain.Quest
		var status, criteria string
		var points, start, end sql.NullInt64
		var badge sql.NullString
		if err := rows.Scan(&q.ID, &q.Name, &status, &criteria, &points, &badge, &start, &end); err != nil {
			return cat, err
		}
		q.Status = domain.Status(status)
		if err := json.Unmarshal([]byte(criteria), &q.Criteria); err != nil {
			return cat, fmt.Errorf("decode quest %s criteria: %w", q.ID, err)
		}
		q.Rewards = domain.QuestRewards{Points: intFromNull(points), BadgeID: badge.String}
		q.StartDate = timeFromNull(start)
		q.EndDate = timeFromNull(end)
		cat.Quests = append(cat.Quests, q)
	}
	return cat, rows.Err()
}

// UpsertCatalog inserts or replaces the given definitions in one transaction.
// Definitions not mentioned are left alone.
func (d *DB) UpsertCatalog(ctx context.Context, c domain.Catalog) error {
	return WithTx(ctx, d.db, func(tx *sql.Tx) error {
		for _, it := range c.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO catalog_items (id, name, cost_points, value_points, rarity)
				 VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET
					name=excluded.name,
					cost_points=excluded.cost_points,
					value_points=excluded.value_points,
					rarity=excluded.rarity`,
				it.ID, it.Name, nullableInt(it.CostPoints), it.ValuePoints, string(it.Rarity),
			); err != nil {
				return fmt.Errorf("upsert item %s: %w", it.ID, err)
			}
		}
		for _, b := range c.Badges {
			criteria, err := json.Marshal(b.Criteria)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO catalog_badges (id, name, status, criteria) VALUES (?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET
					name=excluded.name,
					status=excluded.status,
					criteria=excluded.criteria`,
				b.ID, b.Name, string(b.Status), string(criteria),
			); err != nil {
				return fmt.Errorf("upsert badge %s: %w", b.ID, err)
			}
		}
		for _, q := range c.Quests {
			criteria, err := json.Marshal(q.Criteria)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO catalog_quests (id, name, status, criteria, reward_points, reward_badge, start_date, end_date)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET
					name=excluded.name,
					status=excluded.status,
					criteria=excluded.criteria,
					reward_points=excluded.reward_points,
					reward_badge=excluded.reward_badge,
					start_date=excluded.start_date,
					end_date=excluded.end_date`,
				q.ID, q.Name, string(q.Status), string(criteria),
				nullableInt(q.Rewards.Points), nullableString(q.Rewards.BadgeID),
				nullableMillis(q.StartDate), nullableMillis(q.EndDate),
			); err != nil {
				return fmt.Errorf("upsert quest %s: %w", q.ID, err)
			}
		}
		return nil
	})
}
