package domain

import (
	"fmt"
	"sort"
	"time"
)

// ─── Catalog Definitions ────────────────────────────────────────────────────
// Definitions are read-only to the core. Operators load them through the
// catalog import path.

// Rarity grades a catalog item.
type Rarity string

const (
	RarityCommon    Rarity = "COMMON"
	RarityRare      Rarity = "RARE"
	RarityEpic      Rarity = "EPIC"
	RarityLegendary Rarity = "LEGENDARY"
)

// Status toggles whether a badge or quest is evaluated.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// CatalogItem is a virtual item. A nil CostPoints means it cannot be bought.
type CatalogItem struct {
	ID          string `json:"itemId" toml:"id"`
	Name        string `json:"name" toml:"name"`
	CostPoints  *int64 `json:"costPoints,omitempty" toml:"cost_points"`
	ValuePoints int64  `json:"valuePoints" toml:"value_points"`
	Rarity      Rarity `json:"rarity" toml:"rarity"`
}

// Purchasable reports whether the item has a price.
func (i CatalogItem) Purchasable() bool { return i.CostPoints != nil }

// Criteria is either a counter threshold or an action match.
type Criteria struct {
	SourceCounter Counter    `json:"sourceCounter,omitempty" toml:"source_counter"`
	Threshold     int64      `json:"threshold,omitempty" toml:"threshold"`
	ActionType    ActionType `json:"actionType,omitempty" toml:"action_type"`
}

// Validate rejects criteria with both or neither shape, or an unknown counter.
func (c Criteria) Validate() error {
	switch {
	case c.SourceCounter != "" && c.ActionType != "":
		return fmt.Errorf("%w: both sourceCounter and actionType set", ErrInvalidCriteria)
	case c.SourceCounter != "":
		if !c.SourceCounter.Known() {
			return fmt.Errorf("%w: unknown counter %q", ErrInvalidCriteria, c.SourceCounter)
		}
		if c.Threshold < 0 {
			return fmt.Errorf("%w: negative threshold %d", ErrInvalidCriteria, c.Threshold)
		}
	case c.ActionType != "":
		if !c.ActionType.Known() {
			return fmt.Errorf("%w: unknown action type %q", ErrInvalidCriteria, c.ActionType)
		}
	default:
		return fmt.Errorf("%w: empty", ErrInvalidCriteria)
	}
	return nil
}

// Badge is a collectible granted once its criteria hold.
type Badge struct {
	ID       string   `json:"badgeId" toml:"id"`
	Name     string   `json:"name" toml:"name"`
	Status   Status   `json:"status" toml:"status"`
	Criteria Criteria `json:"criteria" toml:"criteria"`
}

// QuestRewards is what completing a quest grants.
type QuestRewards struct {
	Points  *int64 `json:"points,omitempty" toml:"points"`
	BadgeID string `json:"badgeId,omitempty" toml:"badge_id"`
}

// Quest is a goal with rewards, optionally bounded in time.
type Quest struct {
	ID        string       `json:"questId" toml:"id"`
	Name      string       `json:"name" toml:"name"`
	Status    Status       `json:"status" toml:"status"`
	Criteria  Criteria     `json:"criteria" toml:"criteria"`
	Rewards   QuestRewards `json:"rewards" toml:"rewards"`
	StartDate *time.Time   `json:"startDate,omitempty" toml:"start_date"`
	EndDate   *time.Time   `json:"endDate,omitempty" toml:"end_date"`
}

// InWindow reports whether now falls inside the quest window. Bounds are inclusive.
func (q Quest) InWindow(now time.Time) bool {
	if q.StartDate != nil && now.Before(*q.StartDate) {
		return false
	}
	if q.EndDate != nil && now.After(*q.EndDate) {
		return false
	}
	return true
}

// Catalog is an immutable snapshot of all definitions, each slice sorted by id.
type Catalog struct {
	Items    []CatalogItem `json:"items" toml:"items"`
	Badges   []Badge       `json:"badges" toml:"badges"`
	Quests   []Quest       `json:"quests" toml:"quests"`
	LoadedAt time.Time     `json:"loadedAt" toml:"-"`
}

// Sort orders every definition list by id.
func (c *Catalog) Sort() {
	sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].ID < c.Items[j].ID })
	sort.Slice(c.Badges, func(i, j int) bool { return c.Badges[i].ID < c.Badges[j].ID })
	sort.Slice(c.Quests, func(i, j int) bool { return c.Quests[i].ID < c.Quests[j].ID })
}

// Item looks up an item by id.
func (c Catalog) Item(id string) (CatalogItem, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return CatalogItem{}, false
}

// Badge looks up a badge by id.
func (c Catalog) Badge(id string) (Badge, bool) {
	for _, b := range c.Badges {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// Validate checks every definition and returns the first problem found.
func (c Catalog) Validate() error {
	for _, it := range c.Items {
		if it.ID == "" {
			return Validationf("item with empty id")
		}
		if it.CostPoints != nil && *it.CostPoints < 0 {
			return Validationf("item %q: negative cost", it.ID)
		}
	}
	for _, b := range c.Badges {
		if b.ID == "" {
			return Validationf("badge with empty id")
		}
		if err := b.Criteria.Validate(); err != nil {
			return fmt.Errorf("badge %q: %w", b.ID, err)
		}
	}
	for _, q := range c.Quests {
		if q.ID == "" {
			return Validationf("quest with empty id")
		}
		if err := q.Criteria.Validate(); err != nil {
			return fmt.Errorf("quest %q: %w", q.ID, err)
		}
		if q.Rewards.Points != nil && *q.Rewards.Points < 0 {
			return Validationf("quest %q: negative reward", q.ID)
		}
		if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
			return Validationf("quest %q: end before start", q.ID)
		}
	}
	return nil
}

// Points is a helper for optional point fields.
func Points(n int64) *int64 { return &n }
