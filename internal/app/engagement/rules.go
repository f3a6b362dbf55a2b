// Package engagement is the PlugPoint reward rule engine.
// It turns one user action into counter updates, base points, badge unlocks
// and quest completions, and reports every balance change as a ledger event.
// The engine is pure: it mutates the profile it is handed and never does I/O.
package engagement

import (
	"time"

	"github.com/google/uuid"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// Action is one reported user action.
type Action struct {
	UserID    string
	SessionID string
	Type      domain.ActionType
	Details   map[string]any
}

// Outcome lists what an action produced.
type Outcome struct {
	Events          []domain.Event
	PointsAwarded   int64
	BadgesEarned    []string
	QuestsCompleted []string
}

// Rules evaluates actions against the reward table and a catalog snapshot.
type Rules struct {
	rewards RewardTable
	newID   func() string
}

// NewRules creates a rule engine over the given reward table.
func NewRules(rewards RewardTable) *Rules {
	if rewards == nil {
		rewards, _ = NewRewardTable(nil)
	}
	return &Rules{rewards: rewards, newID: uuid.NewString}
}

// Rewards exposes the active reward table.
func (r *Rules) Rewards() RewardTable { return r.rewards }

// Apply runs the rule pipeline for act on p:
// counter, base reward, badges, quests, persona.
// Badges and quests are visited in catalog order; every rule that holds
// fires in this call.
func (r *Rules) Apply(p *domain.Profile, act Action, cat domain.Catalog, now time.Time) Outcome {
	var out Outcome

	out.Events = append(out.Events, domain.Event{
		ID:         r.newID(),
		UserID:     p.UserID,
		SessionID:  act.SessionID,
		Kind:       domain.EventActionPerformed,
		ActionType: act.Type,
		Timestamp:  now,
		Details:    domain.EventDetails{Extra: act.Details},
	})

	if c, ok := act.Type.Counter(); ok {
		p.Increment(c)
	}

	if pts := r.rewards.Points(act.Type); pts > 0 {
		r.credit(p, &out, act, pts, domain.ReasonBaseReward, "", now)
	}

	for _, b := range cat.Badges {
		if b.Status != domain.StatusActive || p.HasBadge(b.ID) {
			continue
		}
		if satisfied(b.Criteria, p, act.Type) && p.AddBadge(b.ID) {
			out.BadgesEarned = append(out.BadgesEarned, b.ID)
		}
	}

	eligible := make(map[string]bool, len(cat.Quests))
	for _, q := range cat.Quests {
		if q.Status != domain.StatusActive || !q.InWindow(now) || p.QuestCompleted(q.ID) {
			continue
		}
		eligible[q.ID] = true
		if !satisfied(q.Criteria, p, act.Type) {
			p.TrackQuest(q.ID)
			continue
		}
		if q.Rewards.Points != nil && *q.Rewards.Points > 0 {
			r.credit(p, &out, act, *q.Rewards.Points, domain.ReasonQuestReward, q.ID, now)
		}
		if q.Rewards.BadgeID != "" && p.AddBadge(q.Rewards.BadgeID) {
			out.BadgesEarned = append(out.BadgesEarned, q.Rewards.BadgeID)
		}
		p.CompleteQuest(q.ID)
		out.QuestsCompleted = append(out.QuestsCompleted, q.ID)
	}

	// Quests that went inactive, expired or left the catalog stop being pending.
	for _, id := range append([]string(nil), p.ActiveQuests...) {
		if !eligible[id] {
			p.UntrackQuest(id)
		}
	}

	p.Persona = DerivePersona(p.Counters)
	return out
}

// credit adds pts to balance and net worth and logs the transaction.
func (r *Rules) credit(p *domain.Profile, out *Outcome, act Action, pts int64, reason domain.Reason, questID string, now time.Time) {
	p.PointsBalance += pts
	p.NetWorth += pts
	out.PointsAwarded += pts

	delta := pts
	out.Events = append(out.Events, domain.Event{
		ID:         r.newID(),
		UserID:     p.UserID,
		SessionID:  act.SessionID,
		Kind:       domain.EventPointsTransaction,
		ActionType: act.Type,
		Timestamp:  now,
		Details: domain.EventDetails{
			PointsChange: &delta,
			Reason:       reason,
			QuestID:      questID,
		},
	})
}

// satisfied evaluates a criteria against the post-action profile.
// Malformed criteria never hold.
func satisfied(c domain.Criteria, p *domain.Profile, act domain.ActionType) bool {
	if c.Validate() != nil {
		return false
	}
	if c.ActionType != "" {
		return c.ActionType == act
	}
	return p.CounterValue(c.SourceCounter) >= c.Threshold
}
