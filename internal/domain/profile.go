// Package domain holds the pure types of the PlugPoint gamification core:
// profiles, catalog definitions, ledger events and the error taxonomy.
// Nothing in here touches storage or transport.
package domain

import (
	"fmt"
	"sort"
	"time"
)

// ─── Action Types ───────────────────────────────────────────────────────────

// ActionType names a user action reported by the app.
type ActionType string

const (
	ActionAppLogin           ActionType = "app_login"
	ActionCheckIn            ActionType = "check_in"
	ActionFaultReport        ActionType = "fault_report"
	ActionAIValidation       ActionType = "ai_validation"
	ActionBlackSpotDiscovery ActionType = "black_spot_discovery"
	ActionRoutePlan          ActionType = "route_plan"
	ActionChatbotQuestion    ActionType = "chatbot_question"
	ActionQuizCorrect        ActionType = "quiz_correct"
	ActionEasterEggRedeemed  ActionType = "easter_egg_redeemed"
	ActionBookingCreated     ActionType = "booking_created"
	ActionReviewPosted       ActionType = "review_posted"
	ActionFeedbackSubmitted  ActionType = "feedback_submitted"
)

// ─── Counters ───────────────────────────────────────────────────────────────

// Counter names a per-profile aggregate.
type Counter string

const (
	CounterCheckIns             Counter = "checkIns"
	CounterFaultReports         Counter = "faultReports"
	CounterAIValidations        Counter = "aiValidations"
	CounterBlackSpotDiscoveries Counter = "blackSpotDiscoveries"
	CounterRoutePlans           Counter = "routePlans"
	CounterChatbotQuestions     Counter = "chatbotQuestions"
	CounterQuizzesCorrect       Counter = "quizzesCorrect"
	CounterEasterEggsRedeemed   Counter = "easterEggsRedeemed"
	CounterBookingsCreated      Counter = "bookingsCreated"
	CounterReviewsPosted        Counter = "reviewsPosted"
	CounterFeedbackSubmitted    Counter = "feedbackSubmitted"
	CounterItemsPurchased       Counter = "itemsPurchased"

	// Derived from the login streak; readable by criteria, never stored.
	CounterLoginStreakCurrent Counter = "loginStreakCurrent"
	CounterLoginStreakLongest Counter = "loginStreakLongest"
)

// actionCounters is the closed action → counter mapping.
// app_login has no counter; its effect is the streak.
var actionCounters = map[ActionType]Counter{
	ActionCheckIn:            CounterCheckIns,
	ActionFaultReport:        CounterFaultReports,
	ActionAIValidation:       CounterAIValidations,
	ActionBlackSpotDiscovery: CounterBlackSpotDiscoveries,
	ActionRoutePlan:          CounterRoutePlans,
	ActionChatbotQuestion:    CounterChatbotQuestions,
	ActionQuizCorrect:        CounterQuizzesCorrect,
	ActionEasterEggRedeemed:  CounterEasterEggsRedeemed,
	ActionBookingCreated:     CounterBookingsCreated,
	ActionReviewPosted:       CounterReviewsPosted,
	ActionFeedbackSubmitted:  CounterFeedbackSubmitted,
}

var storedCounters = map[Counter]bool{
	CounterCheckIns:             true,
	CounterFaultReports:         true,
	CounterAIValidations:        true,
	CounterBlackSpotDiscoveries: true,
	CounterRoutePlans:           true,
	CounterChatbotQuestions:     true,
	CounterQuizzesCorrect:       true,
	CounterEasterEggsRedeemed:   true,
	CounterBookingsCreated:      true,
	CounterReviewsPosted:        true,
	CounterFeedbackSubmitted:    true,
	CounterItemsPurchased:       true,
}

// KnownActionTypes returns every action type the core understands, sorted.
func KnownActionTypes() []ActionType {
	out := []ActionType{ActionAppLogin}
	for a := range actionCounters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Known reports whether a is part of the closed action set.
func (a ActionType) Known() bool {
	if a == ActionAppLogin {
		return true
	}
	_, ok := actionCounters[a]
	return ok
}

// Counter returns the counter incremented by a, if any.
func (a ActionType) Counter() (Counter, bool) {
	c, ok := actionCounters[a]
	return c, ok
}

// Stored reports whether c is persisted on the profile.
func (c Counter) Stored() bool { return storedCounters[c] }

// Known reports whether criteria may reference c.
func (c Counter) Known() bool {
	return c.Stored() || c == CounterLoginStreakCurrent || c == CounterLoginStreakLongest
}

// ValidateActionCounters checks the action → counter mapping. Run at startup.
func ValidateActionCounters() error {
	seen := make(map[Counter]ActionType, len(actionCounters))
	for a, c := range actionCounters {
		if !c.Stored() {
			return fmt.Errorf("action %q maps to unknown counter %q", a, c)
		}
		if prev, dup := seen[c]; dup {
			return fmt.Errorf("actions %q and %q share counter %q", prev, a, c)
		}
		seen[c] = a
	}
	return nil
}

// ─── Persona ────────────────────────────────────────────────────────────────

// Persona is an informational label derived from a profile's activity.
type Persona string

const (
	PersonaNewcomer Persona = "NEWCOMER"
	PersonaCharger  Persona = "CHARGER"
	PersonaGuardian Persona = "GUARDIAN"
	PersonaExplorer Persona = "EXPLORER"
	PersonaScholar  Persona = "SCHOLAR"
)

// ─── Profile ────────────────────────────────────────────────────────────────

// LoginStreak tracks consecutive UTC calendar days with an app_login.
// LastLoginDate is always midnight UTC.
type LoginStreak struct {
	Current       int        `json:"current"`
	Longest       int        `json:"longest"`
	LastLoginDate *time.Time `json:"lastLoginDate,omitempty"`
}

// Inventory holds owned badge and item ids.
type Inventory struct {
	BadgesEarned []string `json:"badgesEarned"`
	ItemsOwned   []string `json:"itemsOwned"`
}

// Profile is a user's gamification state.
type Profile struct {
	UserID          string            `json:"userId"`
	PointsBalance   int64             `json:"pointsBalance"`
	NetWorth        int64             `json:"netWorth"`
	Persona         Persona           `json:"persona"`
	LoginStreak     LoginStreak       `json:"loginStreak"`
	Counters        map[Counter]int64 `json:"counters"`
	Inventory       Inventory         `json:"inventory"`
	ActiveQuests    []string          `json:"activeQuests"`
	CompletedQuests []string          `json:"completedQuests"`
	Version         int64             `json:"version"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// NewProfile returns the default profile for a first-time user.
func NewProfile(userID string, now time.Time) Profile {
	return Profile{
		UserID:          userID,
		Persona:         PersonaNewcomer,
		Counters:        map[Counter]int64{},
		Inventory:       Inventory{BadgesEarned: []string{}, ItemsOwned: []string{}},
		ActiveQuests:    []string{},
		CompletedQuests: []string{},
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (p Profile) Clone() Profile {
	c := p
	c.Counters = make(map[Counter]int64, len(p.Counters))
	for k, v := range p.Counters {
		c.Counters[k] = v
	}
	if p.LoginStreak.LastLoginDate != nil {
		d := *p.LoginStreak.LastLoginDate
		c.LoginStreak.LastLoginDate = &d
	}
	c.Inventory.BadgesEarned = append([]string{}, p.Inventory.BadgesEarned...)
	c.Inventory.ItemsOwned = append([]string{}, p.Inventory.ItemsOwned...)
	c.ActiveQuests = append([]string{}, p.ActiveQuests...)
	c.CompletedQuests = append([]string{}, p.CompletedQuests...)
	return c
}

// CounterValue reads a stored or derived counter.
func (p *Profile) CounterValue(c Counter) int64 {
	switch c {
	case CounterLoginStreakCurrent:
		return int64(p.LoginStreak.Current)
	case CounterLoginStreakLongest:
		return int64(p.LoginStreak.Longest)
	}
	return p.Counters[c]
}

// Increment adds one to a stored counter.
func (p *Profile) Increment(c Counter) {
	if p.Counters == nil {
		p.Counters = map[Counter]int64{}
	}
	p.Counters[c]++
}

func (p *Profile) HasBadge(id string) bool       { return contains(p.Inventory.BadgesEarned, id) }
func (p *Profile) OwnsItem(id string) bool       { return contains(p.Inventory.ItemsOwned, id) }
func (p *Profile) QuestActive(id string) bool    { return contains(p.ActiveQuests, id) }
func (p *Profile) QuestCompleted(id string) bool { return contains(p.CompletedQuests, id) }

// AddBadge records a badge once. Returns false if it was already owned.
func (p *Profile) AddBadge(id string) bool {
	if p.HasBadge(id) {
		return false
	}
	p.Inventory.BadgesEarned = append(p.Inventory.BadgesEarned, id)
	return true
}

// AddItem records an owned item once.
func (p *Profile) AddItem(id string) bool {
	if p.OwnsItem(id) {
		return false
	}
	p.Inventory.ItemsOwned = append(p.Inventory.ItemsOwned, id)
	return true
}

// TrackQuest marks a quest as in progress.
func (p *Profile) TrackQuest(id string) {
	if !p.QuestActive(id) && !p.QuestCompleted(id) {
		p.ActiveQuests = append(p.ActiveQuests, id)
	}
}

// UntrackQuest drops a quest from the active set.
func (p *Profile) UntrackQuest(id string) {
	p.ActiveQuests = remove(p.ActiveQuests, id)
}

// CompleteQuest moves a quest from active to completed.
func (p *Profile) CompleteQuest(id string) {
	p.ActiveQuests = remove(p.ActiveQuests, id)
	if !p.QuestCompleted(id) {
		p.CompletedQuests = append(p.CompletedQuests, id)
	}
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	UserID   string  `json:"userId"`
	Persona  Persona `json:"persona"`
	NetWorth int64   `json:"netWorth"`
}

func contains(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

func remove(set []string, id string) []string {
	out := make([]string, 0, len(set))
	for _, s := range set {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}
