package engagement

import (
	"fmt"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// DefaultBaseRewards is the points table applied before badges and quests.
var DefaultBaseRewards = map[domain.ActionType]int64{
	domain.ActionAppLogin:           5,
	domain.ActionCheckIn:            10,
	domain.ActionFaultReport:        20,
	domain.ActionAIValidation:       15,
	domain.ActionBlackSpotDiscovery: 25,
	domain.ActionRoutePlan:          5,
	domain.ActionChatbotQuestion:    2,
	domain.ActionQuizCorrect:        10,
	domain.ActionEasterEggRedeemed:  50,
	domain.ActionBookingCreated:     10,
	domain.ActionReviewPosted:       15,
	domain.ActionFeedbackSubmitted:  5,
}

// RewardTable maps action types to base points.
type RewardTable map[domain.ActionType]int64

// NewRewardTable merges operator overrides over the defaults.
// Overrides must name known action types and be non-negative.
func NewRewardTable(overrides map[string]int64) (RewardTable, error) {
	t := make(RewardTable, len(DefaultBaseRewards))
	for a, p := range DefaultBaseRewards {
		t[a] = p
	}
	for name, p := range overrides {
		a := domain.ActionType(name)
		if !a.Known() {
			return nil, fmt.Errorf("base reward for unknown action type %q", name)
		}
		if p < 0 {
			return nil, fmt.Errorf("base reward for %q is negative: %d", name, p)
		}
		t[a] = p
	}
	return t, nil
}

// Points returns the base reward for a. Unknown actions earn nothing.
func (t RewardTable) Points(a domain.ActionType) int64 {
	return t[a]
}
