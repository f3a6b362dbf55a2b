package engagement

import "github.com/plugpoint/plugpoint/internal/domain"

// personaFamilies groups counters by the persona they push towards.
var personaFamilies = []struct {
	persona  domain.Persona
	counters []domain.Counter
}{
	{domain.PersonaCharger, []domain.Counter{domain.CounterCheckIns, domain.CounterBookingsCreated}},
	{domain.PersonaGuardian, []domain.Counter{domain.CounterFaultReports, domain.CounterAIValidations, domain.CounterReviewsPosted, domain.CounterFeedbackSubmitted}},
	{domain.PersonaExplorer, []domain.Counter{domain.CounterBlackSpotDiscoveries, domain.CounterRoutePlans}},
	{domain.PersonaScholar, []domain.Counter{domain.CounterChatbotQuestions, domain.CounterQuizzesCorrect, domain.CounterEasterEggsRedeemed}},
}

// DerivePersona picks the family with the most activity.
// No activity, or a tie at the top, stays NEWCOMER.
func DerivePersona(counters map[domain.Counter]int64) domain.Persona {
	best := domain.PersonaNewcomer
	var bestScore int64
	tie := false

	for _, f := range personaFamilies {
		var score int64
		for _, c := range f.counters {
			score += counters[c]
		}
		switch {
		case score > bestScore:
			best, bestScore, tie = f.persona, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}

	if tie || bestScore == 0 {
		return domain.PersonaNewcomer
	}
	return best
}
