package catalog

import "github.com/plugpoint/plugpoint/internal/domain"

// Defaults returns the built-in catalog seeded on first start.
// Operators replace or extend it with `plugpoint catalog import`.
func Defaults() domain.Catalog {
	threshold := func(c domain.Counter, n int64) domain.Criteria {
		return domain.Criteria{SourceCounter: c, Threshold: n}
	}
	onAction := func(a domain.ActionType) domain.Criteria {
		return domain.Criteria{ActionType: a}
	}

	c := domain.Catalog{
		Items: []domain.CatalogItem{
			{ID: "avatar-spark", Name: "Spark Avatar", CostPoints: domain.Points(50), ValuePoints: 50, Rarity: domain.RarityCommon},
			{ID: "avatar-bolt", Name: "Bolt Avatar", CostPoints: domain.Points(150), ValuePoints: 180, Rarity: domain.RarityRare},
			{ID: "frame-green-grid", Name: "Green Grid Frame", CostPoints: domain.Points(300), ValuePoints: 360, Rarity: domain.RarityRare},
			{ID: "theme-night-drive", Name: "Night Drive Theme", CostPoints: domain.Points(600), ValuePoints: 750, Rarity: domain.RarityEpic},
			{ID: "charger-skin-aurora", Name: "Aurora Charger Skin", CostPoints: domain.Points(1500), ValuePoints: 2000, Rarity: domain.RarityLegendary},
			// Earned only, never sold
			{ID: "pin-founder", Name: "Founder Pin", ValuePoints: 1000, Rarity: domain.RarityLegendary},
		},

		Badges: []domain.Badge{
			// Getting started
			{ID: "first-charge", Name: "First Charge", Status: domain.StatusActive, Criteria: threshold(domain.CounterCheckIns, 1)},
			{ID: "first-report", Name: "Watchful Eye", Status: domain.StatusActive, Criteria: onAction(domain.ActionFaultReport)},
			{ID: "first-review", Name: "Critic", Status: domain.StatusActive, Criteria: onAction(domain.ActionReviewPosted)},
			{ID: "first-booking", Name: "Planner", Status: domain.StatusActive, Criteria: onAction(domain.ActionBookingCreated)},

			// Streaks
			{ID: "streak-7", Name: "Week Warrior", Status: domain.StatusActive, Criteria: threshold(domain.CounterLoginStreakCurrent, 7)},
			{ID: "streak-30", Name: "Monthly Regular", Status: domain.StatusActive, Criteria: threshold(domain.CounterLoginStreakCurrent, 30)},

			// Contribution
			{ID: "charger-10", Name: "Frequent Charger", Status: domain.StatusActive, Criteria: threshold(domain.CounterCheckIns, 10)},
			{ID: "charger-50", Name: "Road Veteran", Status: domain.StatusActive, Criteria: threshold(domain.CounterCheckIns, 50)},
			{ID: "guardian-5", Name: "Network Guardian", Status: domain.StatusActive, Criteria: threshold(domain.CounterFaultReports, 5)},
			{ID: "validator-10", Name: "AI Trainer", Status: domain.StatusActive, Criteria: threshold(domain.CounterAIValidations, 10)},
			{ID: "explorer-3", Name: "Black Spot Hunter", Status: domain.StatusActive, Criteria: threshold(domain.CounterBlackSpotDiscoveries, 3)},

			// Mastery
			{ID: "scholar-10", Name: "Quiz Master", Status: domain.StatusActive, Criteria: threshold(domain.CounterQuizzesCorrect, 10)},
			{ID: "egg-hunter", Name: "Egg Hunter", Status: domain.StatusActive, Criteria: onAction(domain.ActionEasterEggRedeemed)},
			{ID: "collector-3", Name: "Collector", Status: domain.StatusActive, Criteria: threshold(domain.CounterItemsPurchased, 3)},
		},

		Quests: []domain.Quest{
			{
				ID: "quest-check-in-5", Name: "Check in at 5 stations", Status: domain.StatusActive,
				Criteria: threshold(domain.CounterCheckIns, 5),
				Rewards:  domain.QuestRewards{Points: domain.Points(50)},
			},
			{
				ID: "quest-report-3", Name: "Report 3 faults", Status: domain.StatusActive,
				Criteria: threshold(domain.CounterFaultReports, 3),
				Rewards:  domain.QuestRewards{Points: domain.Points(75)},
			},
			{
				ID: "quest-routes-10", Name: "Plan 10 routes", Status: domain.StatusActive,
				Criteria: threshold(domain.CounterRoutePlans, 10),
				Rewards:  domain.QuestRewards{Points: domain.Points(60)},
			},
			{
				ID: "quest-quiz-5", Name: "Answer 5 quizzes correctly", Status: domain.StatusActive,
				Criteria: threshold(domain.CounterQuizzesCorrect, 5),
				Rewards:  domain.QuestRewards{Points: domain.Points(40), BadgeID: "quiz-apprentice"},
			},
			{
				ID: "quest-streak-7", Name: "Open the app 7 days in a row", Status: domain.StatusActive,
				Criteria: threshold(domain.CounterLoginStreakCurrent, 7),
				Rewards:  domain.QuestRewards{Points: domain.Points(100)},
			},
			{
				ID: "quest-feedback", Name: "Send us feedback", Status: domain.StatusActive,
				Criteria: onAction(domain.ActionFeedbackSubmitted),
				Rewards:  domain.QuestRewards{Points: domain.Points(20)},
			},
		},
	}
	c.Sort()
	return c
}
