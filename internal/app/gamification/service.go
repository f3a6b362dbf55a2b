// Package gamification is the PlugPoint orchestrator. Each call loads or
// creates the user's profile, applies the streak tracker and rule engine or
// the purchase transactor, and persists the profile together with its ledger
// events in one store transaction under a per-user lock.
package gamification

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/plugpoint/plugpoint/internal/app/engagement"
	"github.com/plugpoint/plugpoint/internal/app/shop"
	"github.com/plugpoint/plugpoint/internal/domain"
	"github.com/plugpoint/plugpoint/internal/infra/metrics"
)

// Leaderboard and event listing limits.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// LogActionInput is one reported user action.
type LogActionInput struct {
	UserID     string            `json:"userId"`
	ActionType domain.ActionType `json:"actionType"`
	SessionID  string            `json:"sessionId,omitempty"`
	Details    map[string]any    `json:"details,omitempty"`
}

// PurchaseInput is a request to buy a catalog item.
type PurchaseInput struct {
	UserID    string `json:"userId"`
	ItemID    string `json:"itemId"`
	SessionID string `json:"sessionId,omitempty"`
}

// PurchaseResult is returned by a successful purchase.
type PurchaseResult struct {
	NewBalance int64          `json:"newBalance"`
	Profile    domain.Profile `json:"profile"`
}

// Service coordinates the gamification core.
type Service struct {
	store   domain.ProfileStore
	catalog domain.CatalogSource
	rules   *engagement.Rules
	shop    *shop.Transactor
	locks   *userLocks
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the orchestrator. A nil rules uses the default reward table.
func NewService(store domain.ProfileStore, catalog domain.CatalogSource, rules *engagement.Rules, opts ...Option) *Service {
	if rules == nil {
		rules = engagement.NewRules(nil)
	}
	s := &Service{
		store:   store,
		catalog: catalog,
		rules:   rules,
		shop:    shop.NewTransactor(),
		locks:   newUserLocks(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─── Operations ─────────────────────────────────────────────────────────────

// LogAction records an action and applies every reward it earns.
func (s *Service) LogAction(ctx context.Context, in LogActionInput) (domain.Profile, error) {
	defer observe("log_action", time.Now())

	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return domain.Profile{}, domain.Validationf("userId is required")
	}
	action := domain.ActionType(strings.TrimSpace(string(in.ActionType)))
	if action == "" {
		return domain.Profile{}, domain.Validationf("actionType is required")
	}

	cat, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return domain.Profile{}, domain.StorageError("catalog snapshot", err)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.now().UTC()
	var (
		saved domain.Profile
		out   engagement.Outcome
	)
	err = s.store.Update(ctx, func(tx domain.Tx) error {
		p, err := loadOrCreate(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		if action == domain.ActionAppLogin {
			p.LoginStreak = engagement.AdvanceLoginStreak(p.LoginStreak, now)
		}

		out = s.rules.Apply(&p, engagement.Action{
			UserID:    userID,
			SessionID: in.SessionID,
			Type:      action,
			Details:   in.Details,
		}, cat, now)
		p.UpdatedAt = now

		if err := tx.SaveProfile(ctx, &p); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, out.Events); err != nil {
			return err
		}
		saved = p
		return nil
	})
	if err != nil {
		return domain.Profile{}, s.fail("log action", userID, err)
	}

	metrics.ActionsLogged.WithLabelValues(actionLabel(action)).Inc()
	for _, ev := range out.Events {
		if d := ev.Delta(); d != 0 {
			metrics.PointsChanged.WithLabelValues(string(ev.Details.Reason)).Add(float64(d))
		}
	}
	metrics.BadgesEarned.Add(float64(len(out.BadgesEarned)))
	metrics.QuestsCompleted.Add(float64(len(out.QuestsCompleted)))

	fields := log.Fields{
		"user_id": userID,
		"action":  action,
		"points":  out.PointsAwarded,
		"balance": saved.PointsBalance,
	}
	if !action.Known() {
		log.WithFields(fields).Warn("unknown action type logged without reward")
	} else {
		log.WithFields(fields).Info("action logged")
	}
	for _, b := range out.BadgesEarned {
		log.WithFields(log.Fields{"user_id": userID, "badge_id": b}).Info("badge earned")
	}
	for _, q := range out.QuestsCompleted {
		log.WithFields(log.Fields{"user_id": userID, "quest_id": q}).Info("quest completed")
	}
	return saved, nil
}

// PurchaseVirtualItem buys a catalog item with points.
func (s *Service) PurchaseVirtualItem(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	defer observe("purchase", time.Now())

	userID := strings.TrimSpace(in.UserID)
	itemID := strings.TrimSpace(in.ItemID)
	if userID == "" {
		return PurchaseResult{}, domain.Validationf("userId is required")
	}
	if itemID == "" {
		return PurchaseResult{}, domain.Validationf("itemId is required")
	}

	cat, err := s.catalog.Snapshot(ctx)
	if err != nil {
		metrics.Purchases.WithLabelValues("error").Inc()
		return PurchaseResult{}, domain.StorageError("catalog snapshot", err)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.now().UTC()
	var receipt shop.Receipt
	err = s.store.Update(ctx, func(tx domain.Tx) error {
		p, err := loadOrCreate(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		receipt, err = s.shop.Purchase(p, cat, itemID, in.SessionID, now)
		if err != nil {
			return err
		}
		receipt.Profile.UpdatedAt = now
		if err := tx.SaveProfile(ctx, &receipt.Profile); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, []domain.Event{receipt.Event})
	})
	if err != nil {
		metrics.Purchases.WithLabelValues(purchaseResult(err)).Inc()
		return PurchaseResult{}, s.fail("purchase", userID, err)
	}

	metrics.Purchases.WithLabelValues("ok").Inc()
	metrics.PointsChanged.WithLabelValues(string(domain.ReasonItemPurchase)).Add(float64(*receipt.Item.CostPoints))
	log.WithFields(log.Fields{
		"user_id": userID,
		"item_id": itemID,
		"cost":    *receipt.Item.CostPoints,
		"balance": receipt.NewBalance,
	}).Info("item purchased")

	return PurchaseResult{NewBalance: receipt.NewBalance, Profile: receipt.Profile}, nil
}

// GetProfile returns the user's profile, creating the default one if absent.
func (s *Service) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	defer observe("get_profile", time.Now())

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Profile{}, domain.Validationf("userId is required")
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.now().UTC()
	var p domain.Profile
	err := s.store.Update(ctx, func(tx domain.Tx) error {
		var err error
		p, err = tx.LoadProfile(ctx, userID)
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return err
		}
		p = domain.NewProfile(userID, now)
		if err := tx.SaveProfile(ctx, &p); err != nil {
			return err
		}
		log.WithField("user_id", userID).Info("profile created")
		return nil
	})
	if err != nil {
		return domain.Profile{}, s.fail("get profile", userID, err)
	}
	return p, nil
}

// GetLeaderboard returns the top profiles by net worth.
// limit <= 0 uses DefaultLimit; values above MaxLimit are capped.
func (s *Service) GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	defer observe("leaderboard", time.Now())

	entries, err := s.store.Leaderboard(ctx, clampLimit(limit))
	if err != nil {
		return nil, s.fail("leaderboard", "", err)
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return entries, nil
}

// ListEvents returns the user's most recent events, newest first.
func (s *Service) ListEvents(ctx context.Context, userID string, limit int) ([]domain.Event, error) {
	defer observe("list_events", time.Now())

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.Validationf("userId is required")
	}
	events, err := s.store.ListEvents(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, s.fail("list events", userID, err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func loadOrCreate(ctx context.Context, tx domain.Tx, userID string, now time.Time) (domain.Profile, error) {
	p, err := tx.LoadProfile(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return domain.NewProfile(userID, now), nil
	}
	return p, err
}

// fail classifies err, records conflicts and logs store failures.
func (s *Service) fail(op, userID string, err error) error {
	err = domain.StorageError(op, err)
	switch domain.KindOf(err) {
	case domain.ErrConflict:
		metrics.ProfileConflicts.Inc()
		log.WithFields(log.Fields{"op": op, "user_id": userID}).Warn("profile version conflict")
	case domain.ErrStorage:
		log.WithFields(log.Fields{"op": op, "user_id": userID}).WithError(err).Error("store failure")
	}
	return err
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// actionLabel keeps metric cardinality bounded to the known action set.
func actionLabel(a domain.ActionType) string {
	if a.Known() {
		return string(a)
	}
	return "unknown"
}

func purchaseResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotPurchasable):
		return "not_purchasable"
	case errors.Is(err, domain.ErrAlreadyOwned):
		return "already_owned"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	}
	return "error"
}

func observe(op string, start time.Time) {
	metrics.OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
