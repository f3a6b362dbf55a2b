// Package shop implements the virtual item purchase transactor.
// A purchase debits the points balance, adjusts net worth by the item's
// value minus its cost, and writes exactly one ITEM_PURCHASE transaction.
package shop

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// Receipt is the result of a successful purchase.
type Receipt struct {
	Profile    domain.Profile
	Item       domain.CatalogItem
	Event      domain.Event
	NewBalance int64
}

// Transactor validates and applies purchases against a catalog snapshot.
type Transactor struct {
	newID func() string
}

// NewTransactor creates a purchase transactor.
func NewTransactor() *Transactor {
	return &Transactor{newID: uuid.NewString}
}

// Purchase buys itemID for p. p itself is never modified; the receipt
// carries the updated copy. Checks run in order and the first failure wins:
// unknown item, no price, already owned, balance too low.
func (t *Transactor) Purchase(p domain.Profile, cat domain.Catalog, itemID, sessionID string, now time.Time) (Receipt, error) {
	item, ok := cat.Item(itemID)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %q", domain.ErrItemNotFound, itemID)
	}
	if !item.Purchasable() {
		return Receipt{}, fmt.Errorf("%w: %q", domain.ErrNotPurchasable, itemID)
	}
	if p.OwnsItem(itemID) {
		return Receipt{}, fmt.Errorf("%w: %q", domain.ErrAlreadyOwned, itemID)
	}
	cost := *item.CostPoints
	if p.PointsBalance < cost {
		return Receipt{}, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientFunds, p.PointsBalance, cost)
	}

	next := p.Clone()
	next.PointsBalance -= cost
	next.NetWorth += item.ValuePoints - cost
	next.AddItem(itemID)
	next.Increment(domain.CounterItemsPurchased)

	delta := -cost
	ev := domain.Event{
		ID:        t.newID(),
		UserID:    p.UserID,
		SessionID: sessionID,
		Kind:      domain.EventPointsTransaction,
		Timestamp: now,
		Details: domain.EventDetails{
			PointsChange: &delta,
			Reason:       domain.ReasonItemPurchase,
			ItemID:       itemID,
		},
	}

	return Receipt{Profile: next, Item: item, Event: ev, NewBalance: next.PointsBalance}, nil
}
