package domain

import "time"

// EventKind classifies a ledger event.
type EventKind string

const (
	EventActionPerformed   EventKind = "ACTION_PERFORMED"
	EventPointsTransaction EventKind = "POINTS_TRANSACTION"
)

// Reason explains a points transaction.
type Reason string

const (
	ReasonBaseReward   Reason = "BASE_REWARD"
	ReasonQuestReward  Reason = "QUEST_REWARD"
	ReasonItemPurchase Reason = "ITEM_PURCHASE"
)

// EventDetails carries the payload of an event.
type EventDetails struct {
	PointsChange *int64         `json:"pointsChange,omitempty"`
	Reason       Reason         `json:"reason,omitempty"`
	ItemID       string         `json:"itemId,omitempty"`
	QuestID      string         `json:"questId,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Event is an append-only ledger record. Events are never updated.
type Event struct {
	ID         string       `json:"eventId"`
	Seq        int64        `json:"seq,omitempty"`
	UserID     string       `json:"userId"`
	SessionID  string       `json:"sessionId,omitempty"`
	Kind       EventKind    `json:"eventType"`
	ActionType ActionType   `json:"actionType,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
	Details    EventDetails `json:"details"`
}

// Delta returns the points change of a transaction event, or 0.
func (e Event) Delta() int64 {
	if e.Details.PointsChange == nil {
		return 0
	}
	return *e.Details.PointsChange
}
