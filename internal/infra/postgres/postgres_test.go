package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/plugpoint/plugpoint/internal/domain"
)

// newTestStore connects to PLUGPOINT_TEST_POSTGRES_DSN or skips.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PLUGPOINT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PLUGPOINT_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, Options{DSN: dsn, MaxConns: 4})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_BadDSN(t *testing.T) {
	_, err := Open(context.Background(), Options{DSN: "://not a dsn"})
	if err == nil {
		t.Error("Open() with malformed DSN should fail")
	}
}

func TestStore_ProfileLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := "pg-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)

	err := s.Update(ctx, func(tx domain.Tx) error {
		_, err := tx.LoadProfile(ctx, userID)
		if !errors.Is(err, domain.ErrProfileNotFound) {
			t.Errorf("LoadProfile() error = %v, want ErrProfileNotFound", err)
		}
		p := domain.NewProfile(userID, now)
		p.PointsBalance, p.NetWorth = 15, 15
		p.Counters[domain.CounterCheckIns] = 1
		p.AddBadge("first-charge")
		if err := tx.SaveProfile(ctx, &p); err != nil {
			return err
		}
		delta := int64(15)
		return tx.AppendEvents(ctx, []domain.Event{{
			ID: uuid.NewString(), UserID: userID, Kind: domain.EventPointsTransaction, Timestamp: now,
			Details: domain.EventDetails{PointsChange: &delta, Reason: domain.ReasonBaseReward},
		}})
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	var loaded domain.Profile
	err = s.Update(ctx, func(tx domain.Tx) error {
		var err error
		loaded, err = tx.LoadProfile(ctx, userID)
		return err
	})
	if err != nil {
		t.Fatalf("LoadProfile() error: %v", err)
	}
	if loaded.PointsBalance != 15 || loaded.Counters[domain.CounterCheckIns] != 1 || !loaded.HasBadge("first-charge") {
		t.Errorf("loaded = %+v", loaded)
	}

	stale := loaded.Clone()
	stale.Version = 0
	err = s.Update(ctx, func(tx domain.Tx) error { return tx.SaveProfile(ctx, &stale) })
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Errorf("duplicate insert error = %v, want ErrVersionConflict", err)
	}

	events, err := s.ListEvents(ctx, userID, 10)
	if err != nil || len(events) != 1 || events[0].Delta() != 15 {
		t.Errorf("ListEvents() = %+v, %v", events, err)
	}
}
