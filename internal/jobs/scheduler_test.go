package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/plugpoint/plugpoint/internal/domain"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(ctx context.Context) (domain.Catalog, error) {
	c.calls.Add(1)
	return domain.Catalog{}, c.err
}

func TestNewScheduler_DefaultSchedule(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, "")
	if s.schedule != DefaultRefreshSchedule {
		t.Errorf("schedule = %q, want %q", s.schedule, DefaultRefreshSchedule)
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, "every now and then")
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("Start() should reject a bad schedule")
	}
}

func TestScheduler_RefreshesCatalog(t *testing.T) {
	r := &countingRefresher{}
	s := NewScheduler(r, "@every 1s")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for r.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if r.calls.Load() == 0 {
		t.Error("catalog was never refreshed")
	}
}

func TestRefreshCatalog_SkipsAfterCancel(t *testing.T) {
	r := &countingRefresher{err: errors.New("db down")}
	s := NewScheduler(r, "")

	s.refreshCatalog(context.Background())
	if r.calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", r.calls.Load())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.refreshCatalog(ctx)
	if r.calls.Load() != 1 {
		t.Errorf("refresh ran after cancel: calls = %d", r.calls.Load())
	}
}
