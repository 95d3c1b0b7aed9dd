package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(ctx context.Context) error {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("refresh must run with a deadline")
	}
	return c.err
}

func TestAddRefresh_InvalidSpec(t *testing.T) {
	s := New()
	if err := s.AddRefresh("every now and then", &countingRefresher{}, time.Second); err == nil {
		t.Error("expected error for invalid spec")
	}
	if s.Len() != 0 {
		t.Errorf("invalid spec must not be scheduled, have %d", s.Len())
	}
}

func TestAddRefresh_Runs(t *testing.T) {
	s := New()
	r := &countingRefresher{}
	if err := s.AddRefresh("@every 1s", r, time.Second); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 job, got %d", s.Len())
	}

	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for r.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if r.calls.Load() == 0 {
		t.Error("refresh never ran")
	}
}

func TestAddRefresh_FailureDoesNotStopSchedule(t *testing.T) {
	s := New()
	r := &countingRefresher{err: errors.New("database down")}
	if err := s.AddRefresh("@every 1s", r, time.Second); err != nil {
		t.Fatal(err)
	}

	s.Start()
	defer s.Stop(context.Background())

	deadline := time.Now().Add(4 * time.Second)
	for r.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if r.calls.Load() < 2 {
		t.Errorf("expected retries after failure, got %d calls", r.calls.Load())
	}
}
