package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNextDelay_Clamping(t *testing.T) {
	s := NewRefreshScheduler(nil, nil, testLogger())

	cases := []struct {
		expiresIn time.Duration
		want      time.Duration
	}{
		{time.Hour, 55 * time.Minute},
		// A token expiring in 2 minutes is already under the 5-minute
		// threshold; the delay clamps to the 10-second floor.
		{2 * time.Minute, 10 * time.Second},
		{0, 10 * time.Second},
		{-time.Minute, 10 * time.Second},
		{5*time.Minute + time.Second, 10 * time.Second},
	}
	for _, tc := range cases {
		if got := s.nextDelay(tc.expiresIn); got != tc.want {
			t.Fatalf("nextDelay(%s) = %s, want %s", tc.expiresIn, got, tc.want)
		}
	}
}

func TestScheduler_FireReschedulesOnSuccess(t *testing.T) {
	var fires int32
	done := make(chan struct{})

	s := NewRefreshScheduler(func(ctx context.Context) (time.Duration, error) {
		if atomic.AddInt32(&fires, 1) == 2 {
			close(done)
		}
		return time.Hour, nil
	}, func() {
		t.Error("expired callback must not fire on success")
	}, testLogger())
	s.threshold = 0
	s.minDelay = time.Millisecond
	defer s.Stop()

	s.Start(time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not reschedule after successful refresh")
	}
}

func TestScheduler_TerminalOnFailure(t *testing.T) {
	var fires int32
	expired := make(chan struct{})

	s := NewRefreshScheduler(func(ctx context.Context) (time.Duration, error) {
		atomic.AddInt32(&fires, 1)
		return 0, context.DeadlineExceeded
	}, func() {
		close(expired)
	}, testLogger())
	s.threshold = 0
	s.minDelay = time.Millisecond
	defer s.Stop()

	s.Start(time.Millisecond)

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expired callback did not fire")
	}

	// Exactly one refresh attempt per tick, no internal retry loop.
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&fires); n != 1 {
		t.Fatalf("refresh fired %d times, want 1", n)
	}
}

func TestScheduler_StopIdempotent(t *testing.T) {
	s := NewRefreshScheduler(func(ctx context.Context) (time.Duration, error) {
		t.Error("refresh must not fire after Stop")
		return 0, nil
	}, func() {}, testLogger())

	s.Start(time.Hour)
	s.Stop()
	s.Stop()
	time.Sleep(20 * time.Millisecond)
}
