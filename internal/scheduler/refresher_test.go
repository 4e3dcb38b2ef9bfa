package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/RF-YVY/aprswx/pkg/logger"
)

const advanceTimeout = 5 * time.Second

func waitRun(t *testing.T, runs <-chan struct{}) {
	t.Helper()
	select {
	case <-runs:
	case <-time.After(advanceTimeout):
		t.Fatalf("timed out waiting for task run")
	}
}

func expectNoRun(t *testing.T, runs <-chan struct{}) {
	t.Helper()
	select {
	case <-runs:
		t.Fatalf("task ran when it should have been skipped")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestImmediateRunAndTicks(t *testing.T) {
	clk := testclock.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	runs := make(chan struct{}, 16)

	r := New("test", 30*time.Second, func(context.Context) {
		runs <- struct{}{}
	}, nil, clk, logger.NewNop())

	r.Start()
	defer func() {
		r.Stop()
		r.Wait()
	}()

	// One immediate run before any tick
	waitRun(t, runs)

	for i := 0; i < 3; i++ {
		if err := clk.WaitAdvance(30*time.Second, advanceTimeout, 1); err != nil {
			t.Fatalf("WaitAdvance: %v", err)
		}
		waitRun(t, runs)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	var count atomic.Int32

	r := New("test", time.Minute, func(context.Context) {
		count.Add(1)
	}, nil, clk, logger.NewNop())

	r.Start()
	r.Start()
	defer func() {
		r.Stop()
		r.Wait()
	}()

	// Give the single loop its immediate run
	deadline := time.Now().Add(advanceTimeout)
	for count.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := count.Load(); got != 1 {
		t.Errorf("immediate run count = %d after double Start, want 1", got)
	}
}

func TestStopIsIdempotentAndDisarms(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	runs := make(chan struct{}, 16)

	r := New("test", time.Minute, func(context.Context) {
		runs <- struct{}{}
	}, nil, clk, logger.NewNop())

	r.Start()
	waitRun(t, runs)

	r.Stop()
	r.Stop()
	r.Wait()

	clk.Advance(5 * time.Minute)
	expectNoRun(t, runs)
}

func TestSkipsTickWithZeroSubscribersAndResumes(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	runs := make(chan struct{}, 16)
	var subscribers atomic.Int32

	r := New("test", time.Minute, func(context.Context) {
		runs <- struct{}{}
	}, func() int { return int(subscribers.Load()) }, clk, logger.NewNop())

	r.Start()
	defer func() {
		r.Stop()
		r.Wait()
	}()

	waitRun(t, runs) // immediate run fires regardless

	// No subscribers: the tick is skipped
	if err := clk.WaitAdvance(time.Minute, advanceTimeout, 1); err != nil {
		t.Fatalf("WaitAdvance: %v", err)
	}
	expectNoRun(t, runs)

	// Subscribers reappear: the very next tick fetches again
	subscribers.Store(1)
	if err := clk.WaitAdvance(time.Minute, advanceTimeout, 1); err != nil {
		t.Fatalf("WaitAdvance: %v", err)
	}
	waitRun(t, runs)
}
