package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/RF-YVY/aprswx/pkg/logger"
)

// Task is one fetch-and-publish cycle. The context carries no deadline; the
// task's own networking stack bounds each request.
type Task func(ctx context.Context)

// Refresher drives a Task at a fixed interval. Start runs the task once
// immediately and then on every interval tick. When a subscriber probe is
// configured and reports zero at tick time the tick is skipped; the probe is
// consulted fresh on every tick, so work resumes as soon as subscribers
// reappear. Stop only prevents future ticks: a run already in flight finishes
// and publishes.
type Refresher struct {
	name     string
	interval time.Duration
	task     Task
	probe    func() int // nil means always run
	clk      clock.Clock
	logger   *logger.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
	wg      sync.WaitGroup
}

// New creates a refresher. probe may be nil to refresh unconditionally.
func New(name string, interval time.Duration, task Task, probe func() int, clk clock.Clock, log *logger.Logger) *Refresher {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Refresher{
		name:     name,
		interval: interval,
		task:     task,
		probe:    probe,
		clk:      clk,
		logger:   log.Named("scheduler"),
	}
}

// Start begins the refresh loop. Calling Start on a running refresher is a
// no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	r.mu.Unlock()

	r.logger.Info("Starting refresh loop",
		logger.String("service", r.name),
		logger.Duration("interval", r.interval))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		// Initial fetch happens regardless of subscriber count so the
		// first render has data waiting.
		r.task(context.Background())

		for {
			select {
			case <-stopCh:
				return
			case <-r.clk.After(r.interval):
				if r.probe != nil && r.probe() == 0 {
					r.logger.Debug("Skipping refresh tick, no subscribers",
						logger.String("service", r.name))
					continue
				}
				r.task(context.Background())
			}
		}
	}()
}

// Stop disarms the timer. It is idempotent and does not cancel an in-flight
// run.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.logger.Info("Stopped refresh loop", logger.String("service", r.name))
}

// Wait blocks until the loop goroutine has exited. Used during shutdown.
func (r *Refresher) Wait() {
	r.wg.Wait()
}
