package overlay

import (
	"context"
	"time"

	"github.com/juju/clock"

	"github.com/RF-YVY/aprswx/internal/broadcast"
	"github.com/RF-YVY/aprswx/internal/cache"
	"github.com/RF-YVY/aprswx/internal/scheduler"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

// QueryFunc supplies the query for the next refresh, letting the daemon bind
// overlay fetches to the user's current location and filter distance.
type QueryFunc func() Query

// Service is the common shape of one overlay category: a fallback chain, a
// TTL cache in front of it, a replay broadcaster toward UI consumers, and a
// periodic refresher driving the whole thing. Radar, lightning and alerts are
// each an instance of this with their own providers and intervals.
type Service[T any] struct {
	name      string
	chain     *Chain[T]
	cache     *cache.Cache[Result[T]]
	bcast     *broadcast.Broadcaster[Result[T]]
	refresher *scheduler.Refresher
	queryFn   QueryFunc
	logger    *logger.Logger
}

// ServiceConfig configures an overlay service
type ServiceConfig struct {
	Name            string
	RefreshInterval time.Duration
	CacheTTL        time.Duration
	Clock           clock.Clock // nil means wall clock
}

// NewService creates an overlay service around the given chain
func NewService[T any](cfg ServiceConfig, chain *Chain[T], queryFn QueryFunc, log *logger.Logger) *Service[T] {
	s := &Service[T]{
		name:    cfg.Name,
		chain:   chain,
		cache:   cache.New[Result[T]](cfg.CacheTTL),
		bcast:   broadcast.New[Result[T]](cfg.Name, log),
		queryFn: queryFn,
		logger:  log.Named(cfg.Name + "-svc"),
	}
	s.refresher = scheduler.New(cfg.Name, cfg.RefreshInterval, s.Refresh,
		s.bcast.SubscriberCount, cfg.Clock, log)
	return s
}

// Start begins periodic refreshing
func (s *Service[T]) Start() {
	s.refresher.Start()
}

// Stop halts periodic refreshing. Subscribers stay attached and an in-flight
// refresh may still publish.
func (s *Service[T]) Stop() {
	s.refresher.Stop()
}

// Subscribe attaches a consumer; the last result, if any, is replayed
// immediately.
func (s *Service[T]) Subscribe(fn func(Result[T])) func() {
	return s.bcast.Subscribe(fn)
}

// Latest returns the most recently published result
func (s *Service[T]) Latest() (Result[T], bool) {
	return s.bcast.Last()
}

// CacheStats exposes cache contents for the status endpoint
func (s *Service[T]) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Refresh runs one fetch-and-publish cycle: cache first, then the chain.
// Results land in completion order; the newest publish wins and FetchedAt is
// the staleness authority.
func (s *Service[T]) Refresh(ctx context.Context) {
	q := s.queryFn()
	key := q.CacheKey()

	if res, ok := s.cache.Get(key); ok {
		s.logger.Debug("Serving overlay from cache", logger.String("key", key))
		s.bcast.Publish(res)
		return
	}

	res := s.chain.Fetch(ctx, q)
	s.cache.Set(key, res)
	s.bcast.Publish(res)

	s.logger.Info("Overlay refreshed",
		logger.String("source", res.Source),
		logger.Int("records", len(res.Records)),
		logger.Bool("demo", res.Demo))
}

// Close tears down the broadcaster after stopping the refresher
func (s *Service[T]) Close() {
	s.refresher.Stop()
	s.refresher.Wait()
	s.bcast.Close()
}
