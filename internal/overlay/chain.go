package overlay

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/RF-YVY/aprswx/pkg/logger"
)

// Fetcher is one upstream provider adapter. Fetch performs a single network
// request for the query and returns normalized records, or an error (usually
// a *ProviderError) when the upstream is unusable. A response that parses to
// zero usable records is an error: the chain should fall through to the next
// provider rather than present an empty layer as authoritative.
type Fetcher[T any] interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]T, error)
}

// Generator synthesizes plausible records for the query when every real
// provider has failed. Generated data must stay inside the query bounds.
type Generator[T any] interface {
	Name() string
	Generate(q Query) []T
}

// Chain tries providers in priority order and falls back to the synthetic
// generator on exhaustion. Fetch always resolves; overlay absence must never
// break the map, so provider failures are logged and swallowed here.
type Chain[T any] struct {
	fetchers []Fetcher[T]
	gen      Generator[T]
	logger   *logger.Logger
}

// NewChain creates a fallback chain. The generator must not be nil.
func NewChain[T any](fetchers []Fetcher[T], gen Generator[T], log *logger.Logger) *Chain[T] {
	return &Chain[T]{
		fetchers: fetchers,
		gen:      gen,
		logger:   log.Named("fallback-chain"),
	}
}

// Fetch returns the first successful provider's records tagged with its name,
// or synthetic records tagged "<generator> (Demo)" when all providers fail.
func (c *Chain[T]) Fetch(ctx context.Context, q Query) Result[T] {
	var failures error

	for _, f := range c.fetchers {
		records, err := f.Fetch(ctx, q)
		if err != nil {
			c.logger.Warn("Provider fetch failed, trying next",
				logger.String("provider", f.Name()),
				logger.Error(err))
			failures = multierr.Append(failures, err)
			continue
		}
		c.logger.Debug("Provider fetch succeeded",
			logger.String("provider", f.Name()),
			logger.Int("records", len(records)))
		return Result[T]{
			Source:    f.Name(),
			Records:   records,
			FetchedAt: time.Now().UTC(),
		}
	}

	c.logger.Warn("All providers failed, generating synthetic data",
		logger.String("generator", c.gen.Name()),
		logger.Int("providers_tried", len(c.fetchers)),
		logger.Error(failures))

	return Result[T]{
		Source:    c.gen.Name() + " (Demo)",
		Records:   c.gen.Generate(q),
		Demo:      true,
		FetchedAt: time.Now().UTC(),
	}
}
