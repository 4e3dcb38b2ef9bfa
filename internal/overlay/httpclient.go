package overlay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"golang.org/x/time/rate"

	"github.com/RF-YVY/aprswx/pkg/logger"
)

// FetchClient is the shared HTTP helper behind every provider fetcher. It
// applies a local token-bucket throttle so scheduled refreshes cannot hammer
// a rate-limited public upstream, bounds each request with the http.Client
// timeout, and retries transient failures a bounded number of times with
// doubling delay.
type FetchClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	clk        clock.Clock
	logger     *logger.Logger
}

// FetchClientConfig configures a FetchClient
type FetchClientConfig struct {
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
}

// NewFetchClient creates a FetchClient
func NewFetchClient(cfg FetchClientConfig, log *logger.Logger) *FetchClient {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	return &FetchClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		maxRetries: cfg.MaxRetries,
		retryDelay: 500 * time.Millisecond,
		clk:        clock.WallClock,
		logger:     log.Named("fetch-client"),
	}
}

var errThrottled = errors.New("local request budget exhausted")

// Get performs one throttled, retried GET and returns the response body.
// Failures come back as *ProviderError carrying the upstream status where one
// was received.
func (c *FetchClient) Get(ctx context.Context, provider, url string, headers map[string]string) ([]byte, error) {
	if !c.limiter.Allow() {
		// Better to skip a refresh than to burn the upstream's goodwill.
		return nil, NewProviderError(provider, "request throttled locally", 0, errThrottled)
	}

	var body []byte
	err := retry.Call(retry.CallArgs{
		Clock:       c.clk,
		Attempts:    c.maxRetries + 1,
		Delay:       c.retryDelay,
		BackoffFunc: retry.DoubleDelay,
		Stop:        ctx.Done(),
		Func: func() error {
			var err error
			body, err = c.doGet(ctx, provider, url, headers)
			return err
		},
		IsFatalError: func(err error) bool {
			// 4xx responses will not improve on retry
			var pe *ProviderError
			if errors.As(err, &pe) && pe.StatusCode >= 400 && pe.StatusCode < 500 {
				return true
			}
			return false
		},
		NotifyFunc: func(lastError error, attempt int) {
			c.logger.Debug("Retrying provider request",
				logger.String("provider", provider),
				logger.Int("attempt", attempt),
				logger.Error(lastError))
		},
	})
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, NewProviderError(provider, "request failed", 0, err)
	}
	return body, nil
}

func (c *FetchClient) doGet(ctx context.Context, provider, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewProviderError(provider, "failed to create request", 0, err)
	}
	req.Header.Set("User-Agent", "APRSwx/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewProviderError(provider, "failed to execute request", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewProviderError(provider, "unexpected status", resp.StatusCode, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewProviderError(provider, "failed to read response body", 0, err)
	}
	return body, nil
}
