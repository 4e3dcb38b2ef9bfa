package alerts

import (
	"time"

	"github.com/RF-YVY/aprswx/internal/config"
	"github.com/RF-YVY/aprswx/internal/overlay"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

// Service is the severe-weather alert overlay service
type Service = overlay.Service[Alert]

// NewService wires the alert provider chain into an overlay service
func NewService(cfg config.OverlayConfig, queryFn overlay.QueryFunc, log *logger.Logger) *Service {
	client := overlay.NewFetchClient(overlay.FetchClientConfig{
		Timeout:           time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, log.Named("alerts"))

	fetchers := []overlay.Fetcher[Alert]{NewNWSFetcher(client)}

	chain := overlay.NewChain(fetchers, NewSyntheticGenerator(), log.Named("alerts"))
	return overlay.NewService(overlay.ServiceConfig{
		Name:            "alerts",
		RefreshInterval: time.Duration(cfg.RefreshIntervalSeconds) * time.Second,
		CacheTTL:        time.Duration(cfg.CacheTTLSeconds) * time.Second,
	}, chain, queryFn, log)
}
