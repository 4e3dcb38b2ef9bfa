package radar

import (
	"time"

	"github.com/RF-YVY/aprswx/internal/config"
	"github.com/RF-YVY/aprswx/internal/overlay"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

// Service is the radar overlay service
type Service = overlay.Service[Overlay]

// NewService wires the radar provider chain into an overlay service. The
// provider list in cfg selects and orders fetchers by name; an empty list
// takes all known providers in default priority order.
func NewService(cfg config.OverlayConfig, queryFn overlay.QueryFunc, log *logger.Logger) *Service {
	client := overlay.NewFetchClient(overlay.FetchClientConfig{
		Timeout:           time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, log.Named("radar"))

	known := map[string]overlay.Fetcher[Overlay]{
		"mesonet":    NewMesonetFetcher(client),
		"rainviewer": NewRainViewerFetcher(client),
		"ridge":      NewRidgeFetcher(client),
	}
	defaultOrder := []string{"mesonet", "rainviewer", "ridge"}

	names := cfg.Providers
	if len(names) == 0 {
		names = defaultOrder
	}
	var fetchers []overlay.Fetcher[Overlay]
	for _, name := range names {
		if f, ok := known[name]; ok {
			fetchers = append(fetchers, f)
		} else {
			log.Warn("Unknown radar provider in config", logger.String("provider", name))
		}
	}

	chain := overlay.NewChain(fetchers, NewSyntheticGenerator(), log.Named("radar"))
	return overlay.NewService(overlay.ServiceConfig{
		Name:            "radar",
		RefreshInterval: time.Duration(cfg.RefreshIntervalSeconds) * time.Second,
		CacheTTL:        time.Duration(cfg.CacheTTLSeconds) * time.Second,
	}, chain, queryFn, log)
}
