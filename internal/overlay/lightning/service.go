package lightning

import (
	"time"

	"github.com/RF-YVY/aprswx/internal/config"
	"github.com/RF-YVY/aprswx/internal/overlay"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

// Service is the lightning overlay service
type Service = overlay.Service[Strike]

// Known feed endpoints. The placefile mirror refreshes once a minute; the
// delimited feeds refresh continuously, which is why the lightning service
// runs on the shortest interval of the three overlay categories.
const (
	blitzortungPlacefileURL = "https://saratoga-weather.org/USA-blitzortung/placefile-nobCT.txt"
	pipeFeedURL             = "https://data.lightningmaps.org/feeds/strikes.psv"
	csvFeedURL              = "https://data.lightningmaps.org/feeds/strikes.csv"
)

// NewService wires the lightning provider chain into an overlay service
func NewService(cfg config.OverlayConfig, clim config.ClimatologyConfig, queryFn overlay.QueryFunc, log *logger.Logger) *Service {
	client := overlay.NewFetchClient(overlay.FetchClientConfig{
		Timeout:           time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, log.Named("lightning"))

	known := map[string]overlay.Fetcher[Strike]{
		"blitzortung": NewPlacefileFetcher("Blitzortung", blitzortungPlacefileURL, client),
		"pipe":        NewPipeFetcher("LightningMaps", pipeFeedURL, client),
		"csv":         NewCSVFetcher("LightningMaps CSV", csvFeedURL, client),
	}
	defaultOrder := []string{"blitzortung", "pipe", "csv"}

	names := cfg.Providers
	if len(names) == 0 {
		names = defaultOrder
	}
	var fetchers []overlay.Fetcher[Strike]
	for _, name := range names {
		if f, ok := known[name]; ok {
			fetchers = append(fetchers, f)
		} else {
			log.Warn("Unknown lightning provider in config", logger.String("provider", name))
		}
	}

	chain := overlay.NewChain(fetchers, NewSyntheticGenerator(clim), log.Named("lightning"))
	return overlay.NewService(overlay.ServiceConfig{
		Name:            "lightning",
		RefreshInterval: time.Duration(cfg.RefreshIntervalSeconds) * time.Second,
		CacheTTL:        time.Duration(cfg.CacheTTLSeconds) * time.Second,
	}, chain, queryFn, log)
}
