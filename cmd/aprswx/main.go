package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RF-YVY/aprswx/internal/api"
	"github.com/RF-YVY/aprswx/internal/channel"
	"github.com/RF-YVY/aprswx/internal/config"
	"github.com/RF-YVY/aprswx/internal/overlay"
	"github.com/RF-YVY/aprswx/internal/overlay/alerts"
	"github.com/RF-YVY/aprswx/internal/overlay/lightning"
	"github.com/RF-YVY/aprswx/internal/overlay/radar"
	"github.com/RF-YVY/aprswx/internal/settings"
	"github.com/RF-YVY/aprswx/internal/storage/sqlite"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting aprswx",
		logger.String("relay_url", cfg.Channel.RelayURL),
		logger.String("listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))

	// Local storage
	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		log.Error("Failed to open local database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	store := sqlite.NewStore(db, cfg.Storage.PacketRetention, log)

	// Settings persistence bridge
	bridge := settings.NewBridge(cfg.Settings, store, log)

	// Realtime channel
	manager := channel.NewManager(cfg.Channel, log)
	defer manager.Close()

	// Persist every packet pushed over the channel
	unsubscribe := manager.SubscribePacketStream(func(p channel.Packet) {
		record := &sqlite.PacketRecord{
			SourceCallsign: p.SourceCallsign,
			PacketType:     p.PacketType,
			RawPacket:      p.RawPacket,
			ParsedData:     string(p.ParsedData),
			CreatedAt:      time.Now().UTC(),
		}
		record.Timestamp = record.CreatedAt
		if ts, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
			record.Timestamp = ts
		}
		if _, err := store.StorePacket(record); err != nil {
			log.Warn("Failed to persist packet", logger.Error(err))
		}
	})
	defer unsubscribe()

	// Overlay queries follow the saved station location when one exists
	queryFn := overlayQuery(bridge, log)

	radarSvc := radar.NewService(cfg.Radar, queryFn, log)
	lightningSvc := lightning.NewService(cfg.Lightning, cfg.Climatology, queryFn, log)
	alertsSvc := alerts.NewService(cfg.Alerts, queryFn, log)

	if cfg.Radar.Enabled {
		radarSvc.Start()
		defer radarSvc.Close()
	}
	if cfg.Lightning.Enabled {
		lightningSvc.Start()
		defer lightningSvc.Close()
	}
	if cfg.Alerts.Enabled {
		alertsSvc.Start()
		defer alertsSvc.Close()
	}

	// API server
	handler := api.NewHandler(manager, radarSvc, lightningSvc, alertsSvc, bridge, store, cfg, log)
	router := api.NewRouter(handler, cfg, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Open the channel immediately; filters come from saved settings
	manager.Connect(channel.Credentials{}, channelFilters(bridge, log))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server failed", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", logger.Error(err))
	}
}

// overlayQuery builds the query function shared by the overlay services. The
// bounds track the user's saved location when available, falling back to the
// continental default.
func overlayQuery(bridge *settings.Bridge, log *logger.Logger) overlay.QueryFunc {
	return func() overlay.Query {
		bounds := overlay.ConusBounds

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s, err := bridge.Load(ctx); err == nil && s != nil && s.Location != nil {
			lat, latErr := s.Location.Latitude.Float64()
			lon, lonErr := s.Location.Longitude.Float64()
			if latErr == nil && lonErr == nil {
				bounds = overlay.Bounds{
					South: lat - 2.5,
					West:  lon - 2.5,
					North: lat + 2.5,
					East:  lon + 2.5,
				}
			}
		} else if err != nil {
			log.Debug("Settings unavailable for overlay bounds", logger.Error(err))
		}

		return overlay.Query{
			Bounds:  bounds,
			Product: "N0R",
			Window:  30 * time.Minute,
		}
	}
}

// channelFilters derives the initial channel filters from saved settings
func channelFilters(bridge *settings.Bridge, log *logger.Logger) channel.Filters {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := bridge.Load(ctx)
	if err != nil || s == nil {
		if err != nil {
			log.Debug("Settings unavailable for channel filters", logger.Error(err))
		}
		return channel.Filters{}
	}
	return channel.Filters{
		DistanceRange:  float64(s.APRSISFilters.DistanceRange),
		StationTypes:   s.APRSISFilters.StationTypes,
		EnableWeather:  s.APRSISFilters.EnableWeather,
		EnableMessages: s.APRSISFilters.EnableMessages,
	}
}
