package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RF-YVY/aprswx/internal/config"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(handler *Handler, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler:    handler,
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		// Station routes
		router.Get("/stations", r.handler.GetStations)
		router.Get("/stations/{callsign}", r.handler.GetStationByCallsign)

		// Packet routes: live window and persisted history
		router.Get("/packets", r.handler.GetPackets)
		router.Get("/packets/history", r.handler.GetPacketHistory)

		// Message routes
		router.Get("/messages", r.handler.GetMessages)

		// Channel weather
		router.Get("/weather", r.handler.GetWeather)
		router.Get("/weather/alerts", r.handler.GetWeatherAlerts)

		// Overlay routes
		router.Get("/overlays/radar", r.handler.GetRadarOverlay)
		router.Get("/overlays/lightning", r.handler.GetLightningOverlay)
		router.Get("/overlays/alerts", r.handler.GetAlertsOverlay)

		// Aggregated snapshot for the map client
		router.Get("/overview", r.handler.GetOverview)

		// Settings persistence bridge
		router.Get("/settings", r.handler.GetSettings)
		router.Post("/settings", r.handler.SaveSettings)
		router.Delete("/settings", r.handler.ClearSettings)

		// Channel lifecycle
		router.Post("/channel/connect", r.handler.ConnectChannel)
		router.Post("/channel/disconnect", r.handler.DisconnectChannel)

		// Relay APRS-IS upstream lifecycle
		router.Post("/upstream/connect", r.handler.ConnectUpstream)
		router.Post("/upstream/disconnect", r.handler.DisconnectUpstream)

		// Status and health
		router.Get("/status", r.handler.GetStatus)
		router.Get("/health", r.handler.GetHealth)
		router.Get("/config", r.handler.GetConfig)
	})

	return router
}
