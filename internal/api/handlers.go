package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

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

// ChannelService is the realtime channel surface the API exposes
type ChannelService interface {
	State() channel.ConnectionState
	Upstream() channel.UpstreamStatus
	Stations() []channel.Station
	Packets() []channel.Packet
	Messages() []channel.Message
	Weather() channel.WeatherSnapshot
	Connect(channel.Credentials, channel.Filters)
	Disconnect()
	ConnectUpstream(channel.UpstreamSettings) error
	DisconnectUpstream() error
}

// OverlaySource is one overlay service's read surface
type OverlaySource[T any] interface {
	Latest() (overlay.Result[T], bool)
}

// SettingsBridge is the settings persistence surface the API exposes
type SettingsBridge interface {
	Load(ctx context.Context) (*settings.Settings, error)
	Save(ctx context.Context, s *settings.Settings) error
	Clear() error
}

// PacketStore is the local packet history surface the API exposes
type PacketStore interface {
	RecentPackets(limit int) ([]*sqlite.PacketRecord, error)
	PacketsByCallsign(callsign string, limit int) ([]*sqlite.PacketRecord, error)
	PacketCount() (int64, error)
}

// Handler handles API requests
type Handler struct {
	channel    ChannelService
	radar      OverlaySource[radar.Overlay]
	lightning  OverlaySource[lightning.Strike]
	alerts     OverlaySource[alerts.Alert]
	bridge     SettingsBridge
	store      PacketStore
	aggregator *Aggregator
	config     *config.Config
	logger     *logger.Logger
	started    time.Time
}

// NewHandler creates a new API handler
func NewHandler(
	ch ChannelService,
	radarSvc OverlaySource[radar.Overlay],
	lightningSvc OverlaySource[lightning.Strike],
	alertsSvc OverlaySource[alerts.Alert],
	bridge SettingsBridge,
	store PacketStore,
	cfg *config.Config,
	log *logger.Logger,
) *Handler {
	return &Handler{
		channel:    ch,
		radar:      radarSvc,
		lightning:  lightningSvc,
		alerts:     alertsSvc,
		bridge:     bridge,
		store:      store,
		aggregator: NewAggregator(ch, radarSvc, lightningSvc, alertsSvc, log),
		config:     cfg,
		logger:     log.Named("api-handler"),
		started:    time.Now().UTC(),
	}
}

// respondJSON writes a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

// respondError writes a JSON error response
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// GetStations returns the merged station set
func (h *Handler) GetStations(w http.ResponseWriter, r *http.Request) {
	stations := h.channel.Stations()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(stations),
		"stations": stations,
	})
}

// GetStationByCallsign returns one station
func (h *Handler) GetStationByCallsign(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")
	for _, s := range h.channel.Stations() {
		if s.Callsign == callsign {
			h.respondJSON(w, http.StatusOK, s)
			return
		}
	}
	h.respondError(w, http.StatusNotFound, "station not found")
}

// GetPackets returns the live recent packet window
func (h *Handler) GetPackets(w http.ResponseWriter, r *http.Request) {
	packets := h.channel.Packets()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(packets),
		"packets": packets,
	})
}

// GetPacketHistory returns persisted packets, optionally for one callsign
func (h *Handler) GetPacketHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	callsign := r.URL.Query().Get("callsign")

	var (
		records []*sqlite.PacketRecord
		err     error
	)
	if callsign != "" {
		records, err = h.store.PacketsByCallsign(callsign, limit)
	} else {
		records, err = h.store.RecentPackets(limit)
	}
	if err != nil {
		h.logger.Error("Failed to query packet history", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query packet history")
		return
	}
	if records == nil {
		records = []*sqlite.PacketRecord{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"packets": records,
	})
}

// GetMessages returns the recent message window
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	messages := h.channel.Messages()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(messages),
		"messages": messages,
	})
}

// GetWeather returns the current weather snapshot
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.channel.Weather())
}

// GetWeatherAlerts returns only the unexpired channel weather alerts
func (h *Handler) GetWeatherAlerts(w http.ResponseWriter, r *http.Request) {
	active := h.channel.Weather().ActiveAlerts(time.Now().UTC())
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":  len(active),
		"alerts": active,
	})
}

// GetRadarOverlay returns the latest radar overlay result
func (h *Handler) GetRadarOverlay(w http.ResponseWriter, r *http.Request) {
	result, ok := h.radar.Latest()
	if !ok {
		h.respondError(w, http.StatusServiceUnavailable, "radar overlay not yet available")
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// GetLightningOverlay returns the latest lightning strike result
func (h *Handler) GetLightningOverlay(w http.ResponseWriter, r *http.Request) {
	result, ok := h.lightning.Latest()
	if !ok {
		h.respondError(w, http.StatusServiceUnavailable, "lightning overlay not yet available")
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// GetAlertsOverlay returns the latest fetched alert result
func (h *Handler) GetAlertsOverlay(w http.ResponseWriter, r *http.Request) {
	result, ok := h.alerts.Latest()
	if !ok {
		h.respondError(w, http.StatusServiceUnavailable, "alerts overlay not yet available")
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// GetOverview returns the aggregated situational snapshot
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.aggregator.Overview())
}

// GetStatus returns channel, upstream and storage status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var packetCount int64
	if count, err := h.store.PacketCount(); err == nil {
		packetCount = count
	} else {
		h.logger.Warn("Failed to count stored packets", logger.Error(err))
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"channel_state":  h.channel.State(),
		"upstream":       h.channel.Upstream(),
		"station_count":  len(h.channel.Stations()),
		"stored_packets": packetCount,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// GetHealth returns a liveness response
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSettings loads settings through the persistence bridge
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.bridge.Load(r.Context())
	if err != nil {
		h.logger.Error("Failed to load settings", logger.Error(err))
		h.respondJSON(w, http.StatusOK, map[string]any{"success": false, "settings": nil})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"success": true, "settings": s})
}

// SaveSettings persists settings through the bridge
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Settings *settings.Settings `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Settings == nil {
		h.respondError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}

	if err := h.bridge.Save(r.Context(), body.Settings); err != nil {
		h.logger.Warn("Durable settings save failed, cached locally", logger.Error(err))
		h.respondJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ClearSettings removes the locally cached settings
func (h *Handler) ClearSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.bridge.Clear(); err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to clear local settings")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ConnectChannel opens the realtime channel
func (h *Handler) ConnectChannel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Credentials channel.Credentials `json:"credentials"`
		Filters     channel.Filters     `json:"filters"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid connect payload")
			return
		}
	}
	h.channel.Connect(body.Credentials, body.Filters)
	h.respondJSON(w, http.StatusAccepted, map[string]any{"state": h.channel.State()})
}

// DisconnectChannel deliberately closes the realtime channel
func (h *Handler) DisconnectChannel(w http.ResponseWriter, r *http.Request) {
	h.channel.Disconnect()
	h.respondJSON(w, http.StatusOK, map[string]any{"state": h.channel.State()})
}

// ConnectUpstream asks the relay to open its APRS-IS link
func (h *Handler) ConnectUpstream(w http.ResponseWriter, r *http.Request) {
	var body channel.UpstreamSettings
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid upstream settings payload")
		return
	}
	if err := h.channel.ConnectUpstream(body); err != nil {
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}
	h.respondJSON(w, http.StatusAccepted, map[string]any{"requested": true})
}

// DisconnectUpstream asks the relay to drop its APRS-IS link
func (h *Handler) DisconnectUpstream(w http.ResponseWriter, r *http.Request) {
	if err := h.channel.DisconnectUpstream(); err != nil {
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"requested": true})
}

// GetConfig returns the non-sensitive runtime configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"relay_url":          h.config.Channel.RelayURL,
		"packet_window_size": h.config.Channel.PacketWindowSize,
		"radar_enabled":      h.config.Radar.Enabled,
		"lightning_enabled":  h.config.Lightning.Enabled,
		"alerts_enabled":     h.config.Alerts.Enabled,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
