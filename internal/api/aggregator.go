package api

import (
	"time"

	"github.com/RF-YVY/aprswx/internal/channel"
	"github.com/RF-YVY/aprswx/internal/overlay/alerts"
	"github.com/RF-YVY/aprswx/internal/overlay/lightning"
	"github.com/RF-YVY/aprswx/internal/overlay/radar"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

// Overview is the aggregated situational snapshot for the map client. Each
// section degrades independently; a missing overlay never blanks the rest.
type Overview struct {
	Timestamp    time.Time               `json:"timestamp"`
	ChannelState channel.ConnectionState `json:"channel_state"`
	Upstream     channel.UpstreamStatus  `json:"upstream"`
	StationCount int                     `json:"station_count"`
	Stations     []channel.Station       `json:"stations"`
	ActiveAlerts []channel.WeatherAlert  `json:"active_alerts"`
	Radar        *OverlaySummary         `json:"radar,omitempty"`
	Lightning    *OverlaySummary         `json:"lightning,omitempty"`
	Alerts       *OverlaySummary         `json:"alerts,omitempty"`
}

// OverlaySummary condenses one overlay result for the overview
type OverlaySummary struct {
	Source      string    `json:"source"`
	Demo        bool      `json:"demo"`
	RecordCount int       `json:"record_count"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Aggregator collects current channel and overlay data into one snapshot
type Aggregator struct {
	channel   ChannelService
	radar     OverlaySource[radar.Overlay]
	lightning OverlaySource[lightning.Strike]
	alerts    OverlaySource[alerts.Alert]
	logger    *logger.Logger

	// maxStations bounds the station list embedded in the overview
	maxStations int
}

// NewAggregator creates a new overview aggregator
func NewAggregator(
	ch ChannelService,
	radarSvc OverlaySource[radar.Overlay],
	lightningSvc OverlaySource[lightning.Strike],
	alertsSvc OverlaySource[alerts.Alert],
	log *logger.Logger,
) *Aggregator {
	return &Aggregator{
		channel:     ch,
		radar:       radarSvc,
		lightning:   lightningSvc,
		alerts:      alertsSvc,
		logger:      log.Named("aggregator"),
		maxStations: 250,
	}
}

// Overview assembles the current snapshot
func (a *Aggregator) Overview() *Overview {
	now := time.Now().UTC()

	stations := a.channel.Stations()
	ov := &Overview{
		Timestamp:    now,
		ChannelState: a.channel.State(),
		Upstream:     a.channel.Upstream(),
		StationCount: len(stations),
	}

	if len(stations) > a.maxStations {
		stations = stations[:a.maxStations]
	}
	ov.Stations = stations

	ov.ActiveAlerts = a.channel.Weather().ActiveAlerts(now)
	if ov.ActiveAlerts == nil {
		ov.ActiveAlerts = []channel.WeatherAlert{}
	}

	ov.Radar = summarize(a.radar)
	ov.Lightning = summarize(a.lightning)
	ov.Alerts = summarize(a.alerts)

	a.logger.Debug("Overview aggregated",
		logger.Int("station_count", ov.StationCount),
		logger.Int("active_alerts", len(ov.ActiveAlerts)))

	return ov
}

// summarize condenses the latest result of one overlay, nil when none exists
func summarize[T any](src OverlaySource[T]) *OverlaySummary {
	result, ok := src.Latest()
	if !ok {
		return nil
	}
	return &OverlaySummary{
		Source:      result.Source,
		Demo:        result.Demo,
		RecordCount: len(result.Records),
		FetchedAt:   result.FetchedAt,
	}
}
