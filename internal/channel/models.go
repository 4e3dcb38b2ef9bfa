package channel

import (
	"encoding/json"
	"time"
)

// ConnectionState is the lifecycle state of the realtime channel. It is owned
// by the Manager; nothing else transitions it.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// Domain is one subscribable data domain on the channel
type Domain string

const (
	DomainStations Domain = "stations"
	DomainPackets  Domain = "packets"
	DomainWeather  Domain = "weather"
	DomainRadar    Domain = "radar"
	DomainMessages Domain = "messages"
)

// Message type discriminators pushed by the relay
const (
	typeInitialStations = "initial_stations"
	typeInitialPackets  = "initial_packets"
	typeInitialWeather  = "initial_weather"
	typeInitialRadar    = "initial_radar"
	typeInitialMessages = "initial_messages"
	typeStationUpdate   = "station_update"
	typePacketUpdate    = "packet_update"
	typeWeatherUpdate   = "weather_update"
	typeWeatherAlert    = "weather_alert"
	typeRadarUpdate     = "radar_update"
	typeMessageUpdate   = "message_update"
	typeUpstreamStatus  = "aprsis_status"
)

// Station is the last-known picture of one station, keyed by callsign.
// Position is nullable; a station heard only via a status packet has none.
type Station struct {
	ID          int64    `json:"id,omitempty"`
	Callsign    string   `json:"callsign"`
	StationType string   `json:"station_type,omitempty"`
	SymbolTable string   `json:"symbol_table,omitempty"`
	SymbolCode  string   `json:"symbol_code,omitempty"`
	EmojiSymbol string   `json:"emoji_symbol,omitempty"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Course      *float64 `json:"course,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`
	Altitude    *float64 `json:"altitude,omitempty"`
	LastComment string   `json:"last_comment,omitempty"`
	LastHeard   string   `json:"last_heard,omitempty"`
	PacketCount int      `json:"packet_count,omitempty"`
}

// Packet is one received transmission, immutable once published
type Packet struct {
	ID             int64           `json:"id,omitempty"`
	SourceCallsign string          `json:"source_callsign"`
	PacketType     string          `json:"packet_type,omitempty"`
	Timestamp      string          `json:"timestamp"`
	RawPacket      string          `json:"raw_packet,omitempty"`
	ParsedData     json.RawMessage `json:"parsed_data,omitempty"`
}

// Message is one APRS text message
type Message struct {
	ID             int64  `json:"id,omitempty"`
	SourceCallsign string `json:"source_callsign"`
	Addressee      string `json:"addressee"`
	MessageText    string `json:"message_text"`
	Timestamp      string `json:"timestamp"`
	IsAck          bool   `json:"is_ack,omitempty"`
	MessageNumber  string `json:"message_number,omitempty"`
}

// WeatherObservation is one station weather reading
type WeatherObservation struct {
	ID              int64    `json:"id,omitempty"`
	StationID       string   `json:"station_id"`
	ObservationTime string   `json:"observation_time"`
	Temperature     *float64 `json:"temperature"`
	Humidity        *float64 `json:"humidity"`
	Pressure        *float64 `json:"pressure"`
	WindSpeed       *float64 `json:"wind_speed"`
	WindDirection   *float64 `json:"wind_direction"`
	Precipitation1H *float64 `json:"precipitation_1h"`
}

// WeatherAlert is a relay-delivered alert with its validity window
type WeatherAlert struct {
	ID          int64  `json:"id,omitempty"`
	AlertID     string `json:"alert_id"`
	AlertType   string `json:"alert_type,omitempty"`
	EventType   string `json:"event_type,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`
	EffectiveAt string `json:"effective_at,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

// Expired reports whether the alert's validity window has passed. Alerts
// without a parsable expiry are treated as non-expiring.
func (a WeatherAlert) Expired(now time.Time) bool {
	if a.ExpiresAt == "" {
		return false
	}
	exp, err := time.Parse(time.RFC3339, a.ExpiresAt)
	if err != nil {
		return false
	}
	return !now.Before(exp)
}

// WeatherSnapshot is the weather domain's merged view
type WeatherSnapshot struct {
	Observations []WeatherObservation `json:"observations"`
	Alerts       []WeatherAlert       `json:"alerts"`
}

// ActiveAlerts returns the alerts whose validity window includes now.
// Expired alerts are filtered here, at read time, not deleted eagerly.
func (s WeatherSnapshot) ActiveAlerts(now time.Time) []WeatherAlert {
	active := make([]WeatherAlert, 0, len(s.Alerts))
	for _, a := range s.Alerts {
		if !a.Expired(now) {
			active = append(active, a)
		}
	}
	return active
}

// RadarSweep is one relay-delivered radar sweep reference
type RadarSweep struct {
	ID             int64   `json:"id,omitempty"`
	SiteID         string  `json:"site_id"`
	ProductCode    string  `json:"product_code,omitempty"`
	SweepTime      string  `json:"sweep_time"`
	ElevationAngle float64 `json:"elevation_angle,omitempty"`
	DataURL        string  `json:"data_url,omitempty"`
}

// UpstreamStatus reports the relay's own APRS-IS connection, which toggles
// independently of this channel being open
type UpstreamStatus struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Credentials parametrize the channel connection
type Credentials struct {
	Callsign string `json:"callsign"`
	SSID     int    `json:"ssid,omitempty"`
	Passcode int    `json:"passcode"`
}

// Filters narrow a domain subscription
type Filters struct {
	DistanceRange  float64  `json:"distanceRange,omitempty"`
	StationTypes   []string `json:"stationTypes,omitempty"`
	EnableWeather  bool     `json:"enableWeather,omitempty"`
	EnableMessages bool     `json:"enableMessages,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
}

// envelope is the wire frame every relay message arrives in
type envelope struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}
