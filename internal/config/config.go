package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level application configuration
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
	Channel     ChannelConfig     `toml:"channel"`
	Settings    SettingsConfig    `toml:"settings"`
	Storage     StorageConfig     `toml:"storage"`
	Radar       OverlayConfig     `toml:"radar"`
	Lightning   OverlayConfig     `toml:"lightning"`
	Alerts      OverlayConfig     `toml:"alerts"`
	Climatology ClimatologyConfig `toml:"climatology"`
}

// ServerConfig holds the local HTTP API configuration
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json, console
}

// ChannelConfig holds realtime channel configuration
type ChannelConfig struct {
	RelayURL              string `toml:"relay_url"`
	HandshakeTimeoutSecs  int    `toml:"handshake_timeout_seconds"`
	ReconnectBaseDelaySec int    `toml:"reconnect_base_delay_seconds"`
	ReconnectMaxDelaySec  int    `toml:"reconnect_max_delay_seconds"`
	PacketWindowSize      int    `toml:"packet_window_size"`
	MessageWindowSize     int    `toml:"message_window_size"`
}

// SettingsConfig holds the durable settings store endpoint configuration
type SettingsConfig struct {
	BaseURL               string `toml:"base_url"`
	AuthToken             string `toml:"auth_token"` // session credential sent as a bearer token
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// StorageConfig holds local sqlite storage configuration
type StorageConfig struct {
	Path            string `toml:"path"`
	PacketRetention int    `toml:"packet_retention"` // max rows kept in packet history
}

// OverlayConfig is the shared per-overlay service configuration
type OverlayConfig struct {
	Enabled                bool     `toml:"enabled"`
	RefreshIntervalSeconds int      `toml:"refresh_interval_seconds"`
	CacheTTLSeconds        int      `toml:"cache_ttl_seconds"`
	RequestTimeoutSeconds  int      `toml:"request_timeout_seconds"`
	MaxRetries             int      `toml:"max_retries"`
	RequestsPerMinute      int      `toml:"requests_per_minute"`
	Providers              []string `toml:"providers"` // priority order; empty means all known
}

// ClimatologyConfig tunes the synthetic lightning generator. The regional,
// seasonal and diurnal weights were hand-tuned in the original heuristics and
// are deliberately exposed as configuration rather than constants.
type ClimatologyConfig struct {
	Hotspots       []Hotspot `toml:"hotspots"`
	PeakMonth      int       `toml:"peak_month"`      // 1-12, month of maximum activity
	PeakHourLocal  int       `toml:"peak_hour_local"` // 0-23, hour of maximum activity
	BaseStrikeRate float64   `toml:"base_strike_rate"`
}

// Hotspot is a region of elevated climatological lightning activity
type Hotspot struct {
	Name      string  `toml:"name"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
	RadiusDeg float64 `toml:"radius_deg"`
	Weight    float64 `toml:"weight"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               8750,
			CORSAllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Channel: ChannelConfig{
			RelayURL:              "ws://localhost:8000/ws/aprs/",
			HandshakeTimeoutSecs:  15,
			ReconnectBaseDelaySec: 2,
			ReconnectMaxDelaySec:  60,
			PacketWindowSize:      500,
			MessageWindowSize:     200,
		},
		Settings: SettingsConfig{
			BaseURL:               "http://localhost:8000/api/websockets",
			RequestTimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			Path:            "aprswx.db",
			PacketRetention: 10000,
		},
		Radar: OverlayConfig{
			Enabled:                true,
			RefreshIntervalSeconds: 300,
			CacheTTLSeconds:        300,
			RequestTimeoutSeconds:  10,
			MaxRetries:             2,
			RequestsPerMinute:      10,
		},
		Lightning: OverlayConfig{
			Enabled:                true,
			RefreshIntervalSeconds: 30,
			CacheTTLSeconds:        300,
			RequestTimeoutSeconds:  10,
			MaxRetries:             2,
			RequestsPerMinute:      30,
		},
		Alerts: OverlayConfig{
			Enabled:                true,
			RefreshIntervalSeconds: 300,
			CacheTTLSeconds:        300,
			RequestTimeoutSeconds:  10,
			MaxRetries:             2,
			RequestsPerMinute:      10,
		},
		Climatology: ClimatologyConfig{
			Hotspots: []Hotspot{
				{Name: "Florida", Latitude: 28.0, Longitude: -81.5, RadiusDeg: 4.0, Weight: 1.0},
				{Name: "Gulf Coast", Latitude: 30.0, Longitude: -90.0, RadiusDeg: 5.0, Weight: 0.8},
				{Name: "Central Plains", Latitude: 38.0, Longitude: -98.0, RadiusDeg: 6.0, Weight: 0.6},
			},
			PeakMonth:      7,
			PeakHourLocal:  17,
			BaseStrikeRate: 0.15,
		},
	}
}

// Load reads configuration from the given TOML file, applying defaults for
// anything the file does not set. A missing file returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Channel.RelayURL == "" {
		return fmt.Errorf("channel relay_url must be set")
	}
	if c.Channel.PacketWindowSize <= 0 {
		return fmt.Errorf("channel packet_window_size must be positive")
	}
	if c.Channel.MessageWindowSize <= 0 {
		return fmt.Errorf("channel message_window_size must be positive")
	}
	for name, oc := range map[string]OverlayConfig{
		"radar":     c.Radar,
		"lightning": c.Lightning,
		"alerts":    c.Alerts,
	} {
		if oc.RefreshIntervalSeconds <= 0 {
			return fmt.Errorf("%s refresh_interval_seconds must be positive", name)
		}
		if oc.CacheTTLSeconds <= 0 {
			return fmt.Errorf("%s cache_ttl_seconds must be positive", name)
		}
	}
	if c.Climatology.PeakMonth < 1 || c.Climatology.PeakMonth > 12 {
		return fmt.Errorf("climatology peak_month must be 1-12, got %d", c.Climatology.PeakMonth)
	}
	if c.Climatology.PeakHourLocal < 0 || c.Climatology.PeakHourLocal > 23 {
		return fmt.Errorf("climatology peak_hour_local must be 0-23, got %d", c.Climatology.PeakHourLocal)
	}
	return nil
}
