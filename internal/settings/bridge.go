package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/RF-YVY/aprswx/internal/config"
	"github.com/RF-YVY/aprswx/internal/storage/sqlite"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

// LocalStore is the local fallback cache for the settings payload
type LocalStore interface {
	SaveSettings(payload []byte) error
	LoadSettings() (*sqlite.SettingsRecord, error)
	ClearSettings() error
}

// Bridge persists settings to the durable HTTP store with the local sqlite
// cache as fallback. Loads read through to the durable store first; saves
// write the local cache before attempting the durable store, so an outage
// never loses the latest settings.
type Bridge struct {
	client  *http.Client
	baseURL string
	token   string
	local   LocalStore
	logger  *logger.Logger
}

// NewBridge creates a settings bridge
func NewBridge(cfg config.SettingsConfig, local LocalStore, log *logger.Logger) *Bridge {
	return &Bridge{
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		baseURL: cfg.BaseURL,
		token:   cfg.AuthToken,
		local:   local,
		logger:  log.Named("settings"),
	}
}

// loadResponse is the durable store's GET reply
type loadResponse struct {
	Success  bool            `json:"success"`
	Settings json.RawMessage `json:"settings"`
}

// saveResponse is the durable store's POST reply
type saveResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Load returns the user's settings, or nil when none exist anywhere. The
// durable store is tried first; any failure degrades to the local cache.
func (b *Bridge) Load(ctx context.Context) (*Settings, error) {
	s, err := b.loadDurable(ctx)
	if err == nil {
		if s != nil {
			b.refreshLocal(s)
		}
		return s, nil
	}
	b.logger.Warn("Durable settings store unavailable, using local cache", logger.Error(err))

	record, lerr := b.local.LoadSettings()
	if lerr != nil {
		return nil, fmt.Errorf("settings unavailable from both stores: %w", lerr)
	}
	if record == nil {
		return nil, nil
	}

	var s2 Settings
	if uerr := json.Unmarshal(record.Payload, &s2); uerr != nil {
		return nil, fmt.Errorf("failed to decode locally cached settings: %w", uerr)
	}
	return &s2, nil
}

// Save writes the settings locally first, then to the durable store. The
// returned error reflects only the durable outcome; the local write is a
// backstop and its failure is logged, not returned.
func (b *Bridge) Save(ctx context.Context, s *Settings) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if lerr := b.local.SaveSettings(payload); lerr != nil {
		b.logger.Warn("Failed to write local settings cache", logger.Error(lerr))
	}

	return b.saveDurable(ctx, payload)
}

// Clear removes only the local cache
func (b *Bridge) Clear() error {
	return b.local.ClearSettings()
}

func (b *Bridge) loadDurable(ctx context.Context) (*Settings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/settings/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build settings request: %w", err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("settings request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("settings store returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings response: %w", err)
	}

	var lr loadResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("failed to decode settings response: %w", err)
	}
	if !lr.Success {
		return nil, fmt.Errorf("settings store reported failure")
	}
	if len(lr.Settings) == 0 || string(lr.Settings) == "null" {
		return nil, nil
	}

	var s Settings
	if err := json.Unmarshal(lr.Settings, &s); err != nil {
		return nil, fmt.Errorf("failed to decode settings payload: %w", err)
	}
	return &s, nil
}

func (b *Bridge) saveDurable(ctx context.Context, payload []byte) error {
	body, err := json.Marshal(map[string]json.RawMessage{"settings": payload})
	if err != nil {
		return fmt.Errorf("failed to encode settings envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/settings/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build settings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("settings save failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read settings save response: %w", err)
	}

	var sr saveResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return fmt.Errorf("failed to decode settings save response: %w", err)
	}
	if !sr.Success {
		if sr.Error != "" {
			return fmt.Errorf("settings store rejected save: %s", sr.Error)
		}
		return fmt.Errorf("settings store rejected save with status %d", resp.StatusCode)
	}
	return nil
}

// refreshLocal keeps the fallback cache warm after a successful durable load
func (b *Bridge) refreshLocal(s *Settings) {
	payload, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := b.local.SaveSettings(payload); err != nil {
		b.logger.Warn("Failed to refresh local settings cache", logger.Error(err))
	}
}

func (b *Bridge) authorize(req *http.Request) {
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
}
