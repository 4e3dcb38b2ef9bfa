package alerts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RF-YVY/aprswx/internal/overlay"
	"github.com/RF-YVY/aprswx/pkg/logger"
)

func testClient() *overlay.FetchClient {
	return overlay.NewFetchClient(overlay.FetchClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        0,
		RequestsPerMinute: 600,
	}, logger.NewNop())
}

func TestFilterActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		alert Alert
		want  bool
	}{
		{
			name:  "inside window",
			alert: Alert{EffectiveAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)},
			want:  true,
		},
		{
			name:  "expired",
			alert: Alert{EffectiveAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Minute)},
			want:  false,
		},
		{
			name:  "expires exactly now",
			alert: Alert{EffectiveAt: now.Add(-time.Hour), ExpiresAt: now},
			want:  false,
		},
		{
			name:  "not yet effective",
			alert: Alert{EffectiveAt: now.Add(time.Hour), ExpiresAt: now.Add(2 * time.Hour)},
			want:  false,
		},
		{
			name:  "no expiry",
			alert: Alert{EffectiveAt: now.Add(-time.Hour)},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterActive([]Alert{tt.alert}, now)
			if (len(got) == 1) != tt.want {
				t.Errorf("FilterActive() kept=%v, want %v", len(got) == 1, tt.want)
			}
		})
	}
}

func TestNWSFetcherParsesFeatures(t *testing.T) {
	body := `{
		"features": [
			{"properties": {"id": "a1", "event": "Tornado Warning", "headline": "h", "severity": "Extreme",
				"areaDesc": "Cleveland County", "effective": "2025-06-01T11:00:00Z", "expires": "2025-06-01T13:00:00Z"}},
			{"properties": {"event": "missing id, skipped"}},
			{"properties": {"id": "a2", "event": "Flood Advisory", "severity": "Minor",
				"effective": "not a time", "expires": "2025-06-01T18:00:00Z"}}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewNWSFetcher(testClient())
	f.baseURL = srv.URL

	got, err := f.Fetch(context.Background(), overlay.Query{Bounds: overlay.ConusBounds})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Fetch() returned %d alerts, want 2 (bad feature skipped)", len(got))
	}
	if got[0].Event != "Tornado Warning" {
		t.Errorf("Event = %q, want %q", got[0].Event, "Tornado Warning")
	}
	if got[0].ExpiresAt != time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC) {
		t.Errorf("ExpiresAt = %v, want 13:00Z", got[0].ExpiresAt)
	}
	if !got[1].EffectiveAt.IsZero() {
		t.Errorf("unparsable effective time should stay zero, got %v", got[1].EffectiveAt)
	}
}

func TestNWSFetcherEmptyFeedIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features": []}`))
	}))
	defer srv.Close()

	f := NewNWSFetcher(testClient())
	f.baseURL = srv.URL

	got, err := f.Fetch(context.Background(), overlay.Query{Bounds: overlay.ConusBounds})
	if err != nil {
		t.Fatalf("Fetch() error on calm-day response: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Fetch() returned %d alerts, want 0", len(got))
	}
}

func TestNWSFetcherMissingCollectionIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail": "upstream maintenance"}`))
	}))
	defer srv.Close()

	f := NewNWSFetcher(testClient())
	f.baseURL = srv.URL

	if _, err := f.Fetch(context.Background(), overlay.Query{Bounds: overlay.ConusBounds}); err == nil {
		t.Fatalf("Fetch() succeeded on a response without features")
	}
}

func TestNWSFetcherServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewNWSFetcher(testClient())
	f.baseURL = srv.URL

	if _, err := f.Fetch(context.Background(), overlay.Query{Bounds: overlay.ConusBounds}); err == nil {
		t.Fatalf("Fetch() succeeded on HTTP 500")
	}
}

func TestSyntheticStaysInsideBounds(t *testing.T) {
	gen := NewSyntheticGenerator()
	q := overlay.Query{Bounds: overlay.Bounds{South: 33, West: -99, North: 37, East: -94}}

	for i := 0; i < 100; i++ {
		for _, a := range gen.Generate(q) {
			if a.Severity != "Minor" {
				t.Errorf("synthetic alert severity = %q, want Minor", a.Severity)
			}
			if a.ExpiresAt.Before(a.EffectiveAt) {
				t.Errorf("synthetic alert expires before it is effective")
			}
		}
	}
}
