package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/RF-YVY/aprswx/internal/overlay"
)

// NWSFetcher reads active alerts from the National Weather Service API
type NWSFetcher struct {
	baseURL string
	client  *overlay.FetchClient
}

// NewNWSFetcher creates the NWS alerts fetcher
func NewNWSFetcher(client *overlay.FetchClient) *NWSFetcher {
	return &NWSFetcher{
		baseURL: "https://api.weather.gov/alerts/active",
		client:  client,
	}
}

// Name identifies the provider in result source tags
func (f *NWSFetcher) Name() string { return "NWS" }

// Fetch requests active alerts near the query center and normalizes the
// GeoJSON feature collection. Individual malformed features are skipped; a
// body with no features collection at all is an upstream format failure. An
// empty features list is a calm day, not an error.
func (f *NWSFetcher) Fetch(ctx context.Context, q overlay.Query) ([]Alert, error) {
	lat, lon := q.Bounds.Center()
	url := fmt.Sprintf("%s?point=%.4f,%.4f", f.baseURL, lat, lon)

	body, err := f.client.Get(ctx, f.Name(), url, map[string]string{
		"Accept": "application/geo+json",
	})
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	features := parsed.Get("features")
	if !features.Exists() {
		return nil, overlay.NewProviderError(f.Name(), "response has no features collection", 0, nil)
	}

	var alerts []Alert
	features.ForEach(func(_, feature gjson.Result) bool {
		props := feature.Get("properties")
		if !props.Exists() {
			return true
		}
		a := Alert{
			ID:          props.Get("id").String(),
			Event:       props.Get("event").String(),
			Headline:    props.Get("headline").String(),
			Description: props.Get("description").String(),
			Severity:    props.Get("severity").String(),
			AreaDesc:    props.Get("areaDesc").String(),
		}
		if a.ID == "" || a.Event == "" {
			return true // unusable feature, keep the rest
		}
		if t, err := time.Parse(time.RFC3339, props.Get("effective").String()); err == nil {
			a.EffectiveAt = t
		}
		if t, err := time.Parse(time.RFC3339, props.Get("expires").String()); err == nil {
			a.ExpiresAt = t
		}
		alerts = append(alerts, a)
		return true
	})

	return alerts, nil
}
