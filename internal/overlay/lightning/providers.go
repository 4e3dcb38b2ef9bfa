package lightning

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/RF-YVY/aprswx/internal/overlay"
)

// PlacefileFetcher reads a legacy placefile strike feed (tagged Object:/Icon:
// lines). These mirrors republish Blitzortung community data.
type PlacefileFetcher struct {
	name   string
	url    string
	client *overlay.FetchClient
}

// NewPlacefileFetcher creates a placefile strike fetcher
func NewPlacefileFetcher(name, url string, client *overlay.FetchClient) *PlacefileFetcher {
	return &PlacefileFetcher{name: name, url: url, client: client}
}

// Name identifies the provider in result source tags
func (f *PlacefileFetcher) Name() string { return f.name }

// Fetch downloads and parses the placefile. A feed that parses to zero marks
// is an upstream failure; a feed with marks but none inside the query bounds
// is a legitimately quiet result.
func (f *PlacefileFetcher) Fetch(ctx context.Context, q overlay.Query) ([]Strike, error) {
	body, err := f.client.Get(ctx, f.name, f.url, nil)
	if err != nil {
		return nil, err
	}

	marks := overlay.ParsePlacefile(string(body))
	if len(marks) == 0 {
		return nil, overlay.NewProviderError(f.name, "feed parsed to zero records", 0, nil)
	}

	now := time.Now().UTC()
	strikes := make([]Strike, 0, len(marks))
	for _, m := range marks {
		if !q.Bounds.Contains(m.Latitude, m.Longitude) {
			continue
		}
		strikes = append(strikes, Strike{
			Time:      now,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		})
	}
	return strikes, nil
}

// DelimitedFetcher reads a line-per-strike feed. Two historical formats use
// the same field order with different separators:
//
//	pipe:  1717245600|35.22|-97.44|−18.3
//	comma: 1717245600,35.22,-97.44,-18.3
//
// Fields are unix time, latitude, longitude and optional amplitude in kA.
type DelimitedFetcher struct {
	name   string
	url    string
	sep    string
	client *overlay.FetchClient
}

// NewPipeFetcher creates a fetcher for the pipe-delimited feed format
func NewPipeFetcher(name, url string, client *overlay.FetchClient) *DelimitedFetcher {
	return &DelimitedFetcher{name: name, url: url, sep: "|", client: client}
}

// NewCSVFetcher creates a fetcher for the comma-delimited feed format
func NewCSVFetcher(name, url string, client *overlay.FetchClient) *DelimitedFetcher {
	return &DelimitedFetcher{name: name, url: url, sep: ",", client: client}
}

// Name identifies the provider in result source tags
func (f *DelimitedFetcher) Name() string { return f.name }

// Fetch downloads and parses the feed, dropping malformed lines
func (f *DelimitedFetcher) Fetch(ctx context.Context, q overlay.Query) ([]Strike, error) {
	body, err := f.client.Get(ctx, f.name, f.url, nil)
	if err != nil {
		return nil, err
	}

	parsed := ParseDelimited(string(body), f.sep)
	if len(parsed) == 0 {
		return nil, overlay.NewProviderError(f.name, "feed parsed to zero records", 0, nil)
	}

	cutoff := time.Time{}
	if q.Window > 0 {
		cutoff = time.Now().UTC().Add(-q.Window)
	}
	strikes := make([]Strike, 0, len(parsed))
	for _, s := range parsed {
		if !q.Bounds.Contains(s.Latitude, s.Longitude) {
			continue
		}
		if !cutoff.IsZero() && s.Time.Before(cutoff) {
			continue
		}
		strikes = append(strikes, s)
	}
	return strikes, nil
}

// ParseDelimited parses a delimited strike feed, one strike per line. A line
// that fails to parse is skipped; it must not discard the rest of the feed.
func ParseDelimited(body, sep string) []Strike {
	var strikes []Strike
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, sep)
		if len(fields) < 3 {
			continue
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil || lat < -90 || lat > 90 {
			continue
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil || lon < -180 || lon > 180 {
			continue
		}

		strike := Strike{
			Time:      time.Unix(ts, 0).UTC(),
			Latitude:  lat,
			Longitude: lon,
		}
		// Amplitude is optional; a bad value just means unknown
		if len(fields) >= 4 {
			if amp, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64); err == nil {
				strike.AmplitudeKA = amp
			}
		}
		strikes = append(strikes, strike)
	}
	return strikes
}
