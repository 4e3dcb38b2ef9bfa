package radar

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/RF-YVY/aprswx/internal/overlay"
)

// MesonetFetcher serves bounded radar imagery from the Iowa Environmental
// Mesonet WMS nexrad composite.
type MesonetFetcher struct {
	baseURL string
	client  *overlay.FetchClient
}

// NewMesonetFetcher creates the Iowa Mesonet WMS fetcher
func NewMesonetFetcher(client *overlay.FetchClient) *MesonetFetcher {
	return &MesonetFetcher{
		baseURL: "https://mesonet.agron.iastate.edu/cgi-bin/wms/nexrad/n0r.cgi",
		client:  client,
	}
}

// Name identifies the provider in result source tags
func (f *MesonetFetcher) Name() string { return "Iowa Mesonet WMS" }

// Fetch requests a GetMap render for the query bounds and returns it as one
// image overlay.
func (f *MesonetFetcher) Fetch(ctx context.Context, q overlay.Query) ([]Overlay, error) {
	b := q.Bounds
	params := url.Values{}
	params.Set("SERVICE", "WMS")
	params.Set("VERSION", "1.1.1")
	params.Set("REQUEST", "GetMap")
	params.Set("LAYERS", "nexrad-n0r")
	params.Set("STYLES", "")
	params.Set("SRS", "EPSG:4326")
	params.Set("BBOX", fmt.Sprintf("%f,%f,%f,%f", b.West, b.South, b.East, b.North))
	params.Set("WIDTH", "512")
	params.Set("HEIGHT", "512")
	params.Set("FORMAT", "image/png")
	params.Set("TRANSPARENT", "true")
	mapURL := f.baseURL + "?" + params.Encode()

	body, err := f.client.Get(ctx, f.Name(), mapURL, nil)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, overlay.NewProviderError(f.Name(), "empty image response", 0, nil)
	}

	return []Overlay{{
		Product:   q.Product,
		Timestamp: time.Now().UTC(),
		Bounds:    b,
		ImageURL:  mapURL,
	}}, nil
}

// RidgeFetcher serves the NWS Ridge II national composite. Coverage is CONUS
// only, so its result bounds ignore the query's box.
type RidgeFetcher struct {
	imageURL string
	client   *overlay.FetchClient
}

// NewRidgeFetcher creates the NWS Ridge fetcher
func NewRidgeFetcher(client *overlay.FetchClient) *RidgeFetcher {
	return &RidgeFetcher{
		imageURL: "https://radar.weather.gov/ridge/standard/CONUS_0.gif",
		client:   client,
	}
}

// Name identifies the provider in result source tags
func (f *RidgeFetcher) Name() string { return "NWS Ridge" }

// Fetch verifies the national composite is being served and returns it
func (f *RidgeFetcher) Fetch(ctx context.Context, q overlay.Query) ([]Overlay, error) {
	body, err := f.client.Get(ctx, f.Name(), f.imageURL, nil)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, overlay.NewProviderError(f.Name(), "empty image response", 0, nil)
	}

	return []Overlay{{
		Product:   q.Product,
		Timestamp: time.Now().UTC(),
		Bounds:    overlay.ConusBounds,
		ImageURL:  f.imageURL,
	}}, nil
}

// RainViewerFetcher reads the RainViewer public frame index and points the
// map at the newest composite frame centered on the query.
type RainViewerFetcher struct {
	indexURL string
	client   *overlay.FetchClient
}

// NewRainViewerFetcher creates the RainViewer fetcher
func NewRainViewerFetcher(client *overlay.FetchClient) *RainViewerFetcher {
	return &RainViewerFetcher{
		indexURL: "https://api.rainviewer.com/public/weather-maps.json",
		client:   client,
	}
}

// Name identifies the provider in result source tags
func (f *RainViewerFetcher) Name() string { return "RainViewer" }

// Fetch parses the frame index, which is loosely structured JSON, and builds
// the positioned frame URL for the newest past frame.
func (f *RainViewerFetcher) Fetch(ctx context.Context, q overlay.Query) ([]Overlay, error) {
	body, err := f.client.Get(ctx, f.Name(), f.indexURL, nil)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	host := parsed.Get("host").String()
	frames := parsed.Get("radar.past").Array()
	if host == "" || len(frames) == 0 {
		return nil, overlay.NewProviderError(f.Name(), "no frames in index", 0, nil)
	}

	newest := frames[len(frames)-1]
	path := newest.Get("path").String()
	ts := newest.Get("time").Int()
	if path == "" || ts == 0 {
		return nil, overlay.NewProviderError(f.Name(), "malformed frame entry", 0, nil)
	}

	lat, lon := q.Bounds.Center()
	frameURL := fmt.Sprintf("%s%s/512/6/%.4f/%.4f/2/1_1.png", host, path, lat, lon)

	return []Overlay{{
		Product:   q.Product,
		Timestamp: time.Unix(ts, 0).UTC(),
		Bounds:    q.Bounds,
		ImageURL:  frameURL,
	}}, nil
}
