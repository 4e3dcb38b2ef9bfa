package overlay

import (
	"context"
	"errors"
	"testing"

	"github.com/RF-YVY/aprswx/pkg/logger"
)

type point struct {
	Lat, Lon float64
}

type stubFetcher struct {
	name    string
	records []point
	err     error
	calls   int
}

func (f *stubFetcher) Name() string { return f.name }

func (f *stubFetcher) Fetch(ctx context.Context, q Query) ([]point, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type boundedGenerator struct{}

func (boundedGenerator) Name() string { return "Synthetic" }

func (boundedGenerator) Generate(q Query) []point {
	lat, lon := q.Bounds.Center()
	return []point{{Lat: lat, Lon: lon}, {Lat: q.Bounds.South, Lon: q.Bounds.West}}
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	failing := &stubFetcher{name: "Primary", err: NewProviderError("Primary", "unexpected status", 503, nil)}
	working := &stubFetcher{name: "Secondary", records: []point{{Lat: 40, Lon: -100}}}
	skipped := &stubFetcher{name: "Tertiary", records: []point{{Lat: 1, Lon: 1}}}

	chain := NewChain([]Fetcher[point]{failing, working, skipped}, boundedGenerator{}, logger.NewNop())
	res := chain.Fetch(context.Background(), Query{Bounds: ConusBounds, Product: "reflectivity"})

	if res.Source != "Secondary" {
		t.Errorf("Source = %q, want %q", res.Source, "Secondary")
	}
	if res.Demo {
		t.Errorf("Demo = true for a real provider result")
	}
	if len(res.Records) != 1 {
		t.Errorf("got %d records, want 1", len(res.Records))
	}
	if skipped.calls != 0 {
		t.Errorf("lower-priority provider was called %d times after a success", skipped.calls)
	}
}

func TestChainNeverRejects(t *testing.T) {
	q := Query{
		Bounds:  Bounds{South: 35, West: -100, North: 40, East: -95},
		Product: "strikes",
	}
	fetchers := []Fetcher[point]{
		&stubFetcher{name: "A", err: errors.New("connection refused")},
		&stubFetcher{name: "B", err: NewProviderError("B", "unexpected status", 500, nil)},
		&stubFetcher{name: "C", err: NewProviderError("C", "empty feed", 0, nil)},
	}

	chain := NewChain(fetchers, boundedGenerator{}, logger.NewNop())
	res := chain.Fetch(context.Background(), q)

	if !res.Demo {
		t.Fatalf("Demo = false after exhausting all providers")
	}
	if res.Source != "Synthetic (Demo)" {
		t.Errorf("Source = %q, want %q", res.Source, "Synthetic (Demo)")
	}
	for i, p := range res.Records {
		if !q.Bounds.Contains(p.Lat, p.Lon) {
			t.Errorf("record %d at (%.2f, %.2f) outside requested bounds", i, p.Lat, p.Lon)
		}
	}
}

func TestChainWithNoFetchersGoesStraightToGenerator(t *testing.T) {
	chain := NewChain(nil, boundedGenerator{}, logger.NewNop())
	res := chain.Fetch(context.Background(), Query{Bounds: ConusBounds})

	if !res.Demo {
		t.Errorf("Demo = false with zero configured providers")
	}
	if len(res.Records) == 0 {
		t.Errorf("generator produced no records")
	}
}
