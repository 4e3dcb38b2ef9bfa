package lightning

import (
	"testing"
	"time"

	"github.com/RF-YVY/aprswx/internal/config"
	"github.com/RF-YVY/aprswx/internal/overlay"
)

func TestParseDelimited(t *testing.T) {
	tests := []struct {
		name string
		body string
		sep  string
		want int
	}{
		{
			name: "pipe feed",
			body: "1717245600|35.22|-97.44|-18.3\n1717245610|36.00|-96.00|22.1\n",
			sep:  "|",
			want: 2,
		},
		{
			name: "comma feed without amplitude",
			body: "1717245600,35.22,-97.44\n",
			sep:  ",",
			want: 1,
		},
		{
			name: "comment and blank lines skipped",
			body: "# strikes\n\n1717245600|35.22|-97.44|-18.3\n",
			sep:  "|",
			want: 1,
		},
		{
			name: "empty body",
			body: "",
			sep:  "|",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDelimited(tt.body, tt.sep)
			if len(got) != tt.want {
				t.Errorf("ParseDelimited() returned %d strikes, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseDelimitedSkipsMalformedLine(t *testing.T) {
	// Line 3 of 5 has a non-numeric latitude: exactly 4 strikes survive
	body := "1717245600|35.00|-97.00|10\n" +
		"1717245601|35.10|-97.10|11\n" +
		"1717245602|garbage|-97.20|12\n" +
		"1717245603|35.30|-97.30|13\n" +
		"1717245604|35.40|-97.40|14\n"

	got := ParseDelimited(body, "|")
	if len(got) != 4 {
		t.Fatalf("ParseDelimited() returned %d strikes, want exactly 4", len(got))
	}
}

func TestParseDelimitedFieldValues(t *testing.T) {
	got := ParseDelimited("1717245600|35.22|-97.44|-18.3", "|")
	if len(got) != 1 {
		t.Fatalf("ParseDelimited() returned %d strikes, want 1", len(got))
	}
	s := got[0]
	if !s.Time.Equal(time.Unix(1717245600, 0).UTC()) {
		t.Errorf("Time = %v, want %v", s.Time, time.Unix(1717245600, 0).UTC())
	}
	if s.Latitude != 35.22 || s.Longitude != -97.44 {
		t.Errorf("position = (%.2f, %.2f), want (35.22, -97.44)", s.Latitude, s.Longitude)
	}
	if s.AmplitudeKA != -18.3 {
		t.Errorf("AmplitudeKA = %.1f, want -18.3", s.AmplitudeKA)
	}
}

func TestParseDelimitedRejectsOutOfRangeCoordinates(t *testing.T) {
	body := "1717245600|95.00|-97.00|10\n1717245601|35.00|-190.00|10\n"
	if got := ParseDelimited(body, "|"); len(got) != 0 {
		t.Errorf("ParseDelimited() accepted %d out-of-range strikes, want 0", len(got))
	}
}

func TestSyntheticStaysInBounds(t *testing.T) {
	gen := NewSyntheticGenerator(config.Default().Climatology)
	q := overlay.Query{Bounds: overlay.Bounds{South: 27, West: -83, North: 30, East: -80}}

	// The generator is stochastic; whatever it emits must be in bounds
	for i := 0; i < 50; i++ {
		for _, s := range gen.Generate(q) {
			if !q.Bounds.Contains(s.Latitude, s.Longitude) {
				t.Fatalf("strike at (%.3f, %.3f) outside bounds %+v", s.Latitude, s.Longitude, q.Bounds)
			}
		}
	}
}

func TestSyntheticClimatologyBias(t *testing.T) {
	cfg := config.Default().Climatology
	gen := NewSyntheticGenerator(cfg)

	// Florida in a July afternoon vs. the same spot in a January morning:
	// severe bias difference is the whole point of the climatology weights.
	florida := overlay.Bounds{South: 26, West: -83, North: 30, East: -79}
	lat, lon := florida.Center()

	july := time.Date(2025, time.July, 15, 22, 0, 0, 0, time.UTC) // ~17:00 local
	january := time.Date(2025, time.January, 15, 13, 0, 0, 0, time.UTC)

	gen.now = func() time.Time { return july }
	julyWeight := gen.regionalWeight(lat, lon) * gen.seasonalWeight(july) * gen.diurnalWeight(july, lon)

	gen.now = func() time.Time { return january }
	janWeight := gen.regionalWeight(lat, lon) * gen.seasonalWeight(january) * gen.diurnalWeight(january, lon)

	if julyWeight <= janWeight*2 {
		t.Errorf("July weight %.3f not meaningfully above January weight %.3f", julyWeight, janWeight)
	}
}
