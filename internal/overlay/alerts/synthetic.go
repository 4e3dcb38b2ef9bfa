package alerts

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/RF-YVY/aprswx/internal/overlay"
)

// SyntheticGenerator stands in when the alert feed is unreachable. A fake
// warning would be operationally misleading, so it emits nothing most of the
// time and at most a single low-severity statement clearly scoped to the
// requested area.
type SyntheticGenerator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewSyntheticGenerator creates the generator
func NewSyntheticGenerator() *SyntheticGenerator {
	return &SyntheticGenerator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// Name is the tag prefix for synthetic results
func (g *SyntheticGenerator) Name() string { return "Alert Simulation" }

// Generate emits zero alerts roughly five times out of six
func (g *SyntheticGenerator) Generate(q overlay.Query) []Alert {
	if g.rng.Float64() > 0.17 {
		return []Alert{}
	}

	now := g.now().UTC()
	lat, lon := q.Bounds.Center()
	return []Alert{{
		ID:          fmt.Sprintf("demo-%d", now.Unix()),
		Event:       "Special Weather Statement",
		Headline:    "Simulated special weather statement",
		Description: fmt.Sprintf("Placeholder statement centered near %.2f, %.2f while live alert feeds are unavailable.", lat, lon),
		Severity:    "Minor",
		AreaDesc:    fmt.Sprintf("%.1f-%.1fN %.1f-%.1fW", q.Bounds.South, q.Bounds.North, -q.Bounds.East, -q.Bounds.West),
		EffectiveAt: now,
		ExpiresAt:   now.Add(time.Hour),
	}}
}
