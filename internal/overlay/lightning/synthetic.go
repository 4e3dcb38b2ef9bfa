package lightning

import (
	"math"
	"math/rand"
	"time"

	"github.com/RF-YVY/aprswx/internal/config"
	"github.com/RF-YVY/aprswx/internal/overlay"
)

// SyntheticGenerator fabricates strikes inside the requested bounds when no
// real feed is reachable. Output is biased by regional climatology, season
// and time of day so a quiet winter morning over the mountain west stays
// quiet in demo mode too. The weights are configuration, not constants.
type SyntheticGenerator struct {
	cfg config.ClimatologyConfig
	rng *rand.Rand
	now func() time.Time
}

// NewSyntheticGenerator creates the generator
func NewSyntheticGenerator(cfg config.ClimatologyConfig) *SyntheticGenerator {
	return &SyntheticGenerator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// Name is the tag prefix for synthetic results
func (g *SyntheticGenerator) Name() string { return "Lightning Simulation" }

// Generate produces a climatology-weighted number of strikes within q.Bounds.
// Zero strikes is a common and correct outcome.
func (g *SyntheticGenerator) Generate(q overlay.Query) []Strike {
	b := q.Bounds
	if !b.Valid() {
		b = overlay.ConusBounds
	}

	now := g.now().UTC()
	lat, lon := b.Center()
	expected := g.cfg.BaseStrikeRate *
		g.regionalWeight(lat, lon) *
		g.seasonalWeight(now) *
		g.diurnalWeight(now, lon) *
		areaFactor(b)

	count := g.samplePoisson(expected)
	if count == 0 {
		return []Strike{}
	}

	// Strikes cluster; scatter them around a single synthetic cell rather
	// than uniformly across the box.
	cellLat := b.South + g.rng.Float64()*(b.North-b.South)
	cellLon := b.West + g.rng.Float64()*(b.East-b.West)
	spreadLat := (b.North - b.South) * 0.08
	spreadLon := (b.East - b.West) * 0.08

	strikes := make([]Strike, 0, count)
	for i := 0; i < count; i++ {
		sLat := cellLat + g.rng.NormFloat64()*spreadLat
		sLon := cellLon + g.rng.NormFloat64()*spreadLon
		sLat, sLon = b.Clamp(sLat, sLon)
		strikes = append(strikes, Strike{
			Time:        now.Add(-time.Duration(g.rng.Intn(600)) * time.Second),
			Latitude:    sLat,
			Longitude:   sLon,
			AmplitudeKA: -40 + 80*g.rng.Float64(),
		})
	}
	return strikes
}

// regionalWeight blends configured hotspot weights by distance from the
// query center. Away from every hotspot a small floor keeps demo output
// possible but rare.
func (g *SyntheticGenerator) regionalWeight(lat, lon float64) float64 {
	weight := 0.1
	for _, h := range g.cfg.Hotspots {
		d := math.Hypot(lat-h.Latitude, lon-h.Longitude)
		if d <= h.RadiusDeg {
			weight = math.Max(weight, h.Weight)
		} else if d <= h.RadiusDeg*2 {
			// Linear falloff out to twice the hotspot radius
			weight = math.Max(weight, h.Weight*(1-(d-h.RadiusDeg)/h.RadiusDeg))
		}
	}
	return weight
}

// seasonalWeight peaks at the configured month and bottoms out half a year
// away
func (g *SyntheticGenerator) seasonalWeight(now time.Time) float64 {
	monthOffset := float64(int(now.Month()) - g.cfg.PeakMonth)
	return 0.15 + 0.85*(1+math.Cos(2*math.Pi*monthOffset/12))/2
}

// diurnalWeight peaks at the configured local hour, with local time
// approximated from longitude
func (g *SyntheticGenerator) diurnalWeight(now time.Time, lon float64) float64 {
	localHour := math.Mod(float64(now.Hour())+lon/15+24, 24)
	hourOffset := localHour - float64(g.cfg.PeakHourLocal)
	return 0.2 + 0.8*(1+math.Cos(2*math.Pi*hourOffset/24))/2
}

// areaFactor scales expectation with the query box size, normalized to a
// 5x5 degree view
func areaFactor(b overlay.Bounds) float64 {
	area := (b.North - b.South) * (b.East - b.West)
	return math.Min(area/25.0, 10.0)
}

// samplePoisson draws from a Poisson distribution via Knuth's method; the
// expectations involved are small enough that this stays cheap
func (g *SyntheticGenerator) samplePoisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	p := 1.0
	k := 0
	for {
		p *= g.rng.Float64()
		if p <= limit {
			return k
		}
		k++
		if k > 200 {
			return k
		}
	}
}
