package radar

import (
	"math/rand"
	"time"

	"github.com/RF-YVY/aprswx/internal/overlay"
)

// SyntheticGenerator fabricates storm cells inside the requested bounds when
// no real provider is reachable. Cells are shaped like the composite
// reflectivity a forecaster would expect (isolated cores, 25-55 dBZ peaks)
// so the demo layer is recognizably fake only by its source tag.
type SyntheticGenerator struct {
	rng *rand.Rand
}

// NewSyntheticGenerator creates the generator
func NewSyntheticGenerator() *SyntheticGenerator {
	return &SyntheticGenerator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Name is the tag prefix for synthetic results
func (g *SyntheticGenerator) Name() string { return "Radar Simulation" }

// Generate produces up to three storm cells, all within q.Bounds
func (g *SyntheticGenerator) Generate(q overlay.Query) []Overlay {
	b := q.Bounds
	if !b.Valid() {
		b = overlay.ConusBounds
	}

	cellCount := 1 + g.rng.Intn(3)
	cells := make([]Cell, 0, cellCount)
	for i := 0; i < cellCount; i++ {
		// Keep cores away from the edges, like the original's 0.2-0.8
		// placement, so the falloff stays inside the box.
		lat := b.South + (0.2+0.6*g.rng.Float64())*(b.North-b.South)
		lon := b.West + (0.2+0.6*g.rng.Float64())*(b.East-b.West)
		cells = append(cells, Cell{
			Latitude:  lat,
			Longitude: lon,
			PeakDBZ:   25 + 30*g.rng.Float64(),
			RadiusKM:  5 + 25*g.rng.Float64(),
		})
	}

	return []Overlay{{
		Product:   q.Product,
		Timestamp: time.Now().UTC(),
		Bounds:    b,
		Cells:     cells,
	}}
}
