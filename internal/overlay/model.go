package overlay

import (
	"fmt"
	"time"
)

// Bounds is a geographic bounding box in decimal degrees
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// ConusBounds covers the continental US, the default when no location is known
var ConusBounds = Bounds{South: 25.0, West: -125.0, North: 50.0, East: -65.0}

// Contains reports whether the point lies within the bounds (inclusive)
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// Center returns the midpoint of the bounds
func (b Bounds) Center() (lat, lon float64) {
	return (b.South + b.North) / 2, (b.West + b.East) / 2
}

// Clamp pins the point to the nearest position inside the bounds
func (b Bounds) Clamp(lat, lon float64) (float64, float64) {
	if lat < b.South {
		lat = b.South
	} else if lat > b.North {
		lat = b.North
	}
	if lon < b.West {
		lon = b.West
	} else if lon > b.East {
		lon = b.East
	}
	return lat, lon
}

// Valid reports whether the bounds describe a non-degenerate box
func (b Bounds) Valid() bool {
	return b.North > b.South && b.East > b.West &&
		b.South >= -90 && b.North <= 90 && b.West >= -180 && b.East <= 180
}

// Query describes one overlay fetch: the area of interest, the product
// requested from the upstream, and how far back in time the data may reach.
type Query struct {
	Bounds  Bounds
	Product string
	Window  time.Duration
}

// CacheKey is a stable key for the query, used by the TTL cache
func (q Query) CacheKey() string {
	return fmt.Sprintf("%s_%.2f_%.2f_%.2f_%.2f", q.Product,
		q.Bounds.South, q.Bounds.West, q.Bounds.North, q.Bounds.East)
}

// Result is the outcome of one chain fetch. Source names the provider that
// produced the records; when every real provider failed, Demo is true and
// Source carries the synthetic generator's tag so the UI can mark the layer
// as non-authoritative.
type Result[T any] struct {
	Source    string    `json:"source"`
	Records   []T       `json:"records"`
	Demo      bool      `json:"demo"`
	FetchedAt time.Time `json:"fetched_at"`
}
