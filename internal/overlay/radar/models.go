package radar

import (
	"time"

	"github.com/RF-YVY/aprswx/internal/overlay"
)

// Overlay is one radar layer ready for the map: either a georeferenced image
// reference or synthesized storm cells, never both.
type Overlay struct {
	Product   string         `json:"product"`
	Timestamp time.Time      `json:"timestamp"`
	Bounds    overlay.Bounds `json:"bounds"`
	ImageURL  string         `json:"image_url,omitempty"`
	Cells     []Cell         `json:"cells,omitempty"`
}

// Cell is one synthesized storm cell
type Cell struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PeakDBZ   float64 `json:"peak_dbz"`
	RadiusKM  float64 `json:"radius_km"`
}

// Known product identifiers, mirroring the MRMS product table
var Products = map[string]string{
	"reflectivity":  "MergedReflectivityQComposite",
	"velocity":      "MergedAzShear",
	"precipitation": "PrecipRate",
	"accumulation":  "RadarOnly_QPE_01H",
	"echo_tops":     "EchoTop",
	"vil":           "VIL",
	"hail":          "MergedMHailIndex",
}
