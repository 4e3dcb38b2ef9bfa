package lightning

import "time"

// Strike is one normalized lightning strike
type Strike struct {
	Time        time.Time `json:"time"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	AmplitudeKA float64   `json:"amplitude_ka,omitempty"`
}
