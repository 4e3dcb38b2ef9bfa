package settings

import "encoding/json"

// Settings is the user's persisted configuration. Field names follow the
// durable store's JSON contract.
type Settings struct {
	Callsign             string          `json:"callsign"`
	SSID                 int             `json:"ssid"`
	Passcode             int             `json:"passcode"`
	Location             *Location       `json:"location"`
	AutoGeneratePasscode bool            `json:"autoGeneratePasscode"`
	DistanceUnit         string          `json:"distanceUnit"` // km or mi
	DarkTheme            bool            `json:"darkTheme"`
	APRSISConnected      bool            `json:"aprsIsConnected"`
	APRSISFilters        Filters         `json:"aprsIsFilters"`
	TNCSettings          json.RawMessage `json:"tncSettings,omitempty"`
}

// Location is the user's station position. The durable store serializes
// coordinates as strings, so json.Number tolerates both forms.
type Location struct {
	Latitude  json.Number `json:"latitude"`
	Longitude json.Number `json:"longitude"`
	Source    string      `json:"source,omitempty"` // gps, manual, map
}

// Filters is the APRS-IS receive filter configuration
type Filters struct {
	DistanceRange  int      `json:"distanceRange"`
	StationTypes   []string `json:"stationTypes"`
	EnableWeather  bool     `json:"enableWeather"`
	EnableMessages bool     `json:"enableMessages"`
}

// Default returns the settings used before the user has saved anything
func Default() *Settings {
	return &Settings{
		SSID:                 0,
		Passcode:             -1,
		AutoGeneratePasscode: true,
		DistanceUnit:         "km",
		APRSISFilters: Filters{
			DistanceRange:  100,
			StationTypes:   []string{},
			EnableWeather:  true,
			EnableMessages: true,
		},
	}
}
