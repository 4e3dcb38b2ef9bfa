package overlay

import (
	"bufio"
	"strconv"
	"strings"
)

// Placemark is one point parsed from a placefile feed
type Placemark struct {
	Latitude  float64
	Longitude float64
	IconIndex int
	Label     string
}

// ParsePlacefile parses the line-oriented placefile format used by several
// legacy weather-data providers. Points arrive as tagged lines:
//
//	Object: 35.22,-97.44
//	Icon: 0,0,0,1,23,"label text"
//	End:
//
// plus header lines (Title, Refresh, Color, IconFile) which are skipped. A
// malformed line is dropped without discarding the rest of the feed.
func ParsePlacefile(body string) []Placemark {
	var marks []Placemark
	var current *Placemark

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Object:"):
			lat, lon, ok := parseLatLonPair(strings.TrimPrefix(line, "Object:"))
			if !ok {
				current = nil
				continue
			}
			current = &Placemark{Latitude: lat, Longitude: lon}

		case strings.HasPrefix(line, "Icon:"):
			if current == nil {
				// Standalone Icon lines carry their own coordinates:
				// Icon: lat,lon,angle,file,index,"label"
				mark, ok := parseStandaloneIcon(strings.TrimPrefix(line, "Icon:"))
				if ok {
					marks = append(marks, mark)
				}
				continue
			}
			fields := strings.SplitN(strings.TrimSpace(strings.TrimPrefix(line, "Icon:")), ",", 6)
			if len(fields) >= 5 {
				if idx, err := strconv.Atoi(strings.TrimSpace(fields[4])); err == nil {
					current.IconIndex = idx
				}
			}
			if len(fields) == 6 {
				current.Label = strings.Trim(strings.TrimSpace(fields[5]), `"`)
			}

		case strings.HasPrefix(line, "End:"):
			if current != nil {
				marks = append(marks, *current)
				current = nil
			}
		}
	}

	return marks
}

// parseLatLonPair parses "lat,lon" with optional trailing fields
func parseLatLonPair(s string) (float64, float64, bool) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) < 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// parseStandaloneIcon parses the self-contained Icon line variant
func parseStandaloneIcon(s string) (Placemark, bool) {
	fields := strings.SplitN(strings.TrimSpace(s), ",", 6)
	if len(fields) < 5 {
		return Placemark{}, false
	}
	lat, lon, ok := parseLatLonPair(fields[0] + "," + fields[1])
	if !ok {
		return Placemark{}, false
	}
	mark := Placemark{Latitude: lat, Longitude: lon}
	if idx, err := strconv.Atoi(strings.TrimSpace(fields[4])); err == nil {
		mark.IconIndex = idx
	}
	if len(fields) == 6 {
		mark.Label = strings.Trim(strings.TrimSpace(fields[5]), `"`)
	}
	return mark, true
}
