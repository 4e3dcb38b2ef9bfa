package channel

import "sort"

// stationSet is the merged set of known stations, keyed by callsign. An
// update for a known callsign supersedes the record in place; stations are
// never deleted client-side.
type stationSet struct {
	byCallsign map[string]Station
}

func newStationSet() *stationSet {
	return &stationSet{byCallsign: make(map[string]Station)}
}

// replace swaps the full set, used for initial_stations snapshots
func (s *stationSet) replace(stations []Station) {
	s.byCallsign = make(map[string]Station, len(stations))
	for _, st := range stations {
		if st.Callsign == "" {
			continue
		}
		s.byCallsign[st.Callsign] = st
	}
}

// merge applies one station_update: overwrite by callsign, else append
func (s *stationSet) merge(st Station) {
	if st.Callsign == "" {
		return
	}
	s.byCallsign[st.Callsign] = st
}

// list returns the stations sorted by callsign for stable publishing
func (s *stationSet) list() []Station {
	out := make([]Station, 0, len(s.byCallsign))
	for _, st := range s.byCallsign {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Callsign < out[j].Callsign })
	return out
}

// recentWindow is a bounded append-only view of the newest records. Appends
// past the capacity drop the oldest entries.
type recentWindow[T any] struct {
	items []T
	max   int
}

func newRecentWindow[T any](max int) *recentWindow[T] {
	return &recentWindow[T]{max: max}
}

// replace swaps the full window, used for initial_* snapshots
func (w *recentWindow[T]) replace(items []T) {
	if len(items) > w.max {
		items = items[len(items)-w.max:]
	}
	w.items = append([]T(nil), items...)
}

// append adds one record, evicting the oldest when full
func (w *recentWindow[T]) append(item T) {
	w.items = append(w.items, item)
	if len(w.items) > w.max {
		w.items = w.items[len(w.items)-w.max:]
	}
}

// list returns a copy of the current window
func (w *recentWindow[T]) list() []T {
	return append([]T(nil), w.items...)
}
