package alerts

import "time"

// Alert is one severe-weather alert with its validity window
type Alert struct {
	ID          string    `json:"id"`
	Event       string    `json:"event"`
	Headline    string    `json:"headline"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	AreaDesc    string    `json:"area_desc"`
	EffectiveAt time.Time `json:"effective_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Active reports whether the alert is in its validity window at now. A zero
// ExpiresAt never expires.
func (a Alert) Active(now time.Time) bool {
	if !a.EffectiveAt.IsZero() && now.Before(a.EffectiveAt) {
		return false
	}
	if a.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(a.ExpiresAt)
}

// FilterActive drops expired and not-yet-effective alerts. Expired alerts are
// filtered at read time, never eagerly deleted, so a rolled-back clock cannot
// lose data.
func FilterActive(list []Alert, now time.Time) []Alert {
	active := make([]Alert, 0, len(list))
	for _, a := range list {
		if a.Active(now) {
			active = append(active, a)
		}
	}
	return active
}
