package entity

import (
	"sort"
	"strings"
	"time"
)

// MaintenanceDateLayout is the date format the API uses for maintenance_date.
const MaintenanceDateLayout = "2006-01-02"

// MaintenanceRecord is one row of /maintenance/records.
type MaintenanceRecord struct {
	// RecordID identifies the maintenance event.
	RecordID ID `json:"record_id"`
	// BikeID is the serviced bike.
	BikeID BikeID `json:"bike_id"`
	// MaintenanceDate is an ISO date, kept verbatim.
	MaintenanceDate string `json:"maintenance_date"`
	// ComponentFailed is the component that was replaced or repaired.
	ComponentFailed string `json:"component_failed"`
}

// Date parses MaintenanceDate. It accepts a plain date or an RFC 3339 timestamp.
func (m MaintenanceRecord) Date() (time.Time, bool) {
	s := strings.TrimSpace(m.MaintenanceDate)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(MaintenanceDateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// BikeScore is the per-component failure probability set served by /bikes/score/{bike_id}.
type BikeScore struct {
	BikeID        BikeID             `json:"bike_id"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Components returns the component names in a stable order.
func (b BikeScore) Components() []string {
	out := make([]string, 0, len(b.Probabilities))
	for name := range b.Probabilities {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
