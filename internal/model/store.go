package model

import (
	"strings"
	"time"
)

// StoreStatus polled store status
type StoreStatus string

const (
	StoreStatusActive   StoreStatus = "active"   // Store was online when polled
	StoreStatusInactive StoreStatus = "inactive" // Store was offline when polled
)

// ParseStoreStatus maps the raw status values seen in poll exports to a StoreStatus
func ParseStoreStatus(raw string) (StoreStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "1", "true":
		return StoreStatusActive, true
	case "inactive", "0", "false":
		return StoreStatusInactive, true
	default:
		return "", false
	}
}

// Observation a single polled reading for a store
type Observation struct {
	StoreID   string      `json:"store_id"`
	Timestamp time.Time   `json:"timestamp_utc"`
	Status    StoreStatus `json:"status"`
}

// Active reports whether the observation saw the store online
func (o Observation) Active() bool {
	return o.Status == StoreStatusActive
}

// BusinessHourRule one local opening interval on one weekday.
// DayOfWeek is 0=Monday ... 6=Sunday; times are "HH:MM:SS" local to the store.
type BusinessHourRule struct {
	StoreID        string `json:"store_id"`
	DayOfWeek      int    `json:"day_of_week"`
	StartTimeLocal string `json:"start_time_local"`
	EndTimeLocal   string `json:"end_time_local"`
}

// TimezoneMapping store to IANA timezone name
type TimezoneMapping struct {
	StoreID  string `json:"store_id"`
	Timezone string `json:"timezone_str"`
}
