package ingest

import (
	"strings"
)

// Canonical column names
const (
	ColStoreID        = "store_id"
	ColTimestampUTC   = "timestamp_utc"
	ColStatus         = "status"
	ColDayOfWeek      = "day_of_week"
	ColStartTimeLocal = "start_time_local"
	ColEndTimeLocal   = "end_time_local"
	ColTimezone       = "timezone_str"
)

// Table names the three input files
type Table string

const (
	TableStoreStatus Table = "store_status"
	TableMenuHours   Table = "menu_hours"
	TableTimezones   Table = "timezones"
)

// FileName default CSV file name of a table
func (t Table) FileName() string {
	return string(t) + ".csv"
}

// normalizeColumn maps a raw header cell of table t to its canonical name, or "" if unused
func normalizeColumn(t Table, raw string) string {
	col := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
	if strings.Contains(col, "store") && strings.Contains(col, "id") {
		return ColStoreID
	}

	switch t {
	case TableStoreStatus:
		switch {
		case strings.Contains(col, "timestamp"):
			return ColTimestampUTC
		case col == "status":
			return ColStatus
		}
	case TableMenuHours:
		switch {
		case col == "day" || (strings.Contains(col, "day") && (strings.Contains(col, "week") || strings.Contains(col, "of"))):
			return ColDayOfWeek
		case strings.Contains(col, "start") && strings.Contains(col, "time"):
			return ColStartTimeLocal
		case strings.Contains(col, "end") && strings.Contains(col, "time"):
			return ColEndTimeLocal
		}
	case TableTimezones:
		if strings.Contains(col, "timezone") || strings.Contains(col, "tz") {
			return ColTimezone
		}
	}
	return ""
}

// header column index by canonical name
type header map[string]int

func newHeader(t Table, cells []string) header {
	h := make(header, len(cells))
	for i, cell := range cells {
		name := normalizeColumn(t, cell)
		if name == "" {
			continue
		}
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

func (h header) has(names ...string) bool {
	for _, n := range names {
		if _, ok := h[n]; !ok {
			return false
		}
	}
	return true
}

// get returns the trimmed cell, or "" when the column is absent or the record is short
func (h header) get(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
