// Package ingest parses the store_status, menu_hours and timezones CSV exports.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"storepulse/internal/model"
)

// DefaultChunkSize rows handed to the sink per call
const DefaultChunkSize = 5000

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp parses the timestamp forms found in poll exports and returns the instant in UTC.
// Values without a zone are taken as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// Stats row counts of one file
type Stats struct {
	Table   Table `json:"table"`
	Read    int   `json:"read"`
	Kept    int   `json:"kept"`
	Dropped int   `json:"dropped"`
}

// Reader streams CSV rows to a callback in chunks
type Reader struct {
	chunkSize       int
	defaultTimezone string
}

// NewReader creates a reader; chunkSize <= 0 means DefaultChunkSize
func NewReader(chunkSize int, defaultTimezone string) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Reader{chunkSize: chunkSize, defaultTimezone: defaultTimezone}
}

// ReadObservations parses store_status rows. Rows with an unknown status or an unparsable
// timestamp are dropped and counted.
func (r *Reader) ReadObservations(in io.Reader, save func([]model.Observation) error) (Stats, error) {
	stats := Stats{Table: TableStoreStatus}
	chunk := make([]model.Observation, 0, r.chunkSize)

	err := readRecords(in, TableStoreStatus, []string{ColStoreID, ColTimestampUTC, ColStatus}, func(h header, record []string) error {
		stats.Read++
		storeID := h.get(record, ColStoreID)
		status, ok := model.ParseStoreStatus(h.get(record, ColStatus))
		ts, err := ParseTimestamp(h.get(record, ColTimestampUTC))
		if storeID == "" || !ok || err != nil {
			stats.Dropped++
			return nil
		}
		chunk = append(chunk, model.Observation{StoreID: storeID, Timestamp: ts, Status: status})
		if len(chunk) >= r.chunkSize {
			if err := save(chunk); err != nil {
				return err
			}
			stats.Kept += len(chunk)
			chunk = make([]model.Observation, 0, r.chunkSize)
		}
		return nil
	})
	if err == nil && len(chunk) > 0 {
		if err = save(chunk); err == nil {
			stats.Kept += len(chunk)
		}
	}
	return stats, err
}

// ReadBusinessHours parses menu_hours rows. Rows with a non-numeric day are dropped and counted;
// time-of-day values are validated later, when the schedule is built.
func (r *Reader) ReadBusinessHours(in io.Reader, save func([]model.BusinessHourRule) error) (Stats, error) {
	stats := Stats{Table: TableMenuHours}
	chunk := make([]model.BusinessHourRule, 0, r.chunkSize)

	required := []string{ColStoreID, ColDayOfWeek, ColStartTimeLocal, ColEndTimeLocal}
	err := readRecords(in, TableMenuHours, required, func(h header, record []string) error {
		stats.Read++
		storeID := h.get(record, ColStoreID)
		day, err := parseDay(h.get(record, ColDayOfWeek))
		if storeID == "" || err != nil {
			stats.Dropped++
			return nil
		}
		chunk = append(chunk, model.BusinessHourRule{
			StoreID:        storeID,
			DayOfWeek:      day,
			StartTimeLocal: h.get(record, ColStartTimeLocal),
			EndTimeLocal:   h.get(record, ColEndTimeLocal),
		})
		if len(chunk) >= r.chunkSize {
			if err := save(chunk); err != nil {
				return err
			}
			stats.Kept += len(chunk)
			chunk = make([]model.BusinessHourRule, 0, r.chunkSize)
		}
		return nil
	})
	if err == nil && len(chunk) > 0 {
		if err = save(chunk); err == nil {
			stats.Kept += len(chunk)
		}
	}
	return stats, err
}

// ReadTimezones parses timezones rows. A file without a timezone column maps every store to the
// reader's default timezone; an empty cell leaves the store unmapped.
func (r *Reader) ReadTimezones(in io.Reader, save func([]model.TimezoneMapping) error) (Stats, error) {
	stats := Stats{Table: TableTimezones}
	chunk := make([]model.TimezoneMapping, 0, r.chunkSize)

	err := readRecords(in, TableTimezones, []string{ColStoreID}, func(h header, record []string) error {
		stats.Read++
		storeID := h.get(record, ColStoreID)
		tz := h.get(record, ColTimezone)
		if !h.has(ColTimezone) {
			tz = r.defaultTimezone
		}
		if storeID == "" || tz == "" {
			stats.Dropped++
			return nil
		}
		chunk = append(chunk, model.TimezoneMapping{StoreID: storeID, Timezone: tz})
		if len(chunk) >= r.chunkSize {
			if err := save(chunk); err != nil {
				return err
			}
			stats.Kept += len(chunk)
			chunk = make([]model.TimezoneMapping, 0, r.chunkSize)
		}
		return nil
	})
	if err == nil && len(chunk) > 0 {
		if err = save(chunk); err == nil {
			stats.Kept += len(chunk)
		}
	}
	return stats, err
}

func parseDay(raw string) (int, error) {
	if day, err := strconv.Atoi(raw); err == nil {
		return day, nil
	}
	// exports written by spreadsheet tools turn 3 into 3.0
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid day %q", raw)
	}
	return int(f), nil
}

// readRecords reads the header, checks the required columns and calls fn for every data row
func readRecords(in io.Reader, t Table, required []string, fn func(header, []string) error) error {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty file", t)
		}
		return fmt.Errorf("%s: failed to read header: %w", t, err)
	}
	h := newHeader(t, first)
	if !h.has(required...) {
		return fmt.Errorf("%s: header %v lacks one of %v", t, first, required)
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
		if err := fn(h, record); err != nil {
			return err
		}
	}
}
