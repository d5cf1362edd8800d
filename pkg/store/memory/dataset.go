// Package memory keeps the input tables and report snapshots in process memory.
// It backs local runs and tests; data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"storepulse/internal/model"
)

// Dataset in-memory input tables, usable as both DataSource and IngestSink
type Dataset struct {
	mu           sync.RWMutex
	observations map[string][]model.Observation // store_id -> sorted by timestamp
	rules        map[string][]model.BusinessHourRule
	timezones    map[string]string
	maxTimestamp time.Time
}

// NewDataset creates an empty dataset
func NewDataset() *Dataset {
	return &Dataset{
		observations: make(map[string][]model.Observation),
		rules:        make(map[string][]model.BusinessHourRule),
		timezones:    make(map[string]string),
	}
}

// Ping always succeeds
func (d *Dataset) Ping(ctx context.Context) error {
	return ctx.Err()
}

// GetMaxObservationTimestamp latest observation timestamp
func (d *Dataset) GetMaxObservationTimestamp(ctx context.Context) (time.Time, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.maxTimestamp.IsZero() {
		return time.Time{}, model.ErrNoObservations
	}
	return d.maxTimestamp, nil
}

// ListAllStoreIDs union of store ids across the three tables, sorted
func (d *Dataset) ListAllStoreIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]struct{}, len(d.observations))
	for id := range d.observations {
		seen[id] = struct{}{}
	}
	for id := range d.rules {
		seen[id] = struct{}{}
	}
	for id := range d.timezones {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetObservations observations in [from, to] plus one neighbour on each side
func (d *Dataset) GetObservations(ctx context.Context, storeID string, from, to time.Time) ([]model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	points := d.observations[storeID]
	lo := sort.Search(len(points), func(i int) bool { return !points[i].Timestamp.Before(from) })
	hi := sort.Search(len(points), func(i int) bool { return points[i].Timestamp.After(to) })
	if lo > 0 {
		lo--
	}
	if hi < len(points) {
		hi++
	}
	return append([]model.Observation(nil), points[lo:hi]...), nil
}

// GetBusinessHourRules store rules, nil when none
func (d *Dataset) GetBusinessHourRules(ctx context.Context, storeID string) ([]model.BusinessHourRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]model.BusinessHourRule(nil), d.rules[storeID]...), nil
}

// GetTimezone store timezone name
func (d *Dataset) GetTimezone(ctx context.Context, storeID string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	tz, ok := d.timezones[storeID]
	return tz, ok, nil
}

// Reset drops every row
func (d *Dataset) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observations = make(map[string][]model.Observation)
	d.rules = make(map[string][]model.BusinessHourRule)
	d.timezones = make(map[string]string)
	d.maxTimestamp = time.Time{}
	return nil
}

// SaveObservations appends observations
func (d *Dataset) SaveObservations(ctx context.Context, observations []model.Observation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	touched := make(map[string]struct{})
	for _, o := range observations {
		o.Timestamp = o.Timestamp.UTC()
		d.observations[o.StoreID] = append(d.observations[o.StoreID], o)
		touched[o.StoreID] = struct{}{}
		if o.Timestamp.After(d.maxTimestamp) {
			d.maxTimestamp = o.Timestamp
		}
	}
	for id := range touched {
		points := d.observations[id]
		sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	}
	return nil
}

// SaveBusinessHourRules appends rules
func (d *Dataset) SaveBusinessHourRules(ctx context.Context, rules []model.BusinessHourRule) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range rules {
		d.rules[r.StoreID] = append(d.rules[r.StoreID], r)
	}
	return nil
}

// SaveTimezones upserts timezone mappings
func (d *Dataset) SaveTimezones(ctx context.Context, mappings []model.TimezoneMapping) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range mappings {
		d.timezones[m.StoreID] = m.Timezone
	}
	return nil
}
