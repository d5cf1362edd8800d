package mysql

import (
	"context"
	"fmt"
	"time"

	"storepulse/internal/model"
)

const defaultIngestBatchSize = 1000

// catalogQuery union of store ids across the three input tables
const catalogQuery = "SELECT store_id FROM store_status UNION SELECT store_id FROM menu_hours UNION SELECT store_id FROM timezones ORDER BY store_id"

// DataSource reads and writes the input tables, implements interfaces.DataSource and interfaces.IngestSink
type DataSource struct {
	repo      *Repository
	batchSize int
}

// NewDataSource creates a data source; batchSize bounds rows per INSERT statement
func NewDataSource(repo *Repository, batchSize int) *DataSource {
	if batchSize <= 0 {
		batchSize = defaultIngestBatchSize
	}
	return &DataSource{repo: repo, batchSize: batchSize}
}

// Ping checks that the database is reachable
func (d *DataSource) Ping(ctx context.Context) error {
	return d.repo.ds.Ping(ctx)
}

// GetMaxObservationTimestamp latest observation timestamp across all stores
func (d *DataSource) GetMaxObservationTimestamp(ctx context.Context) (time.Time, error) {
	latest, ok, err := d.repo.Observation.MaxTimestamp(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, model.ErrNoObservations
	}
	return latest, nil
}

// ListAllStoreIDs every store id known to any input table, sorted ascending
func (d *DataSource) ListAllStoreIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := d.repo.ds.DB(ctx).Raw(catalogQuery).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list store ids: %w", err)
	}
	return ids, nil
}

// GetObservations observations in [from, to] plus the nearest one on each side
func (d *DataSource) GetObservations(ctx context.Context, storeID string, from, to time.Time) ([]model.Observation, error) {
	before, err := d.repo.Observation.LastBefore(ctx, storeID, from)
	if err != nil {
		return nil, err
	}
	inRange, err := d.repo.Observation.ListInRange(ctx, storeID, from, to)
	if err != nil {
		return nil, err
	}
	after, err := d.repo.Observation.FirstAfter(ctx, storeID, to)
	if err != nil {
		return nil, err
	}

	rows := make([]*StoreStatus, 0, len(inRange)+2)
	if before != nil {
		rows = append(rows, before)
	}
	rows = append(rows, inRange...)
	if after != nil {
		rows = append(rows, after)
	}

	observations := make([]model.Observation, 0, len(rows))
	for _, row := range rows {
		if o, ok := ToObservationDomain(row); ok {
			observations = append(observations, o)
		}
	}
	return observations, nil
}

// GetBusinessHourRules store rules, possibly none
func (d *DataSource) GetBusinessHourRules(ctx context.Context, storeID string) ([]model.BusinessHourRule, error) {
	rows, err := d.repo.BusinessHours.ListByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	rules := make([]model.BusinessHourRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, ToBusinessHourRuleDomain(row))
	}
	return rules, nil
}

// GetTimezone store timezone name
func (d *DataSource) GetTimezone(ctx context.Context, storeID string) (string, bool, error) {
	row, err := d.repo.Timezone.Get(ctx, storeID)
	if err != nil {
		return "", false, err
	}
	if row == nil {
		return "", false, nil
	}
	return row.TimezoneStr, true, nil
}

// Reset removes every row of the three input tables in one transaction
func (d *DataSource) Reset(ctx context.Context) error {
	return d.repo.ds.ExecTx(ctx, func(ctx context.Context) error {
		if err := d.repo.Observation.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear store_status: %w", err)
		}
		if err := d.repo.BusinessHours.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear menu_hours: %w", err)
		}
		if err := d.repo.Timezone.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear timezones: %w", err)
		}
		return nil
	})
}

// SaveObservations inserts observations
func (d *DataSource) SaveObservations(ctx context.Context, observations []model.Observation) error {
	rows := make([]*StoreStatus, 0, len(observations))
	for _, o := range observations {
		rows = append(rows, FromObservationDomain(o))
	}
	return d.repo.Observation.CreateInBatches(ctx, rows, d.batchSize)
}

// SaveBusinessHourRules inserts rules
func (d *DataSource) SaveBusinessHourRules(ctx context.Context, rules []model.BusinessHourRule) error {
	rows := make([]*MenuHours, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, FromBusinessHourRuleDomain(r))
	}
	return d.repo.BusinessHours.CreateInBatches(ctx, rows, d.batchSize)
}

// SaveTimezones upserts mappings
func (d *DataSource) SaveTimezones(ctx context.Context, mappings []model.TimezoneMapping) error {
	rows := make([]*Timezone, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, FromTimezoneDomain(m))
	}
	return d.repo.Timezone.UpsertInBatches(ctx, rows, d.batchSize)
}
