package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TimezoneRepository handles timezones persistence
type TimezoneRepository struct {
	ds *Datastore
}

// NewTimezoneRepository creates a new timezone repository
func NewTimezoneRepository(ds *Datastore) *TimezoneRepository {
	return &TimezoneRepository{ds: ds}
}

// UpsertInBatches inserts mappings, replacing the timezone of stores already present
func (r *TimezoneRepository) UpsertInBatches(ctx context.Context, rows []*Timezone, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	err := r.ds.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"timezone_str"}),
		}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert timezones: %w", err)
	}
	return nil
}

// Get returns a store's mapping, nil when the store has none
func (r *TimezoneRepository) Get(ctx context.Context, storeID string) (*Timezone, error) {
	var row Timezone
	err := r.ds.DB(ctx).Where("store_id = ?", storeID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get timezone: %w", err)
	}
	return &row, nil
}

// DeleteAll truncates the table
func (r *TimezoneRepository) DeleteAll(ctx context.Context) error {
	return r.ds.DB(ctx).Where("1 = 1").Delete(&Timezone{}).Error
}
