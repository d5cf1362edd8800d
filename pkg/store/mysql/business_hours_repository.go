package mysql

import (
	"context"
	"fmt"
)

// BusinessHoursRepository handles menu_hours persistence
type BusinessHoursRepository struct {
	ds *Datastore
}

// NewBusinessHoursRepository creates a new business hours repository
func NewBusinessHoursRepository(ds *Datastore) *BusinessHoursRepository {
	return &BusinessHoursRepository{ds: ds}
}

// CreateInBatches inserts rows in chunks of batchSize
func (r *BusinessHoursRepository) CreateInBatches(ctx context.Context, rows []*MenuHours, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.ds.DB(ctx).CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert menu hours rows: %w", err)
	}
	return nil
}

// ListByStore returns every rule of a store
func (r *BusinessHoursRepository) ListByStore(ctx context.Context, storeID string) ([]*MenuHours, error) {
	var rows []*MenuHours
	err := r.ds.DB(ctx).
		Where("store_id = ?", storeID).
		Order("day_of_week ASC, start_time_local ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list menu hours: %w", err)
	}
	return rows, nil
}

// DeleteAll truncates the table
func (r *BusinessHoursRepository) DeleteAll(ctx context.Context) error {
	return r.ds.DB(ctx).Where("1 = 1").Delete(&MenuHours{}).Error
}
