package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ObservationRepository handles store_status persistence
type ObservationRepository struct {
	ds *Datastore
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(ds *Datastore) *ObservationRepository {
	return &ObservationRepository{ds: ds}
}

// CreateInBatches inserts rows in chunks of batchSize
func (r *ObservationRepository) CreateInBatches(ctx context.Context, rows []*StoreStatus, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.ds.DB(ctx).CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert store status rows: %w", err)
	}
	return nil
}

// MaxTimestamp returns the latest timestamp_utc; ok is false when the table is empty
func (r *ObservationRepository) MaxTimestamp(ctx context.Context) (time.Time, bool, error) {
	var latest sql.NullTime
	err := r.ds.DB(ctx).Model(&StoreStatus{}).
		Select("MAX(timestamp_utc)").
		Row().
		Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get max observation timestamp: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time.UTC(), true, nil
}

// ListInRange returns a store's rows with from <= timestamp_utc <= to, in insertion order per timestamp
func (r *ObservationRepository) ListInRange(ctx context.Context, storeID string, from, to time.Time) ([]*StoreStatus, error) {
	var rows []*StoreStatus
	err := r.ds.DB(ctx).
		Where("store_id = ? AND timestamp_utc >= ? AND timestamp_utc <= ?", storeID, from, to).
		Order("timestamp_utc ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list store status rows: %w", err)
	}
	return rows, nil
}

// LastBefore returns the latest row strictly before t, nil when none
func (r *ObservationRepository) LastBefore(ctx context.Context, storeID string, t time.Time) (*StoreStatus, error) {
	return r.take(ctx, r.ds.DB(ctx).
		Where("store_id = ? AND timestamp_utc < ?", storeID, t).
		Order("timestamp_utc DESC, id DESC"))
}

// FirstAfter returns the earliest row strictly after t, nil when none.
// Among rows sharing that timestamp the last inserted one wins.
func (r *ObservationRepository) FirstAfter(ctx context.Context, storeID string, t time.Time) (*StoreStatus, error) {
	return r.take(ctx, r.ds.DB(ctx).
		Where("store_id = ? AND timestamp_utc > ?", storeID, t).
		Order("timestamp_utc ASC, id DESC"))
}

func (r *ObservationRepository) take(ctx context.Context, query *gorm.DB) (*StoreStatus, error) {
	var row StoreStatus
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get store status row: %w", err)
	}
	return &row, nil
}

// DeleteAll truncates the table
func (r *ObservationRepository) DeleteAll(ctx context.Context) error {
	return r.ds.DB(ctx).Where("1 = 1").Delete(&StoreStatus{}).Error
}
