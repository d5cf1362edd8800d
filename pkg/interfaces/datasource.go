package interfaces

import (
	"context"
	"time"

	"storepulse/internal/model"
)

// DataSource read access to the three input tables. Implementations must be safe for concurrent use.
type DataSource interface {
	// Ping checks that the store catalog is reachable
	Ping(ctx context.Context) error

	// GetMaxObservationTimestamp returns the latest observation timestamp across all stores.
	// Returns model.ErrNoObservations when there is none.
	GetMaxObservationTimestamp(ctx context.Context) (time.Time, error)

	// ListAllStoreIDs returns every store id known to any table, sorted ascending
	ListAllStoreIDs(ctx context.Context) ([]string, error)

	// GetObservations returns the store's observations in [from, to], plus the nearest observation
	// before from and the nearest one after to, so statuses can be extrapolated to the range edges.
	GetObservations(ctx context.Context, storeID string, from, to time.Time) ([]model.Observation, error)

	// GetBusinessHourRules returns the store's rules, possibly none
	GetBusinessHourRules(ctx context.Context, storeID string) ([]model.BusinessHourRule, error)

	// GetTimezone returns the store's IANA timezone name; ok is false when the store has no mapping
	GetTimezone(ctx context.Context, storeID string) (tz string, ok bool, err error)
}

// IngestSink write access to the input tables, used by CSV ingestion
type IngestSink interface {
	// Reset removes every row of the three input tables
	Reset(ctx context.Context) error

	SaveObservations(ctx context.Context, observations []model.Observation) error
	SaveBusinessHourRules(ctx context.Context, rules []model.BusinessHourRule) error
	SaveTimezones(ctx context.Context, mappings []model.TimezoneMapping) error
}
