package mysql

import (
	"fmt"

	"storepulse/pkg/config"
)

// Repository aggregates all MySQL repositories
type Repository struct {
	ds *Datastore

	Observation   *ObservationRepository
	BusinessHours *BusinessHoursRepository
	Timezone      *TimezoneRepository
	Report        *ReportRepository
}

// BuildDSN builds the go-sql-driver DSN; timestamps are parsed and stored as UTC
func BuildDSN(cfg config.MySQLConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)
}

// NewRepository creates a new MySQL repository with all sub-repositories
func NewRepository(dsn string) (*Repository, error) {
	ds, err := NewDatastore(dsn)
	if err != nil {
		return nil, err
	}
	return NewRepositoryFromDatastore(ds), nil
}

// NewRepositoryFromDatastore wires the sub-repositories over an existing datastore
func NewRepositoryFromDatastore(ds *Datastore) *Repository {
	return &Repository{
		ds:            ds,
		Observation:   NewObservationRepository(ds),
		BusinessHours: NewBusinessHoursRepository(ds),
		Timezone:      NewTimezoneRepository(ds),
		Report:        NewReportRepository(ds),
	}
}

// GetDatastore returns the underlying datastore for transaction support
func (r *Repository) GetDatastore() *Datastore {
	return r.ds
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
