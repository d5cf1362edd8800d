package model

import (
	"errors"
	"fmt"
)

var (
	// ErrReportNotFound is returned when a report id was never minted (or has been purged)
	ErrReportNotFound = errors.New("report not found")
	// ErrInvalidTransition is returned when a status change is not allowed from the current status
	ErrInvalidTransition = errors.New("invalid report status transition")
	// ErrReportNotReady is returned when the artifact of a non-complete report is requested
	ErrReportNotReady = errors.New("report is not complete")
	// ErrNoObservations is returned by a data source whose observation table is empty
	ErrNoObservations = errors.New("no observations")
)

// CatalogError the store catalog or the reference timestamp could not be read; fatal to a report job
type CatalogError struct {
	Op  string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog error during %s: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// TimezoneError a store maps to an unknown or malformed timezone
type TimezoneError struct {
	StoreID  string
	Timezone string
	Err      error
}

func (e *TimezoneError) Error() string {
	return fmt.Sprintf("store %s has invalid timezone %q: %v", e.StoreID, e.Timezone, e.Err)
}

func (e *TimezoneError) Unwrap() error {
	return e.Err
}
