package interfaces

import (
	"context"
	"time"

	"storepulse/internal/model"
)

// ReportStore persists report job snapshots
type ReportStore interface {
	// Create stores a new report; the id must not exist yet
	Create(ctx context.Context, report *model.Report) error

	// Get returns a copy of the report or model.ErrReportNotFound
	Get(ctx context.Context, reportID string) (*model.Report, error)

	// Transition atomically moves a report from one status to another (CAS on from).
	// apply may fill the fields that accompany the new status; the transition log entry is appended
	// by the store. Returns model.ErrInvalidTransition when the current status is not from or the
	// edge is not allowed.
	Transition(ctx context.Context, reportID string, from, to model.ReportStatus, at time.Time, apply func(*model.Report)) error

	// ListFinishedBefore returns up to limit terminal reports completed before cutoff
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Report, error)

	// Delete removes a report; deleting a missing report is not an error
	Delete(ctx context.Context, reportID string) error
}
