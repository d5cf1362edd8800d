package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storepulse/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportRepository handles report job persistence in MySQL, implements interfaces.ReportStore
type ReportRepository struct {
	ds *Datastore
}

// NewReportRepository creates a new report repository
func NewReportRepository(ds *Datastore) *ReportRepository {
	return &ReportRepository{ds: ds}
}

// Create creates a new report
func (r *ReportRepository) Create(ctx context.Context, report *model.Report) error {
	if err := r.ds.DB(ctx).Create(FromReportDomain(report)).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// Get retrieves a report by report_id
func (r *ReportRepository) Get(ctx context.Context, reportID string) (*model.Report, error) {
	var row Report
	err := r.ds.DB(ctx).Where("report_id = ?", reportID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return ToReportDomain(&row), nil
}

// Transition updates report status with atomic state transition (CAS - Compare And Swap).
// The row is locked for the duration of the transaction and the update is guarded on the
// expected status, so concurrent workers cannot both win the same edge.
func (r *ReportRepository) Transition(ctx context.Context, reportID string, from, to model.ReportStatus, at time.Time, apply func(*model.Report)) error {
	return r.ds.ExecTx(ctx, func(ctx context.Context) error {
		var row Report
		err := r.ds.DB(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("report_id = ?", reportID).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrReportNotFound
			}
			return fmt.Errorf("failed to lock report: %w", err)
		}

		report := ToReportDomain(&row)
		if err := report.ApplyTransition(from, to, at, apply); err != nil {
			return err
		}

		next := FromReportDomain(report)
		result := r.ds.DB(ctx).Model(&Report{}).
			Where("report_id = ? AND status = ?", reportID, string(from)).
			Updates(map[string]interface{}{
				"status":         next.Status,
				"started_at":     next.StartedAt,
				"completed_at":   next.CompletedAt,
				"reference_time": next.ReferenceTime,
				"artifact":       next.Artifact,
				"error":          next.Error,
				"diagnostics":    next.Diagnostics,
				"transitions":    next.Transitions,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update report status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: report %s changed concurrently (expected %s)", model.ErrInvalidTransition, reportID, from)
		}
		return nil
	})
}

// ListFinishedBefore retrieves terminal reports completed before cutoff, oldest first
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Report, error) {
	var rows []*Report
	query := r.ds.DB(ctx).
		Where("status IN ? AND completed_at < ?", []string{string(model.ReportStatusComplete), string(model.ReportStatusFailed)}, cutoff).
		Order("completed_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list finished reports: %w", err)
	}

	reports := make([]*model.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, ToReportDomain(row))
	}
	return reports, nil
}

// Delete deletes a report
func (r *ReportRepository) Delete(ctx context.Context, reportID string) error {
	return r.ds.DB(ctx).Where("report_id = ?", reportID).Delete(&Report{}).Error
}
