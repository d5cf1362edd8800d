package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"storepulse/internal/model"
	"storepulse/pkg/constants"
	"storepulse/pkg/interfaces"
	"storepulse/pkg/logger"
	"storepulse/pkg/metrics"
	"storepulse/pkg/status"

	"github.com/google/uuid"
)

// ReportService report job API: trigger, poll, download, purge
type ReportService struct {
	source     interfaces.DataSource
	reports    interfaces.ReportStore
	artifacts  interfaces.ArtifactStore
	dispatcher interfaces.Dispatcher
	metrics    *metrics.Collector

	now   func() time.Time
	newID func() string
}

// NewReportService creates a new report service
func NewReportService(
	source interfaces.DataSource,
	reports interfaces.ReportStore,
	artifacts interfaces.ArtifactStore,
	dispatcher interfaces.Dispatcher,
	collector *metrics.Collector,
) *ReportService {
	return &ReportService{
		source:     source,
		reports:    reports,
		artifacts:  artifacts,
		dispatcher: dispatcher,
		metrics:    collector,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// Trigger mints a report id, stores the Pending job and hands it to the dispatcher.
// It never waits for the computation.
func (s *ReportService) Trigger(ctx context.Context) (*model.TriggerResponse, error) {
	if err := s.source.Ping(ctx); err != nil {
		return nil, &model.CatalogError{Op: "ping", Err: err}
	}

	reportID := s.newID()
	ctx = logger.WithReportID(ctx, reportID)
	report := &model.Report{
		ReportID:  reportID,
		Status:    model.ReportStatusPending,
		CreatedAt: s.now().UTC(),
	}
	// windows are anchored when the report is requested, not when a worker picks it up
	if reference, err := s.source.GetMaxObservationTimestamp(ctx); err == nil {
		reference = reference.UTC()
		report.ReferenceTime = &reference
	} else {
		logger.WarnCtx(ctx, "reference time not resolved at trigger, worker will retry: %v", err)
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	s.metrics.RecordTriggered()

	if err := s.dispatcher.Dispatch(ctx, reportID); err != nil {
		logger.ErrorCtx(ctx, "failed to dispatch report: %v", err)
		failedAt := s.now().UTC()
		markErr := s.reports.Transition(context.WithoutCancel(ctx), reportID, model.ReportStatusPending, model.ReportStatusFailed, failedAt,
			func(rep *model.Report) {
				rep.CompletedAt = &failedAt
				rep.Error = fmt.Sprintf("dispatch failed: %v", err)
			})
		if markErr == nil {
			s.metrics.RecordFailed(0, false)
		} else {
			logger.ErrorCtx(ctx, "failed to mark undispatched report failed: %v", markErr)
		}
		return nil, fmt.Errorf("failed to dispatch report: %w", err)
	}

	logger.InfoCtx(ctx, "report triggered")
	return &model.TriggerResponse{ReportID: reportID, Status: model.ReportStatusPending}, nil
}

// GetReport returns the stored job snapshot
func (s *ReportService) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	return s.reports.Get(ctx, reportID)
}

// GetStatus returns the polling view of a report. Unknown ids yield ReportStatusNotFound,
// not an error.
func (s *ReportService) GetStatus(ctx context.Context, reportID string) (*model.StatusResponse, error) {
	report, err := s.reports.Get(ctx, reportID)
	if err != nil {
		if errors.Is(err, model.ErrReportNotFound) {
			return &model.StatusResponse{ReportID: reportID, Status: model.ReportStatusNotFound}, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return ToStatusResponse(report), nil
}

// ToStatusResponse maps a job snapshot to its polling view
func ToStatusResponse(report *model.Report) *model.StatusResponse {
	resp := &model.StatusResponse{
		ReportID:      report.ReportID,
		Status:        report.Status,
		CreatedAt:     formatTime(&report.CreatedAt),
		StartedAt:     formatTime(report.StartedAt),
		CompletedAt:   formatTime(report.CompletedAt),
		ReferenceTime: formatTime(report.ReferenceTime),
		DegradedCount: report.DegradedCount(),
		Diagnostics:   report.Diagnostics,
	}
	switch report.Status {
	case model.ReportStatusComplete:
		if report.Artifact != nil {
			resp.Artifact = &model.ArtifactResponse{
				RowCount:    report.Artifact.RowCount,
				ByteSize:    report.Artifact.ByteSize,
				Checksum:    report.Artifact.Checksum,
				DownloadURL: constants.DownloadPathPrefix + report.ReportID,
			}
		}
	case model.ReportStatusFailed:
		resp.Error = status.SanitizeMessage(report.Error)
	}
	return resp
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// OpenArtifact opens the CSV of a complete report. Returns model.ErrReportNotFound or
// model.ErrReportNotReady when there is nothing to download.
func (s *ReportService) OpenArtifact(ctx context.Context, reportID string) (io.ReadCloser, *model.Report, error) {
	report, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}
	if report.Status != model.ReportStatusComplete || report.Artifact == nil {
		return nil, report, fmt.Errorf("%w: status %s", model.ErrReportNotReady, report.Status)
	}
	rc, err := s.artifacts.Open(ctx, report.Artifact.Handle)
	if err != nil {
		return nil, report, fmt.Errorf("failed to open artifact: %w", err)
	}
	return rc, report, nil
}

// PurgeFinished removes terminal reports, and their artifacts, completed before cutoff
func (s *ReportService) PurgeFinished(ctx context.Context, cutoff time.Time, batchLimit int) (int, error) {
	if batchLimit <= 0 {
		batchLimit = constants.RetentionBatchLimit
	}

	purged := 0
	for {
		reports, err := s.reports.ListFinishedBefore(ctx, cutoff, batchLimit)
		if err != nil {
			return purged, fmt.Errorf("failed to list finished reports: %w", err)
		}
		for _, rep := range reports {
			if rep.Artifact != nil {
				if err := s.artifacts.Delete(ctx, rep.Artifact.Handle); err != nil {
					return purged, fmt.Errorf("failed to delete artifact of %s: %w", rep.ReportID, err)
				}
			}
			if err := s.reports.Delete(ctx, rep.ReportID); err != nil {
				return purged, fmt.Errorf("failed to delete report %s: %w", rep.ReportID, err)
			}
			purged++
		}
		if len(reports) < batchLimit {
			return purged, nil
		}
	}
}
