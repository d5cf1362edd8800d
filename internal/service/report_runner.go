package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storepulse/internal/model"
	"storepulse/pkg/interfaces"
	"storepulse/pkg/logger"
	"storepulse/pkg/metrics"
	"storepulse/pkg/uptime"

	"golang.org/x/sync/errgroup"
)

// RunnerOptions batch settings of the report worker
type RunnerOptions struct {
	BatchSize   int // stores loaded and written per batch
	Concurrency int // stores computed in parallel within a batch
}

// ReportNotifier receives the status of every report that reached a terminal state
type ReportNotifier interface {
	NotifyReport(ctx context.Context, status *model.StatusResponse) error
}

// ReportRunner executes report jobs: Pending -> Running -> Complete | Failed
type ReportRunner struct {
	source     interfaces.DataSource
	reports    interfaces.ReportStore
	artifacts  interfaces.ArtifactStore
	aggregator *uptime.Aggregator
	metrics    *metrics.Collector
	notifier   ReportNotifier

	batchSize   int
	concurrency int
	now         func() time.Time
}

// NewReportRunner creates a report runner
func NewReportRunner(
	source interfaces.DataSource,
	reports interfaces.ReportStore,
	artifacts interfaces.ArtifactStore,
	aggregator *uptime.Aggregator,
	collector *metrics.Collector,
	opts RunnerOptions,
) *ReportRunner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &ReportRunner{
		source:      source,
		reports:     reports,
		artifacts:   artifacts,
		aggregator:  aggregator,
		metrics:     collector,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		now:         time.Now,
	}
}

// runOutput what a run produced, complete or not
type runOutput struct {
	reference   *time.Time
	artifact    *model.ArtifactDescriptor
	diagnostics []model.Diagnostic
}

// Run executes one report job. A job that ends Failed is a recorded outcome, not an error;
// errors mean the job could not be started or its outcome could not be stored.
func (r *ReportRunner) Run(ctx context.Context, reportID string) error {
	ctx = logger.WithReportID(ctx, reportID)

	startedAt := r.now().UTC()
	var pinned *time.Time
	err := r.reports.Transition(ctx, reportID, model.ReportStatusPending, model.ReportStatusRunning, startedAt,
		func(rep *model.Report) {
			rep.StartedAt = &startedAt
			if rep.ReferenceTime != nil {
				ref := rep.ReferenceTime.UTC()
				pinned = &ref
			}
		})
	if err != nil {
		return fmt.Errorf("failed to start report %s: %w", reportID, err)
	}
	r.metrics.RecordStarted()
	logger.InfoCtx(ctx, "report started")

	out, runErr := r.execute(ctx, reportID, pinned)
	finishedAt := r.now().UTC()
	elapsed := finishedAt.Sub(startedAt)
	// the outcome is recorded even when ctx was cancelled mid-run
	recordCtx := context.WithoutCancel(ctx)

	if runErr != nil {
		logger.ErrorCtx(ctx, "report failed after %s: %v", elapsed, runErr)
		err := r.reports.Transition(recordCtx, reportID, model.ReportStatusRunning, model.ReportStatusFailed, finishedAt,
			func(rep *model.Report) {
				rep.CompletedAt = &finishedAt
				rep.ReferenceTime = out.reference
				rep.Error = runErr.Error()
				rep.Diagnostics = out.diagnostics
			})
		if err != nil {
			return fmt.Errorf("failed to record report failure: %w", err)
		}
		r.metrics.RecordFailed(elapsed, true)
		r.notify(recordCtx, reportID)
		return nil
	}

	err = r.reports.Transition(recordCtx, reportID, model.ReportStatusRunning, model.ReportStatusComplete, finishedAt,
		func(rep *model.Report) {
			rep.CompletedAt = &finishedAt
			rep.ReferenceTime = out.reference
			rep.Artifact = out.artifact
			rep.Diagnostics = out.diagnostics
		})
	if err != nil {
		if delErr := r.artifacts.Delete(recordCtx, out.artifact.Handle); delErr != nil {
			logger.WarnCtx(ctx, "failed to remove orphaned artifact %s: %v", out.artifact.Handle, delErr)
		}
		return fmt.Errorf("failed to record report completion: %w", err)
	}
	r.metrics.RecordCompleted(elapsed)
	logger.InfoCtx(ctx, "report complete, rows: %d, bytes: %d, diagnostics: %d, elapsed: %s",
		out.artifact.RowCount, out.artifact.ByteSize, len(out.diagnostics), elapsed)
	r.notify(recordCtx, reportID)
	return nil
}

// SetNotifier attaches a terminal-state notifier
func (r *ReportRunner) SetNotifier(n ReportNotifier) {
	r.notifier = n
}

// notify is best effort; the recorded outcome stands whatever the notifier does
func (r *ReportRunner) notify(ctx context.Context, reportID string) {
	if r.notifier == nil {
		return
	}
	report, err := r.reports.Get(ctx, reportID)
	if err != nil {
		logger.WarnCtx(ctx, "failed to load report for notification: %v", err)
		return
	}
	if err := r.notifier.NotifyReport(ctx, ToStatusResponse(report)); err != nil {
		logger.WarnCtx(ctx, "report notification failed: %v", err)
	}
}

// execute computes every store batch by batch and commits the artifact. pinned is the
// reference time resolved at trigger; when nil it is read from the source now.
func (r *ReportRunner) execute(ctx context.Context, reportID string, pinned *time.Time) (*runOutput, error) {
	out := &runOutput{}

	var reference time.Time
	if pinned != nil {
		reference = *pinned
	} else {
		latest, err := r.source.GetMaxObservationTimestamp(ctx)
		if err != nil {
			return out, &model.CatalogError{Op: "reference timestamp", Err: err}
		}
		reference = latest.UTC()
	}
	out.reference = &reference

	storeIDs, err := r.source.ListAllStoreIDs(ctx)
	if err != nil {
		return out, &model.CatalogError{Op: "list stores", Err: err}
	}
	storeIDs = sortedUnique(storeIDs)

	windows := uptime.ResolveWindows(reference)
	logger.InfoCtx(ctx, "reference time %s, stores: %d", reference.Format(time.RFC3339Nano), len(storeIDs))

	writer, err := r.artifacts.Create(ctx, reportID)
	if err != nil {
		return out, fmt.Errorf("failed to create artifact: %w", err)
	}

	for start := 0; start < len(storeIDs); start += r.batchSize {
		end := min(start+r.batchSize, len(storeIDs))
		results, err := r.computeBatch(ctx, storeIDs[start:end], windows)
		if err != nil {
			writer.Abort()
			return out, err
		}

		rows := make([]model.ReportRow, len(results))
		degraded := 0
		for i, res := range results {
			rows[i] = res.Row
			if res.Row.Degraded || len(res.Diagnostics) > 0 {
				degraded++
			}
			out.diagnostics = append(out.diagnostics, res.Diagnostics...)
		}
		if err := writer.WriteRows(rows); err != nil {
			writer.Abort()
			return out, fmt.Errorf("failed to write artifact rows: %w", err)
		}
		r.metrics.RecordStores(len(rows), degraded)
		logger.DebugCtx(ctx, "batch written, stores %d-%d of %d", start+1, end, len(storeIDs))
	}

	desc, err := writer.Commit()
	if err != nil {
		return out, fmt.Errorf("failed to commit artifact: %w", err)
	}
	if desc.RowCount != len(storeIDs) {
		if delErr := r.artifacts.Delete(ctx, desc.Handle); delErr != nil {
			logger.WarnCtx(ctx, "failed to remove inconsistent artifact %s: %v", desc.Handle, delErr)
		}
		return out, fmt.Errorf("artifact has %d rows, expected %d", desc.RowCount, len(storeIDs))
	}
	out.artifact = desc
	return out, nil
}

// computeBatch computes the stores of one batch in parallel; results keep the input order
func (r *ReportRunner) computeBatch(ctx context.Context, storeIDs []string, windows []uptime.Window) ([]uptime.StoreResult, error) {
	results := make([]uptime.StoreResult, len(storeIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, storeID := range storeIDs {
		g.Go(func() error {
			res, err := r.computeStore(gctx, storeID, windows)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// computeStore loads one store and aggregates it. Read errors degrade the row; only
// cancellation of ctx is returned.
func (r *ReportRunner) computeStore(ctx context.Context, storeID string, windows []uptime.Window) (uptime.StoreResult, error) {
	widest := uptime.Widest(windows)
	in := uptime.StoreInput{StoreID: storeID}

	var err error
	in.Observations, err = r.source.GetObservations(ctx, storeID, widest.Start, widest.End)
	if err != nil {
		return r.sourceFailure(ctx, storeID, "observations", err)
	}
	in.Rules, err = r.source.GetBusinessHourRules(ctx, storeID)
	if err != nil {
		return r.sourceFailure(ctx, storeID, "business hours", err)
	}
	tz, ok, err := r.source.GetTimezone(ctx, storeID)
	if err != nil {
		return r.sourceFailure(ctx, storeID, "timezone", err)
	}
	if ok {
		in.Timezone = tz
	}

	res := r.aggregator.Compute(in, windows)
	for _, d := range res.Diagnostics {
		logger.DebugCtx(ctx, "store %s: %s: %s", d.StoreID, d.Kind, d.Message)
	}
	return res, nil
}

func (r *ReportRunner) sourceFailure(ctx context.Context, storeID, what string, err error) (uptime.StoreResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return uptime.StoreResult{}, ctxErr
	}
	logger.WarnCtx(ctx, "store %s: failed to read %s: %v", storeID, what, err)
	return uptime.StoreResult{
		Row: model.ReportRow{StoreID: storeID, Degraded: true},
		Diagnostics: []model.Diagnostic{{
			StoreID: storeID,
			Kind:    model.DiagnosticSource,
			Message: fmt.Sprintf("failed to read %s: %v", what, err),
		}},
	}, nil
}

func sortedUnique(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}
