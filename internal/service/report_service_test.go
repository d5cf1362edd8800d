package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storepulse/internal/model"
	"storepulse/pkg/artifact"
	"storepulse/pkg/interfaces"
	"storepulse/pkg/metrics"
	"storepulse/pkg/queue/local"
	"storepulse/pkg/store/memory"
	"storepulse/pkg/uptime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const expectedReport = "store_id,uptime_last_hour,uptime_last_day,uptime_last_week,downtime_last_hour,downtime_last_day,downtime_last_week\n" +
	"1,0.00,2.25,2.25,0.00,0.75,0.75\n" +
	"2,60.00,24.00,168.00,0.00,0.00,0.00\n" +
	"3,60.00,24.00,168.00,0.00,0.00,0.00\n"

// seedDataset builds three stores around the reference instant 2023-01-23 20:00 UTC (a Monday):
// store 1 opens Monday 09:00-12:00 Chicago time and is seen active at 10:14 then inactive at 11:15
// (the previous Monday's hours fall just outside the week window), store 2 has only a timezone and
// store 3 has only the latest observation.
func seedDataset(t *testing.T) *memory.Dataset {
	t.Helper()
	ctx := context.Background()
	ds := memory.NewDataset()
	require.NoError(t, ds.SaveObservations(ctx, []model.Observation{
		{StoreID: "1", Timestamp: time.Date(2023, 1, 23, 16, 14, 0, 0, time.UTC), Status: model.StoreStatusActive},
		{StoreID: "1", Timestamp: time.Date(2023, 1, 23, 17, 15, 0, 0, time.UTC), Status: model.StoreStatusInactive},
		{StoreID: "3", Timestamp: time.Date(2023, 1, 23, 20, 0, 0, 0, time.UTC), Status: model.StoreStatusActive},
	}))
	require.NoError(t, ds.SaveBusinessHourRules(ctx, []model.BusinessHourRule{
		{StoreID: "1", DayOfWeek: 0, StartTimeLocal: "09:00:00", EndTimeLocal: "12:00:00"},
	}))
	require.NoError(t, ds.SaveTimezones(ctx, []model.TimezoneMapping{
		{StoreID: "1", Timezone: "America/Chicago"},
		{StoreID: "2", Timezone: "Asia/Kolkata"},
	}))
	return ds
}

// gatedSource blocks the store catalog read, which only the worker performs, until released
type gatedSource struct {
	*memory.Dataset
	release chan struct{}
}

func (g *gatedSource) ListAllStoreIDs(ctx context.Context) ([]string, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Dataset.ListAllStoreIDs(ctx)
}

// brokenRulesSource fails business hour reads for one store
type brokenRulesSource struct {
	*memory.Dataset
	storeID string
}

func (b *brokenRulesSource) GetBusinessHourRules(ctx context.Context, storeID string) ([]model.BusinessHourRule, error) {
	if storeID == b.storeID {
		return nil, errors.New("connection reset")
	}
	return b.Dataset.GetBusinessHourRules(ctx, storeID)
}

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(ctx context.Context, reportID string) error {
	return errors.New("queue unavailable")
}

func (failingDispatcher) Close() error { return nil }

type harness struct {
	reports   *memory.ReportStore
	artifacts *artifact.FileStore
	runner    *ReportRunner
	dir       string
}

func newHarness(t *testing.T, source interfaces.DataSource, batchSize int) *harness {
	t.Helper()
	dir := t.TempDir()
	artifacts, err := artifact.NewFileStore(dir, 2)
	require.NoError(t, err)
	places := int32(2)
	aggregator, err := uptime.NewAggregator(uptime.AggregatorOptions{
		DefaultTimezone: "America/Chicago",
		DecimalPlaces:   &places,
	})
	require.NoError(t, err)

	reports := memory.NewReportStore()
	runner := NewReportRunner(source, reports, artifacts, aggregator, metrics.NewCollector(), RunnerOptions{
		BatchSize:   batchSize,
		Concurrency: 4,
	})
	return &harness{reports: reports, artifacts: artifacts, runner: runner, dir: dir}
}

func (h *harness) createPending(t *testing.T, reportID string) {
	t.Helper()
	require.NoError(t, h.reports.Create(context.Background(), &model.Report{
		ReportID:  reportID,
		Status:    model.ReportStatusPending,
		CreatedAt: time.Now().UTC(),
	}))
}

func (h *harness) artifactContent(t *testing.T, rep *model.Report) string {
	t.Helper()
	require.NotNil(t, rep.Artifact)
	rc, err := h.artifacts.Open(context.Background(), rep.Artifact.Handle)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestReportLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	source := &gatedSource{Dataset: seedDataset(t), release: make(chan struct{})}
	h := newHarness(t, source, 2)
	dispatcher := local.NewDispatcher(h.runner)
	svc := NewReportService(source, h.reports, h.artifacts, dispatcher, metrics.NewCollector())

	resp, err := svc.Trigger(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ReportID)
	assert.Equal(t, model.ReportStatusPending, resp.Status)

	// the worker is parked on the gate: never terminal yet
	status, err := svc.GetStatus(ctx, resp.ReportID)
	require.NoError(t, err)
	assert.Contains(t, []model.ReportStatus{model.ReportStatusPending, model.ReportStatusRunning}, status.Status)
	assert.Nil(t, status.Artifact)

	_, _, err = svc.OpenArtifact(ctx, resp.ReportID)
	assert.ErrorIs(t, err, model.ErrReportNotReady)

	close(source.release)
	require.Eventually(t, func() bool {
		st, err := svc.GetStatus(ctx, resp.ReportID)
		return err == nil && st.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, dispatcher.Close())

	status, err = svc.GetStatus(ctx, resp.ReportID)
	require.NoError(t, err)
	require.Equal(t, model.ReportStatusComplete, status.Status)
	require.NotNil(t, status.Artifact)
	assert.Equal(t, 3, status.Artifact.RowCount)
	assert.Equal(t, int64(len(expectedReport)), status.Artifact.ByteSize)
	assert.Equal(t, "/download_report/"+resp.ReportID, status.Artifact.DownloadURL)
	assert.Equal(t, "2023-01-23T20:00:00Z", status.ReferenceTime)
	assert.Empty(t, status.Error)

	rc, rep, err := svc.OpenArtifact(ctx, resp.ReportID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, expectedReport, string(data))

	// append-only log, forward edges only
	require.Len(t, rep.Transitions, 2)
	assert.Equal(t, model.ReportStatusPending, rep.Transitions[0].From)
	assert.Equal(t, model.ReportStatusRunning, rep.Transitions[0].To)
	assert.Equal(t, model.ReportStatusComplete, rep.Transitions[1].To)
	assert.NotNil(t, rep.StartedAt)
	assert.NotNil(t, rep.CompletedAt)
}

func TestGetStatusConsistentWhileRunning(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	source := &gatedSource{Dataset: seedDataset(t), release: make(chan struct{})}
	h := newHarness(t, source, 1)
	dispatcher := local.NewDispatcher(h.runner)
	svc := NewReportService(source, h.reports, h.artifacts, dispatcher, nil)

	resp, err := svc.Trigger(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st, err := svc.GetStatus(ctx, resp.ReportID)
		return err == nil && st.Status == model.ReportStatusRunning
	}, 5*time.Second, 5*time.Millisecond)

	var torn atomic.Int64
	var polls atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				st, err := svc.GetStatus(ctx, resp.ReportID)
				if err != nil {
					torn.Add(1)
					return
				}
				polls.Add(1)
				switch st.Status {
				case model.ReportStatusRunning:
					if st.StartedAt == "" || st.CompletedAt != "" || st.Artifact != nil {
						torn.Add(1)
					}
				case model.ReportStatusComplete:
					if st.CompletedAt == "" || st.Artifact == nil || st.Artifact.RowCount != 3 {
						torn.Add(1)
					}
					return
				default:
					torn.Add(1)
					return
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(source.release)
	wg.Wait()
	require.NoError(t, dispatcher.Close())

	assert.Zero(t, torn.Load())
	assert.Positive(t, polls.Load())
}

func TestReferenceTimePinnedAtTrigger(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	source := &gatedSource{Dataset: seedDataset(t), release: make(chan struct{})}
	h := newHarness(t, source, 10)
	dispatcher := local.NewDispatcher(h.runner)
	svc := NewReportService(source, h.reports, h.artifacts, dispatcher, nil)

	resp, err := svc.Trigger(ctx)
	require.NoError(t, err)

	pending, err := h.reports.Get(ctx, resp.ReportID)
	require.NoError(t, err)
	require.NotNil(t, pending.ReferenceTime)
	assert.Equal(t, time.Date(2023, 1, 23, 20, 0, 0, 0, time.UTC), *pending.ReferenceTime)

	// data ingested after the trigger must not move the windows
	require.NoError(t, source.SaveObservations(ctx, []model.Observation{
		{StoreID: "3", Timestamp: time.Date(2023, 1, 24, 10, 0, 0, 0, time.UTC), Status: model.StoreStatusInactive},
	}))
	close(source.release)
	require.NoError(t, dispatcher.Close())

	rep, err := h.reports.Get(ctx, resp.ReportID)
	require.NoError(t, err)
	require.Equal(t, model.ReportStatusComplete, rep.Status)
	assert.Equal(t, time.Date(2023, 1, 23, 20, 0, 0, 0, time.UTC), *rep.ReferenceTime)
	assert.Equal(t, expectedReport, h.artifactContent(t, rep))
}

func TestReportDeterminism(t *testing.T) {
	ctx := context.Background()
	ds := seedDataset(t)

	var contents []string
	var checksums []string
	for _, batch := range []int{1, 2, 100} {
		h := newHarness(t, ds, batch)
		h.createPending(t, "r")
		require.NoError(t, h.runner.Run(ctx, "r"))

		rep, err := h.reports.Get(ctx, "r")
		require.NoError(t, err)
		require.Equal(t, model.ReportStatusComplete, rep.Status)
		contents = append(contents, h.artifactContent(t, rep))
		checksums = append(checksums, rep.Artifact.Checksum)
	}

	for i := range contents {
		assert.Equal(t, expectedReport, contents[i])
		assert.Equal(t, checksums[0], checksums[i])
	}
}

func TestReportRowCompleteness(t *testing.T) {
	ctx := context.Background()
	ds := memory.NewDataset()
	base := time.Date(2023, 1, 23, 20, 0, 0, 0, time.UTC)
	var observations []model.Observation
	for i := 0; i < 25; i++ {
		observations = append(observations, model.Observation{
			StoreID:   "store-" + string(rune('a'+i)),
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
			Status:    model.StoreStatusActive,
		})
	}
	require.NoError(t, ds.SaveObservations(ctx, observations))
	require.NoError(t, ds.SaveTimezones(ctx, []model.TimezoneMapping{{StoreID: "tz-only", Timezone: "Europe/Berlin"}}))
	require.NoError(t, ds.SaveBusinessHourRules(ctx, []model.BusinessHourRule{{StoreID: "rules-only", DayOfWeek: 2, StartTimeLocal: "08:00:00", EndTimeLocal: "17:00:00"}}))

	h := newHarness(t, ds, 7)
	h.createPending(t, "r")
	require.NoError(t, h.runner.Run(ctx, "r"))

	rep, err := h.reports.Get(ctx, "r")
	require.NoError(t, err)
	require.Equal(t, model.ReportStatusComplete, rep.Status)
	assert.Equal(t, 27, rep.Artifact.RowCount)

	lines := strings.Split(strings.TrimSuffix(h.artifactContent(t, rep), "\n"), "\n")
	assert.Len(t, lines, 28)
}

func TestReportCatalogFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, memory.NewDataset(), 10)
	h.createPending(t, "r")

	require.NoError(t, h.runner.Run(ctx, "r"))

	rep, err := h.reports.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusFailed, rep.Status)
	assert.Contains(t, rep.Error, "no observations")
	assert.Nil(t, rep.Artifact)
	assert.NotNil(t, rep.CompletedAt)

	// no partial artifact left behind
	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// terminal: a second run cannot restart it
	err = h.runner.Run(ctx, "r")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestReportStoreReadFailureDegradesRow(t *testing.T) {
	ctx := context.Background()
	source := &brokenRulesSource{Dataset: seedDataset(t), storeID: "2"}
	h := newHarness(t, source, 10)
	h.createPending(t, "r")

	require.NoError(t, h.runner.Run(ctx, "r"))

	rep, err := h.reports.Get(ctx, "r")
	require.NoError(t, err)
	require.Equal(t, model.ReportStatusComplete, rep.Status)
	assert.Equal(t, 3, rep.Artifact.RowCount)
	assert.Contains(t, h.artifactContent(t, rep), "\n2,0.00,0.00,0.00,0.00,0.00,0.00\n")
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, model.DiagnosticSource, rep.Diagnostics[0].Kind)
	assert.Equal(t, "2", rep.Diagnostics[0].StoreID)
	assert.Equal(t, 1, rep.DegradedCount())
}

type recordingNotifier struct {
	statuses []*model.StatusResponse
	err      error
}

func (n *recordingNotifier) NotifyReport(ctx context.Context, status *model.StatusResponse) error {
	n.statuses = append(n.statuses, status)
	return n.err
}

func TestReportRunnerNotifiesTerminalStates(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t, seedDataset(t), 10)
	notifier := &recordingNotifier{err: errors.New("webhook down")}
	h.runner.SetNotifier(notifier)
	h.createPending(t, "ok")
	require.NoError(t, h.runner.Run(ctx, "ok"))

	failing := newHarness(t, memory.NewDataset(), 10)
	failing.runner.SetNotifier(notifier)
	failing.createPending(t, "bad")
	require.NoError(t, failing.runner.Run(ctx, "bad"))

	require.Len(t, notifier.statuses, 2)
	assert.Equal(t, model.ReportStatusComplete, notifier.statuses[0].Status)
	require.NotNil(t, notifier.statuses[0].Artifact)
	assert.Equal(t, 3, notifier.statuses[0].Artifact.RowCount)
	assert.Equal(t, model.ReportStatusFailed, notifier.statuses[1].Status)

	// a notifier error leaves the recorded outcome untouched
	rep, err := h.reports.Get(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusComplete, rep.Status)
}

func TestReportRunUnknownID(t *testing.T) {
	h := newHarness(t, seedDataset(t), 10)
	err := h.runner.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrReportNotFound)
}

func TestGetStatusNotFound(t *testing.T) {
	ds := seedDataset(t)
	h := newHarness(t, ds, 10)
	svc := NewReportService(ds, h.reports, h.artifacts, local.NewDispatcher(h.runner), nil)

	status, err := svc.GetStatus(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusNotFound, status.Status)
	assert.Equal(t, "nope", status.ReportID)

	_, _, err = svc.OpenArtifact(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrReportNotFound)
}

func TestTriggerDispatchFailure(t *testing.T) {
	ctx := context.Background()
	ds := seedDataset(t)
	h := newHarness(t, ds, 10)
	svc := NewReportService(ds, h.reports, h.artifacts, failingDispatcher{}, nil)
	svc.newID = func() string { return "fixed" }

	_, err := svc.Trigger(ctx)
	require.Error(t, err)

	rep, err := h.reports.Get(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusFailed, rep.Status)
	assert.Contains(t, rep.Error, "queue unavailable")
}

func TestPurgeFinished(t *testing.T) {
	ctx := context.Background()
	ds := seedDataset(t)
	h := newHarness(t, ds, 10)
	svc := NewReportService(ds, h.reports, h.artifacts, local.NewDispatcher(h.runner), nil)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := start
	h.runner.now = func() time.Time { return clock }
	for _, id := range []string{"old-1", "old-2", "new"} {
		if id == "new" {
			clock = start.Add(48 * time.Hour)
		}
		h.createPending(t, id)
		require.NoError(t, h.runner.Run(ctx, id))
	}
	h.createPending(t, "pending")

	purged, err := svc.PurgeFinished(ctx, start.Add(24*time.Hour), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	for _, id := range []string{"old-1", "old-2"} {
		_, err := h.reports.Get(ctx, id)
		assert.ErrorIs(t, err, model.ErrReportNotFound)
		_, err = os.Stat(filepath.Join(h.dir, artifact.HandleFor(id)))
		assert.True(t, os.IsNotExist(err))
	}
	for _, id := range []string{"new", "pending"} {
		_, err := h.reports.Get(ctx, id)
		assert.NoError(t, err)
	}
}
