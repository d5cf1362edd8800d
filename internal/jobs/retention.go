package jobs

import (
	"context"
	"time"

	"storepulse/pkg/constants"
	"storepulse/pkg/logger"
)

// Purger removes terminal reports completed before cutoff
type Purger interface {
	PurgeFinished(ctx context.Context, cutoff time.Time, batchLimit int) (int, error)
}

// RetentionJob periodically deletes finished reports older than the TTL
type RetentionJob struct {
	purger   Purger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewRetentionJob creates the report retention job
func NewRetentionJob(purger Purger, ttl, interval time.Duration) *RetentionJob {
	return &RetentionJob{purger: purger, ttl: ttl, interval: interval, now: time.Now}
}

func (j *RetentionJob) Name() string {
	return constants.JobReportRetention
}

func (j *RetentionJob) Interval() time.Duration {
	return j.interval
}

func (j *RetentionJob) LockKey() string {
	return constants.RetentionLockKey
}

func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	purged, err := j.purger.PurgeFinished(ctx, cutoff, constants.RetentionBatchLimit)
	if purged > 0 {
		logger.InfoCtx(ctx, "report retention purged %d reports finished before %s", purged, cutoff.UTC().Format(time.RFC3339))
	}
	return err
}
