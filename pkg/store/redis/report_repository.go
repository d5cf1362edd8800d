package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storepulse/internal/model"

	"github.com/go-redis/redis/v8"
)

const (
	reportKeyPrefix    = "report:"          // Report snapshot (report:{report_id})
	reportsFinishedKey = "reports:finished" // Sorted set of terminal reports scored by completion time
	maxTransitionTries = 5                  // Optimistic transaction retries
)

// ReportRepository stores report snapshots as JSON documents, implements interfaces.ReportStore
type ReportRepository struct {
	redis *redis.Client
}

// NewReportRepository creates report repository
func NewReportRepository(redisClient *RedisClient) *ReportRepository {
	return &ReportRepository{
		redis: redisClient.GetClient(),
	}
}

func reportKey(reportID string) string {
	return reportKeyPrefix + reportID
}

// Create saves a new report; fails if the id is taken
func (r *ReportRepository) Create(ctx context.Context, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	created, err := r.redis.SetNX(ctx, reportKey(report.ReportID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	if !created {
		return fmt.Errorf("report %s already exists", report.ReportID)
	}
	return nil
}

// Get retrieves a report
func (r *ReportRepository) Get(ctx context.Context, reportID string) (*model.Report, error) {
	return r.get(ctx, r.redis, reportID)
}

func (r *ReportRepository) get(ctx context.Context, cmd redis.Cmdable, reportID string) (*model.Report, error) {
	data, err := cmd.Get(ctx, reportKey(reportID)).Bytes()
	if err == redis.Nil {
		return nil, model.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// Transition applies a CAS status change inside a WATCH/MULTI transaction
func (r *ReportRepository) Transition(ctx context.Context, reportID string, from, to model.ReportStatus, at time.Time, apply func(*model.Report)) error {
	key := reportKey(reportID)
	txf := func(tx *redis.Tx) error {
		report, err := r.get(ctx, tx, reportID)
		if err != nil {
			return err
		}
		if err := report.ApplyTransition(from, to, at, apply); err != nil {
			return err
		}
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if finished, ok := report.FinishedAt(); ok {
				pipe.ZAdd(ctx, reportsFinishedKey, &redis.Z{
					Score:  float64(finished.UnixMilli()),
					Member: reportID,
				})
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTransitionTries; i++ {
		err := r.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			// Snapshot changed between GET and EXEC, re-read and re-validate
			continue
		}
		return err
	}
	return fmt.Errorf("%w: report %s kept changing", model.ErrInvalidTransition, reportID)
}

// ListFinishedBefore terminal reports finished before cutoff, oldest first
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Report, error) {
	opt := &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}
	if limit > 0 {
		opt.Count = int64(limit)
	}
	ids, err := r.redis.ZRangeByScore(ctx, reportsFinishedKey, opt).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list finished reports: %w", err)
	}

	reports := make([]*model.Report, 0, len(ids))
	for _, id := range ids {
		report, err := r.Get(ctx, id)
		if errors.Is(err, model.ErrReportNotFound) {
			// Index entry outlived its snapshot
			r.redis.ZRem(ctx, reportsFinishedKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Delete removes a report and its index entry
func (r *ReportRepository) Delete(ctx context.Context, reportID string) error {
	pipe := r.redis.TxPipeline()
	pipe.Del(ctx, reportKey(reportID))
	pipe.ZRem(ctx, reportsFinishedKey, reportID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}
