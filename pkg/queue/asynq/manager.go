package asynq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storepulse/internal/model"
	"storepulse/pkg/config"
	"storepulse/pkg/interfaces"
	"storepulse/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	TypeReportGenerate = "report:generate"

	defaultQueue = "default"
)

// reportPayload task payload of TypeReportGenerate
type reportPayload struct {
	ReportID string `json:"report_id"`
}

// Manager asynq backed report dispatcher. The client side enqueues report ids,
// the server side hands them to a ReportRunner.
type Manager struct {
	client   *asynq.Client
	server   *asynq.Server
	mux      *asynq.ServeMux
	queueCfg config.QueueConfig
}

// NewManager creates queue manager
func NewManager(redisCfg config.RedisConfig, queueCfg config.QueueConfig) (*Manager, error) {
	if redisCfg.Addr == "" {
		return nil, fmt.Errorf("asynq dispatcher requires redis.addr")
	}
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: queueCfg.Concurrency,
			Queues: map[string]int{
				defaultQueue: 10,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Second
			},
		},
	)

	return &Manager{
		client:   asynq.NewClient(redisOpt),
		server:   server,
		mux:      asynq.NewServeMux(),
		queueCfg: queueCfg,
	}, nil
}

// NewReportTask builds the task for one report job
func NewReportTask(reportID string) (*asynq.Task, error) {
	payload, err := json.Marshal(reportPayload{ReportID: reportID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report payload: %w", err)
	}
	return asynq.NewTask(TypeReportGenerate, payload), nil
}

// Dispatch enqueues the report job; the report id doubles as the task id so a
// report is never queued twice
func (m *Manager) Dispatch(ctx context.Context, reportID string) error {
	task, err := NewReportTask(reportID)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.TaskID(reportID),
		asynq.Queue(defaultQueue),
		asynq.MaxRetry(m.queueCfg.MaxRetry),
	}
	if m.queueCfg.TaskTimeout > 0 {
		opts = append(opts, asynq.Timeout(time.Duration(m.queueCfg.TaskTimeout)*time.Second))
	}

	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			logger.WarnCtx(ctx, "report already enqueued, report_id: %s", reportID)
			return nil
		}
		return fmt.Errorf("failed to enqueue report: %w", err)
	}

	logger.InfoCtx(ctx, "report enqueued, report_id: %s, queue: %s", reportID, info.Queue)
	return nil
}

// RegisterRunner routes report tasks to runner
func (m *Manager) RegisterRunner(runner interfaces.ReportRunner) {
	m.mux.Handle(TypeReportGenerate, NewReportHandler(runner))
}

// NewReportHandler adapts a ReportRunner to an asynq handler
func NewReportHandler(runner interfaces.ReportRunner) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		var p reportPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil || p.ReportID == "" {
			return fmt.Errorf("malformed report payload %q: %w", task.Payload(), asynq.SkipRetry)
		}

		ctx = logger.WithReportID(ctx, p.ReportID)
		if err := runner.Run(ctx, p.ReportID); err != nil {
			// a report that is gone or already past Pending will never become runnable
			if errors.Is(err, model.ErrReportNotFound) || errors.Is(err, model.ErrInvalidTransition) {
				logger.WarnCtx(ctx, "dropping report task: %v", err)
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}
		return nil
	})
}

// Start starts queue processor
func (m *Manager) Start() error {
	logger.InfoCtx(context.Background(), "starting queue server")
	return m.server.Start(m.mux)
}

// Stop stops queue processor
func (m *Manager) Stop() {
	logger.InfoCtx(context.Background(), "stopping queue server")
	m.server.Stop()
	m.server.Shutdown()
}

// Close closes client
func (m *Manager) Close() error {
	return m.client.Close()
}
