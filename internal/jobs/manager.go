package jobs

import (
	"context"
	"sync"
	"time"

	"storepulse/pkg/lock"
	"storepulse/pkg/logger"
)

// Job represents a periodic background task.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// AlignedJob is a job that runs at aligned time boundaries (e.g., on the hour).
type AlignedJob interface {
	Job
	AlignToInterval() bool
}

// ExclusiveJob is a job that must run on at most one replica at a time.
type ExclusiveJob interface {
	Job
	LockKey() string
}

// LockFactory returns the distributed lock guarding key.
type LockFactory func(key string) lock.DistributedLock

// Manager orchestrates the lifecycle of background jobs.
type Manager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    []Job
	newLock LockFactory
	started bool

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewManager creates a job manager bound to the provided context. Without a lock factory,
// exclusive jobs run unguarded.
func NewManager(parent context.Context, newLock LockFactory) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make([]Job, 0),
		newLock: newLock,
	}
}

// Register adds a job to the manager.
func (m *Manager) Register(job Job) {
	if job == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

// Start launches all registered jobs.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	jobs := append([]Job(nil), m.jobs...)
	m.mu.Unlock()

	for _, job := range jobs {
		m.wg.Add(1)
		go m.runJob(job)
	}
}

// Stop signals all jobs to stop.
func (m *Manager) Stop() {
	m.cancel()
}

// Wait blocks until all jobs exit.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) runJob(job Job) {
	defer m.wg.Done()

	interval := job.Interval()
	if interval <= 0 {
		interval = time.Minute
	}

	alignedJob, shouldAlign := job.(AlignedJob)
	if shouldAlign && alignedJob.AlignToInterval() {
		now := time.Now()
		next := now.Truncate(interval).Add(interval)
		logger.InfoCtx(m.ctx, "job %s will start at next aligned time: %v (in %v)", job.Name(), next.Format("15:04:05"), next.Sub(now))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-m.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			m.executeJob(job)
		}
	} else {
		m.executeJob(job)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.executeJob(job)
		}
	}
}

func (m *Manager) executeJob(job Job) {
	start := time.Now()

	exclusive, ok := job.(ExclusiveJob)
	if !ok || m.newLock == nil {
		if err := job.Run(m.ctx); err != nil {
			logger.WarnCtx(m.ctx, "background job %s failed: %v", job.Name(), err)
		}
		return
	}

	ran, err := lock.WithLock(m.ctx, m.newLock(exclusive.LockKey()), job.Run)
	switch {
	case err != nil:
		logger.WarnCtx(m.ctx, "background job %s failed: %v", job.Name(), err)
	case !ran:
		logger.DebugCtx(m.ctx, "background job %s skipped, lock %s held elsewhere", job.Name(), exclusive.LockKey())
	default:
		logger.DebugCtx(m.ctx, "background job %s finished in %v", job.Name(), time.Since(start))
	}
}
