package main

import (
	"github.com/go-redis/redis/v8"

	"storepulse/internal/jobs"
	"storepulse/pkg/lock"
	"storepulse/pkg/logger"
)

func (app *Application) initJobs() error {
	if app.reportService == nil {
		logger.WarnCtx(app.ctx, "Service layer not fully initialized yet, skipping background task registration")
		return nil
	}
	if !app.config.Retention.Enabled {
		logger.InfoCtx(app.ctx, "Report retention disabled")
		return nil
	}

	// Locks keep replicas from purging concurrently.
	// If Redis is unavailable, locks downgrade to single-instance mode.
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}
	manager := jobs.NewManager(app.ctx, func(key string) lock.DistributedLock {
		return lock.NewRedisLock(redisClient, key)
	})

	manager.Register(jobs.NewRetentionJob(app.reportService, app.config.Retention.ReportTTL, app.config.Retention.Interval))
	logger.InfoCtx(app.ctx, "Report retention enabled (ttl: %v, interval: %v)",
		app.config.Retention.ReportTTL, app.config.Retention.Interval)

	app.jobsManager = manager
	return nil
}
