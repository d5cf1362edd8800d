package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"storepulse/app/handler"
	"storepulse/internal/jobs"
	"storepulse/internal/service"
	"storepulse/pkg/config"
	"storepulse/pkg/interfaces"
	"storepulse/pkg/logger"
	"storepulse/pkg/metrics"
	"storepulse/pkg/queue"
	mysqlstore "storepulse/pkg/store/mysql"
	redisstore "storepulse/pkg/store/redis"
	"storepulse/pkg/uptime"

	"github.com/gin-gonic/gin"
)

// Application manages the lifecycle of the entire application
type Application struct {
	role string

	// Infrastructure components
	config      *config.Config
	mysqlRepo   *mysqlstore.Repository
	redisClient *redisstore.RedisClient

	// Providers
	dataSource    interfaces.DataSource
	ingestSink    interfaces.IngestSink
	reportStore   interfaces.ReportStore
	artifactStore interfaces.ArtifactStore

	// Service layer
	collector     *metrics.Collector
	aggregator    *uptime.Aggregator
	reportRunner  *service.ReportRunner
	dispatcher    queue.Dispatcher
	reportService *service.ReportService
	ingestService *service.IngestService

	// Handler layer
	reportHandler *handler.ReportHandler
	ingestHandler *handler.IngestHandler

	// HTTP server
	httpServer *http.Server
	ginEngine  *gin.Engine

	// Background tasks
	jobsManager *jobs.Manager

	// Context management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Cleanup functions, executed in reverse registration order
	cleanupFuncs []func()
	closeOnce    sync.Once
}

type initStep struct {
	name string
	fn   func() error
}

// NewApplication creates a new Application instance for the given process role
func NewApplication(role string) *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		role:         role,
		ctx:          ctx,
		cancel:       cancel,
		cleanupFuncs: make([]func(), 0),
	}
}

func (app *Application) storageSteps() []initStep {
	return []initStep{
		{"Configuration", app.initConfig},
		{"Logging", app.initLogger},
		{"MySQL", app.initMySQL},
		{"Redis", app.initRedis},
		{"Providers", app.initProviders},
	}
}

// InitializeStorage initializes configuration, logging and the data providers only
func (app *Application) InitializeStorage() error {
	return app.runSteps(app.storageSteps())
}

// Initialize initializes all application components
func (app *Application) Initialize() error {
	steps := append(app.storageSteps(),
		initStep{"Service Layer", app.initServices},
		initStep{"Background Tasks", app.initJobs},
		initStep{"Handler Layer", app.initHandlers},
		initStep{"HTTP Server", app.initHTTPServer},
	)
	if err := app.runSteps(steps); err != nil {
		return err
	}

	logger.InfoCtx(app.ctx, "Application initialization completed (role: %s)", app.role)
	return nil
}

func (app *Application) runSteps(steps []initStep) error {
	for _, step := range steps {
		logger.InfoCtx(app.ctx, "Initializing %s...", step.name)
		if err := step.fn(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		logger.InfoCtx(app.ctx, "%s initialized successfully", step.name)
	}
	return nil
}

// Start starts all application components
func (app *Application) Start() error {
	logger.InfoCtx(app.ctx, "Starting application components...")

	// 1. Start background tasks
	if app.jobsManager != nil {
		logger.InfoCtx(app.ctx, "Starting background task manager")
		app.jobsManager.Start()
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.jobsManager.Wait()
		}()
	}

	// 2. Start report consumers
	if app.dispatcher != nil && app.role != roleAPI {
		if err := app.dispatcher.Start(); err != nil {
			return fmt.Errorf("failed to start report dispatcher: %w", err)
		}
		logger.InfoCtx(app.ctx, "Report dispatcher started (%s)", app.config.Providers.Dispatcher)
	}

	// 3. Start HTTP server
	if app.httpServer != nil {
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			logger.InfoCtx(app.ctx, "HTTP server listening on: %s", app.httpServer.Addr)
			if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.FatalCtx(app.ctx, "HTTP server error: %v", err)
			}
		}()
	}

	logger.InfoCtx(app.ctx, "All components started successfully")
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown(timeout time.Duration) error {
	logger.InfoCtx(app.ctx, "Starting graceful shutdown (timeout: %v)...", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 1. Cancel all background tasks
	logger.InfoCtx(app.ctx, "Canceling background tasks...")
	app.cancel()
	if app.jobsManager != nil {
		app.jobsManager.Stop()
	}

	// 2. Stop HTTP server (stop accepting new requests)
	if app.httpServer != nil {
		logger.InfoCtx(app.ctx, "Shutting down HTTP server...")
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorCtx(app.ctx, "HTTP server shutdown error: %v", err)
		}
	}

	// 3. Wait for all background tasks to complete
	logger.InfoCtx(app.ctx, "Waiting for background tasks to complete...")
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoCtx(app.ctx, "All background tasks completed")
	case <-shutdownCtx.Done():
		logger.WarnCtx(app.ctx, "Shutdown timeout, some tasks may not have completed")
	}

	// 4. Release providers, in-flight report jobs finish inside the dispatcher's Stop
	app.Close()

	logger.InfoCtx(app.ctx, "Application shutdown completed")
	return nil
}

// Close executes all cleanup functions once, in reverse registration order
func (app *Application) Close() {
	app.closeOnce.Do(func() {
		app.cancel()
		for i := len(app.cleanupFuncs) - 1; i >= 0; i-- {
			app.cleanupFuncs[i]()
		}
	})
}

// registerCleanup registers a cleanup function
func (app *Application) registerCleanup(fn func()) {
	app.cleanupFuncs = append(app.cleanupFuncs, fn)
}
