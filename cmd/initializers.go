package main

import (
	"fmt"
	"net/http"
	"time"

	"storepulse/app/handler"
	"storepulse/app/router"
	"storepulse/internal/service"
	"storepulse/pkg/artifact"
	"storepulse/pkg/config"
	"storepulse/pkg/interfaces"
	"storepulse/pkg/logger"
	"storepulse/pkg/metrics"
	"storepulse/pkg/notification"
	"storepulse/pkg/queue"
	"storepulse/pkg/store/memory"
	mysqlstore "storepulse/pkg/store/mysql"
	redisstore "storepulse/pkg/store/redis"
	"storepulse/pkg/uptime"

	"github.com/gin-gonic/gin"
)

// Provider names accepted in the providers section
const (
	providerMySQL  = "mysql"
	providerRedis  = "redis"
	providerMemory = "memory"
	providerAsynq  = "asynq"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.InfoCtx(app.ctx, "Logging system has been closed")
		logger.Sync()
	})
	return nil
}

func (app *Application) needsMySQL() bool {
	p := app.config.Providers
	return p.DataSource == providerMySQL || p.ReportStore == providerMySQL
}

func (app *Application) needsRedis() bool {
	p := app.config.Providers
	return p.ReportStore == providerRedis || p.Dispatcher == providerAsynq
}

// initMySQL initializes MySQL when a provider is backed by it
func (app *Application) initMySQL() error {
	if !app.needsMySQL() {
		logger.InfoCtx(app.ctx, "MySQL not required by configured providers, skipping")
		return nil
	}

	repo, err := mysqlstore.NewRepository(mysqlstore.BuildDSN(app.config.MySQL))
	if err != nil {
		return err
	}
	app.mysqlRepo = repo
	app.registerCleanup(func() {
		repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	if err := repo.GetDatastore().AutoMigrate(app.ctx); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// initRedis initializes Redis. It is optional unless the report store or dispatcher needs it;
// when configured it also backs the retention lock.
func (app *Application) initRedis() error {
	if app.config.Redis.Addr == "" {
		if app.needsRedis() {
			return fmt.Errorf("redis.addr is required by the configured providers")
		}
		logger.InfoCtx(app.ctx, "Redis not configured, skipping")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config.Redis)
	if err != nil {
		return err
	}
	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})
	return nil
}

// initProviders selects the data source, report store and artifact store
func (app *Application) initProviders() error {
	cfg := app.config

	switch cfg.Providers.DataSource {
	case providerMySQL:
		ds := mysqlstore.NewDataSource(app.mysqlRepo, cfg.Ingest.ChunkSize)
		app.dataSource = ds
		app.ingestSink = ds
	case providerMemory, "":
		ds := memory.NewDataset()
		app.dataSource = ds
		app.ingestSink = ds
	default:
		return fmt.Errorf("unsupported datasource provider: %s", cfg.Providers.DataSource)
	}

	switch cfg.Providers.ReportStore {
	case providerMySQL:
		app.reportStore = app.mysqlRepo.Report
	case providerRedis:
		app.reportStore = redisstore.NewReportRepository(app.redisClient)
	case providerMemory, "":
		app.reportStore = memory.NewReportStore()
	default:
		return fmt.Errorf("unsupported report store provider: %s", cfg.Providers.ReportStore)
	}

	if cfg.Providers.Dispatcher == providerAsynq && app.role != roleAll &&
		(cfg.Providers.DataSource != providerMySQL || cfg.Providers.ReportStore == providerMemory) {
		return fmt.Errorf("role %s with the asynq dispatcher needs shared datasource and report store providers", app.role)
	}

	store, err := artifact.NewFileStore(cfg.Report.ArtifactDir, int(*cfg.Report.DecimalPlaces))
	if err != nil {
		return err
	}
	app.artifactStore = store

	logger.InfoCtx(app.ctx, "Providers: datasource=%s, report_store=%s, artifacts=%s",
		cfg.Providers.DataSource, cfg.Providers.ReportStore, cfg.Report.ArtifactDir)
	return nil
}

// newReportRunner builds the aggregator and the runner from the report section
func (app *Application) newReportRunner() (*service.ReportRunner, error) {
	cfg := app.config.Report
	aggregator, err := uptime.NewAggregator(uptime.AggregatorOptions{
		DefaultTimezone: cfg.DefaultTimezone,
		NoDataPolicy:    uptime.NoDataPolicy(cfg.NoDataPolicy),
		DecimalPlaces:   cfg.DecimalPlaces,
	})
	if err != nil {
		return nil, err
	}
	app.aggregator = aggregator

	runner := service.NewReportRunner(app.dataSource, app.reportStore, app.artifactStore, aggregator, app.collector, service.RunnerOptions{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
	})
	if cfg.WebhookURL != "" {
		runner.SetNotifier(notification.NewWebhookNotifier(cfg.WebhookURL, time.Duration(cfg.WebhookTimeout)*time.Second))
	}
	return runner, nil
}

// initServices initializes the service layer
func (app *Application) initServices() error {
	app.collector = metrics.NewCollector()

	runner, err := app.newReportRunner()
	if err != nil {
		return err
	}
	app.reportRunner = runner

	if app.role == roleWorker && app.config.Providers.Dispatcher != providerAsynq {
		return fmt.Errorf("role %s requires the asynq dispatcher", app.role)
	}

	// api processes only enqueue when jobs go through asynq
	var consumer interfaces.ReportRunner = runner
	if app.role == roleAPI && app.config.Providers.Dispatcher == providerAsynq {
		consumer = nil
	}
	dispatcher, err := queue.CreateDispatcher(app.config, app.config.Providers.Dispatcher, consumer)
	if err != nil {
		return err
	}
	app.dispatcher = dispatcher
	app.registerCleanup(func() {
		dispatcher.Stop()
		dispatcher.Close()
		logger.InfoCtx(app.ctx, "Report dispatcher has been stopped")
	})

	app.reportService = service.NewReportService(app.dataSource, app.reportStore, app.artifactStore, dispatcher, app.collector)
	app.ingestService = service.NewIngestService(app.ingestSink, app.config.Ingest.ChunkSize, app.config.Report.DefaultTimezone)
	return nil
}

// initHandlers initializes the handler layer
func (app *Application) initHandlers() error {
	if app.role == roleWorker {
		return nil
	}
	app.reportHandler = handler.NewReportHandler(app.reportService)
	app.ingestHandler = handler.NewIngestHandler(app.ingestService, app.config.Ingest.DataDir)
	return nil
}

// initHTTPServer initializes the HTTP server
func (app *Application) initHTTPServer() error {
	if app.role == roleWorker {
		logger.InfoCtx(app.ctx, "Worker role, HTTP server disabled")
		return nil
	}

	gin.SetMode(app.config.Server.Mode)
	app.ginEngine = gin.New()

	r := router.NewRouter(app.reportHandler, app.ingestHandler, app.collector.Handler(), app.config.Server.APIKey)
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}
	return nil
}
