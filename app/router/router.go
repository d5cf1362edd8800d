package router

import (
	"net/http"

	"storepulse/app/handler"
	"storepulse/app/middleware"
	"storepulse/pkg/constants"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	reportHandler  *handler.ReportHandler
	ingestHandler  *handler.IngestHandler
	metricsHandler http.Handler
	apiKey         string
}

// NewRouter creates a new Router. ingestHandler and metricsHandler are optional.
func NewRouter(reportHandler *handler.ReportHandler, ingestHandler *handler.IngestHandler, metricsHandler http.Handler, apiKey string) *Router {
	return &Router{
		reportHandler:  reportHandler,
		ingestHandler:  ingestHandler,
		metricsHandler: metricsHandler,
		apiKey:         apiKey,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	engine.GET(constants.RouteHealth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if r.metricsHandler != nil {
		engine.GET(constants.RouteMetrics, gin.WrapH(r.metricsHandler))
	}

	// Unversioned report routes
	engine.POST(constants.RouteTriggerReport, r.reportHandler.Trigger)
	engine.GET(constants.RouteGetReport, r.reportHandler.Status)
	engine.GET(constants.RouteDownloadReport, r.reportHandler.Download)

	// API v1 - same handlers under a versioned resource path
	api := engine.Group(constants.APIPrefix)
	{
		reports := api.Group("/reports")
		{
			reports.POST("", r.reportHandler.Trigger)                     // Trigger report
			reports.GET("/:report_id", r.reportHandler.Status)            // Poll status
			reports.GET("/:report_id/download", r.reportHandler.Download) // Download CSV
		}

		if r.ingestHandler != nil {
			admin := api.Group("/admin")
			admin.Use(middleware.AuthMiddleware(r.apiKey))
			{
				admin.POST(constants.RouteInitializeDatabase, r.ingestHandler.InitializeDatabase)
			}
		}
	}

	if r.ingestHandler != nil {
		engine.POST(constants.RouteInitializeDatabase, middleware.AuthMiddleware(r.apiKey), r.ingestHandler.InitializeDatabase)
	}
}
