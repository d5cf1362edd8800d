package constants

// Unversioned HTTP routes; the same handlers are also mounted under APIPrefix
const (
	RouteTriggerReport      = "/trigger_report"
	RouteGetReport          = "/get_report/:report_id"
	RouteDownloadReport     = "/download_report/:report_id"
	RouteInitializeDatabase = "/initialize_database"
	RouteHealth             = "/health"
	RouteMetrics            = "/metrics"

	APIPrefix = "/api/v1"
)

// DownloadPathPrefix download_url of a complete report is DownloadPathPrefix + report id
const DownloadPathPrefix = "/download_report/"

// Distributed lock keys
const (
	RetentionLockKey = "storepulse:lock:report-retention"
)

// Background jobs
const (
	JobReportRetention = "report-retention"

	RetentionBatchLimit = 100
)

// API key header accepted by admin endpoints
const (
	HeaderAPIKey        = "X-API-Key"
	HeaderAuthorization = "Authorization"
)
