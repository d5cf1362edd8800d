package handler

import (
	"errors"
	"net/http"

	"storepulse/internal/model"
	"storepulse/internal/service"
	"storepulse/pkg/artifact"
	"storepulse/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ReportHandler handles report job operations
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates report handler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Trigger starts a report job
// @Summary Trigger report
// @Description Start an asynchronous uptime/downtime report over every store
// @Tags reports
// @Produce json
// @Success 200 {object} model.TriggerResponse
// @Router /trigger_report [post]
func (h *ReportHandler) Trigger(c *gin.Context) {
	resp, err := h.reportService.Trigger(c.Request.Context())
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to trigger report: %v", err)
		var catalogErr *model.CatalogError
		if errors.As(err, &catalogErr) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Status gets report status
// @Summary Get report status
// @Description Poll a report: Pending, Running, Complete (with artifact descriptor), Failed or NotFound
// @Tags reports
// @Produce json
// @Param report_id path string true "Report ID"
// @Success 200 {object} model.StatusResponse
// @Failure 404 {object} model.StatusResponse
// @Router /get_report/{report_id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	reportID := c.Param("report_id")
	if reportID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report_id required"})
		return
	}

	resp, err := h.reportService.GetStatus(c.Request.Context(), reportID)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to get report status, report_id: %s, error: %v", reportID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if resp.Status == model.ReportStatusNotFound {
		c.JSON(http.StatusNotFound, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Download streams the CSV of a complete report
// @Summary Download report
// @Description Download the CSV artifact of a complete report
// @Tags reports
// @Produce text/csv
// @Param report_id path string true "Report ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /download_report/{report_id} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	reportID := c.Param("report_id")
	if reportID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report_id required"})
		return
	}

	rc, report, err := h.reportService.OpenArtifact(c.Request.Context(), reportID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrReportNotFound), errors.Is(err, artifact.ErrArtifactNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, model.ErrReportNotReady):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "status": report.Status})
		default:
			logger.ErrorCtx(c.Request.Context(), "failed to open report artifact, report_id: %s, error: %v", reportID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, report.Artifact.ByteSize, "text/csv", rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + report.Artifact.Handle + `"`,
		"X-Checksum-Sha256":   report.Artifact.Checksum,
	})
}
