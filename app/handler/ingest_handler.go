package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"storepulse/internal/service"
	"storepulse/pkg/ingest"
	"storepulse/pkg/logger"

	"github.com/gin-gonic/gin"
)

// IngestHandler handles CSV ingestion
type IngestHandler struct {
	ingestService *service.IngestService
	dataDir       string
}

// NewIngestHandler creates ingest handler; dataDir is loaded when no file is uploaded
func NewIngestHandler(ingestService *service.IngestService, dataDir string) *IngestHandler {
	return &IngestHandler{ingestService: ingestService, dataDir: dataDir}
}

// InitializeDatabase replaces the input tables
// @Summary Initialize database
// @Description Load store_status, menu_hours and timezones CSV files, either uploaded as multipart fields or read from the data directory
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /initialize_database [post]
func (h *IngestHandler) InitializeDatabase(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		stats []ingest.Stats
		err   error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		files, closeAll, openErr := openUploads(c)
		if openErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": openErr.Error()})
			return
		}
		defer closeAll()
		if len(files) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no csv file uploaded"})
			return
		}
		stats, err = h.ingestService.Load(ctx, files)
	} else {
		stats, err = h.ingestService.LoadDirectory(ctx, h.dataDir)
	}
	if err != nil {
		logger.ErrorCtx(ctx, "failed to initialize database: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "tables": stats})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "database initialized", "tables": stats})
}

// openUploads opens the multipart fields named after the tables
func openUploads(c *gin.Context) (map[ingest.Table]io.Reader, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	files := make(map[ingest.Table]io.Reader)
	for _, table := range []ingest.Table{ingest.TableStoreStatus, ingest.TableMenuHours, ingest.TableTimezones} {
		header, err := c.FormFile(string(table))
		if err != nil {
			continue
		}
		f, err := header.Open()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, f)
		files[table] = f
	}
	return files, closeAll, nil
}
