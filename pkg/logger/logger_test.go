package logger

import (
	"context"
	"path/filepath"
	"testing"

	"storepulse/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTraceFields(t *testing.T) {
	assert.Equal(t, defaultTraceID, getTraceFields(nil))
	assert.Equal(t, defaultTraceID, getTraceFields(context.Background()))
	assert.Equal(t, "report-1", getTraceFields(WithReportID(context.Background(), "report-1")))
	assert.Equal(t, defaultTraceID, getTraceFields(WithReportID(context.Background(), "")))
}

func TestNewRotatingWriter(t *testing.T) {
	_, err := newRotatingWriter(config.LoggerFileConfig{})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	w, err := newRotatingWriter(config.LoggerFileConfig{Path: path, MaxBackups: 3})
	require.NoError(t, err)
	assert.Equal(t, path, w.Filename)
	assert.Equal(t, 100, w.MaxSize)
	assert.Equal(t, 3, w.MaxBackups)
}
