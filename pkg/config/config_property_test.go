package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProperty_InvalidReportSettingsFallBackToDefaults checks that non-positive
// batch sizes and concurrency never survive applyDefaults.
func TestProperty_InvalidReportSettingsFallBackToDefaults(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("non-positive batch size falls back to default", prop.ForAll(
		func(batch int) bool {
			cfg := &Config{Report: ReportConfig{BatchSize: batch}}
			applyDefaults(cfg)
			return cfg.Report.BatchSize == DefaultBatchSize
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("non-positive concurrency falls back to default", prop.ForAll(
		func(concurrency int) bool {
			cfg := &Config{Report: ReportConfig{Concurrency: concurrency}}
			applyDefaults(cfg)
			return cfg.Report.Concurrency == DefaultConcurrency
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("positive values are preserved", prop.ForAll(
		func(batch, concurrency int) bool {
			cfg := &Config{Report: ReportConfig{BatchSize: batch, Concurrency: concurrency}}
			applyDefaults(cfg)
			return cfg.Report.BatchSize == batch && cfg.Report.Concurrency == concurrency
		},
		gen.IntRange(1, 10000),
		gen.IntRange(1, 256),
	))

	properties.Property("unknown no-data policies fall back to active", prop.ForAll(
		func(policy string) bool {
			cfg := &Config{Report: ReportConfig{NoDataPolicy: policy}}
			applyDefaults(cfg)
			switch policy {
			case "active", "inactive", "exclude":
				return cfg.Report.NoDataPolicy == policy
			}
			return cfg.Report.NoDataPolicy == DefaultNoDataPolicy
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
report:
  batch_size: 25
  no_data_policy: inactive
retention:
  enabled: true
  report_ttl: 48h
providers:
  datasource: memory
  report_store: redis
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Report.BatchSize)
	assert.Equal(t, DefaultConcurrency, cfg.Report.Concurrency)
	assert.Equal(t, "inactive", cfg.Report.NoDataPolicy)
	assert.Equal(t, DefaultTimezone, cfg.Report.DefaultTimezone)
	assert.Equal(t, 48*time.Hour, cfg.Retention.ReportTTL)
	assert.Equal(t, DefaultRetentionTick, cfg.Retention.Interval)
	assert.Equal(t, "memory", cfg.Providers.DataSource)
	assert.Equal(t, "redis", cfg.Providers.ReportStore)
	assert.Equal(t, "goroutine", cfg.Providers.Dispatcher)
}

func TestLoad_DecimalPlaces(t *testing.T) {
	dir := t.TempDir()

	unset := filepath.Join(dir, "unset.yaml")
	require.NoError(t, os.WriteFile(unset, []byte("report:\n  batch_size: 10\n"), 0644))
	cfg, err := Load(unset)
	require.NoError(t, err)
	require.NotNil(t, cfg.Report.DecimalPlaces)
	assert.Equal(t, int32(DefaultDecimalPlaces), *cfg.Report.DecimalPlaces)

	whole := filepath.Join(dir, "whole.yaml")
	require.NoError(t, os.WriteFile(whole, []byte("report:\n  decimal_places: 0\n"), 0644))
	cfg, err = Load(whole)
	require.NoError(t, err)
	require.NotNil(t, cfg.Report.DecimalPlaces)
	assert.Equal(t, int32(0), *cfg.Report.DecimalPlaces)

	assert.Equal(t, int32(DefaultDecimalPlaces), *Default().Report.DecimalPlaces)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
