package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, c *Collector, name string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue()
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount())
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestCollectorLifecycle(t *testing.T) {
	c := NewCollector()

	c.RecordTriggered()
	c.RecordTriggered()
	c.RecordStarted()
	c.RecordStarted()
	c.RecordStores(10, 2)
	c.RecordCompleted(3 * time.Second)
	c.RecordFailed(time.Second, true)
	c.RecordTriggered()
	c.RecordFailed(0, false)

	assert.Equal(t, 3.0, gatherValue(t, c, "storepulse_reports_triggered_total"))
	assert.Equal(t, 1.0, gatherValue(t, c, "storepulse_reports_completed_total"))
	assert.Equal(t, 2.0, gatherValue(t, c, "storepulse_reports_failed_total"))
	assert.Equal(t, 10.0, gatherValue(t, c, "storepulse_report_stores_processed_total"))
	assert.Equal(t, 2.0, gatherValue(t, c, "storepulse_report_degraded_stores_total"))
	assert.Equal(t, 0.0, gatherValue(t, c, "storepulse_reports_running"))
	assert.Equal(t, 2.0, gatherValue(t, c, "storepulse_report_duration_seconds"))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	a.RecordTriggered()

	assert.Equal(t, 1.0, gatherValue(t, a, "storepulse_reports_triggered_total"))
	assert.Equal(t, 0.0, gatherValue(t, b, "storepulse_reports_triggered_total"))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordTriggered()
		c.RecordStarted()
		c.RecordStores(1, 1)
		c.RecordCompleted(time.Second)
		c.RecordFailed(time.Second, true)
	})
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.RecordTriggered()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storepulse_reports_triggered_total 1")
}
