package uptime

import (
	"testing"
	"time"

	"storepulse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2023-01-23, 14:00 in Chicago (UTC-6)
var aggregatorReference = time.Date(2023, 1, 23, 20, 0, 0, 0, time.UTC)

func newTestAggregator(t *testing.T, opts AggregatorOptions) *Aggregator {
	t.Helper()
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "America/Chicago"
	}
	a, err := NewAggregator(opts)
	require.NoError(t, err)
	return a
}

func decimalPlaces(n int32) *int32 {
	return &n
}

func mondayMorning() []model.BusinessHourRule {
	return []model.BusinessHourRule{rule(0, "09:00:00", "12:00:00")}
}

func localObservation(hour, minute int, status model.StoreStatus) model.Observation {
	return model.Observation{
		StoreID:   "store-1",
		Timestamp: time.Date(2023, 1, 23, hour+6, minute, 0, 0, time.UTC),
		Status:    status,
	}
}

func TestNewAggregator(t *testing.T) {
	_, err := NewAggregator(AggregatorOptions{DefaultTimezone: "Nowhere/Atlantis"})
	assert.Error(t, err)

	_, err = NewAggregator(AggregatorOptions{DefaultTimezone: "UTC", NoDataPolicy: "guess"})
	assert.Error(t, err)

	a, err := NewAggregator(AggregatorOptions{DefaultTimezone: "UTC"})
	require.NoError(t, err)
	assert.Equal(t, NoDataActive, a.policy)
	assert.Equal(t, int32(DefaultDecimalPlaces), a.places)

	_, err = NewAggregator(AggregatorOptions{DefaultTimezone: "UTC", DecimalPlaces: decimalPlaces(-1)})
	assert.Error(t, err)
}

func TestAggregator_WholeUnits(t *testing.T) {
	a := newTestAggregator(t, AggregatorOptions{DecimalPlaces: decimalPlaces(0)})
	assert.Equal(t, int32(0), a.places)

	result := a.Compute(StoreInput{
		StoreID:      "store-1",
		Timezone:     "America/Chicago",
		Rules:        mondayMorning(),
		Observations: []model.Observation{
			localObservation(10, 14, model.StoreStatusActive),
			localObservation(11, 15, model.StoreStatusInactive),
		},
	}, ResolveWindows(aggregatorReference))

	// 3h of business hours, 2.25h up and 0.75h down before rounding
	assert.InDelta(t, 2.0, result.Row.UptimeLastDay, 1e-9)
	assert.InDelta(t, 1.0, result.Row.DowntimeLastDay, 1e-9)
}

func TestAggregator_SingleObservation(t *testing.T) {
	a := newTestAggregator(t, AggregatorOptions{})
	result := a.Compute(StoreInput{
		StoreID:      "store-1",
		Timezone:     "America/Chicago",
		Rules:        mondayMorning(),
		Observations: []model.Observation{localObservation(10, 14, model.StoreStatusActive)},
	}, ResolveWindows(aggregatorReference))

	row := result.Row
	assert.Equal(t, "store-1", row.StoreID)
	assert.False(t, row.Degraded)
	assert.Empty(t, result.Diagnostics)

	// 13:00-14:00 local has no business hours
	assert.Equal(t, 0.0, row.UptimeLastHour)
	assert.Equal(t, 0.0, row.DowntimeLastHour)
	assert.InDelta(t, 3.0, row.UptimeLastDay, 1e-9)
	assert.Equal(t, 0.0, row.DowntimeLastDay)
	assert.InDelta(t, 3.0, row.UptimeLastWeek, 1e-9)
	assert.Equal(t, 0.0, row.DowntimeLastWeek)

	require.Len(t, result.Totals, 3)
	assert.Equal(t, time.Duration(0), result.Totals[0].BusinessHours)
	assert.Equal(t, 3*time.Hour, result.Totals[1].BusinessHours)
}

func TestAggregator_TwoObservationSplit(t *testing.T) {
	input := StoreInput{
		StoreID:  "store-1",
		Timezone: "America/Chicago",
		Rules:    mondayMorning(),
		Observations: []model.Observation{
			localObservation(10, 14, model.StoreStatusActive),
			localObservation(11, 15, model.StoreStatusInactive),
		},
	}
	windows := ResolveWindows(aggregatorReference)

	oneDecimal := newTestAggregator(t, AggregatorOptions{}).Compute(input, windows)
	day := oneDecimal.Totals[1]
	assert.Equal(t, WindowDay, day.Window.Label)
	assert.Equal(t, 135*time.Minute, day.Coverage.Active)
	assert.Equal(t, 45*time.Minute, day.Coverage.Inactive)
	assert.Equal(t, day.BusinessHours, day.Coverage.Total())

	// 2.25 and 0.75 round half-up
	assert.InDelta(t, 2.3, oneDecimal.Row.UptimeLastDay, 1e-9)
	assert.InDelta(t, 0.8, oneDecimal.Row.DowntimeLastDay, 1e-9)

	twoDecimals := newTestAggregator(t, AggregatorOptions{DecimalPlaces: decimalPlaces(2)}).Compute(input, windows)
	assert.InDelta(t, 2.25, twoDecimals.Row.UptimeLastDay, 1e-9)
	assert.InDelta(t, 0.75, twoDecimals.Row.DowntimeLastDay, 1e-9)
	assert.InDelta(t, 2.25, twoDecimals.Row.UptimeLastWeek, 1e-9)
	assert.InDelta(t, 0.75, twoDecimals.Row.DowntimeLastWeek, 1e-9)
}

func TestAggregator_HourWindowInMinutes(t *testing.T) {
	a := newTestAggregator(t, AggregatorOptions{})
	// 11:30 local
	reference := time.Date(2023, 1, 23, 17, 30, 0, 0, time.UTC)
	result := a.Compute(StoreInput{
		StoreID:  "store-1",
		Timezone: "America/Chicago",
		Rules:    mondayMorning(),
		Observations: []model.Observation{
			localObservation(10, 14, model.StoreStatusActive),
			localObservation(11, 15, model.StoreStatusInactive),
		},
	}, ResolveWindows(reference))

	assert.InDelta(t, 45.0, result.Row.UptimeLastHour, 1e-9)
	assert.InDelta(t, 15.0, result.Row.DowntimeLastHour, 1e-9)
	assert.InDelta(t, 2.3, result.Row.UptimeLastDay, 1e-9)
	assert.InDelta(t, 0.3, result.Row.DowntimeLastDay, 1e-9)
}

func TestAggregator_DefaultTimezone(t *testing.T) {
	a := newTestAggregator(t, AggregatorOptions{})
	windows := ResolveWindows(aggregatorReference)
	observations := []model.Observation{
		localObservation(10, 14, model.StoreStatusActive),
		localObservation(11, 15, model.StoreStatusInactive),
	}

	explicit := a.Compute(StoreInput{StoreID: "store-1", Timezone: "America/Chicago", Rules: mondayMorning(), Observations: observations}, windows)
	implicit := a.Compute(StoreInput{StoreID: "store-1", Rules: mondayMorning(), Observations: observations}, windows)
	assert.Equal(t, explicit.Row, implicit.Row)
}

func TestAggregator_AlwaysOpen(t *testing.T) {
	a := newTestAggregator(t, AggregatorOptions{})
	result := a.Compute(StoreInput{
		StoreID:  "store-1",
		Timezone: "Asia/Tokyo",
		Observations: []model.Observation{
			{StoreID: "store-1", Timestamp: aggregatorReference.Add(-30 * 24 * time.Hour), Status: model.StoreStatusActive},
		},
	}, ResolveWindows(aggregatorReference))

	assert.InDelta(t, 60.0, result.Row.UptimeLastHour, 1e-9)
	assert.InDelta(t, 24.0, result.Row.UptimeLastDay, 1e-9)
	assert.InDelta(t, 168.0, result.Row.UptimeLastWeek, 1e-9)
	assert.Equal(t, 0.0, result.Row.DowntimeLastWeek)
}

func TestAggregator_UnknownTimezone(t *testing.T) {
	a := newTestAggregator(t, AggregatorOptions{})
	result := a.Compute(StoreInput{
		StoreID:      "store-1",
		Timezone:     "Mars/Olympus_Mons",
		Rules:        mondayMorning(),
		Observations: []model.Observation{localObservation(10, 14, model.StoreStatusActive)},
	}, ResolveWindows(aggregatorReference))

	assert.True(t, result.Row.Degraded)
	assert.Equal(t, model.ReportRow{StoreID: "store-1", Degraded: true}, result.Row)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, model.DiagnosticTimezone, result.Diagnostics[0].Kind)
	assert.Contains(t, result.Diagnostics[0].Message, "Mars/Olympus_Mons")
	assert.Len(t, result.Totals, 3)
}

func TestAggregator_NoDataPolicies(t *testing.T) {
	input := StoreInput{StoreID: "store-1", Timezone: "America/Chicago", Rules: mondayMorning()}
	windows := ResolveWindows(aggregatorReference)

	active := newTestAggregator(t, AggregatorOptions{NoDataPolicy: NoDataActive}).Compute(input, windows)
	assert.InDelta(t, 3.0, active.Row.UptimeLastDay, 1e-9)
	assert.False(t, active.Row.Degraded)

	inactive := newTestAggregator(t, AggregatorOptions{NoDataPolicy: NoDataInactive}).Compute(input, windows)
	assert.InDelta(t, 3.0, inactive.Row.DowntimeLastDay, 1e-9)
	assert.Equal(t, 0.0, inactive.Row.UptimeLastDay)

	excluded := newTestAggregator(t, AggregatorOptions{NoDataPolicy: NoDataExclude}).Compute(input, windows)
	assert.True(t, excluded.Row.Degraded)
	assert.Equal(t, 0.0, excluded.Row.UptimeLastDay)
	assert.Equal(t, 0.0, excluded.Row.DowntimeLastDay)
	// the hour window has no business time, so only day and week are flagged
	require.Len(t, excluded.Diagnostics, 2)
	for _, d := range excluded.Diagnostics {
		assert.Equal(t, model.DiagnosticNoData, d.Kind)
	}
}

func TestAggregator_MalformedRulesReported(t *testing.T) {
	a := newTestAggregator(t, AggregatorOptions{})
	result := a.Compute(StoreInput{
		StoreID:  "store-1",
		Timezone: "America/Chicago",
		Rules: []model.BusinessHourRule{
			rule(0, "09:00:00", "12:00:00"),
			rule(0, "22:00:00", "01:00:00"),
		},
		Observations: []model.Observation{localObservation(10, 14, model.StoreStatusActive)},
	}, ResolveWindows(aggregatorReference))

	assert.InDelta(t, 3.0, result.Row.UptimeLastDay, 1e-9)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, model.DiagnosticBusinessHours, result.Diagnostics[0].Kind)
}

func TestRoundUnits(t *testing.T) {
	assert.InDelta(t, 2.3, RoundUnits(135*time.Minute, time.Hour, 1), 1e-9)
	assert.InDelta(t, 0.8, RoundUnits(45*time.Minute, time.Hour, 1), 1e-9)
	assert.InDelta(t, 0.1, RoundUnits(3*time.Second, time.Minute, 1), 1e-9)
	assert.InDelta(t, 0.0, RoundUnits(2*time.Second, time.Minute, 1), 1e-9)
	assert.InDelta(t, 0.33, RoundUnits(20*time.Minute, time.Hour, 2), 1e-9)
	assert.Equal(t, 0.0, RoundUnits(0, time.Hour, 1))
}
