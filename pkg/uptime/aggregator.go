package uptime

import (
	"fmt"
	"time"

	"storepulse/internal/model"

	"github.com/shopspring/decimal"
)

// StoreInput everything the aggregator needs for one store
type StoreInput struct {
	StoreID      string
	Timezone     string // empty when the store is absent from the timezone mapping
	Rules        []model.BusinessHourRule
	Observations []model.Observation
}

// WindowTotals raw per-window sums before unit conversion
type WindowTotals struct {
	Window        Window
	BusinessHours time.Duration
	Coverage      Coverage
}

// StoreResult one store's row plus the sums it was built from
type StoreResult struct {
	Row         model.ReportRow
	Totals      []WindowTotals
	Diagnostics []model.Diagnostic
}

// DefaultDecimalPlaces precision of the reported uptime/downtime figures
const DefaultDecimalPlaces = 1

// AggregatorOptions aggregator settings
type AggregatorOptions struct {
	DefaultTimezone string       // applies to stores without a timezone mapping
	NoDataPolicy    NoDataPolicy // classification for stores without observations
	DecimalPlaces   *int32       // rounding precision, nil means DefaultDecimalPlaces
}

// Aggregator turns a store's raw data into a report row
type Aggregator struct {
	locations *LocationResolver
	policy    NoDataPolicy
	places    int32
}

// NewAggregator creates an aggregator
func NewAggregator(opts AggregatorOptions) (*Aggregator, error) {
	locations, err := NewLocationResolver(opts.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	policy, err := ParseNoDataPolicy(string(opts.NoDataPolicy))
	if err != nil {
		return nil, err
	}
	places := int32(DefaultDecimalPlaces)
	if opts.DecimalPlaces != nil {
		if *opts.DecimalPlaces < 0 {
			return nil, fmt.Errorf("decimal places must not be negative, got %d", *opts.DecimalPlaces)
		}
		places = *opts.DecimalPlaces
	}
	return &Aggregator{locations: locations, policy: policy, places: places}, nil
}

// Compute builds the report row of one store for the given windows
func (a *Aggregator) Compute(in StoreInput, windows []Window) StoreResult {
	result := StoreResult{Row: model.ReportRow{StoreID: in.StoreID}}

	loc, err := a.locations.Resolve(in.Timezone)
	if err != nil {
		tzErr := &model.TimezoneError{StoreID: in.StoreID, Timezone: in.Timezone, Err: err}
		result.Row.Degraded = true
		result.Diagnostics = append(result.Diagnostics, model.Diagnostic{
			StoreID: in.StoreID,
			Kind:    model.DiagnosticTimezone,
			Message: tzErr.Error(),
		})
		for _, w := range windows {
			result.Totals = append(result.Totals, WindowTotals{Window: w})
		}
		return result
	}

	schedule, ruleErrs := NewSchedule(in.Rules)
	for _, ruleErr := range ruleErrs {
		result.Diagnostics = append(result.Diagnostics, model.Diagnostic{
			StoreID: in.StoreID,
			Kind:    model.DiagnosticBusinessHours,
			Message: ruleErr.Error(),
		})
	}

	timeline := NewTimeline(in.Observations)
	for _, w := range windows {
		totals := WindowTotals{Window: w}
		for _, sub := range schedule.Project(loc, w.Interval) {
			totals.BusinessHours += sub.Duration()
			totals.Coverage = totals.Coverage.Add(timeline.Estimate(sub, a.policy))
		}
		if totals.Coverage.Excluded {
			result.Row.Degraded = true
			result.Diagnostics = append(result.Diagnostics, model.Diagnostic{
				StoreID: in.StoreID,
				Window:  string(w.Label),
				Kind:    model.DiagnosticNoData,
				Message: "no observations; window excluded",
			})
		}
		result.Totals = append(result.Totals, totals)
		a.fill(&result.Row, w.Label, totals.Coverage)
	}
	return result
}

func (a *Aggregator) fill(row *model.ReportRow, label WindowLabel, cov Coverage) {
	switch label {
	case WindowHour:
		row.UptimeLastHour = RoundUnits(cov.Active, time.Minute, a.places)
		row.DowntimeLastHour = RoundUnits(cov.Inactive, time.Minute, a.places)
	case WindowDay:
		row.UptimeLastDay = RoundUnits(cov.Active, time.Hour, a.places)
		row.DowntimeLastDay = RoundUnits(cov.Inactive, time.Hour, a.places)
	case WindowWeek:
		row.UptimeLastWeek = RoundUnits(cov.Active, time.Hour, a.places)
		row.DowntimeLastWeek = RoundUnits(cov.Inactive, time.Hour, a.places)
	default:
		panic(fmt.Sprintf("unknown window label %q", label))
	}
}

// RoundUnits converts d into unit and rounds half-up to places decimal places.
// Durations are never negative, so decimal's half-away-from-zero rounding is half-up here.
func RoundUnits(d, unit time.Duration, places int32) float64 {
	value := decimal.NewFromInt(int64(d)).Div(decimal.NewFromInt(int64(unit)))
	return value.Round(places).InexactFloat64()
}
