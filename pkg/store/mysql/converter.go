package mysql

import (
	"strings"
	"time"

	"storepulse/internal/model"
)

// ToObservationDomain converts a store_status row; ok is false for an unrecognised status value
func ToObservationDomain(row *StoreStatus) (model.Observation, bool) {
	status, ok := model.ParseStoreStatus(row.Status)
	if !ok {
		return model.Observation{}, false
	}
	return model.Observation{
		StoreID:   row.StoreID,
		Timestamp: row.TimestampUTC.UTC(),
		Status:    status,
	}, true
}

// FromObservationDomain converts a domain observation to a store_status row
func FromObservationDomain(o model.Observation) *StoreStatus {
	return &StoreStatus{
		StoreID:      o.StoreID,
		TimestampUTC: o.Timestamp.UTC(),
		Status:       string(o.Status),
	}
}

// ToBusinessHourRuleDomain converts a menu_hours row
func ToBusinessHourRuleDomain(row *MenuHours) model.BusinessHourRule {
	return model.BusinessHourRule{
		StoreID:        row.StoreID,
		DayOfWeek:      row.DayOfWeek,
		StartTimeLocal: row.StartTimeLocal,
		EndTimeLocal:   row.EndTimeLocal,
	}
}

// FromBusinessHourRuleDomain converts a domain rule to a menu_hours row
func FromBusinessHourRuleDomain(r model.BusinessHourRule) *MenuHours {
	return &MenuHours{
		StoreID:        r.StoreID,
		DayOfWeek:      r.DayOfWeek,
		StartTimeLocal: r.StartTimeLocal,
		EndTimeLocal:   r.EndTimeLocal,
	}
}

// FromTimezoneDomain converts a domain mapping to a timezones row
func FromTimezoneDomain(m model.TimezoneMapping) *Timezone {
	return &Timezone{
		StoreID:     m.StoreID,
		TimezoneStr: strings.TrimSpace(m.Timezone),
	}
}

// ToReportDomain converts MySQL Report to domain Report model
func ToReportDomain(row *Report) *model.Report {
	if row == nil {
		return nil
	}

	report := &model.Report{
		ReportID:      row.ReportID,
		Status:        model.ReportStatus(row.Status),
		CreatedAt:     row.CreatedAt.UTC(),
		StartedAt:     utcPtr(row.StartedAt),
		CompletedAt:   utcPtr(row.CompletedAt),
		ReferenceTime: utcPtr(row.ReferenceTime),
		Error:         row.Error,
	}
	if row.Artifact != nil && row.Artifact.Handle != "" {
		report.Artifact = &model.ArtifactDescriptor{
			Handle:   row.Artifact.Handle,
			RowCount: row.Artifact.RowCount,
			ByteSize: row.Artifact.ByteSize,
			Checksum: row.Artifact.Checksum,
		}
	}
	for _, d := range row.Diagnostics {
		report.Diagnostics = append(report.Diagnostics, model.Diagnostic{
			StoreID: d.StoreID,
			Window:  d.Window,
			Kind:    model.DiagnosticKind(d.Kind),
			Message: d.Message,
		})
	}
	for _, t := range row.Transitions {
		report.Transitions = append(report.Transitions, model.Transition{
			From: model.ReportStatus(t.From),
			To:   model.ReportStatus(t.To),
			At:   t.At.UTC(),
		})
	}
	return report
}

// FromReportDomain converts domain Report model to MySQL Report
func FromReportDomain(report *model.Report) *Report {
	if report == nil {
		return nil
	}

	row := &Report{
		ReportID:      report.ReportID,
		Status:        string(report.Status),
		CreatedAt:     report.CreatedAt,
		StartedAt:     report.StartedAt,
		CompletedAt:   report.CompletedAt,
		ReferenceTime: report.ReferenceTime,
		Error:         report.Error,
	}
	if report.Artifact != nil {
		row.Artifact = &ArtifactColumn{
			Handle:   report.Artifact.Handle,
			RowCount: report.Artifact.RowCount,
			ByteSize: report.Artifact.ByteSize,
			Checksum: report.Artifact.Checksum,
		}
	}
	for _, d := range report.Diagnostics {
		row.Diagnostics = append(row.Diagnostics, Diagnostic{
			StoreID: d.StoreID,
			Window:  d.Window,
			Kind:    string(d.Kind),
			Message: d.Message,
		})
	}
	for _, t := range report.Transitions {
		row.Transitions = append(row.Transitions, TransitionRecord{
			From: string(t.From),
			To:   string(t.To),
			At:   t.At,
		})
	}
	return row
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
