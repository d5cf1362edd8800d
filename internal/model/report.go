package model

import (
	"fmt"
	"time"
)

// ReportStatus report job status
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "Pending"  // Accepted, worker not started yet
	ReportStatusRunning  ReportStatus = "Running"  // Worker is consuming stores
	ReportStatusComplete ReportStatus = "Complete" // Artifact written
	ReportStatusFailed   ReportStatus = "Failed"   // Unrecoverable condition
	ReportStatusNotFound ReportStatus = "NotFound" // Polling answer for unknown ids, never stored
)

// IsTerminal reports whether no further transition is allowed
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusComplete || s == ReportStatusFailed
}

// CanTransition reports whether from -> to is a forward edge of the report state machine
func CanTransition(from, to ReportStatus) bool {
	switch from {
	case ReportStatusPending:
		return to == ReportStatusRunning || to == ReportStatusFailed
	case ReportStatusRunning:
		return to == ReportStatusComplete || to == ReportStatusFailed
	default:
		return false
	}
}

// DiagnosticKind classifies per-store data defects
type DiagnosticKind string

const (
	DiagnosticTimezone      DiagnosticKind = "timezone"       // unknown timezone, row degraded to zeros
	DiagnosticBusinessHours DiagnosticKind = "business_hours" // malformed rule ignored
	DiagnosticNoData        DiagnosticKind = "no_data"        // no observations, no-data policy applied
	DiagnosticSource        DiagnosticKind = "source"         // store data could not be read
)

// Diagnostic a recorded per-store defect; never aborts the job
type Diagnostic struct {
	StoreID string         `json:"store_id"`
	Window  string         `json:"window,omitempty"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

// Transition one entry of the append-only status log
type Transition struct {
	From ReportStatus `json:"from"`
	To   ReportStatus `json:"to"`
	At   time.Time    `json:"at"`
}

// ReportRow one output line of the report
type ReportRow struct {
	StoreID          string  `json:"store_id"`
	UptimeLastHour   float64 `json:"uptime_last_hour"`   // minutes
	UptimeLastDay    float64 `json:"uptime_last_day"`    // hours
	UptimeLastWeek   float64 `json:"uptime_last_week"`   // hours
	DowntimeLastHour float64 `json:"downtime_last_hour"` // minutes
	DowntimeLastDay  float64 `json:"downtime_last_day"`  // hours
	DowntimeLastWeek float64 `json:"downtime_last_week"` // hours
	Degraded         bool    `json:"degraded,omitempty"`
}

// ReportColumns exact column order of the artifact table
var ReportColumns = []string{
	"store_id",
	"uptime_last_hour",
	"uptime_last_day",
	"uptime_last_week",
	"downtime_last_hour",
	"downtime_last_day",
	"downtime_last_week",
}

// ArtifactDescriptor describes a finished report artifact
type ArtifactDescriptor struct {
	Handle   string `json:"handle"`
	RowCount int    `json:"row_count"`
	ByteSize int64  `json:"byte_size"`
	Checksum string `json:"checksum"` // sha256 of the artifact bytes, hex encoded
}

// Report report job snapshot
type Report struct {
	ReportID      string              `json:"report_id"`
	Status        ReportStatus        `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	StartedAt     *time.Time          `json:"started_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	ReferenceTime *time.Time          `json:"reference_time,omitempty"`
	Artifact      *ArtifactDescriptor `json:"artifact,omitempty"`
	Error         string              `json:"error,omitempty"`
	Diagnostics   []Diagnostic        `json:"diagnostics,omitempty"`
	Transitions   []Transition        `json:"transitions,omitempty"`
}

// Clone returns a deep copy so callers never share mutable state with a store
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.ReferenceTime = cloneTime(r.ReferenceTime)
	if r.Artifact != nil {
		a := *r.Artifact
		c.Artifact = &a
	}
	if r.Diagnostics != nil {
		c.Diagnostics = append([]Diagnostic(nil), r.Diagnostics...)
	}
	if r.Transitions != nil {
		c.Transitions = append([]Transition(nil), r.Transitions...)
	}
	return &c
}

// ApplyTransition moves the report from -> to in place, runs apply and appends the log entry.
// Nothing is modified when the report is not in from or the edge is not allowed.
func (r *Report) ApplyTransition(from, to ReportStatus, at time.Time, apply func(*Report)) error {
	if r.Status != from || !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s (current %s)", ErrInvalidTransition, from, to, r.Status)
	}
	r.Status = to
	if apply != nil {
		apply(r)
	}
	r.Transitions = append(r.Transitions, Transition{From: from, To: to, At: at.UTC()})
	return nil
}

// FinishedAt returns the completion instant of a terminal report
func (r *Report) FinishedAt() (time.Time, bool) {
	if !r.Status.IsTerminal() || r.CompletedAt == nil {
		return time.Time{}, false
	}
	return *r.CompletedAt, true
}

// DegradedCount number of distinct stores with at least one diagnostic
func (r *Report) DegradedCount() int {
	seen := make(map[string]struct{}, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		seen[d.StoreID] = struct{}{}
	}
	return len(seen)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TriggerResponse trigger report response
type TriggerResponse struct {
	ReportID string       `json:"report_id"`
	Status   ReportStatus `json:"status"`
}

// ArtifactResponse artifact descriptor exposed to pollers
type ArtifactResponse struct {
	RowCount    int    `json:"row_count"`
	ByteSize    int64  `json:"byte_size"`
	Checksum    string `json:"checksum"`
	DownloadURL string `json:"download_url"`
}

// StatusResponse report status response
type StatusResponse struct {
	ReportID      string            `json:"report_id"`
	Status        ReportStatus      `json:"status"`
	CreatedAt     string            `json:"created_at,omitempty"`
	StartedAt     string            `json:"started_at,omitempty"`
	CompletedAt   string            `json:"completed_at,omitempty"`
	ReferenceTime string            `json:"reference_time,omitempty"`
	Artifact      *ArtifactResponse `json:"artifact,omitempty"`
	Error         string            `json:"error,omitempty"`
	DegradedCount int               `json:"degraded_count,omitempty"`
	Diagnostics   []Diagnostic      `json:"diagnostics,omitempty"`
}
