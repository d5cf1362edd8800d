package model

import "time"

// Report MySQL model for reports table (report job snapshots)
type Report struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID      string         `gorm:"column:report_id;type:varchar(64);not null;uniqueIndex:idx_report_id_unique" json:"report_id"`
	Status        string         `gorm:"column:status;type:varchar(16);not null;index:idx_status_completed,priority:1" json:"status"`
	CreatedAt     time.Time      `gorm:"column:created_at;type:datetime(3);not null" json:"created_at"`
	StartedAt     *time.Time     `gorm:"column:started_at;type:datetime(3)" json:"started_at"`
	CompletedAt   *time.Time     `gorm:"column:completed_at;type:datetime(3);index:idx_status_completed,priority:2" json:"completed_at"`
	ReferenceTime *time.Time     `gorm:"column:reference_time;type:datetime(6)" json:"reference_time"`
	Artifact      *Artifact      `gorm:"column:artifact;type:json" json:"artifact,omitempty"`
	Error         string         `gorm:"column:error;type:text" json:"error"`
	Diagnostics   DiagnosticList `gorm:"column:diagnostics;type:json" json:"diagnostics"`
	Transitions   TransitionLog  `gorm:"column:transitions;type:json" json:"transitions"`
}

// TableName specifies the table name for Report
func (Report) TableName() string {
	return "reports"
}

// Artifact artifact descriptor (stored in JSON)
type Artifact struct {
	Handle   string `json:"handle"`
	RowCount int    `json:"row_count"`
	ByteSize int64  `json:"byte_size"`
	Checksum string `json:"checksum"`
}

// DiagnosticList per-store diagnostics (stored in JSON)
type DiagnosticList []Diagnostic

// Diagnostic single per-store diagnostic
type Diagnostic struct {
	StoreID string `json:"store_id"`
	Window  string `json:"window,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// TransitionLog append-only status history (stored in JSON)
type TransitionLog []TransitionRecord

// TransitionRecord single status change
type TransitionRecord struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}
