package mysql

import "storepulse/pkg/store/mysql/model"

// Re-export table models so callers only import this package

type (
	StoreStatus = model.StoreStatus
	MenuHours   = model.MenuHours
	Timezone    = model.Timezone
	Report      = model.Report

	// JSON column types
	ArtifactColumn   = model.Artifact
	DiagnosticList   = model.DiagnosticList
	TransitionLog    = model.TransitionLog
	Diagnostic       = model.Diagnostic
	TransitionRecord = model.TransitionRecord
)

// AllModels every table managed by this package, in migration order
func AllModels() []interface{} {
	return []interface{}{&StoreStatus{}, &MenuHours{}, &Timezone{}, &Report{}}
}
