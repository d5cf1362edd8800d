package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// scanJSON decodes a JSON column value into dest
func scanJSON(value interface{}, dest interface{}, name string) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan %s: unsupported type %T", name, value)
	}
	if err := json.Unmarshal(bytes, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// Value implements driver.Valuer interface for Artifact
func (a *Artifact) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner interface for Artifact
func (a *Artifact) Scan(value interface{}) error {
	if value == nil {
		*a = Artifact{}
		return nil
	}
	return scanJSON(value, a, "Artifact")
}

// Value implements driver.Valuer interface for DiagnosticList
func (d DiagnosticList) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner interface for DiagnosticList
func (d *DiagnosticList) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	var list []Diagnostic
	if err := scanJSON(value, &list, "DiagnosticList"); err != nil {
		return err
	}
	*d = list
	return nil
}

// Value implements driver.Valuer interface for TransitionLog
func (t TransitionLog) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner interface for TransitionLog
func (t *TransitionLog) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	var records []TransitionRecord
	if err := scanJSON(value, &records, "TransitionLog"); err != nil {
		return err
	}
	*t = records
	return nil
}
