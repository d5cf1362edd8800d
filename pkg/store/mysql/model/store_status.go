package model

import "time"

// StoreStatus MySQL model for store_status table, one row per status poll
type StoreStatus struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID      string    `gorm:"column:store_id;type:varchar(64);not null;index:idx_store_timestamp,priority:1" json:"store_id"`
	TimestampUTC time.Time `gorm:"column:timestamp_utc;type:datetime(6);not null;index:idx_store_timestamp,priority:2;index:idx_timestamp" json:"timestamp_utc"`
	Status       string    `gorm:"column:status;type:varchar(16);not null" json:"status"`
}

// TableName specifies the table name for StoreStatus
func (StoreStatus) TableName() string {
	return "store_status"
}
