package model

// Timezone MySQL model for timezones table
type Timezone struct {
	StoreID     string `gorm:"column:store_id;type:varchar(64);primaryKey" json:"store_id"`
	TimezoneStr string `gorm:"column:timezone_str;type:varchar(64);not null" json:"timezone_str"`
}

// TableName specifies the table name for Timezone
func (Timezone) TableName() string {
	return "timezones"
}
