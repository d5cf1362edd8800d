package model

// MenuHours MySQL model for menu_hours table (business hours, local time)
type MenuHours struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID        string `gorm:"column:store_id;type:varchar(64);not null;index:idx_store_day,priority:1" json:"store_id"`
	DayOfWeek      int    `gorm:"column:day_of_week;not null;index:idx_store_day,priority:2" json:"day_of_week"` // 0=Monday
	StartTimeLocal string `gorm:"column:start_time_local;type:varchar(16);not null" json:"start_time_local"`
	EndTimeLocal   string `gorm:"column:end_time_local;type:varchar(16);not null" json:"end_time_local"`
}

// TableName specifies the table name for MenuHours
func (MenuHours) TableName() string {
	return "menu_hours"
}
