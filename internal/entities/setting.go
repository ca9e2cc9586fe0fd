package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Number of days a checkout lasts before it becomes overdue.
	SettingKeyLoanPeriodDays = "loan_period_days"

	// Overdue sweep bookkeeping
	SettingKeyOverdueSweepLastAt    = "overdue_sweep_last_at"
	SettingKeyOverdueSweepLastCount = "overdue_sweep_last_count"
)
