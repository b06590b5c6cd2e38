package models

import "time"

// ScheduledBackup is a recurring database backup definition. A backup whose
// database row has been deleted is structurally invalid and gets reconciled
// away rather than skipped.
type ScheduledBackup struct {
	ID      uint `gorm:"primaryKey"`
	Enabled bool `gorm:"default:true"`

	// Frequency is either an alias ("daily") or a literal cron expression.
	Frequency string `gorm:"not null"`

	DatabaseID *uint `gorm:"index"`
	ServerID   uint  `gorm:"index"`

	KeepLocally   bool `gorm:"default:false"`
	RetentionDays int  `gorm:"default:7"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
