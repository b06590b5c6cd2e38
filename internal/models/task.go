package models

import "time"

// ScheduledTask is a user-defined command run periodically inside an
// application or service container. Exactly one of ApplicationID/ServiceID
// is expected to resolve; a task with neither is structurally invalid.
type ScheduledTask struct {
	ID      uint `gorm:"primaryKey"`
	Name    string
	Enabled bool `gorm:"default:true"`

	Frequency string `gorm:"not null"`
	Command   string `gorm:"not null"`
	Container string

	ApplicationID *uint `gorm:"index"`
	ServiceID     *uint `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
