package models

import "time"

// InstanceSettings is the singleton configuration row for this platform
// instance.
type InstanceSettings struct {
	ID uint `gorm:"primaryKey"`

	InstanceTimezone     string `gorm:"default:UTC"`
	UpdateCheckFrequency string `gorm:"default:'0 * * * *'"`

	AutoUpdateEnabled   bool   `gorm:"default:false"`
	AutoUpdateFrequency string `gorm:"default:'0 0 * * *'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Timezone returns the instance timezone with a UTC fallback.
func (s *InstanceSettings) Timezone() string {
	if s.InstanceTimezone == "" {
		return "UTC"
	}
	return s.InstanceTimezone
}
