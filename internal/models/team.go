package models

import "time"

// HouseTeamID identifies the instance operators' own team. Its servers are
// always resource-check candidates in cloud mode, subscription or not.
const HouseTeamID uint = 0

// Team owns servers and the workloads deployed on them.
type Team struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null"`

	// Cloud-mode billing state. Self-hosted instances ignore both fields.
	SubscriptionActive bool `gorm:"default:false"`
	TrialEnded         bool `gorm:"default:false"`

	Servers []Server `gorm:"foreignKey:TeamID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscribed reports whether the team's servers qualify for scheduled
// resource checks in cloud mode.
func (t *Team) Subscribed() bool {
	return t.SubscriptionActive && !t.TrialEnded
}
