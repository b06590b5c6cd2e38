package models

import (
	"strings"
	"time"
)

// Application is a deployed application container group.
type Application struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"not null"`
	ServerID uint   `gorm:"index"`
	// Status is the live container status string, e.g. "running (healthy)"
	// or "exited". Refreshed by the worker fleet, read here.
	Status string `gorm:"default:exited"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Running reports whether the application's containers are up.
func (a *Application) Running() bool {
	return strings.Contains(a.Status, "running")
}

// Service is a one-click service stack (compose bundle).
type Service struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"not null"`
	ServerID uint   `gorm:"index"`
	Status   string `gorm:"default:exited"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Running reports whether the service's containers are up.
func (s *Service) Running() bool {
	return strings.Contains(s.Status, "running")
}

// Database is a managed database instance (Postgres, MySQL, Redis, ...).
type Database struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"not null"`
	Engine   string `gorm:"not null"`
	ServerID uint   `gorm:"index"`
	Status   string `gorm:"default:exited"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
