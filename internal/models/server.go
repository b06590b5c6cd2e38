package models

import (
	"time"
)

// SentinelPlaceholderIP is the fixture address used by provisioning tests.
// Servers carrying it are never real machines and are excluded from every
// scheduling pass.
const SentinelPlaceholderIP = "1.2.3.4"

// DefaultDockerCleanupFrequency is the cleanup trigger used when a server
// has no custom cleanup frequency forced.
const DefaultDockerCleanupFrequency = "*/10 * * * *"

// Server is a Docker host managed by the platform.
type Server struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	IP        string `gorm:"not null;index"`
	TeamID    uint   `gorm:"index"`
	Timezone  string `gorm:"default:UTC"`

	Usable    bool `gorm:"default:false"`
	Reachable bool `gorm:"default:false"`

	// Docker cleanup
	ForceDockerCleanup     bool   `gorm:"default:false"`
	DockerCleanupFrequency string `gorm:"default:''"`

	// Sentinel is the optional per-server monitoring agent.
	SentinelEnabled              bool `gorm:"default:false"`
	SentinelCheckIntervalSeconds int  `gorm:"default:60"`
	LastSentinelUpdateAt         time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WaitBeforeCheck returns how long the scheduler should wait after the last
// sentinel heartbeat before queueing a direct health check. Servers with the
// agent enabled get double the interval since the agent reports on its own.
func (s *Server) WaitBeforeCheck() time.Duration {
	interval := s.SentinelCheckIntervalSeconds
	if interval <= 0 {
		interval = 60
	}
	if s.SentinelEnabled {
		return time.Duration(2*interval) * time.Second
	}
	return time.Duration(interval) * time.Second
}

// CheckDue reports whether the reachability gate passes at now.
func (s *Server) CheckDue(now time.Time) bool {
	return now.Sub(s.LastSentinelUpdateAt) > s.WaitBeforeCheck()
}

// CleanupFrequency returns the cleanup trigger for this server: the forced
// custom frequency when set, otherwise the platform default.
func (s *Server) CleanupFrequency() string {
	if s.ForceDockerCleanup && s.DockerCleanupFrequency != "" {
		return s.DockerCleanupFrequency
	}
	return DefaultDockerCleanupFrequency
}

// Location returns the server timezone, defaulting to UTC so a blank row
// never breaks rule emission.
func (s *Server) Location() string {
	if s.Timezone == "" {
		return "UTC"
	}
	return s.Timezone
}
