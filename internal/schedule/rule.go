package schedule

import (
	"fmt"

	"github.com/outriggerhq/outrigger/internal/models"
)

// Mode selects which static rule set the builder emits.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Job kinds carried in rule payloads. The worker fleet resolves the entity
// by ID at execution time; rules never carry live entity handles.
const (
	KindInstanceCleanup   = "instance-cleanup"
	KindTemplateSync      = "template-sync"
	KindConnectionPrune   = "connection-prune"
	KindStaleServerPrune  = "stale-server-prune"
	KindUpdateCheck       = "update-check"
	KindAutoUpdate        = "auto-update"
	KindDatabaseBackup    = "database-backup"
	KindTaskRun           = "task-run"
	KindServerCheck       = "server-check"
	KindDockerCleanup     = "docker-cleanup"
	KindConnectionHygiene = "connection-hygiene"
	KindSentinelRestart   = "sentinel-restart"
	KindSentinelPull      = "sentinel-pull"
)

// Payload is the opaque job body handed to the executor. EntityID is zero
// for instance-wide jobs.
type Payload struct {
	Kind     string            `json:"kind"`
	EntityID uint              `json:"entity_id,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
}

// Rule is one logical job instance, valid for a single tick. JobIdentity
// doubles as the dispatch lock key and must be unique within a tick.
type Rule struct {
	JobIdentity string  `json:"job_identity"`
	TriggerExpr string  `json:"trigger_expr"`
	Timezone    string  `json:"timezone"`
	Payload     Payload `json:"payload"`
}

// Snapshot is the immutable view of platform state taken once at tick
// start. Builder sub-steps receive it by parameter; nothing is stored as
// ambient state between ticks.
type Snapshot struct {
	Servers      []models.Server
	Teams        []models.Team
	Backups      []models.ScheduledBackup
	Tasks        []models.ScheduledTask
	Applications []models.Application
	Services     []models.Service
	Databases    []models.Database
	Settings     models.InstanceSettings
}

func identity(kind string, id uint) string {
	return fmt.Sprintf("%s:%d", kind, id)
}
