package schedule

import (
	"context"
	"strconv"
	"time"

	"github.com/outriggerhq/outrigger/internal/models"
)

// Builder recomputes the full rule set for one tick. It holds no state
// between ticks; everything it needs arrives in the Snapshot parameter.
type Builder struct {
	reconciler *Reconciler

	// Now is the tick clock, overridable in tests.
	Now func() time.Time
}

// NewBuilder creates a Builder issuing reconciliation deletes to store.
func NewBuilder(store EntityWriter) *Builder {
	return &Builder{
		reconciler: NewReconciler(store),
		Now:        time.Now,
	}
}

// Build produces the ordered rule set for the current tick: static rules
// for the mode first, then backups, tasks, per-server resource checks, and
// (production only) fleet update propagation. The order is stable across
// invocations given identical input.
func (b *Builder) Build(ctx context.Context, mode Mode, cloud bool, snap *Snapshot) []Rule {
	now := b.Now()

	servers := make(map[uint]models.Server, len(snap.Servers))
	for _, s := range snap.Servers {
		servers[s.ID] = s
	}
	databases := make(map[uint]models.Database, len(snap.Databases))
	for _, d := range snap.Databases {
		databases[d.ID] = d
	}
	apps := make(map[uint]models.Application, len(snap.Applications))
	for _, a := range snap.Applications {
		apps[a.ID] = a
	}
	services := make(map[uint]models.Service, len(snap.Services))
	for _, s := range snap.Services {
		services[s.ID] = s
	}

	var rules []Rule
	rules = append(rules, b.staticRules(mode, snap.Settings)...)
	rules = append(rules, b.backupRules(ctx, snap.Backups, databases, servers)...)
	rules = append(rules, b.taskRules(ctx, snap.Tasks, apps, services, servers)...)

	candidates := CandidateServers(cloud, snap.Servers, snap.Teams)
	rules = append(rules, b.resourceRules(candidates, now)...)
	if mode == ModeProduction {
		rules = append(rules, b.fleetUpdateRules(candidates)...)
	}
	return rules
}

// staticRules emits the instance-wide maintenance jobs. Development gets a
// reduced set at short intervals and deliberately no update-check,
// auto-update, or image propagation, so a dev instance never updates
// itself out from under whoever is working on it.
func (b *Builder) staticRules(mode Mode, settings models.InstanceSettings) []Rule {
	tz := settings.Timezone()

	if mode == ModeDevelopment {
		return []Rule{
			{
				JobIdentity: KindInstanceCleanup,
				TriggerExpr: ResolveFrequency("every-minute"),
				Timezone:    tz,
				Payload:     Payload{Kind: KindInstanceCleanup},
			},
			{
				JobIdentity: KindTemplateSync,
				TriggerExpr: ResolveFrequency("every-minute"),
				Timezone:    tz,
				Payload:     Payload{Kind: KindTemplateSync},
			},
		}
	}

	rules := []Rule{
		{
			JobIdentity: KindInstanceCleanup,
			TriggerExpr: ResolveFrequency("every-minute"),
			Timezone:    tz,
			Payload:     Payload{Kind: KindInstanceCleanup},
		},
		{
			JobIdentity: KindConnectionPrune,
			TriggerExpr: ResolveFrequency("hourly"),
			Timezone:    tz,
			Payload:     Payload{Kind: KindConnectionPrune},
		},
		{
			JobIdentity: KindStaleServerPrune,
			TriggerExpr: ResolveFrequency("daily"),
			Timezone:    tz,
			Payload:     Payload{Kind: KindStaleServerPrune},
		},
		{
			JobIdentity: KindTemplateSync,
			TriggerExpr: ResolveFrequency("daily"),
			Timezone:    tz,
			Payload:     Payload{Kind: KindTemplateSync},
		},
		{
			JobIdentity: KindUpdateCheck,
			TriggerExpr: ResolveFrequency(settings.UpdateCheckFrequency),
			Timezone:    tz,
			Payload:     Payload{Kind: KindUpdateCheck},
		},
	}
	if settings.AutoUpdateEnabled {
		rules = append(rules, Rule{
			JobIdentity: KindAutoUpdate,
			TriggerExpr: ResolveFrequency(settings.AutoUpdateFrequency),
			Timezone:    tz,
			Payload:     Payload{Kind: KindAutoUpdate},
		})
	}
	return rules
}

func (b *Builder) backupRules(ctx context.Context, backups []models.ScheduledBackup, databases map[uint]models.Database, servers map[uint]models.Server) []Rule {
	var rules []Rule
	for _, backup := range backups {
		if ReconcileBackup(backup, databases) == ActionDelete {
			b.reconciler.deleteBackup(ctx, backup)
			continue
		}
		if !BackupEligible(backup, databases) {
			continue
		}
		server, ok := servers[backup.ServerID]
		if !ok {
			// Missing owning server is a skip, not a delete. The server may
			// be mid-provisioning or mid-removal; next tick decides again.
			continue
		}
		rules = append(rules, Rule{
			JobIdentity: identity(KindDatabaseBackup, backup.ID),
			TriggerExpr: ResolveFrequency(backup.Frequency),
			Timezone:    server.Location(),
			Payload: Payload{
				Kind:     KindDatabaseBackup,
				EntityID: backup.ID,
				Params:   map[string]string{"database_id": strconv.FormatUint(uint64(*backup.DatabaseID), 10)},
			},
		})
	}
	return rules
}

func (b *Builder) taskRules(ctx context.Context, tasks []models.ScheduledTask, apps map[uint]models.Application, services map[uint]models.Service, servers map[uint]models.Server) []Rule {
	var rules []Rule
	for _, task := range tasks {
		if ReconcileTask(task, apps, services) == ActionDelete {
			b.reconciler.deleteTask(ctx, task)
			continue
		}
		if !TaskEligible(task, apps, services) {
			continue
		}
		_, serverID, _ := taskTarget(task, apps, services)
		server, ok := servers[serverID]
		if !ok {
			continue
		}
		rules = append(rules, Rule{
			JobIdentity: identity(KindTaskRun, task.ID),
			TriggerExpr: ResolveFrequency(task.Frequency),
			Timezone:    server.Location(),
			Payload:     Payload{Kind: KindTaskRun, EntityID: task.ID},
		})
	}
	return rules
}

// resourceRules emits the per-server check family. Cleanup and connection
// hygiene are unconditional; the health check is gated on the sentinel
// heartbeat backoff and the daily agent restart on the agent being enabled.
func (b *Builder) resourceRules(candidates []models.Server, now time.Time) []Rule {
	var rules []Rule
	for _, server := range candidates {
		tz := server.Location()

		if server.CheckDue(now) {
			rules = append(rules, Rule{
				JobIdentity: identity(KindServerCheck, server.ID),
				TriggerExpr: ResolveFrequency("every-minute"),
				Timezone:    tz,
				Payload:     Payload{Kind: KindServerCheck, EntityID: server.ID},
			})
		}

		rules = append(rules, Rule{
			JobIdentity: identity(KindDockerCleanup, server.ID),
			TriggerExpr: ResolveFrequency(server.CleanupFrequency()),
			Timezone:    tz,
			Payload:     Payload{Kind: KindDockerCleanup, EntityID: server.ID},
		})

		rules = append(rules, Rule{
			JobIdentity: identity(KindConnectionHygiene, server.ID),
			TriggerExpr: ResolveFrequency("hourly"),
			Timezone:    tz,
			Payload:     Payload{Kind: KindConnectionHygiene, EntityID: server.ID},
		})

		if server.SentinelEnabled {
			rules = append(rules, Rule{
				JobIdentity: identity(KindSentinelRestart, server.ID),
				TriggerExpr: ResolveFrequency("daily"),
				Timezone:    tz,
				Payload:     Payload{Kind: KindSentinelRestart, EntityID: server.ID},
			})
		}
	}
	return rules
}

// fleetUpdateRules emits the production-only image pre-pull/agent-start
// rules for servers running the agent.
func (b *Builder) fleetUpdateRules(candidates []models.Server) []Rule {
	var rules []Rule
	for _, server := range candidates {
		if !server.SentinelEnabled {
			continue
		}
		rules = append(rules, Rule{
			JobIdentity: identity(KindSentinelPull, server.ID),
			TriggerExpr: ResolveFrequency("every-10-minutes"),
			Timezone:    server.Location(),
			Payload:     Payload{Kind: KindSentinelPull, EntityID: server.ID},
		})
	}
	return rules
}
