package schedule

import (
	"github.com/outriggerhq/outrigger/internal/models"
)

// BackupEligible reports whether a backup definition should produce a rule
// this tick. Structural validity (database resolving at all) is the
// reconciler's concern and is checked before this gate runs.
func BackupEligible(backup models.ScheduledBackup, databases map[uint]models.Database) bool {
	if !backup.Enabled {
		return false
	}
	if backup.DatabaseID == nil {
		return false
	}
	_, ok := databases[*backup.DatabaseID]
	return ok
}

// taskTarget resolves a task's application-or-service target. A task is
// expected to reference exactly one; the returned status and server are
// taken from whichever resolves.
func taskTarget(task models.ScheduledTask, apps map[uint]models.Application, services map[uint]models.Service) (running bool, serverID uint, ok bool) {
	if task.ApplicationID != nil {
		if app, found := apps[*task.ApplicationID]; found {
			return app.Running(), app.ServerID, true
		}
	}
	if task.ServiceID != nil {
		if svc, found := services[*task.ServiceID]; found {
			return svc.Running(), svc.ServerID, true
		}
	}
	return false, 0, false
}

// TaskEligible reports whether a task should produce a rule this tick: it
// must be enabled and its target's live status must contain "running". A
// stopped target is a skip, not an invalidity.
func TaskEligible(task models.ScheduledTask, apps map[uint]models.Application, services map[uint]models.Service) bool {
	if !task.Enabled {
		return false
	}
	running, _, ok := taskTarget(task, apps, services)
	return ok && running
}

// CandidateServers returns the servers that participate in resource-check
// scheduling this tick. The sentinel placeholder IP is always excluded. In
// cloud mode only servers of subscribed teams qualify, plus the house
// team's own fleet; self-hosted instances schedule every server.
func CandidateServers(cloud bool, servers []models.Server, teams []models.Team) []models.Server {
	subscribed := make(map[uint]bool, len(teams))
	for _, team := range teams {
		subscribed[team.ID] = team.Subscribed()
	}

	var out []models.Server
	for _, server := range servers {
		if server.IP == models.SentinelPlaceholderIP {
			continue
		}
		if cloud && server.TeamID != models.HouseTeamID && !subscribed[server.TeamID] {
			continue
		}
		out = append(out, server)
	}
	return out
}
