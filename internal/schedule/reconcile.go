package schedule

import (
	"context"
	"log/slog"

	"github.com/outriggerhq/outrigger/internal/metrics"
	"github.com/outriggerhq/outrigger/internal/models"
)

// Action is the reconciliation verdict for one entity.
type Action int

const (
	ActionKeep Action = iota
	ActionDelete
)

// EntityWriter applies reconciliation side effects to the entity store.
// Deletes are idempotent: deleting an already-deleted row is a no-op.
type EntityWriter interface {
	DeleteScheduledBackup(ctx context.Context, id uint) error
	DeleteScheduledTask(ctx context.Context, id uint) error
}

// ReconcileBackup returns ActionDelete when the backup's database reference
// does not resolve. A backup without a database can never run and is
// removed rather than skipped forever.
func ReconcileBackup(backup models.ScheduledBackup, databases map[uint]models.Database) Action {
	if backup.DatabaseID == nil {
		return ActionDelete
	}
	if _, ok := databases[*backup.DatabaseID]; !ok {
		return ActionDelete
	}
	return ActionKeep
}

// ReconcileTask returns ActionDelete when neither the application nor the
// service reference resolves.
func ReconcileTask(task models.ScheduledTask, apps map[uint]models.Application, services map[uint]models.Service) Action {
	if _, _, ok := taskTarget(task, apps, services); !ok {
		return ActionDelete
	}
	return ActionKeep
}

// Reconciler issues fire-and-forget deletes for structurally invalid
// entities. A failed delete is logged and retried naturally on the next
// tick, since the invalid row will still be in the snapshot.
type Reconciler struct {
	store EntityWriter
}

// NewReconciler wraps an entity store writer.
func NewReconciler(store EntityWriter) *Reconciler {
	return &Reconciler{store: store}
}

func (r *Reconciler) deleteBackup(ctx context.Context, backup models.ScheduledBackup) {
	slog.Info("removing backup with unresolved database", "backup_id", backup.ID)
	metrics.ReconcileDeletes.WithLabelValues("backup").Inc()
	if err := r.store.DeleteScheduledBackup(ctx, backup.ID); err != nil {
		slog.Error("delete scheduled backup", "backup_id", backup.ID, "error", err)
	}
}

func (r *Reconciler) deleteTask(ctx context.Context, task models.ScheduledTask) {
	slog.Info("removing task with no resolvable target", "task_id", task.ID)
	metrics.ReconcileDeletes.WithLabelValues("task").Inc()
	if err := r.store.DeleteScheduledTask(ctx, task.ID); err != nil {
		slog.Error("delete scheduled task", "task_id", task.ID, "error", err)
	}
}
