package cli

import (
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/profiler/internal/types"
)

// BindTasks constructs the run's initial []*types.Task from a loaded
// Profile's task templates and a bound Table, assigning each a fresh
// uuid (matching the original's task_id=str(uuid.uuid4())). A template
// missing an explicit timeout falls back to globalTimeout (itself
// zero meaning types.InfiniteTimeout, per Task.EffectiveTimeout).
func BindTasks(templates []types.TaskTemplate, table *types.Table, strategy types.Strategy, globalTimeout time.Duration) []*types.Task {
	tasks := make([]*types.Task, 0, len(templates))
	for _, tmpl := range templates {
		timeout := globalTimeout
		if tmpl.Timeout != nil {
			timeout = time.Duration(*tmpl.Timeout) * time.Second
		}
		tasks = append(tasks, &types.Task{
			ID:          uuid.NewString(),
			Family:      tmpl.Family,
			Algorithm:   tmpl.Algorithm,
			Params:      tmpl.Parameters,
			Table:       table,
			Rows:        table.RowCount(),
			Cols:        table.ColCount(),
			Fingerprint: table.Fingerprint,
			Timeout:     timeout,
			Strategy:    strategy,
			Stage:       1,
		})
	}
	return tasks
}
