package engine

import (
	"time"

	"go.uber.org/zap"

	"lcwatch/internal/lcapi"
	"lcwatch/internal/service"
)

// upcomingWindow bounds the "due soon" list surfaced alongside snapshots.
const upcomingWindow = 48 * time.Hour

// closedStatuses are the statuses excluded from overdue and upcoming
// computation.
var closedStatuses = map[string]bool{
	lcapi.StatusCompleted: true,
	lcapi.StatusCanceled:  true,
	lcapi.StatusSkipped:   true,
}

// BuildSnapshot reduces an enriched task list into the aggregate view for
// one tenant. Unknown status strings count toward the total but no bucket.
// Unparsable due dates are logged and excluded from the overdue count.
func BuildSnapshot(tenant service.Tenant, tasks []service.Task, now time.Time, log *zap.Logger) service.Snapshot {
	byStatus := make(map[string]int, len(lcapi.KnownStatuses))
	for _, s := range lcapi.KnownStatuses {
		byStatus[s] = 0
	}

	overdue := 0
	totalWords := 0
	var nextDue time.Time

	for _, t := range tasks {
		if _, known := byStatus[t.Status]; known {
			byStatus[t.Status]++
		}
		totalWords += t.WordCount

		if t.DueBy == "" || closedStatuses[t.Status] {
			continue
		}
		due, err := time.Parse(time.RFC3339, t.DueBy)
		if err != nil {
			log.Warn("invalid due date",
				zap.String("task_id", t.ID),
				zap.String("due_by", t.DueBy))
			continue
		}
		if due.Before(now) {
			overdue++
		} else if nextDue.IsZero() || due.Before(nextDue) {
			nextDue = due
		}
	}

	return service.Snapshot{
		Tenant:        tenant,
		TotalTasks:    len(tasks),
		TasksByStatus: byStatus,
		OverdueCount:  overdue,
		TotalWords:    totalWords,
		Tasks:         tasks,
		NextDue:       nextDue,
		Upcoming:      Upcoming(tasks, now),
		Timestamp:     now,
	}
}

// Upcoming returns the open tasks due within the next 48 hours, in input
// order.
func Upcoming(tasks []service.Task, now time.Time) []service.Task {
	var out []service.Task
	for _, t := range tasks {
		if t.DueBy == "" || closedStatuses[t.Status] {
			continue
		}
		due, err := time.Parse(time.RFC3339, t.DueBy)
		if err != nil {
			continue
		}
		if due.After(now) && due.Sub(now) <= upcomingWindow {
			out = append(out, t)
		}
	}
	return out
}

// newTasks returns the tasks of cur whose ids were absent from prev, in
// cur's order.
func newTasks(prev, cur service.Snapshot) []service.Task {
	seen := make(map[string]struct{}, len(prev.Tasks))
	for _, t := range prev.Tasks {
		seen[t.ID] = struct{}{}
	}
	var out []service.Task
	for _, t := range cur.Tasks {
		if _, ok := seen[t.ID]; !ok {
			out = append(out, t)
		}
	}
	return out
}
