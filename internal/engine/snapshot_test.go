package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lcwatch/internal/service"
)

var testTenant = service.Tenant{ID: "tenant-1", Name: "Agency", Region: "eu"}

func ts(t *testing.T, v string) string {
	t.Helper()
	_, err := time.Parse(time.RFC3339, v)
	require.NoError(t, err)
	return v
}

func TestBuildSnapshotBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tasks := []service.Task{
		{ID: "a", Status: "inProgress", WordCount: 100},
		{ID: "b", Status: "inProgress", WordCount: 250},
		{ID: "c", Status: "created"},
		{ID: "d", Status: "completed"},
		{ID: "e", Status: "somethingNew"}, // unknown status
	}

	snap := BuildSnapshot(testTenant, tasks, now, zap.NewNop())

	require.Equal(t, 5, snap.TotalTasks)
	require.Equal(t, 2, snap.TasksByStatus["inProgress"])
	require.Equal(t, 1, snap.TasksByStatus["created"])
	require.Equal(t, 1, snap.TasksByStatus["completed"])
	require.Equal(t, 0, snap.TasksByStatus["failed"])
	// Unknown statuses count toward the total only.
	_, bucketed := snap.TasksByStatus["somethingNew"]
	require.False(t, bucketed)
	require.Equal(t, 350, snap.TotalWords)
	require.Equal(t, testTenant, snap.Tenant)
	require.Equal(t, now, snap.Timestamp)
}

func TestBuildSnapshotOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tasks := []service.Task{
		{ID: "a", Status: "inProgress", DueBy: ts(t, "2026-02-28T12:00:00Z")}, // overdue
		{ID: "b", Status: "created", DueBy: ts(t, "2026-03-02T12:00:00Z")},    // future
		{ID: "c", Status: "completed", DueBy: ts(t, "2026-02-01T12:00:00Z")},  // closed, never overdue
		{ID: "d", Status: "canceled", DueBy: ts(t, "2026-02-01T12:00:00Z")},
		{ID: "e", Status: "skipped", DueBy: ts(t, "2026-02-01T12:00:00Z")},
		{ID: "f", Status: "inProgress"}, // no due date
	}

	snap := BuildSnapshot(testTenant, tasks, now, zap.NewNop())

	require.Equal(t, 1, snap.OverdueCount)
	require.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), snap.NextDue)
	require.Len(t, snap.Upcoming, 1)
	require.Equal(t, "b", snap.Upcoming[0].ID)
}

func TestBuildSnapshotUnparsableDueDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tasks := []service.Task{
		{ID: "a", Status: "inProgress", DueBy: "yesterday"},
	}

	snap := BuildSnapshot(testTenant, tasks, now, zap.NewNop())

	require.Equal(t, 1, snap.TotalTasks)
	require.Equal(t, 0, snap.OverdueCount)
	require.True(t, snap.NextDue.IsZero())
}

func TestBuildSnapshotNextDuePicksEarliest(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tasks := []service.Task{
		{ID: "a", Status: "created", DueBy: ts(t, "2026-03-05T09:00:00Z")},
		{ID: "b", Status: "created", DueBy: ts(t, "2026-03-03T09:00:00Z")},
		{ID: "c", Status: "created", DueBy: ts(t, "2026-03-04T09:00:00Z")},
	}

	snap := BuildSnapshot(testTenant, tasks, now, zap.NewNop())
	require.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), snap.NextDue)
}

func TestUpcomingWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tasks := []service.Task{
		{ID: "soon", Status: "created", DueBy: ts(t, "2026-03-02T12:00:00Z")},
		{ID: "edge", Status: "created", DueBy: ts(t, "2026-03-03T12:00:00Z")},    // exactly 48h
		{ID: "far", Status: "created", DueBy: ts(t, "2026-03-10T12:00:00Z")},     // beyond window
		{ID: "past", Status: "created", DueBy: ts(t, "2026-02-28T12:00:00Z")},    // already due
		{ID: "done", Status: "completed", DueBy: ts(t, "2026-03-02T12:00:00Z")},  // closed
		{ID: "junk", Status: "created", DueBy: "not-a-date"},
	}

	got := Upcoming(tasks, now)
	require.Len(t, got, 2)
	require.Equal(t, "soon", got[0].ID)
	require.Equal(t, "edge", got[1].ID)
}

func TestNewTasksDiff(t *testing.T) {
	prev := service.Snapshot{Tasks: []service.Task{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
	cur := service.Snapshot{Tasks: []service.Task{{ID: "2"}, {ID: "3"}, {ID: "4"}}}

	got := newTasks(prev, cur)
	require.Len(t, got, 1)
	require.Equal(t, "4", got[0].ID)
}

func TestNewTasksDiffPreservesOrder(t *testing.T) {
	prev := service.Snapshot{Tasks: []service.Task{{ID: "b"}}}
	cur := service.Snapshot{Tasks: []service.Task{{ID: "c"}, {ID: "b"}, {ID: "a"}}}

	got := newTasks(prev, cur)
	require.Len(t, got, 2)
	require.Equal(t, "c", got[0].ID)
	require.Equal(t, "a", got[1].ID)
}

func TestNewTasksEmptyPrev(t *testing.T) {
	cur := service.Snapshot{Tasks: []service.Task{{ID: "a"}}}
	got := newTasks(service.Snapshot{}, cur)
	require.Len(t, got, 1)
}
