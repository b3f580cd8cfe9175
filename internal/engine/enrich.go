// Package engine implements the data-synchronization core: task enrichment,
// snapshot building, tenant sessions, the multi-tenant orchestrator, and
// the polling coordinator.
package engine

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"lcwatch/internal/config"
	"lcwatch/internal/lcapi"
	"lcwatch/internal/service"
)

// Strategy selects how tasks get their word counts. One strategy is chosen
// per deployment; mixing them within a cycle is not supported.
type Strategy string

const (
	// StrategySourceFiles cross-references project source-file listings.
	StrategySourceFiles Strategy = config.EnrichSourceFiles

	// StrategyEmbedded reads the word count projected onto the task payload.
	StrategyEmbedded Strategy = config.EnrichEmbedded
)

type wordKey struct {
	projectID string
	fileID    string
}

// WordCountIndex maps (project, source file) to a word count. Built once
// per poll cycle and discarded after enrichment.
type WordCountIndex map[wordKey]int

// buildWordCountIndex fetches the source-file listing of every referenced
// project. A project that fails to list is logged and skipped; its tasks
// enrich to zero words. Returns the index and the number of API calls made.
func buildWordCountIndex(ctx context.Context, client *lcapi.Client, projectIDs []string, log *zap.Logger) (WordCountIndex, int) {
	index := make(WordCountIndex)
	calls := 0
	for _, projectID := range projectIDs {
		files, n, err := client.ProjectSourceFiles(ctx, projectID)
		calls += n
		if err != nil {
			log.Warn("failed to fetch source files",
				zap.String("project_id", projectID),
				zap.Error(err))
			continue
		}
		for _, f := range files {
			if f.TotalWords.Malformed {
				log.Warn("invalid word count",
					zap.String("project_id", projectID),
					zap.String("file_id", f.ID))
			}
			index[wordKey{projectID, f.ID}] = f.TotalWords.Value
		}
	}
	return index, calls
}

// enrichTasks attaches a word count to every fetched task and flattens the
// payload into the service shape. It runs strictly after the full task page
// set for the cycle is known. Missing fields default to zero, malformed ones
// are logged and default to zero; enrichment never fails a cycle.
func enrichTasks(ctx context.Context, client *lcapi.Client, raw []lcapi.Task, strategy Strategy, log *zap.Logger) ([]service.Task, int) {
	var index WordCountIndex
	calls := 0

	if strategy == StrategySourceFiles {
		index, calls = buildWordCountIndex(ctx, client, projectIDs(raw), log)
	}

	tasks := make([]service.Task, 0, len(raw))
	for _, t := range raw {
		tasks = append(tasks, service.Task{
			ID:          t.ID,
			Name:        t.Name,
			Status:      t.Status,
			DueBy:       t.DueBy,
			CreatedAt:   t.CreatedAt,
			TaskType:    t.TaskType.Name,
			ProjectName: t.Project.Name,
			WordCount:   wordCount(t, strategy, index, log),
		})
	}
	return tasks, calls
}

// projectIDs returns the distinct project ids referenced by the tasks, in
// stable order.
func projectIDs(tasks []lcapi.Task) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, t := range tasks {
		id := t.Project.ID
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func wordCount(t lcapi.Task, strategy Strategy, index WordCountIndex, log *zap.Logger) int {
	switch strategy {
	case StrategyEmbedded:
		if t.Input == nil || t.Input.TargetFile == nil {
			return 0
		}
		wc := t.Input.TargetFile.TotalWords
		if wc.Malformed {
			log.Warn("invalid word count", zap.String("task_id", t.ID))
		}
		return wc.Value
	default:
		total := 0
		for _, f := range t.InputFiles {
			id := f.TargetFile.SourceFile.ID
			if id == "" {
				continue
			}
			// Absent index entries contribute zero.
			total += index[wordKey{t.Project.ID, id}]
		}
		return total
	}
}
