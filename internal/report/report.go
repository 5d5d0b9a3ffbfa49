// Package report renders the artifacts a run leaves behind for a human
// to read afterward: an append-only result.txt transcript and a
// summary digest.md table, plus a structured JSON RunReport for
// machine consumption. The split between building a report value and
// writing it out follows quarry/runtime/report.go's BuildRunReport /
// WriteRunReport shape.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/justapithecus/profiler/internal/metrics"
	"github.com/justapithecus/profiler/internal/types"
)

// RunReport is the structured summary of one completed run.
type RunReport struct {
	RunID           string            `json:"run_id"`
	ProfileName     string            `json:"profile_name"`
	Outcome         string            `json:"outcome"`
	TasksSucceeded  int               `json:"tasks_succeeded"`
	TasksFailed     int               `json:"tasks_failed"`
	DurationSeconds float64           `json:"duration_seconds"`
	Metrics         metrics.Snapshot  `json:"metrics"`
	Tasks           []types.RunRecord `json:"tasks"`
}

// BuildRunReport composes a RunReport from the run's task records and
// metrics snapshot.
func BuildRunReport(runID, profileName string, tasks []types.RunRecord, snap metrics.Snapshot, duration time.Duration) *RunReport {
	succeeded, failed := 0, 0
	for _, t := range tasks {
		if t.Status == types.StatusSuccess {
			succeeded++
		} else if t.Status.IsFailure() {
			failed++
		}
	}
	outcome := "success"
	if failed > 0 {
		outcome = "partial_failure"
	}
	return &RunReport{
		RunID:           runID,
		ProfileName:     profileName,
		Outcome:         outcome,
		TasksSucceeded:  succeeded,
		TasksFailed:     failed,
		DurationSeconds: duration.Seconds(),
		Metrics:         snap,
		Tasks:           tasks,
	}
}

// WriteJSON writes report as indented JSON to path.
func WriteJSON(report *RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
