package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/profiler/internal/metrics"
	"github.com/justapithecus/profiler/internal/types"
)

func TestBuildRunReport_OutcomeReflectsFailures(t *testing.T) {
	tasks := []types.RunRecord{
		{TaskID: "t1", Status: types.StatusSuccess},
		{TaskID: "t2", Status: types.StatusTimeout},
	}
	r := BuildRunReport("run1", "p", tasks, metrics.Snapshot{}, 2*time.Second)
	if r.Outcome != "partial_failure" {
		t.Errorf("Outcome = %q, want partial_failure", r.Outcome)
	}
	if r.TasksSucceeded != 1 || r.TasksFailed != 1 {
		t.Errorf("counts = %d/%d, want 1/1", r.TasksSucceeded, r.TasksFailed)
	}
}

func TestBuildRunReport_AllSuccess(t *testing.T) {
	tasks := []types.RunRecord{{Status: types.StatusSuccess}}
	r := BuildRunReport("run1", "p", tasks, metrics.Snapshot{}, 0)
	if r.Outcome != "success" {
		t.Errorf("Outcome = %q, want success", r.Outcome)
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	r := BuildRunReport("run1", "p", nil, metrics.Snapshot{}, 0)
	if err := WriteJSON(r, path); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var got RunReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.RunID != "run1" {
		t.Errorf("RunID = %q, want run1", got.RunID)
	}
}

func TestResultWriter_AppendSuccessAndFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.txt")
	w := NewResultWriter(path)

	if err := w.AppendSuccess("hyfd", map[string]any{"error": 0.01}, map[string]int{"functional_dependencies": 3}); err != nil {
		t.Fatalf("AppendSuccess failed: %v", err)
	}
	if err := w.AppendFailure("pyro", map[string]any{"error": 0.01}, "timeout", "timeout_grow"); err != nil {
		t.Fatalf("AppendFailure failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "SUCCESS by hyfd") {
		t.Errorf("missing success line: %s", content)
	}
	if !strings.Contains(content, "functional_dependencies: 3 found") {
		t.Errorf("missing instance line: %s", content)
	}
	if !strings.Contains(content, "timeout by pyro") {
		t.Errorf("missing failure line: %s", content)
	}
	if !strings.Contains(content, "rule: timeout_grow") {
		t.Errorf("missing rule line: %s", content)
	}
}

func TestWriteDigest(t *testing.T) {
	dir := t.TempDir()
	tasks := []types.RunRecord{
		{Algorithm: "hyfd", Status: types.StatusSuccess, InstanceCount: 5, ExecutionSeconds: 1.23456789},
		{Algorithm: "pyro", Status: types.StatusTimeout, ErrorKind: "timeout", RulesDecision: "timeout_grow"},
	}
	if err := WriteDigest(dir, tasks); err != nil {
		t.Fatalf("WriteDigest failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "digest.md"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "# Data Profiling Digest") {
		t.Errorf("missing header: %s", content)
	}
	if !strings.Contains(content, "**Total Tasks Executed:** `2`") {
		t.Errorf("missing count: %s", content)
	}
	if !strings.Contains(content, "pyro") || !strings.Contains(content, "timeout_grow") {
		t.Errorf("missing failure row: %s", content)
	}
	// Most recent task (pyro, reverse order) appears before hyfd.
	if strings.Index(content, "pyro") > strings.Index(content, "hyfd") {
		t.Errorf("expected reverse-chronological order, got: %s", content)
	}
}
