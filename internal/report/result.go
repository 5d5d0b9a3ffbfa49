package report

import (
	"fmt"
	"os"
	"sort"
)

// ResultWriter appends one human-readable transcript entry per
// completed task to result.txt, adapted from manager.py's
// _store_result (which opens the file in append mode once per task).
type ResultWriter struct {
	path string
}

// NewResultWriter returns a writer appending to path.
func NewResultWriter(path string) *ResultWriter {
	return &ResultWriter{path: path}
}

// AppendSuccess records a successful task: the algorithm, its
// parameters, and the discovered instance counts keyed by the
// algorithm's result kind (e.g. "functional_dependency").
func (w *ResultWriter) AppendSuccess(algorithm string, params map[string]any, instances map[string]int) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("report: open %s: %w", w.path, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "SUCCESS by %s with params: %s\n", algorithm, formatParams(params))
	for _, kind := range sortedKeys(instances) {
		fmt.Fprintf(f, "%s: %d found\n", kind, instances[kind])
	}
	fmt.Fprintln(f)
	return nil
}

// AppendFailure records a failed task: the algorithm, its parameters,
// the error kind, and the rules decision that followed.
func (w *ResultWriter) AppendFailure(algorithm string, params map[string]any, errorKind, rulesDecision string) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("report: open %s: %w", w.path, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "%s by %s with params: %s\n", errorKind, algorithm, formatParams(params))
	fmt.Fprintf(f, "rule: %s\n\n", rulesDecision)
	return nil
}

// AppendDedup records a task skipped by the dedup pass: it reuses a
// prior run's artifact instead of executing again.
func (w *ResultWriter) AppendDedup(algorithm string, params map[string]any, artifactPath string) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("report: open %s: %w", w.path, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "DEDUP by %s with params: %s\n", algorithm, formatParams(params))
	fmt.Fprintf(f, "reused artifact: %s\n\n", artifactPath)
	return nil
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	keys := sortedAnyKeys(params)
	out := "{"
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %v", k, params[k])
	}
	return out + "}"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
