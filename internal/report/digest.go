package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/justapithecus/profiler/internal/types"
)

// WriteDigest renders a Markdown summary table of every given task
// record, most recent first, to digest.md under runDir, adapted from
// desbordante_profiler.py's generate_markdown_digest.
func WriteDigest(runDir string, tasks []types.RunRecord) error {
	var b strings.Builder
	b.WriteString("# Data Profiling Digest\n\n")
	fmt.Fprintf(&b, "**Run Directory:** `%s`\n", runDir)
	fmt.Fprintf(&b, "**Total Tasks Executed:** `%d`\n\n", len(tasks))
	b.WriteString("| Algorithm | Parameters | Execution Time (s) | Result | Instances | Rule |\n")
	b.WriteString("|:----------|:----------:|-------------------:|:------:|:---------:|-----:|\n")

	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]
		result := "success"
		rule := "N/A"
		instances := fmt.Sprintf("%d", t.InstanceCount)
		if t.Status.IsFailure() {
			result = t.ErrorKind
			if result == "" {
				result = string(t.Status)
			}
			rule = t.RulesDecision
			if rule == "" {
				rule = "N/A"
			}
			instances = "N/A"
		}
		fmt.Fprintf(&b, "| %s | `%s` | %.8f | %s | %s | %s |\n",
			t.Algorithm, formatParams(t.Params), t.ExecutionSeconds, result, instances, rule)
	}

	path := runDir + "/digest.md"
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
