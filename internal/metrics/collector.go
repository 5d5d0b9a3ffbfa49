// Package metrics provides per-run counters for the Core Manager:
// tasks started/succeeded/failed, retries by strategy, and dedup hits.
// Generalizes quarry/metrics/collector.go's nil-receiver-safe increment
// methods and dimensioned Snapshot to this domain's counters.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of one run's counters.
type Snapshot struct {
	TasksStarted   int64
	TasksSucceeded int64
	TasksFailed    int64
	DedupHits      int64
	RetriesByStrategy map[string]int64

	RunID       string
	ProfileName string
}

// Collector accumulates counters during a single Core Manager run.
// Thread-safe; all increment methods are nil-receiver safe, matching
// the teacher's "Collector methods never panic on a nil Collector"
// discipline so a caller that skips metrics wiring never crashes.
type Collector struct {
	mu sync.Mutex

	tasksStarted   int64
	tasksSucceeded int64
	tasksFailed    int64
	dedupHits      int64
	retriesByStrategy map[string]int64

	runID       string
	profileName string
}

// NewCollector creates a Collector with the run's dimension labels.
func NewCollector(runID, profileName string) *Collector {
	return &Collector{
		retriesByStrategy: make(map[string]int64),
		runID:             runID,
		profileName:       profileName,
	}
}

// IncTaskStarted records a task dispatched to the Scheduler.
func (c *Collector) IncTaskStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.tasksStarted++
	c.mu.Unlock()
}

// IncTaskSucceeded records a task that reached Success.
func (c *Collector) IncTaskSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.tasksSucceeded++
	c.mu.Unlock()
}

// IncTaskFailed records a task whose terminal status was not Success.
func (c *Collector) IncTaskFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.tasksFailed++
	c.mu.Unlock()
}

// IncDedupHit records a task skipped by the dedup pass.
func (c *Collector) IncDedupHit() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.dedupHits++
	c.mu.Unlock()
}

// IncRetry records a Rules Engine retry decision under the given
// strategy name.
func (c *Collector) IncRetry(strategy string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.retriesByStrategy[strategy]++
	c.mu.Unlock()
}

// Snapshot returns an atomic, independently-mutable copy of the current
// counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{RetriesByStrategy: map[string]int64{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byStrategy := make(map[string]int64, len(c.retriesByStrategy))
	for k, v := range c.retriesByStrategy {
		byStrategy[k] = v
	}
	return Snapshot{
		TasksStarted:      c.tasksStarted,
		TasksSucceeded:    c.tasksSucceeded,
		TasksFailed:        c.tasksFailed,
		DedupHits:         c.dedupHits,
		RetriesByStrategy: byStrategy,
		RunID:             c.runID,
		ProfileName:       c.profileName,
	}
}
