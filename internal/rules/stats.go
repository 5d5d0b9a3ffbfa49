package rules

import "sync"

// Stats is an atomic snapshot of decision counters, for observability
// in the core manager's iteration logs. Mirrors the recorder idiom
// quarry's policy package uses for its own Stats.
type Stats struct {
	Retries       int64
	Skips         int64
	RetriesByKind map[Action]int64
}

// statsRecorder accumulates Decide outcomes under a mutex; Decide
// itself stays pure, the core manager records each decision explicitly.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{stats: Stats{RetriesByKind: make(map[Action]int64)}}
}

func (r *statsRecorder) record(d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch d.Action {
	case ActionRetry:
		r.stats.Retries++
	case ActionSkip:
		r.stats.Skips++
	}
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.RetriesByKind = make(map[Action]int64, len(r.stats.RetriesByKind))
	for k, v := range r.stats.RetriesByKind {
		s.RetriesByKind[k] = v
	}
	return s
}

// Recorder is a concurrency-safe counter of Decide outcomes across one
// core manager run. Call Record after each Decide call.
type Recorder struct {
	r *statsRecorder
}

// NewRecorder constructs an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{r: newStatsRecorder()}
}

// Record accounts for one decision.
func (rec *Recorder) Record(d Decision) {
	rec.r.record(d)
}

// Snapshot returns the current counters.
func (rec *Recorder) Snapshot() Stats {
	return rec.r.snapshot()
}
