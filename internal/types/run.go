package types

import "time"

// RunRecord is the durable unit persisted by the History Store: one row
// per task attempt, appended at task start and updated once with the
// final outcome.
type RunRecord struct {
	RunID            string    `json:"run_id"`
	TaskID           string    `json:"task_id"`
	Algorithm        string    `json:"algorithm"`
	Family           Family    `json:"family"`
	Params           map[string]any `json:"params"`
	Fingerprint      string    `json:"fingerprint,omitempty"`
	Rows             int       `json:"rows"`
	Cols             int       `json:"cols"`
	TimestampStart   time.Time `json:"timestamp_start"`
	TimestampEnd     time.Time `json:"timestamp_end,omitempty"`
	ExecutionSeconds float64   `json:"execution_seconds,omitempty"`
	Status           Status    `json:"status"`
	ArtifactPath     string    `json:"artifact_path,omitempty"`
	InstanceCount    int       `json:"instance_count,omitempty"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	RulesDecision    string    `json:"rules_decision,omitempty"`
}

// GlobalSettings is the Profile's optional global caps.
type GlobalSettings struct {
	Rows           *int `yaml:"rows,omitempty" json:"rows,omitempty"`
	Columns        *int `yaml:"columns,omitempty" json:"columns,omitempty"`
	GlobalTimeout  *int `yaml:"global_timeout,omitempty" json:"global_timeout,omitempty"`
}

// TaskTemplate is one entry in a Profile's task list, prior to being
// bound against a loaded Table.
type TaskTemplate struct {
	Family     Family         `yaml:"family,omitempty" json:"family,omitempty"`
	Algorithm  string         `yaml:"algorithm,omitempty" json:"algorithm,omitempty"`
	Parameters map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Timeout    *int           `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Profile is the declarative job description: an ordered task list plus
// global settings.
type Profile struct {
	Name           string          `yaml:"name" json:"name"`
	GlobalSettings GlobalSettings  `yaml:"global_settings" json:"global_settings"`
	Tasks          []TaskTemplate  `yaml:"tasks" json:"tasks"`
}

// DefaultProfileName is used when a Profile's name field is absent.
const DefaultProfileName = "UnnamedProfile"
