// Package profile loads and validates the Profile (job) YAML document,
// per spec.md §6, generalizing quarry/cli/config's Load/ExpandEnv
// pattern (KnownFields YAML decoding over an env-expanded pre-pass).
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/justapithecus/profiler/internal/registry"
	"github.com/justapithecus/profiler/internal/types"
)

// Warning describes a task entry dropped during loading, so the caller
// can log it without Load itself depending on a logger.
type Warning struct {
	Index   int
	Message string
}

// Result is a loaded, validated Profile plus any non-fatal warnings.
type Result struct {
	Profile  types.Profile
	Warnings []Warning
}

// Load reads path, expands ${VAR} references, and decodes it as a
// Profile. Unknown YAML keys are rejected to catch typos early, per the
// teacher's config loader. A missing name defaults to
// types.DefaultProfileName. Each task missing both family and algorithm
// is dropped with a Warning rather than failing the whole load, per
// spec.md §6 ("Task with neither is dropped with a warning").
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("profile: not found: %s", path)
		}
		return nil, fmt.Errorf("profile: cannot read %q: %w", path, err)
	}

	expanded := ExpandEnv(string(data))

	var p types.Profile
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("profile: invalid YAML in %s: %w", path, err)
	}

	if p.Name == "" {
		p.Name = types.DefaultProfileName
	}

	var warnings []Warning
	kept := p.Tasks[:0]
	for i, task := range p.Tasks {
		if task.Family == "" && task.Algorithm == "" {
			warnings = append(warnings, Warning{Index: i, Message: "task has neither family nor algorithm; dropped"})
			continue
		}
		resolved, err := resolve(task)
		if err != nil {
			warnings = append(warnings, Warning{Index: i, Message: err.Error()})
			continue
		}
		kept = append(kept, resolved)
	}
	p.Tasks = kept

	return &Result{Profile: p, Warnings: warnings}, nil
}

// resolve fills in whichever of family/algorithm is missing using the
// registry's default tables, matching the original's
// get_algorithm_name_by_family / get_family_by_algorithm dispatch.
func resolve(task types.TaskTemplate) (types.TaskTemplate, error) {
	if task.Algorithm == "" {
		name, err := registry.DefaultAlgorithm(task.Family)
		if err != nil {
			return task, fmt.Errorf("profile: %w", err)
		}
		task.Algorithm = name
		return task, nil
	}
	if task.Family == "" {
		family, err := registry.InferFamily(task.Algorithm, task.Parameters)
		if err != nil {
			return task, fmt.Errorf("profile: %w", err)
		}
		task.Family = family
	}
	return task, nil
}
