package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/vk/expgridgo/internal/settings"
)

// Step is one unit of work handed to a launcher: a single process launch or
// a batch submission. Step names carry a random suffix so resubmissions of
// the same entity never collide at the workload manager.
type Step struct {
	Name       string
	EntityName string
	Cwd        string
	Argv       []string
	Env        map[string]string

	// BatchPreamble holds the scheduler directive lines of a batch step.
	// An interactive step has none.
	BatchPreamble []string

	OutFile string
	ErrFile string
}

// NewStep creates an interactive step for the given entity.
func NewStep(entityName, cwd string, rs settings.Run) *Step {
	name := stepName(entityName)
	return &Step{
		Name:       name,
		EntityName: entityName,
		Cwd:        cwd,
		Argv:       rs.Argv(),
		Env:        rs.Env(),
		OutFile:    filepath.Join(cwd, name+".out"),
		ErrFile:    filepath.Join(cwd, name+".err"),
	}
}

// NewBatchStep creates a batch step whose submission script runs the given
// command lines under the batch settings' directives.
func NewBatchStep(entityName, cwd string, bs settings.Batch, argv ...[]string) *Step {
	name := stepName(entityName)
	step := &Step{
		Name:          name,
		EntityName:    entityName,
		Cwd:           cwd,
		BatchPreamble: bs.Format(),
		OutFile:       filepath.Join(cwd, name+".out"),
		ErrFile:       filepath.Join(cwd, name+".err"),
	}
	for _, a := range argv {
		step.Argv = append(step.Argv, shellJoin(a))
	}
	return step
}

// shellJoin renders an argv slice as one script line, quoting arguments
// that contain whitespace so they survive the shell intact.
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		if strings.ContainsAny(a, " \t") {
			quoted[i] = "'" + a + "'"
			continue
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

// IsBatch reports whether the step is submitted through a batch queue.
func (s *Step) IsBatch() bool { return len(s.BatchPreamble) > 0 }

// Script renders the batch submission script.
func (s *Step) Script() string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n\n")
	for _, line := range s.BatchPreamble {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s=%s\n", k, s.Env[k])
	}
	if len(keys) > 0 {
		b.WriteByte('\n')
	}

	for i, line := range s.Argv {
		b.WriteString(line)
		if i < len(s.Argv)-1 {
			b.WriteString(" &")
		}
		b.WriteByte('\n')
	}
	if len(s.Argv) > 1 {
		b.WriteString("wait\n")
	}
	return b.String()
}

// WriteScript writes the submission script into the step's working
// directory and returns its path.
func (s *Step) WriteScript() (string, error) {
	path := filepath.Join(s.Cwd, s.Name+".sh")
	if err := os.WriteFile(path, []byte(s.Script()), 0o755); err != nil {
		return "", fmt.Errorf("failed to write batch script: %w", err)
	}
	return path, nil
}

func stepName(entityName string) string {
	return entityName + "-" + uuid.NewString()[:8]
}
