package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/expgridgo/internal/config"
	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/fsutil"
	"github.com/vk/expgridgo/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load discovers all .hcl files under the given paths, parses them, and
// merges their contents into a single format-agnostic model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to discover experiment files under %q: %w", path, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl experiment files found under %v", paths)
	}
	logger.Debug("Experiment files discovered.", "count", len(files))

	model := &config.Model{}
	for _, file := range files {
		parsed, err := l.parseFile(ctx, file)
		if err != nil {
			return nil, err
		}
		if err := l.merge(model, parsed, file); err != nil {
			return nil, err
		}
	}

	if err := validate(model); err != nil {
		return nil, err
	}
	logger.Debug("Experiment configuration loaded.",
		"models", len(model.Models), "ensembles", len(model.Ensembles))
	return model, nil
}

// parseFile parses a single .hcl file into the raw schema representation.
func (l *Loader) parseFile(ctx context.Context, path string) (*schema.File, error) {
	hclFile, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %q: %w", path, diags)
	}

	var parsed schema.File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %q: %w", path, diags)
	}
	return &parsed, nil
}

// merge translates a parsed file into the model, rejecting duplicate
// top-level blocks and entity names across files.
func (l *Loader) merge(model *config.Model, parsed *schema.File, path string) error {
	if parsed.Experiment != nil {
		if model.Experiment != nil {
			return fmt.Errorf("duplicate experiment block in %q", path)
		}
		model.Experiment = translateExperiment(parsed.Experiment)
	}
	if parsed.Orchestrator != nil {
		if model.Orchestrator != nil {
			return fmt.Errorf("duplicate orchestrator block in %q", path)
		}
		orc, err := translateOrchestrator(parsed.Orchestrator)
		if err != nil {
			return fmt.Errorf("in %q: %w", path, err)
		}
		model.Orchestrator = orc
	}
	for _, m := range parsed.Models {
		spec, err := translateModel(m)
		if err != nil {
			return fmt.Errorf("in %q: %w", path, err)
		}
		model.Models = append(model.Models, spec)
	}
	for _, e := range parsed.Ensembles {
		spec, err := translateEnsemble(e)
		if err != nil {
			return fmt.Errorf("in %q: %w", path, err)
		}
		model.Ensembles = append(model.Ensembles, spec)
	}
	return nil
}

// validate enforces cross-file invariants: a present experiment block,
// unique entity names, and a known launcher value.
func validate(model *config.Model) error {
	if model.Experiment == nil {
		return fmt.Errorf("no experiment block found: one of the files must declare an experiment")
	}

	seen := map[string]bool{}
	for _, m := range model.Models {
		if seen[m.Name] {
			return fmt.Errorf("duplicate entity name %q", m.Name)
		}
		seen[m.Name] = true
	}
	for _, e := range model.Ensembles {
		if seen[e.Name] {
			return fmt.Errorf("duplicate entity name %q", e.Name)
		}
		seen[e.Name] = true
	}

	if model.Experiment != nil && model.Experiment.Launcher != "" {
		launcher := model.Experiment.Launcher
		if launcher != "auto" && !validLauncher(launcher) {
			return fmt.Errorf("unknown launcher %q: must be one of %v or \"auto\"",
				launcher, config.Launchers)
		}
	}
	return nil
}

func validLauncher(name string) bool {
	for _, l := range config.Launchers {
		if name == l {
			return true
		}
	}
	return false
}

var _ config.Loader = (*Loader)(nil)
