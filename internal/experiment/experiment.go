// Package experiment is the control plane: it owns the launcher backend,
// creates entities, stages their run directories, and drives their
// lifecycle from submission to terminal status.
package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/expgridgo/internal/config"
	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/database"
	"github.com/vk/expgridgo/internal/entity"
	"github.com/vk/expgridgo/internal/generator"
	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/status"
	"github.com/vk/expgridgo/internal/settings"
)

// Experiment ties a named set of entities to one launcher backend and a
// directory tree for their run artifacts.
type Experiment struct {
	Name string
	Path string

	launcherName string
	launcher     launcher.Launcher
	controller   *Controller

	models       []*entity.Model
	ensembles    []*entity.Ensemble
	orchestrator *database.Orchestrator
}

// New creates an experiment on the named launcher backend. An empty or
// "auto" launcher picks whichever workload manager the system has. The
// path defaults to a directory named after the experiment under the
// working directory.
func New(ctx context.Context, name, path, launcherName string) (*Experiment, error) {
	if name == "" {
		return nil, fmt.Errorf("experiment name must not be empty")
	}
	if launcherName == "" || launcherName == "auto" {
		launcherName = DetectLauncher()
		ctxlog.FromContext(ctx).Info("Launcher detected.", "launcher", launcherName)
	}

	l, err := NewLauncher(launcherName)
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = name
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve experiment path: %w", err)
	}

	return &Experiment{
		Name:         name,
		Path:         abs,
		launcherName: launcherName,
		launcher:     l,
		controller:   NewController(l),
	}, nil
}

// LauncherName returns the resolved launcher backend name.
func (exp *Experiment) LauncherName() string { return exp.launcherName }

// CreateModel creates a model that runs under the experiment.
func (exp *Experiment) CreateModel(name string, params map[string]string, rs settings.Run) (*entity.Model, error) {
	if err := exp.checkName(name); err != nil {
		return nil, err
	}
	m := entity.NewModel(name, params, filepath.Join(exp.Path, name), rs)
	exp.models = append(exp.models, m)
	return m, nil
}

// CreateEnsemble creates and expands an ensemble under the experiment.
func (exp *Experiment) CreateEnsemble(ctx context.Context, name string, params map[string][]string, rs settings.Run, opts entity.EnsembleOptions) (*entity.Ensemble, error) {
	if err := exp.checkName(name); err != nil {
		return nil, err
	}
	if opts.Path == "" {
		opts.Path = filepath.Join(exp.Path, name)
	}
	e, err := entity.NewEnsemble(ctx, name, params, rs, opts)
	if err != nil {
		return nil, err
	}
	exp.ensembles = append(exp.ensembles, e)
	return e, nil
}

// CreateOrchestrator creates the database orchestrator. An experiment has
// at most one.
func (exp *Experiment) CreateOrchestrator(opts database.Options) (*database.Orchestrator, error) {
	if exp.orchestrator != nil {
		return nil, fmt.Errorf("%w: orchestrator", entity.ErrEntityExists)
	}
	if opts.Path == "" {
		opts.Path = filepath.Join(exp.Path, database.Name)
	}
	orc, err := database.New(exp.launcherName, opts)
	if err != nil {
		return nil, err
	}
	exp.orchestrator = orc
	return orc, nil
}

func (exp *Experiment) checkName(name string) error {
	// The orchestrator owns this run directory name.
	if name == database.Name {
		return fmt.Errorf("%w: %q is reserved", entity.ErrEntityExists, name)
	}
	for _, m := range exp.models {
		if m.Name == name {
			return fmt.Errorf("%w: %q", entity.ErrEntityExists, name)
		}
	}
	for _, e := range exp.ensembles {
		if e.Name == name {
			return fmt.Errorf("%w: %q", entity.ErrEntityExists, name)
		}
	}
	return nil
}

// Generate stages the run directory of every entity: the experiment root,
// one directory per model and orchestrator, and one per ensemble member.
func (exp *Experiment) Generate(ctx context.Context, overwrite bool) error {
	if err := os.MkdirAll(exp.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create experiment directory: %w", err)
	}

	gen := generator.New(exp.Path, overwrite)
	if err := gen.GenerateExperiment(ctx); err != nil {
		return err
	}
	for _, m := range exp.models {
		if err := gen.GenerateModel(ctx, m); err != nil {
			return err
		}
	}
	for _, e := range exp.ensembles {
		if err := gen.GenerateEnsemble(ctx, e); err != nil {
			return err
		}
	}
	if exp.orchestrator != nil {
		if err := gen.GenerateOrchestrator(ctx, exp.orchestrator); err != nil {
			return err
		}
	}
	return nil
}

// Start launches every entity. The orchestrator goes first so models can
// reach the database as soon as they run.
func (exp *Experiment) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting experiment.", "experiment", exp.Name, "launcher", exp.launcherName)

	if exp.orchestrator != nil {
		if err := exp.controller.StartOrchestrator(ctx, exp.orchestrator); err != nil {
			return err
		}
	}
	for _, m := range exp.models {
		if err := exp.controller.StartModel(ctx, m); err != nil {
			return err
		}
	}
	for _, e := range exp.ensembles {
		if err := exp.controller.StartEnsemble(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until every launched workload reaches a terminal status.
func (exp *Experiment) Wait(ctx context.Context) error {
	return exp.controller.Wait(ctx)
}

// Stop cancels every launched workload.
func (exp *Experiment) Stop(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("Stopping experiment.", "experiment", exp.Name)
	return exp.controller.Stop(ctx)
}

// GetStatus polls the launcher and returns the current statuses of the
// named entities, or of every tracked job when no names are given.
func (exp *Experiment) GetStatus(ctx context.Context, entityNames ...string) []string {
	statuses := exp.controller.Statuses(ctx, entityNames...)
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Failed returns the names of entities whose jobs ended in the Failed
// state, sorted for stable reporting.
func (exp *Experiment) Failed(ctx context.Context) []string {
	exp.controller.JobManager().Poll(ctx)
	var failed []string
	for _, j := range exp.controller.JobManager().Jobs() {
		if j.Status == status.Failed {
			failed = append(failed, j.Entity)
		}
	}
	sort.Strings(failed)
	return failed
}

// Summary renders a one-line-per-job table of everything the experiment
// has launched.
func (exp *Experiment) Summary(ctx context.Context) string {
	exp.controller.JobManager().Poll(ctx)
	jobs := exp.controller.JobManager().Jobs()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	var b strings.Builder
	fmt.Fprintf(&b, "Experiment %s (%s)\n", exp.Name, exp.launcherName)
	for _, j := range jobs {
		fmt.Fprintf(&b, "  %-40s %-12s %s\n", j.Name, j.Status, j.ID)
	}
	return b.String()
}

// FromConfig builds a fully populated experiment from a loaded
// configuration model.
func FromConfig(ctx context.Context, cfg *config.Model) (*Experiment, error) {
	if cfg.Experiment == nil {
		return nil, fmt.Errorf("configuration has no experiment block")
	}
	exp, err := New(ctx, cfg.Experiment.Name, cfg.Experiment.Path, cfg.Experiment.Launcher)
	if err != nil {
		return nil, err
	}

	for _, spec := range cfg.Models {
		rs, err := runSettingsFromConfig(spec.RunSettings)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", spec.Name, err)
		}
		m, err := exp.CreateModel(spec.Name, spec.Params, rs)
		if err != nil {
			return nil, err
		}
		if spec.Files != nil {
			m.AttachGeneratorFiles(filesFromConfig(spec.Files))
		}
	}

	for _, spec := range cfg.Ensembles {
		var rs settings.Run
		if spec.RunSettings != nil {
			rs, err = runSettingsFromConfig(spec.RunSettings)
			if err != nil {
				return nil, fmt.Errorf("ensemble %q: %w", spec.Name, err)
			}
		}
		opts := entity.EnsembleOptions{
			Strategy: spec.PermStrategy,
			Replicas: spec.Replicas,
			NModels:  spec.NModels,
		}
		if spec.BatchSettings != nil {
			opts.BatchSettings, err = batchSettingsFromConfig(exp.launcherName, spec.BatchSettings)
			if err != nil {
				return nil, fmt.Errorf("ensemble %q: %w", spec.Name, err)
			}
		}
		e, err := exp.CreateEnsemble(ctx, spec.Name, spec.Params, rs, opts)
		if err != nil {
			return nil, err
		}
		if spec.Files != nil {
			e.AttachGeneratorFiles(filesFromConfig(spec.Files))
		}
	}

	if cfg.Orchestrator != nil {
		_, err := exp.CreateOrchestrator(database.Options{
			Port:       cfg.Orchestrator.Port,
			DBNodes:    cfg.Orchestrator.DBNodes,
			Batch:      cfg.Orchestrator.Batch,
			Hosts:      cfg.Orchestrator.Hosts,
			RunCommand: cfg.Orchestrator.RunCommand,
			Time:       cfg.Orchestrator.Time,
			Account:    cfg.Orchestrator.Account,
			Queue:      cfg.Orchestrator.Queue,
		})
		if err != nil {
			return nil, err
		}
	}

	return exp, nil
}

// runSettingsFromConfig picks the settings flavor from the run command.
func runSettingsFromConfig(spec *config.RunSettings) (settings.Run, error) {
	if spec == nil {
		return nil, fmt.Errorf("run settings are required")
	}
	if spec.Exe == "" {
		return nil, fmt.Errorf("run settings must name an executable")
	}

	var rs settings.Run
	switch spec.RunCommand {
	case "srun":
		rs = settings.NewSrunSettings(spec.Exe, spec.ExeArgs, spec.RunArgs)
	case "aprun":
		rs = settings.NewAprunSettings(spec.Exe, spec.ExeArgs, spec.RunArgs)
	case "mpirun":
		rs = settings.NewMpirunSettings(spec.Exe, spec.ExeArgs, spec.RunArgs)
	case "":
		if len(spec.RunArgs) > 0 {
			return nil, fmt.Errorf("run args require a run command")
		}
		rs = settings.New(spec.Exe, spec.ExeArgs...)
	default:
		base := settings.New(spec.Exe, spec.ExeArgs...)
		base.SetRunCommand(spec.RunCommand)
		for k, v := range spec.RunArgs {
			base.SetRunArg(k, v)
		}
		rs = base
	}
	if len(spec.EnvVars) > 0 {
		rs.Base().SetEnvVars(spec.EnvVars)
	}
	return rs, nil
}

// batchSettingsFromConfig picks the batch flavor from the launcher backend.
func batchSettingsFromConfig(launcherName string, spec *config.BatchSettings) (settings.Batch, error) {
	var bs settings.Batch
	switch launcherName {
	case "slurm":
		bs = settings.NewSbatchSettings(spec.Nodes, spec.Time, spec.Account, spec.Queue)
	case "pbs":
		bs = settings.NewQsubSettings(spec.Nodes, 1, spec.Time, spec.Queue, spec.Account)
	case "cobalt":
		bs = settings.NewCobaltSettings(spec.Nodes, spec.Time, spec.Account, spec.Queue)
	default:
		return nil, fmt.Errorf("launcher %q does not support batch settings", launcherName)
	}
	for k, v := range spec.BatchArgs {
		if err := bs.SetBatchArg(k, v); err != nil {
			return nil, err
		}
	}
	return bs, nil
}

func filesFromConfig(f *config.Files) *entity.Files {
	return &entity.Files{
		Configure: f.Configure,
		Copy:      f.Copy,
		Symlink:   f.Symlink,
	}
}
