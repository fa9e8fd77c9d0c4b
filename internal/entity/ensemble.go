package entity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/settings"
)

// Ensemble is a group of Model instances that can be treated as a reference
// to a single entity. Members are expanded at construction time from the
// ensemble parameters or a replica count.
type Ensemble struct {
	Name          string
	Params        map[string][]string
	Path          string
	RunSettings   settings.Run
	BatchSettings settings.Batch
	Models        []*Model
}

// EnsembleOptions carry the optional expansion inputs for NewEnsemble.
type EnsembleOptions struct {
	// Strategy names a built-in permutation strategy: "all_perm" (default),
	// "step", or "random".
	Strategy string
	// StrategyFunc overrides Strategy with a user-supplied expansion.
	StrategyFunc StrategyFunc
	// Replicas expands the ensemble into identical members when no params
	// are given.
	Replicas int
	// NModels caps the member count of the "random" strategy.
	NModels int
	// BatchSettings describe the ensemble as a batch workload.
	BatchSettings settings.Batch
	// Path is the directory members run under; defaults to the working
	// directory until generation assigns one.
	Path string
}

// NewEnsemble expands an ensemble into its member models.
//
// Parameter expansion requires run settings; replica expansion likewise. An
// ensemble given neither params nor run settings must carry batch settings,
// in which case it is created empty for batch launch and populated with
// AddModel.
func NewEnsemble(ctx context.Context, name string, params map[string][]string, rs settings.Run, opts EnsembleOptions) (*Ensemble, error) {
	logger := ctxlog.FromContext(ctx)

	e := &Ensemble{
		Name:          name,
		Params:        params,
		Path:          opts.Path,
		RunSettings:   rs,
		BatchSettings: opts.BatchSettings,
	}

	switch {
	case len(params) > 0:
		if rs == nil {
			return nil, fmt.Errorf("ensemble %q: params require run settings", name)
		}
		if err := e.expandParams(ctx, opts); err != nil {
			return nil, err
		}
	case rs != nil:
		if opts.Replicas <= 0 {
			return nil, fmt.Errorf("ensemble %q: run settings require params or replicas to expand into members", name)
		}
		e.expandReplicas(ctx, opts.Replicas)
	case opts.BatchSettings == nil:
		return nil, fmt.Errorf("ensemble %q: must be provided batch settings or run settings", name)
	default:
		logger.Info("Empty ensemble created for batch launch.", "ensemble", name)
	}

	return e, nil
}

// expandParams runs the permutation strategy and creates one member per
// resulting parameter set.
func (e *Ensemble) expandParams(ctx context.Context, opts EnsembleOptions) error {
	strategy := opts.StrategyFunc
	if strategy == nil {
		var err error
		strategy, err = strategyByName(opts.Strategy, opts.NModels)
		if err != nil {
			return err
		}
	}

	names := make([]string, 0, len(e.Params))
	for name := range e.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([][]string, len(names))
	for i, name := range names {
		values[i] = e.Params[name]
	}

	perms, err := strategy(names, values)
	if err != nil {
		if errors.Is(err, ErrUnsupportedStrategy) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUserStrategy, err)
	}
	if perms == nil {
		return fmt.Errorf("%w: nil permutations", ErrUserStrategy)
	}
	for _, p := range perms {
		if p == nil {
			return fmt.Errorf("%w: nil parameter set", ErrUserStrategy)
		}
	}

	logger := ctxlog.FromContext(ctx)
	for i, paramSet := range perms {
		model := NewModel(memberName(e.Name, i), paramSet, e.Path, e.RunSettings.Copy())
		model.EnableKeyPrefixing()
		if err := e.AddModel(model); err != nil {
			return err
		}
		logger.Debug("Created ensemble member.", "model", model.Name, "ensemble", e.Name)
	}
	return nil
}

// expandReplicas creates identical members that differ only in name.
func (e *Ensemble) expandReplicas(ctx context.Context, replicas int) {
	logger := ctxlog.FromContext(ctx)
	for i := 0; i < replicas; i++ {
		model := NewModel(memberName(e.Name, i), nil, e.Path, e.RunSettings.Copy())
		model.EnableKeyPrefixing()
		e.Models = append(e.Models, model)
		logger.Debug("Created ensemble member.", "model", model.Name, "ensemble", e.Name)
	}
}

// AddModel adds a model to this ensemble. Member names must be unique.
func (e *Ensemble) AddModel(model *Model) error {
	for _, existing := range e.Models {
		if existing.Name == model.Name {
			return fmt.Errorf("%w: model %q in ensemble %q", ErrEntityExists, model.Name, e.Name)
		}
	}
	e.Models = append(e.Models, model)
	return nil
}

// EntityName implements Entity.
func (e *Ensemble) EntityName() string { return e.Name }

// EntityType implements Entity.
func (e *Ensemble) EntityType() string { return "Ensemble" }

// EntityPath implements Entity.
func (e *Ensemble) EntityPath() string { return e.Path }

// SetPath implements Entity and redirects all members.
func (e *Ensemble) SetPath(path string) {
	e.Path = path
	for _, m := range e.Models {
		m.SetPath(path)
	}
}

// AttachGeneratorFiles attaches the same generator files to every member.
func (e *Ensemble) AttachGeneratorFiles(files *Files) {
	for _, m := range e.Models {
		m.AttachGeneratorFiles(files)
	}
}

// EnableKeyPrefixing turns on key prefixing for every member.
func (e *Ensemble) EnableKeyPrefixing() {
	for _, m := range e.Models {
		m.EnableKeyPrefixing()
	}
}

// QueryKeyPrefixing reports whether every member prefixes its keys.
func (e *Ensemble) QueryKeyPrefixing() bool {
	for _, m := range e.Models {
		if !m.QueryKeyPrefixing() {
			return false
		}
	}
	return true
}

// RegisterIncomingEntity registers the data source with every member.
func (e *Ensemble) RegisterIncomingEntity(source Entity) {
	for _, m := range e.Models {
		m.RegisterIncomingEntity(source)
	}
}

// Len returns the member count.
func (e *Ensemble) Len() int { return len(e.Models) }

func memberName(ensemble string, i int) string {
	return fmt.Sprintf("%s_%d", ensemble, i)
}
