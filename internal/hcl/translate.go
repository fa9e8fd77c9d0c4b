// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/expgridgo/internal/config"
	"github.com/vk/expgridgo/internal/schema"
)

func translateExperiment(s *schema.Experiment) *config.ExperimentSpec {
	return &config.ExperimentSpec{
		Name:     s.Name,
		Launcher: s.Launcher,
		Path:     s.Path,
	}
}

func translateModel(s *schema.Model) (*config.ModelSpec, error) {
	params, err := scalarParams(s.Params, s.Name)
	if err != nil {
		return nil, err
	}
	rs, err := translateRunSettings(s.RunSettings, s.Name)
	if err != nil {
		return nil, err
	}
	return &config.ModelSpec{
		Name:        s.Name,
		Params:      params,
		RunSettings: rs,
		Files:       translateFiles(s.Files),
	}, nil
}

func translateEnsemble(s *schema.Ensemble) (*config.EnsembleSpec, error) {
	params, err := listParams(s.Params, s.Name)
	if err != nil {
		return nil, err
	}
	rs, err := translateRunSettings(s.RunSettings, s.Name)
	if err != nil {
		return nil, err
	}
	spec := &config.EnsembleSpec{
		Name:         s.Name,
		Params:       params,
		PermStrategy: s.PermStrategy,
		Replicas:     s.Replicas,
		NModels:      s.NModels,
		RunSettings:  rs,
		Files:        translateFiles(s.Files),
	}
	if s.BatchSettings != nil {
		spec.BatchSettings = &config.BatchSettings{
			Nodes:     s.BatchSettings.Nodes,
			Time:      s.BatchSettings.Time,
			Account:   s.BatchSettings.Account,
			Queue:     s.BatchSettings.Queue,
			BatchArgs: s.BatchSettings.BatchArgs,
		}
	}
	return spec, nil
}

func translateRunSettings(s *schema.RunSettingsBlock, owner string) (*config.RunSettings, error) {
	if s == nil {
		return nil, nil
	}
	runArgs, err := argMap(s.RunArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid run_args for %q: %w", owner, err)
	}
	return &config.RunSettings{
		Exe:        s.Exe,
		ExeArgs:    s.ExeArgs,
		RunCommand: s.RunCommand,
		RunArgs:    runArgs,
		EnvVars:    s.EnvVars,
	}, nil
}

func translateOrchestrator(s *schema.Orchestrator) (*config.OrchestratorSpec, error) {
	spec := &config.OrchestratorSpec{
		Port:       s.Port,
		DBNodes:    s.DBNodes,
		Batch:      true,
		Hosts:      s.Hosts,
		RunCommand: s.RunCommand,
		Time:       s.Time,
		Account:    s.Account,
		Queue:      s.Queue,
	}
	if s.Batch != nil {
		spec.Batch = *s.Batch
	}
	if spec.Port == 0 {
		spec.Port = 6379
	}
	if spec.DBNodes == 0 {
		spec.DBNodes = 1
	}
	return spec, nil
}

func translateFiles(s *schema.FilesBlock) *config.Files {
	if s == nil {
		return nil
	}
	return &config.Files{
		Configure: s.Configure,
		Copy:      s.Copy,
		Symlink:   s.Symlink,
	}
}

// scalarParams evaluates a params expression whose values must be single
// strings or numbers.
func scalarParams(expr hcl.Expression, owner string) (map[string]string, error) {
	values, err := paramObject(expr, owner)
	if err != nil {
		return nil, err
	}
	params := make(map[string]string, len(values))
	for name, val := range values {
		s, err := scalarString(val)
		if err != nil {
			return nil, fmt.Errorf("param %q of %q: %w", name, owner, err)
		}
		params[name] = s
	}
	return params, nil
}

// listParams evaluates a params expression whose values may be scalars or
// lists of scalars. Scalars promote to one-element lists.
func listParams(expr hcl.Expression, owner string) (map[string][]string, error) {
	values, err := paramObject(expr, owner)
	if err != nil {
		return nil, err
	}
	params := make(map[string][]string, len(values))
	for name, val := range values {
		if val.Type().IsTupleType() || val.Type().IsListType() {
			var list []string
			for it := val.ElementIterator(); it.Next(); {
				_, element := it.Element()
				s, err := scalarString(element)
				if err != nil {
					return nil, fmt.Errorf("param %q of %q: %w", name, owner, err)
				}
				list = append(list, s)
			}
			params[name] = list
			continue
		}
		s, err := scalarString(val)
		if err != nil {
			return nil, fmt.Errorf("param %q of %q: %w", name, owner, err)
		}
		params[name] = []string{s}
	}
	return params, nil
}

// paramObject evaluates a params expression into its member values, or nil
// when the attribute is absent.
func paramObject(expr hcl.Expression, owner string) (map[string]cty.Value, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid params for %q: %w", owner, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("params for %q must be a map", owner)
	}
	return val.AsValueMap(), nil
}

// argMap evaluates a run_args expression into a flag-to-value map. Null and
// boolean-true values mark bare flags.
func argMap(expr hcl.Expression) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("run_args must be a map of scalars")
	}

	args := map[string]string{}
	for name, v := range val.AsValueMap() {
		if v.IsNull() {
			args[name] = ""
			continue
		}
		if v.Type() == cty.Bool {
			if v.True() {
				args[name] = ""
			}
			continue
		}
		s, err := scalarString(v)
		if err != nil {
			return nil, fmt.Errorf("run arg %q: %w", name, err)
		}
		args[name] = s
	}
	return args, nil
}

// scalarString renders a scalar cty value as its string form.
func scalarString(val cty.Value) (string, error) {
	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return fmt.Sprintf("%d", i), nil
		}
		return bf.Text('g', -1), nil
	default:
		return "", fmt.Errorf("must be a string or number, got %s", val.Type().FriendlyName())
	}
}
