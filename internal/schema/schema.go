package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Primary Experiment Structures ---

// RunSettingsBlock represents the content of a 'run_settings' block. It
// describes how a single entity's executable is launched.
type RunSettingsBlock struct {
	Exe        string            `hcl:"exe"`
	ExeArgs    []string          `hcl:"exe_args,optional"`
	RunCommand string            `hcl:"run_command,optional"`
	RunArgs    hcl.Expression    `hcl:"run_args,optional"`
	EnvVars    map[string]string `hcl:"env_vars,optional"`
}

// BatchSettingsBlock represents the content of a 'batch_settings' block. It
// describes how an entity group is submitted as a batch workload.
type BatchSettingsBlock struct {
	Nodes     int               `hcl:"nodes,optional"`
	Time      string            `hcl:"time,optional"`
	Account   string            `hcl:"account,optional"`
	Queue     string            `hcl:"queue,optional"`
	BatchArgs map[string]string `hcl:"batch_args,optional"`
}

// FilesBlock lists the generator files attached to an entity.
type FilesBlock struct {
	Configure []string `hcl:"configure,optional"`
	Copy      []string `hcl:"copy,optional"`
	Symlink   []string `hcl:"symlink,optional"`
}

// Model represents a `model` block: a single runnable simulation instance.
type Model struct {
	Name        string            `hcl:"name,label"`
	Params      hcl.Expression    `hcl:"params,optional"`
	RunSettings *RunSettingsBlock `hcl:"run_settings,block"`
	Files       *FilesBlock       `hcl:"files,block"`
}

// Ensemble represents an `ensemble` block: a group of models expanded from
// parameters or replicas.
type Ensemble struct {
	Name          string              `hcl:"name,label"`
	Params        hcl.Expression      `hcl:"params,optional"`
	PermStrategy  string              `hcl:"perm_strategy,optional"`
	Replicas      int                 `hcl:"replicas,optional"`
	NModels       int                 `hcl:"n_models,optional"`
	RunSettings   *RunSettingsBlock   `hcl:"run_settings,block"`
	BatchSettings *BatchSettingsBlock `hcl:"batch_settings,block"`
	Files         *FilesBlock         `hcl:"files,block"`
}

// Experiment represents the single `experiment` block that names the run and
// selects the launcher backend.
type Experiment struct {
	Name     string `hcl:"name"`
	Launcher string `hcl:"launcher,optional"`
	Path     string `hcl:"path,optional"`
}

// Orchestrator represents the single `orchestrator` block: an in-memory
// database deployed across compute nodes.
type Orchestrator struct {
	Port       int      `hcl:"port,optional"`
	DBNodes    int      `hcl:"db_nodes,optional"`
	Batch      *bool    `hcl:"batch,optional"`
	Hosts      []string `hcl:"hosts,optional"`
	RunCommand string   `hcl:"run_command,optional"`
	Time       string   `hcl:"time,optional"`
	Account    string   `hcl:"account,optional"`
	Queue      string   `hcl:"queue,optional"`
}

// File represents the top-level structure of a user's experiment file.
type File struct {
	Experiment   *Experiment   `hcl:"experiment,block"`
	Models       []*Model      `hcl:"model,block"`
	Ensembles    []*Ensemble   `hcl:"ensemble,block"`
	Orchestrator *Orchestrator `hcl:"orchestrator,block"`
	Body         hcl.Body      `hcl:",remain"`
}
