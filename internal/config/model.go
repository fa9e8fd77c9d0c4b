package config

// Launchers enumerates the accepted launcher backends. "auto" resolves to
// whichever workload manager is detected on the system.
var Launchers = []string{"slurm", "cobalt", "pbs", "local"}

// Model is the unified, format-agnostic representation of the entire
// experiment configuration: the experiment header, all entity definitions,
// and the optional database orchestrator.
type Model struct {
	Experiment   *ExperimentSpec
	Models       []*ModelSpec
	Ensembles    []*EnsembleSpec
	Orchestrator *OrchestratorSpec
}

// ExperimentSpec names the experiment and selects its launcher backend.
type ExperimentSpec struct {
	Name     string
	Launcher string
	Path     string
}

// RunSettings is the format-agnostic representation of a 'run_settings' block.
type RunSettings struct {
	Exe        string
	ExeArgs    []string
	RunCommand string
	// RunArgs maps a launch-binary flag to its value. An empty value marks
	// a bare flag.
	RunArgs map[string]string
	EnvVars map[string]string
}

// BatchSettings is the format-agnostic representation of a 'batch_settings' block.
type BatchSettings struct {
	Nodes     int
	Time      string
	Account   string
	Queue     string
	BatchArgs map[string]string
}

// Files lists the generator files attached to an entity.
type Files struct {
	Configure []string
	Copy      []string
	Symlink   []string
}

// ModelSpec is the format-agnostic representation of a `model` block.
type ModelSpec struct {
	Name        string
	Params      map[string]string
	RunSettings *RunSettings
	Files       *Files
}

// EnsembleSpec is the format-agnostic representation of an `ensemble` block.
// Param values are always lists; scalars are promoted during translation.
type EnsembleSpec struct {
	Name          string
	Params        map[string][]string
	PermStrategy  string
	Replicas      int
	NModels       int
	RunSettings   *RunSettings
	BatchSettings *BatchSettings
	Files         *Files
}

// OrchestratorSpec is the format-agnostic representation of the
// `orchestrator` block.
type OrchestratorSpec struct {
	Port       int
	DBNodes    int
	Batch      bool
	Hosts      []string
	RunCommand string
	Time       string
	Account    string
	Queue      string
}
