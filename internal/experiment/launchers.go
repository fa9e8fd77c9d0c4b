package experiment

import (
	"fmt"
	"os/exec"

	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/cobalt"
	"github.com/vk/expgridgo/internal/launcher/local"
	"github.com/vk/expgridgo/internal/launcher/pbs"
	"github.com/vk/expgridgo/internal/launcher/slurm"
)

// launcherConstructors maps the accepted launcher names to their backends.
var launcherConstructors = map[string]func() launcher.Launcher{
	"slurm":  func() launcher.Launcher { return slurm.New() },
	"pbs":    func() launcher.Launcher { return pbs.New() },
	"cobalt": func() launcher.Launcher { return cobalt.New() },
	"local":  func() launcher.Launcher { return local.New() },
}

// NewLauncher builds the launcher backend for the given name. "auto"
// resolves against the workload manager detected on PATH.
func NewLauncher(name string) (launcher.Launcher, error) {
	if name == "" || name == "auto" {
		name = DetectLauncher()
	}
	construct, ok := launcherConstructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown launcher %q: must be slurm, cobalt, pbs, or local", name)
	}
	return construct(), nil
}

// DetectLauncher probes PATH for workload manager user commands. Cobalt is
// recognized by cqsub; installs where Cobalt ships only the PBS-style qsub
// resolve to pbs and must name cobalt explicitly.
func DetectLauncher() string {
	if _, err := exec.LookPath("sbatch"); err == nil {
		return "slurm"
	}
	if _, err := exec.LookPath("cqsub"); err == nil {
		return "cobalt"
	}
	if _, err := exec.LookPath("qsub"); err == nil {
		return "pbs"
	}
	return "local"
}
