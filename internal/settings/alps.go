package settings

import (
	"fmt"
	"sort"
	"strings"
)

// AprunSettings launch an executable through the ALPS aprun binary, the
// default launch command on Cray PBS and Cobalt systems.
type AprunSettings struct {
	RunSettings
}

// NewAprunSettings creates run settings bound to aprun.
func NewAprunSettings(exe string, exeArgs []string, runArgs map[string]string) *AprunSettings {
	rs := New(exe, exeArgs...)
	for k, v := range runArgs {
		rs.SetRunArg(k, v)
	}
	rs.SetRunCommand("aprun")
	return &AprunSettings{RunSettings: *rs}
}

// SetTasks sets the number of processing elements.
func (a *AprunSettings) SetTasks(n int) { a.SetRunArg("n", fmt.Sprintf("%d", n)) }

// SetTasksPerNode sets the number of processing elements per node.
func (a *AprunSettings) SetTasksPerNode(n int) { a.SetRunArg("N", fmt.Sprintf("%d", n)) }

// SetCPUsPerTask sets the depth (CPUs) per processing element.
func (a *AprunSettings) SetCPUsPerTask(n int) { a.SetRunArg("d", fmt.Sprintf("%d", n)) }

// SetHostlist restricts the launch to the named compute nodes.
func (a *AprunSettings) SetHostlist(hosts []string) {
	a.SetRunArg("L", strings.Join(hosts, ","))
}

// FormatEnvVars renders the environment as repeated aprun -e arguments.
func (a *AprunSettings) FormatEnvVars() []string {
	keys := make([]string, 0, len(a.EnvVars))
	for k := range a.EnvVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var args []string
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, a.EnvVars[k]))
	}
	return args
}

// Copy implements Run.
func (a *AprunSettings) Copy() Run {
	return &AprunSettings{RunSettings: a.copyBase()}
}

var _ Run = (*AprunSettings)(nil)
