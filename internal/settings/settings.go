// Package settings describes how entities are executed. RunSettings cover a
// single process launch, optionally through a parallel launch binary (srun,
// aprun, mpirun); BatchSettings cover submission of a whole entity group to
// a workload manager queue.
package settings

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// Run is the interface implemented by all run settings flavors. The workload
// manager launchers consume it to build the final command line.
type Run interface {
	// Argv returns the complete launch command line: the run command with
	// its formatted arguments, followed by the executable and its arguments.
	Argv() []string
	// Env returns the environment variables to set for the process.
	Env() map[string]string
	// SetTasks sets the total number of tasks to launch.
	SetTasks(n int)
	// SetTasksPerNode sets the number of tasks per compute node.
	SetTasksPerNode(n int)
	// SetCPUsPerTask sets the number of CPUs available to each task.
	SetCPUsPerTask(n int)
	// SetHostlist restricts the launch to the named compute nodes.
	SetHostlist(hosts []string)
	// AddExeArgs appends arguments to the executable's argument list.
	// Each argument is kept verbatim, spaces included.
	AddExeArgs(args ...string)
	// Base exposes the embedded RunSettings for direct access.
	Base() *RunSettings
	// Copy returns a deep copy, used when an ensemble distributes one
	// settings definition across its members.
	Copy() Run
}

// RunSettings describes a plain process launch. A run command, when set, is
// resolved against PATH; an unresolvable command is kept verbatim so the
// error surfaces at launch time on the target system.
type RunSettings struct {
	Exe        string
	ExeArgs    []string
	RunCommand string
	RunArgs    map[string]string
	EnvVars    map[string]string
}

// New creates RunSettings for the given executable.
func New(exe string, exeArgs ...string) *RunSettings {
	rs := &RunSettings{
		Exe:     exe,
		RunArgs: map[string]string{},
		EnvVars: map[string]string{},
	}
	rs.AddExeArgs(exeArgs...)
	return rs
}

// SetRunCommand sets the launch binary, resolving it against PATH when
// possible.
func (rs *RunSettings) SetRunCommand(cmd string) {
	if resolved, err := exec.LookPath(cmd); err == nil {
		rs.RunCommand = resolved
		return
	}
	rs.RunCommand = cmd
}

// AddExeArgs appends executable arguments verbatim. Arguments containing
// spaces stay single arguments.
func (rs *RunSettings) AddExeArgs(args ...string) {
	rs.ExeArgs = append(rs.ExeArgs, args...)
}

// AddExeArgsString appends executable arguments given as one
// space-separated string.
func (rs *RunSettings) AddExeArgsString(s string) {
	rs.ExeArgs = append(rs.ExeArgs, strings.Fields(s)...)
}

// SetRunArg sets a single run command argument. An empty value marks a bare
// flag.
func (rs *RunSettings) SetRunArg(key, value string) {
	if rs.RunArgs == nil {
		rs.RunArgs = map[string]string{}
	}
	rs.RunArgs[key] = value
}

// SetEnvVars merges the given variables into the process environment.
func (rs *RunSettings) SetEnvVars(vars map[string]string) {
	if rs.EnvVars == nil {
		rs.EnvVars = map[string]string{}
	}
	for k, v := range vars {
		rs.EnvVars[k] = v
	}
}

// FormatRunArgs renders the run args map as command line arguments, sorted
// by key for stable output. Single-character keys use a single dash.
func (rs *RunSettings) FormatRunArgs() []string {
	keys := make([]string, 0, len(rs.RunArgs))
	for k := range rs.RunArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var args []string
	for _, k := range keys {
		prefix := "--"
		if len(k) == 1 {
			prefix = "-"
		}
		args = append(args, prefix+k)
		if v := rs.RunArgs[k]; v != "" {
			args = append(args, v)
		}
	}
	return args
}

// Argv implements Run.
func (rs *RunSettings) Argv() []string {
	var argv []string
	if rs.RunCommand != "" {
		argv = append(argv, rs.RunCommand)
		argv = append(argv, rs.FormatRunArgs()...)
	}
	argv = append(argv, rs.Exe)
	argv = append(argv, rs.ExeArgs...)
	return argv
}

// Env implements Run.
func (rs *RunSettings) Env() map[string]string { return rs.EnvVars }

// SetTasks implements Run with the generic long-form flag.
func (rs *RunSettings) SetTasks(n int) { rs.SetRunArg("ntasks", fmt.Sprintf("%d", n)) }

// SetTasksPerNode implements Run with the generic long-form flag.
func (rs *RunSettings) SetTasksPerNode(n int) {
	rs.SetRunArg("ntasks-per-node", fmt.Sprintf("%d", n))
}

// SetCPUsPerTask implements Run with the generic long-form flag.
func (rs *RunSettings) SetCPUsPerTask(n int) {
	rs.SetRunArg("cpus-per-task", fmt.Sprintf("%d", n))
}

// SetHostlist implements Run with the generic long-form flag.
func (rs *RunSettings) SetHostlist(hosts []string) {
	rs.SetRunArg("nodelist", strings.Join(hosts, ","))
}

// Base implements Run.
func (rs *RunSettings) Base() *RunSettings { return rs }

// Copy implements Run.
func (rs *RunSettings) Copy() Run {
	c := rs.copyBase()
	return &c
}

// copyBase deep-copies the value for embedding types.
func (rs *RunSettings) copyBase() RunSettings {
	c := *rs
	c.ExeArgs = append([]string(nil), rs.ExeArgs...)
	c.RunArgs = copyMap(rs.RunArgs)
	c.EnvVars = copyMap(rs.EnvVars)
	return c
}

// String renders the settings for logs and experiment summaries.
func (rs *RunSettings) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Executable: %s\n", rs.Exe)
	fmt.Fprintf(&b, "Executable arguments: %v\n", rs.ExeArgs)
	if rs.RunCommand != "" {
		fmt.Fprintf(&b, "Run command: %s\n", rs.RunCommand)
		fmt.Fprintf(&b, "Run arguments: %v", rs.FormatRunArgs())
	}
	return strings.TrimRight(b.String(), "\n")
}

func copyMap(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
