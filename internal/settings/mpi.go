package settings

import (
	"fmt"
	"strings"
)

// MpirunSettings launch an executable through OpenMPI's mpirun. Unlike the
// workload-manager launch binaries, mpirun has no view of the allocation, so
// launchers that use it require an explicit host list.
type MpirunSettings struct {
	RunSettings
}

// NewMpirunSettings creates run settings bound to mpirun.
func NewMpirunSettings(exe string, exeArgs []string, runArgs map[string]string) *MpirunSettings {
	rs := New(exe, exeArgs...)
	for k, v := range runArgs {
		rs.SetRunArg(k, v)
	}
	rs.SetRunCommand("mpirun")
	return &MpirunSettings{RunSettings: *rs}
}

// SetTasks sets the number of processes to start.
func (m *MpirunSettings) SetTasks(n int) { m.SetRunArg("n", fmt.Sprintf("%d", n)) }

// SetTasksPerNode sets the number of processes per node.
func (m *MpirunSettings) SetTasksPerNode(n int) {
	m.SetRunArg("npernode", fmt.Sprintf("%d", n))
}

// SetHostlist restricts the launch to the named hosts.
func (m *MpirunSettings) SetHostlist(hosts []string) {
	m.SetRunArg("host", strings.Join(hosts, ","))
}

// Copy implements Run.
func (m *MpirunSettings) Copy() Run {
	return &MpirunSettings{RunSettings: m.copyBase()}
}

var _ Run = (*MpirunSettings)(nil)
