package settings

import (
	"fmt"
	"sort"
	"strings"
)

// SrunSettings launch an executable through Slurm's srun.
type SrunSettings struct {
	RunSettings
}

// NewSrunSettings creates run settings bound to srun.
func NewSrunSettings(exe string, exeArgs []string, runArgs map[string]string) *SrunSettings {
	rs := New(exe, exeArgs...)
	for k, v := range runArgs {
		rs.SetRunArg(k, v)
	}
	rs.SetRunCommand("srun")
	return &SrunSettings{RunSettings: *rs}
}

// SetNodes sets the number of nodes for the srun step.
func (s *SrunSettings) SetNodes(n int) { s.SetRunArg("nodes", fmt.Sprintf("%d", n)) }

// SetExcludedHosts keeps the launch off the named compute nodes.
func (s *SrunSettings) SetExcludedHosts(hosts []string) {
	s.SetRunArg("exclude", strings.Join(hosts, ","))
}

// FormatEnvVars renders the environment as an srun --export argument.
func (s *SrunSettings) FormatEnvVars() []string {
	if len(s.EnvVars) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.EnvVars))
	for k := range s.EnvVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, s.EnvVars[k]))
	}
	return []string{"--export", strings.Join(pairs, ",")}
}

// Copy implements Run.
func (s *SrunSettings) Copy() Run {
	return &SrunSettings{RunSettings: s.copyBase()}
}

// SbatchSettings describe a Slurm batch submission.
type SbatchSettings struct {
	BatchSettings
}

// NewSbatchSettings creates batch settings rendered as #SBATCH directives.
func NewSbatchSettings(nodes int, time, account, partition string) *SbatchSettings {
	return &SbatchSettings{BatchSettings: BatchSettings{
		Nodes:   nodes,
		Time:    time,
		Account: account,
		Queue:   partition,
	}}
}

// SetPartition sets the Slurm partition to submit to.
func (s *SbatchSettings) SetPartition(p string) { s.Queue = p }

// Format implements Batch.
func (s *SbatchSettings) Format() []string {
	var lines []string
	if s.Nodes > 0 {
		lines = append(lines, fmt.Sprintf("#SBATCH --nodes=%d", s.Nodes))
	}
	if s.Time != "" {
		lines = append(lines, fmt.Sprintf("#SBATCH --time=%s", s.Time))
	}
	if s.Account != "" {
		lines = append(lines, fmt.Sprintf("#SBATCH --account=%s", s.Account))
	}
	if s.Queue != "" {
		lines = append(lines, fmt.Sprintf("#SBATCH --partition=%s", s.Queue))
	}
	if len(s.Hostlist) > 0 {
		lines = append(lines, fmt.Sprintf("#SBATCH --nodelist=%s", strings.Join(s.Hostlist, ",")))
	}
	return append(lines, s.formatArgs("#SBATCH")...)
}

var (
	_ Run   = (*SrunSettings)(nil)
	_ Batch = (*SbatchSettings)(nil)
)
