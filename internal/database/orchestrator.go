// Package database models the in-memory database orchestrator: a set of
// Redis shards deployed across compute nodes and launched like any other
// entity group.
package database

import (
	"errors"
	"fmt"

	"github.com/vk/expgridgo/internal/entity"
	"github.com/vk/expgridgo/internal/settings"
)

// ErrUnsupported marks orchestrator configurations the deployment rules
// reject.
var ErrUnsupported = errors.New("unsupported orchestrator configuration")

// Name is the entity name of the orchestrator; one per experiment.
const Name = "orchestrator"

// Options configure an orchestrator deployment.
type Options struct {
	// Port is the TCP port every shard listens on (default 6379). The
	// local backend offsets it per shard since all shards share one host.
	Port int
	// DBNodes is the number of shards, one per compute node (default 1).
	// Three or more shards form a cluster; exactly two is unsupported.
	DBNodes int
	// Batch submits the orchestrator as its own batch workload. When
	// false, shards launch interactively onto an existing allocation.
	Batch bool
	// Hosts pins shards to compute nodes. Required when launching with
	// mpirun, which has no view of the allocation.
	Hosts []string
	// RunCommand overrides the backend's default launch binary.
	RunCommand string
	// Account, Time, and Queue apply to batch submissions.
	Account string
	Time    string
	Queue   string
	// Path is the directory the shards run in.
	Path string
}

// Orchestrator is the launchable database deployment.
type Orchestrator struct {
	Port          int
	Batch         bool
	Path          string
	Nodes         []*entity.DBNode
	BatchSettings settings.Batch

	launcherName string
	runCommand   string
}

// New builds an orchestrator for the given launcher backend, applying that
// backend's deployment rules.
func New(launcherName string, opts Options) (*Orchestrator, error) {
	if opts.Port == 0 {
		opts.Port = 6379
	}
	if opts.DBNodes == 0 {
		opts.DBNodes = 1
	}
	if opts.DBNodes == 2 {
		return nil, fmt.Errorf("%w: clusters of size 2 are not supported, use 1 or 3+ nodes", ErrUnsupported)
	}

	runCommand := opts.RunCommand
	if runCommand == "" {
		runCommand = defaultRunCommand(launcherName)
	}

	o := &Orchestrator{
		Port:         opts.Port,
		Batch:        opts.Batch,
		Path:         opts.Path,
		launcherName: launcherName,
		runCommand:   runCommand,
	}

	switch launcherName {
	case "slurm":
		if runCommand != "srun" {
			return nil, fmt.Errorf("%w: slurm orchestrator supports srun, got %q", ErrUnsupported, runCommand)
		}
		if opts.Batch {
			o.BatchSettings = settings.NewSbatchSettings(opts.DBNodes, opts.Time, opts.Account, opts.Queue)
		}
	case "pbs":
		if runCommand != "aprun" && runCommand != "mpirun" {
			return nil, fmt.Errorf("%w: pbs orchestrator supports aprun and mpirun, got %q", ErrUnsupported, runCommand)
		}
		if runCommand == "mpirun" && len(opts.Hosts) == 0 {
			return nil, fmt.Errorf("%w: hosts are required when launching the pbs orchestrator with mpirun", ErrUnsupported)
		}
		if opts.Batch {
			o.BatchSettings = settings.NewQsubSettings(opts.DBNodes, 1, opts.Time, opts.Queue, opts.Account)
		}
	case "cobalt":
		if runCommand != "aprun" && runCommand != "mpirun" {
			return nil, fmt.Errorf("%w: cobalt orchestrator supports aprun and mpirun, got %q", ErrUnsupported, runCommand)
		}
		if runCommand == "mpirun" && len(opts.Hosts) == 0 {
			return nil, fmt.Errorf("%w: hosts are required when launching the cobalt orchestrator with mpirun", ErrUnsupported)
		}
		if opts.Batch {
			o.BatchSettings = settings.NewCobaltSettings(opts.DBNodes, opts.Time, opts.Account, opts.Queue)
		}
	case "local":
		if opts.Batch {
			return nil, fmt.Errorf("%w: local orchestrator cannot run as a batch workload", ErrUnsupported)
		}
	default:
		return nil, fmt.Errorf("%w: unknown launcher %q", ErrUnsupported, launcherName)
	}

	o.initNodes(opts.DBNodes)
	if len(opts.Hosts) > 0 {
		if err := o.SetHosts(opts.Hosts); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func defaultRunCommand(launcherName string) string {
	switch launcherName {
	case "slurm":
		return "srun"
	case "pbs", "cobalt":
		return "aprun"
	}
	return ""
}

// initNodes builds one DBNode per shard with backend-appropriate run
// settings.
func (o *Orchestrator) initNodes(dbNodes int) {
	clustered := dbNodes >= 3
	for i := 0; i < dbNodes; i++ {
		name := fmt.Sprintf("%s_%d", Name, i)
		port := o.Port
		if o.launcherName == "local" {
			// All local shards share one host; spread the ports instead.
			port = o.Port + i
		}

		exeArgs := []string{"--port", fmt.Sprintf("%d", port), "--logfile", name + ".log"}
		if clustered {
			exeArgs = append(exeArgs,
				"--cluster-enabled", "yes",
				"--cluster-config-file", name+".conf",
			)
		}

		rs := o.buildRunSettings("redis-server", exeArgs)
		o.Nodes = append(o.Nodes, entity.NewDBNode(name, o.Path, rs, []int{port}))
	}
}

func (o *Orchestrator) buildRunSettings(exe string, exeArgs []string) settings.Run {
	switch o.runCommand {
	case "srun":
		rs := settings.NewSrunSettings(exe, exeArgs, nil)
		rs.SetNodes(1)
		rs.SetTasks(1)
		return rs
	case "aprun":
		rs := settings.NewAprunSettings(exe, exeArgs, nil)
		rs.SetTasks(1)
		rs.SetTasksPerNode(1)
		return rs
	case "mpirun":
		rs := settings.NewMpirunSettings(exe, exeArgs, nil)
		rs.SetTasks(1)
		return rs
	}
	return settings.New(exe, exeArgs...)
}

// SetCPUs sets the number of CPUs available to each shard, bounding its
// compute, background, and network threads.
func (o *Orchestrator) SetCPUs(n int) {
	if o.Batch {
		if q, ok := o.BatchSettings.(*settings.QsubSettings); ok {
			q.SetNCPUs(n)
		}
	}
	for _, node := range o.Nodes {
		node.RunSettings.SetCPUsPerTask(n)
	}
}

// SetWalltime sets the batch wall clock limit. Only batch deployments have
// one.
func (o *Orchestrator) SetWalltime(t string) error {
	if !o.Batch {
		return fmt.Errorf("%w: not running as batch, cannot set walltime", ErrUnsupported)
	}
	o.BatchSettings.SetWalltime(t)
	return nil
}

// SetBatchArg sets a free-form scheduler argument on the batch submission.
func (o *Orchestrator) SetBatchArg(key, value string) error {
	if !o.Batch {
		return fmt.Errorf("%w: not running as batch, cannot set batch argument", ErrUnsupported)
	}
	return o.BatchSettings.SetBatchArg(key, value)
}

// SetHosts pins the shards to the given compute nodes, in order.
func (o *Orchestrator) SetHosts(hosts []string) error {
	if len(hosts) < len(o.Nodes) {
		return fmt.Errorf("%w: %d hosts given for %d database nodes", ErrUnsupported, len(hosts), len(o.Nodes))
	}
	if o.Batch {
		o.BatchSettings.SetHostlist(hosts)
	}
	for i, node := range o.Nodes {
		node.SetHost(hosts[i])

		// Aprun rejects per-step host pinning inside a batch allocation.
		if _, isAprun := node.RunSettings.(*settings.AprunSettings); isAprun && o.Batch {
			continue
		}
		node.RunSettings.SetHostlist([]string{hosts[i]})
	}
	return nil
}

// IsClustered reports whether the shards form a Redis cluster.
func (o *Orchestrator) IsClustered() bool { return len(o.Nodes) >= 3 }

// Addresses returns the host:port address of every shard. Shards without a
// pinned host resolve to the loopback address, which is only meaningful for
// the local backend.
func (o *Orchestrator) Addresses() []string {
	addrs := make([]string, len(o.Nodes))
	for i, node := range o.Nodes {
		host := node.Host()
		if host == "" {
			host = "127.0.0.1"
		}
		addrs[i] = fmt.Sprintf("%s:%d", host, node.Ports[0])
	}
	return addrs
}

// HostsKnown reports whether every shard has a resolvable address.
func (o *Orchestrator) HostsKnown() bool {
	if o.launcherName == "local" {
		return true
	}
	for _, node := range o.Nodes {
		if node.Host() == "" {
			return false
		}
	}
	return true
}

// EntityName implements entity.Entity.
func (o *Orchestrator) EntityName() string { return Name }

// EntityType implements entity.Entity.
func (o *Orchestrator) EntityType() string { return "Orchestrator" }

// EntityPath implements entity.Entity.
func (o *Orchestrator) EntityPath() string { return o.Path }

// SetPath implements entity.Entity and redirects all shards.
func (o *Orchestrator) SetPath(path string) {
	o.Path = path
	for _, node := range o.Nodes {
		node.SetPath(path)
	}
}

var _ entity.Entity = (*Orchestrator)(nil)
