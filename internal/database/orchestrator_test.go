package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/expgridgo/internal/settings"
)

func TestNewDefaults(t *testing.T) {
	o, err := New("local", Options{})
	require.NoError(t, err)

	assert.Equal(t, 6379, o.Port)
	require.Len(t, o.Nodes, 1)
	assert.False(t, o.IsClustered())
	assert.Equal(t, []string{"127.0.0.1:6379"}, o.Addresses())
	assert.True(t, o.HostsKnown())
}

func TestNewRejectsTwoNodes(t *testing.T) {
	_, err := New("slurm", Options{DBNodes: 2})
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "size 2")
}

func TestNewRejectsUnknownLauncher(t *testing.T) {
	_, err := New("lsf", Options{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestLocalClusterSpreadsPorts(t *testing.T) {
	o, err := New("local", Options{DBNodes: 3})
	require.NoError(t, err)

	assert.True(t, o.IsClustered())
	assert.Equal(t, []string{"127.0.0.1:6379", "127.0.0.1:6380", "127.0.0.1:6381"}, o.Addresses())

	// Clustered shards carry the cluster flags.
	argv := strings.Join(o.Nodes[0].RunSettings.Argv(), " ")
	assert.Contains(t, argv, "--cluster-enabled yes")
	assert.Contains(t, argv, "--cluster-config-file orchestrator_0.conf")
}

func TestLocalRejectsBatch(t *testing.T) {
	_, err := New("local", Options{Batch: true})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestSlurmRequiresSrun(t *testing.T) {
	_, err := New("slurm", Options{RunCommand: "mpirun"})
	require.ErrorIs(t, err, ErrUnsupported)

	o, err := New("slurm", Options{})
	require.NoError(t, err)
	_, ok := o.Nodes[0].RunSettings.(*settings.SrunSettings)
	assert.True(t, ok, "slurm shards should launch through srun")
}

func TestPBSRunCommands(t *testing.T) {
	// aprun is the default and needs no hosts.
	o, err := New("pbs", Options{DBNodes: 1})
	require.NoError(t, err)
	_, ok := o.Nodes[0].RunSettings.(*settings.AprunSettings)
	assert.True(t, ok)

	// mpirun has no view of the allocation, so hosts are mandatory.
	_, err = New("pbs", Options{RunCommand: "mpirun"})
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "hosts are required")

	o, err = New("pbs", Options{RunCommand: "mpirun", Hosts: []string{"nid1"}})
	require.NoError(t, err)
	_, ok = o.Nodes[0].RunSettings.(*settings.MpirunSettings)
	assert.True(t, ok)

	_, err = New("pbs", Options{RunCommand: "srun"})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestCobaltRunCommands(t *testing.T) {
	_, err := New("cobalt", Options{RunCommand: "mpirun"})
	require.ErrorIs(t, err, ErrUnsupported)

	o, err := New("cobalt", Options{})
	require.NoError(t, err)
	_, ok := o.Nodes[0].RunSettings.(*settings.AprunSettings)
	assert.True(t, ok)
}

func TestBatchDeploymentsGetBatchSettings(t *testing.T) {
	o, err := New("slurm", Options{DBNodes: 3, Batch: true, Time: "01:00:00", Account: "hpc"})
	require.NoError(t, err)

	require.NotNil(t, o.BatchSettings)
	preamble := strings.Join(o.BatchSettings.Format(), "\n")
	assert.Contains(t, preamble, "--nodes=3")
	assert.Contains(t, preamble, "--time=01:00:00")
	assert.Contains(t, preamble, "--account=hpc")
}

func TestSetWalltimeRequiresBatch(t *testing.T) {
	o, err := New("slurm", Options{})
	require.NoError(t, err)
	require.ErrorIs(t, o.SetWalltime("01:00:00"), ErrUnsupported)

	o, err = New("slurm", Options{Batch: true})
	require.NoError(t, err)
	require.NoError(t, o.SetWalltime("01:00:00"))
}

func TestSetHosts(t *testing.T) {
	o, err := New("slurm", Options{DBNodes: 3})
	require.NoError(t, err)
	assert.False(t, o.HostsKnown())

	require.ErrorIs(t, o.SetHosts([]string{"nid1"}), ErrUnsupported)

	require.NoError(t, o.SetHosts([]string{"nid1", "nid2", "nid3"}))
	assert.True(t, o.HostsKnown())
	assert.Equal(t, []string{"nid1:6379", "nid2:6379", "nid3:6379"}, o.Addresses())
}

func TestSetHostsSkipsAprunPinningInBatch(t *testing.T) {
	o, err := New("pbs", Options{DBNodes: 3, Batch: true, Hosts: []string{"nid1", "nid2", "nid3"}})
	require.NoError(t, err)

	// The batch submission pins the hosts; aprun steps inside it must not.
	for _, node := range o.Nodes {
		assert.NotContains(t, node.RunSettings.Base().RunArgs, "L")
	}
	preamble := strings.Join(o.BatchSettings.Format(), "\n")
	assert.Contains(t, preamble, "host=nid1+nid2+nid3")
}

func TestSetCPUs(t *testing.T) {
	o, err := New("pbs", Options{DBNodes: 1, Batch: true})
	require.NoError(t, err)

	o.SetCPUs(4)
	assert.Equal(t, "4", o.Nodes[0].RunSettings.Base().RunArgs["d"])
	assert.Contains(t, strings.Join(o.BatchSettings.Format(), "\n"), "ncpus=4")
}
