package database

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClusterBootstrap spins up three local shards, forms a cluster, and
// verifies it converges. It needs redis-server on PATH and is skipped
// everywhere else.
func TestClusterBootstrap(t *testing.T) {
	if _, err := exec.LookPath("redis-server"); err != nil {
		t.Skip("redis-server not available")
	}
	ctx := context.Background()

	orc, err := New("local", Options{DBNodes: 3, Port: 7480, Path: t.TempDir()})
	require.NoError(t, err)
	require.True(t, orc.IsClustered())

	for _, node := range orc.Nodes {
		argv := node.RunSettings.Argv()
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Dir = orc.Path
		require.NoError(t, cmd.Start())
		t.Cleanup(func() { _ = cmd.Process.Kill() })
	}

	addrs := orc.Addresses()
	for _, addr := range addrs {
		require.NoError(t, CheckDatabase(ctx, addr, 10, 500*time.Millisecond))
	}

	require.NoError(t, CreateCluster(ctx, addrs))
	assert.NoError(t, CheckCluster(ctx, addrs, 20, 500*time.Millisecond))
}

func TestCreateClusterNeedsThreeNodes(t *testing.T) {
	ctx := context.Background()

	err := CreateCluster(ctx, []string{"127.0.0.1:6379"})
	require.ErrorIs(t, err, ErrUnsupported)
}
