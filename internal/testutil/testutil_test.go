package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestLauncherDefaultsToLocal(t *testing.T) {
	t.Setenv(TestLauncherEnv, "")
	assert.Equal(t, "local", TestLauncher())

	t.Setenv(TestLauncherEnv, "slurm")
	assert.Equal(t, "slurm", TestLauncher())
}
