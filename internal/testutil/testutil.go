// Package testutil provides shared helpers for tests, in particular the
// machinery for gating tests on a real workload manager being present.
package testutil

import (
	"os"
	"testing"
)

// TestLauncherEnv selects the launcher backend the gated test suite runs
// against. Accepted values are "slurm", "cobalt", "pbs", and "local".
const TestLauncherEnv = "EXPGRID_TEST_LAUNCHER"

// TestLauncher returns the launcher under test, defaulting to "local".
func TestLauncher() string {
	if v := os.Getenv(TestLauncherEnv); v != "" {
		return v
	}
	return "local"
}

// RequireLauncher skips the test unless the launcher under test is one of
// the given backends. Tests gated this way only run on machines with the
// matching workload manager and an active allocation.
func RequireLauncher(t *testing.T, launchers ...string) {
	t.Helper()
	current := TestLauncher()
	for _, l := range launchers {
		if current == l {
			return
		}
	}
	t.Skipf("test requires %s=%v, got %q", TestLauncherEnv, launchers, current)
}
