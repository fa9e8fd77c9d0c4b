package slurm

import (
	"fmt"
	"strings"

	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/status"
)

// parseSacct extracts the job's state from `sacct --brief --parsable2`
// output, whose rows are "JobID|State|ExitCode". Sub-steps (1234.batch,
// 1234.0) are skipped in favor of the allocation row.
func parseSacct(out, jobID string) (status.Status, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "|")
		if len(fields) < 2 || fields[0] != jobID {
			continue
		}
		return mapState(fields[1])
	}
	// sacct knows nothing about a job until accounting records land; treat
	// the gap as not-started rather than an error.
	return status.New, nil
}

// mapState normalizes a raw Slurm state code.
func mapState(raw string) (status.Status, error) {
	state := strings.ToUpper(strings.TrimSpace(raw))

	// Cancelled states carry the cancelling user: "CANCELLED by 1234".
	if strings.HasPrefix(state, "CANCELLED") || state == "REVOKED" {
		return status.Cancelled, nil
	}

	switch state {
	case "RUNNING", "COMPLETING", "STAGE_OUT":
		return status.Running, nil
	case "PENDING", "CONFIGURING", "SUSPENDED", "REQUEUED", "RESIZING":
		return status.Paused, nil
	case "COMPLETED":
		return status.Completed, nil
	case "FAILED", "TIMEOUT", "NODE_FAIL", "PREEMPTED", "DEADLINE",
		"BOOT_FAIL", "OUT_OF_MEMORY":
		return status.Failed, nil
	}
	return "", fmt.Errorf("%w: unknown slurm state %q", launcher.ErrLauncher, raw)
}
