package pbs

import (
	"fmt"
	"strings"

	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/status"
)

// parseQstat reads the long-form key/value output of `qstat -xf` and
// normalizes the job state. Finished jobs are classified by exit status.
func parseQstat(out string) (status.Status, error) {
	attrs := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		attrs[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	state, ok := attrs["job_state"]
	if !ok {
		return "", fmt.Errorf("%w: no job_state in qstat output", launcher.ErrLauncher)
	}

	switch state {
	case "R", "E":
		return status.Running, nil
	case "Q", "H", "W", "T", "S":
		return status.Paused, nil
	case "F", "X", "C":
		if code, ok := attrs["Exit_status"]; ok && code != "0" {
			return status.Failed, nil
		}
		return status.Completed, nil
	}
	return "", fmt.Errorf("%w: unknown pbs state %q", launcher.ErrLauncher, state)
}
