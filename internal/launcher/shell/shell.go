// Package shell runs workload manager commands as subprocesses with
// captured output. Every sbatch/qsub/sinfo style invocation in the launcher
// packages goes through here.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vk/expgridgo/internal/ctxlog"
)

// Result carries the captured output of a finished command. A non-zero
// ExitCode is not an error at this layer; callers decide what it means.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes the named command with the given arguments, waiting for it
// to finish. It returns an error only when the command could not be run at
// all (e.g. the binary is not on PATH).
func Run(ctx context.Context, dir string, name string, args ...string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running command.", "cmd", name, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			logger.Debug("Command exited non-zero.", "cmd", name, "code", result.ExitCode)
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %q: %w", name, err)
	}
	return result, nil
}
