package settings

import (
	"fmt"
	"sort"
	"strings"
)

// Batch is the interface implemented by all batch settings flavors. A batch
// launcher renders Format into the submission script preamble.
type Batch interface {
	// Format returns the scheduler directive lines for the submission script.
	Format() []string
	// SetNodes sets the number of compute nodes to request.
	SetNodes(n int)
	// SetWalltime sets the wall clock limit in HH:MM:SS form.
	SetWalltime(t string)
	// SetHostlist restricts the batch job to the named compute nodes.
	SetHostlist(hosts []string)
	// SetBatchArg sets a free-form scheduler argument. Arguments the system
	// manages itself (output, error, job name) are rejected.
	SetBatchArg(key, value string) error
	// Base exposes the embedded BatchSettings for direct access.
	Base() *BatchSettings
}

// reservedBatchArgs are managed by the launcher and may not be overridden
// through free-form batch args.
var reservedBatchArgs = map[string]bool{
	"o": true, "output": true,
	"e": true, "error": true,
	"J": true, "job-name": true, "N": true,
}

// BatchSettings holds the scheduler-independent batch parameters. The
// scheduler flavors embed it and render their own directive syntax.
type BatchSettings struct {
	Nodes     int
	Time      string
	Account   string
	Queue     string
	Hostlist  []string
	BatchArgs map[string]string
}

// SetNodes implements part of Batch.
func (bs *BatchSettings) SetNodes(n int) { bs.Nodes = n }

// SetWalltime implements part of Batch.
func (bs *BatchSettings) SetWalltime(t string) { bs.Time = t }

// SetHostlist implements part of Batch.
func (bs *BatchSettings) SetHostlist(hosts []string) {
	bs.Hostlist = append([]string(nil), hosts...)
}

// SetBatchArg implements part of Batch.
func (bs *BatchSettings) SetBatchArg(key, value string) error {
	if reservedBatchArgs[key] {
		return fmt.Errorf("batch argument %q is managed by the launcher and cannot be set", key)
	}
	if bs.BatchArgs == nil {
		bs.BatchArgs = map[string]string{}
	}
	bs.BatchArgs[key] = value
	return nil
}

// Base implements part of Batch.
func (bs *BatchSettings) Base() *BatchSettings { return bs }

// formatArgs renders the free-form batch args with the given directive
// prefix, sorted by key.
func (bs *BatchSettings) formatArgs(directive string) []string {
	keys := make([]string, 0, len(bs.BatchArgs))
	for k := range bs.BatchArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		flag := "--" + k
		if len(k) == 1 {
			flag = "-" + k
		}
		v := bs.BatchArgs[k]
		if v == "" {
			lines = append(lines, fmt.Sprintf("%s %s", directive, flag))
		} else if strings.HasPrefix(flag, "--") {
			lines = append(lines, fmt.Sprintf("%s %s=%s", directive, flag, v))
		} else {
			lines = append(lines, fmt.Sprintf("%s %s %s", directive, flag, v))
		}
	}
	return lines
}
