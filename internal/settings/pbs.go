package settings

import (
	"fmt"
	"strings"
)

// QsubSettings describe a PBS Pro batch submission rendered as #PBS
// directives. Node requests use select statements with a cpu count, and
// multi-node requests are scattered so each chunk lands on its own host.
type QsubSettings struct {
	BatchSettings
	NCPUs int
}

// NewQsubSettings creates batch settings rendered as #PBS directives.
func NewQsubSettings(nodes, ncpus int, time, queue, account string) *QsubSettings {
	return &QsubSettings{
		BatchSettings: BatchSettings{
			Nodes:   nodes,
			Time:    time,
			Account: account,
			Queue:   queue,
		},
		NCPUs: ncpus,
	}
}

// SetNCPUs sets the cpu count per select chunk.
func (q *QsubSettings) SetNCPUs(n int) { q.NCPUs = n }

// Format implements Batch.
func (q *QsubSettings) Format() []string {
	var lines []string
	if q.Nodes > 0 {
		sel := fmt.Sprintf("#PBS -l select=%d", q.Nodes)
		if q.NCPUs > 0 {
			sel += fmt.Sprintf(":ncpus=%d", q.NCPUs)
		}
		if len(q.Hostlist) > 0 {
			sel += ":host=" + strings.Join(q.Hostlist, "+")
		}
		lines = append(lines, sel)
		if q.Nodes > 1 {
			lines = append(lines, "#PBS -l place=scatter")
		}
	}
	if q.Time != "" {
		lines = append(lines, fmt.Sprintf("#PBS -l walltime=%s", q.Time))
	}
	if q.Account != "" {
		lines = append(lines, fmt.Sprintf("#PBS -A %s", q.Account))
	}
	if q.Queue != "" {
		lines = append(lines, fmt.Sprintf("#PBS -q %s", q.Queue))
	}
	return append(lines, q.formatArgs("#PBS")...)
}

var _ Batch = (*QsubSettings)(nil)
