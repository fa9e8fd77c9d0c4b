package settings

import (
	"fmt"
	"strings"
)

// CobaltSettings describe a Cobalt batch submission rendered as #COBALT
// directives.
type CobaltSettings struct {
	BatchSettings
}

// NewCobaltSettings creates batch settings rendered as #COBALT directives.
func NewCobaltSettings(nodes int, time, account, queue string) *CobaltSettings {
	return &CobaltSettings{BatchSettings: BatchSettings{
		Nodes:   nodes,
		Time:    time,
		Account: account,
		Queue:   queue,
	}}
}

// Format implements Batch.
func (c *CobaltSettings) Format() []string {
	var lines []string
	if c.Nodes > 0 {
		lines = append(lines, fmt.Sprintf("#COBALT -n %d", c.Nodes))
	}
	if c.Time != "" {
		lines = append(lines, fmt.Sprintf("#COBALT -t %s", c.Time))
	}
	if c.Account != "" {
		lines = append(lines, fmt.Sprintf("#COBALT -A %s", c.Account))
	}
	if c.Queue != "" {
		lines = append(lines, fmt.Sprintf("#COBALT -q %s", c.Queue))
	}
	if len(c.Hostlist) > 0 {
		lines = append(lines, fmt.Sprintf("#COBALT --attrs location=%s", strings.Join(c.Hostlist, ",")))
	}
	return append(lines, c.formatArgs("#COBALT")...)
}

var _ Batch = (*CobaltSettings)(nil)
