package slurm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/shell"
)

// PartitionNode is one compute node of a partition with its processor count.
type PartitionNode struct {
	Name string
	PPN  int
}

// Partition is a Slurm partition and the nodes it spans.
type Partition struct {
	Name  string
	Nodes []PartitionNode
}

// IsValid reports whether the partition has at least one node and every
// node reports a non-zero processor count.
func (p *Partition) IsValid() bool {
	if len(p.Nodes) == 0 {
		return false
	}
	for _, n := range p.Nodes {
		if n.PPN <= 0 {
			return false
		}
	}
	return true
}

// Partitions queries sinfo for the system's partitions and their nodes.
func Partitions(ctx context.Context) (map[string]*Partition, error) {
	result, err := shell.Run(ctx, "", "sinfo", "--noheader", "--format", "%R|%n|%c")
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("%w: sinfo failed: %s", launcher.ErrLauncher, strings.TrimSpace(result.Stderr))
	}
	return parsePartitions(result.Stdout)
}

// parsePartitions reads "partition|node|cpus" rows, one per node.
func parsePartitions(out string) (map[string]*Partition, error) {
	partitions := map[string]*Partition{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: malformed sinfo row %q", launcher.ErrLauncher, line)
		}
		ppn, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("%w: bad cpu count in sinfo row %q", launcher.ErrLauncher, line)
		}

		name := fields[0]
		p, ok := partitions[name]
		if !ok {
			p = &Partition{Name: name}
			partitions[name] = p
		}
		p.Nodes = append(p.Nodes, PartitionNode{Name: fields[1], PPN: ppn})
	}
	return partitions, nil
}

// DefaultPartition returns the name of the system's default partition,
// marked by a trailing asterisk in sinfo output.
func DefaultPartition(ctx context.Context) (string, error) {
	result, err := shell.Run(ctx, "", "sinfo", "--noheader", "--format", "%P")
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%w: sinfo failed: %s", launcher.ErrLauncher, strings.TrimSpace(result.Stderr))
	}
	return parseDefaultPartition(result.Stdout)
}

func parseDefaultPartition(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, "*") {
			return strings.TrimSuffix(line, "*"), nil
		}
	}
	return "", fmt.Errorf("%w: no default partition found", launcher.ErrLauncher)
}

// Validate checks that the requested nodes and processes per node fit the
// partition. An empty partition name validates against the default
// partition.
func Validate(ctx context.Context, nodes, ppn int, partition string) error {
	partitions, err := Partitions(ctx)
	if err != nil {
		return err
	}
	if partition == "" {
		partition, err = DefaultPartition(ctx)
		if err != nil {
			return err
		}
	}
	return validate(partitions, nodes, ppn, partition)
}

func validate(partitions map[string]*Partition, nodes, ppn int, partition string) error {
	p, ok := partitions[partition]
	if !ok {
		return fmt.Errorf("%w: partition %q not found on this system", launcher.ErrLauncher, partition)
	}
	if !p.IsValid() {
		return fmt.Errorf("%w: partition %q reports no usable nodes", launcher.ErrLauncher, partition)
	}

	capable := 0
	for _, n := range p.Nodes {
		if n.PPN >= ppn {
			capable++
		}
	}
	if capable < nodes {
		return fmt.Errorf("%w: partition %q has %d node(s) with at least %d processors, %d requested",
			launcher.ErrLauncher, partition, capable, ppn, nodes)
	}
	return nil
}
