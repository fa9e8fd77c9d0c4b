package entity

import "github.com/vk/expgridgo/internal/settings"

// DBNode is a single in-memory database shard. DBNodes are always created
// by an orchestrator and are recognized by the controller for address
// registration once their host is known.
type DBNode struct {
	Name        string
	Path        string
	RunSettings settings.Run
	Ports       []int

	host string
}

// NewDBNode creates a database shard entity.
func NewDBNode(name, path string, rs settings.Run, ports []int) *DBNode {
	return &DBNode{
		Name:        name,
		Path:        path,
		RunSettings: rs,
		Ports:       ports,
	}
}

// EntityName implements Entity.
func (d *DBNode) EntityName() string { return d.Name }

// EntityType implements Entity.
func (d *DBNode) EntityType() string { return "DBNode" }

// EntityPath implements Entity.
func (d *DBNode) EntityPath() string { return d.Path }

// SetPath implements Entity.
func (d *DBNode) SetPath(path string) { d.Path = path }

// SetHost pins the shard to a compute node.
func (d *DBNode) SetHost(host string) { d.host = host }

// Host returns the compute node the shard is pinned to, if any.
func (d *DBNode) Host() string { return d.host }
