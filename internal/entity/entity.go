// Package entity defines the objects an experiment launches and monitors:
// models, ensembles of models, and database nodes.
package entity

import "errors"

var (
	// ErrEntityExists is returned when an entity with the same name is
	// already part of the receiving collection.
	ErrEntityExists = errors.New("entity already exists")

	// ErrUserStrategy is returned when a user-supplied permutation strategy
	// produces invalid output.
	ErrUserStrategy = errors.New("user strategy returned invalid permutations")

	// ErrUnsupportedStrategy is returned for unknown strategy names.
	ErrUnsupportedStrategy = errors.New("unsupported permutation strategy")
)

// Entity is the behavior common to everything an experiment can launch.
type Entity interface {
	// EntityName returns the unique name of the entity.
	EntityName() string
	// EntityType distinguishes entity kinds in logs and summaries.
	EntityType() string
	// EntityPath returns the directory the entity runs in.
	EntityPath() string
	// SetPath redirects the entity to run in the given directory.
	SetPath(path string)
}

// Files lists the generator files attached to an entity. Configure files are
// scanned for parameter tags during generation; copy and symlink files are
// staged as-is.
type Files struct {
	Configure []string
	Copy      []string
	Symlink   []string
}
