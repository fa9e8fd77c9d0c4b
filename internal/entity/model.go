package entity

import (
	"fmt"
	"sort"

	"github.com/vk/expgridgo/internal/settings"
)

// Model is a single runnable simulation instance with its parameters and
// run settings.
type Model struct {
	Name        string
	Params      map[string]string
	Path        string
	RunSettings settings.Run
	Files       *Files

	keyPrefixing bool
	incoming     []string
}

// NewModel creates a model. The path defaults to the experiment path when
// empty and is finalized during generation.
func NewModel(name string, params map[string]string, path string, rs settings.Run) *Model {
	if params == nil {
		params = map[string]string{}
	}
	return &Model{
		Name:        name,
		Params:      params,
		Path:        path,
		RunSettings: rs,
	}
}

// EntityName implements Entity.
func (m *Model) EntityName() string { return m.Name }

// EntityType implements Entity.
func (m *Model) EntityType() string { return "Model" }

// EntityPath implements Entity.
func (m *Model) EntityPath() string { return m.Path }

// SetPath implements Entity.
func (m *Model) SetPath(path string) { m.Path = path }

// AttachGeneratorFiles records the files the generator stages into the
// model's run directory.
func (m *Model) AttachGeneratorFiles(files *Files) { m.Files = files }

// EnableKeyPrefixing makes the model prefix its database keys with its own
// name, so ensemble members writing identical key names do not collide.
func (m *Model) EnableKeyPrefixing() { m.keyPrefixing = true }

// DisableKeyPrefixing turns key prefixing back off.
func (m *Model) DisableKeyPrefixing() { m.keyPrefixing = false }

// QueryKeyPrefixing reports whether the model prefixes its database keys.
func (m *Model) QueryKeyPrefixing() bool { return m.keyPrefixing }

// RegisterIncomingEntity records a named data source this model reads from,
// by the key prefix the source writes under.
func (m *Model) RegisterIncomingEntity(source Entity) {
	m.incoming = append(m.incoming, source.EntityName())
}

// IncomingEntities returns the registered data source names.
func (m *Model) IncomingEntities() []string { return m.incoming }

// String renders the model's parameters for summaries.
func (m *Model) String() string {
	keys := make([]string, 0, len(m.Params))
	for k := range m.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := m.Name
	for _, k := range keys {
		s += fmt.Sprintf(" %s=%s", k, m.Params[k])
	}
	return s
}
