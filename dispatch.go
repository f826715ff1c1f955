package toolchat

import (
	"fmt"
	"sort"
)

// ProviderRef identifies the provider session that owns a capability.
type ProviderRef struct {
	ProviderID string
	Client     ProviderClient
}

// DispatchTable maps capability names to the provider that owns them.
// Registering a name twice overwrites the earlier entry. Tables are built
// whole and then published; they are never patched while in use.
type DispatchTable struct {
	entries map[string]ProviderRef
}

// NewDispatchTable returns an empty table.
func NewDispatchTable() *DispatchTable {
	return &DispatchTable{entries: make(map[string]ProviderRef)}
}

// Register maps name to ref. If name was already registered, the previous
// ref is returned with replaced set to true.
func (t *DispatchTable) Register(name string, ref ProviderRef) (prev ProviderRef, replaced bool) {
	prev, replaced = t.entries[name]
	t.entries[name] = ref
	return prev, replaced
}

// Resolve returns the provider registered for name, or an error wrapping
// ErrUnknownTool.
func (t *DispatchTable) Resolve(name string) (ProviderRef, error) {
	if t != nil {
		if ref, ok := t.entries[name]; ok {
			return ref, nil
		}
	}
	return ProviderRef{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// Len returns the number of registered names.
func (t *DispatchTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Names returns the registered names in sorted order.
func (t *DispatchTable) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.entries))
	for n := range t.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Catalog is an immutable view of what the enabled providers offer: the
// declarations to send to the model and the table to dispatch calls with.
type Catalog interface {
	Declarations() []FunctionDeclaration
	Resolve(name string) (ProviderRef, error)
}

// StaticCatalog is a Catalog over fixed declarations and table.
type StaticCatalog struct {
	Functions []FunctionDeclaration
	Table     *DispatchTable
}

// Declarations returns the declarations.
func (c StaticCatalog) Declarations() []FunctionDeclaration { return c.Functions }

// Resolve resolves name in the table.
func (c StaticCatalog) Resolve(name string) (ProviderRef, error) { return c.Table.Resolve(name) }

var _ Catalog = StaticCatalog{}
