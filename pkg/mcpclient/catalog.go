package mcpclient

import "github.com/google/jsonschema-go/jsonschema"

// ToolSpec describes one discovered tool under its qualified name.
type ToolSpec struct {
	// QualifiedName is the registry-wide name, e.g. "search.web_search".
	QualifiedName string
	// Name is the tool's native name on its server.
	Name string
	// Server is the configured name of the owning server.
	Server string
	// Description is the server-provided tool description.
	Description string
	// InputSchema is the server-provided argument schema, may be nil.
	InputSchema *jsonschema.Schema
}

// Catalog is an immutable snapshot of the tools discovered across all
// servers, ordered by server name and then by native tool name.
type Catalog struct {
	specs []ToolSpec
	index map[string]int
}

func newCatalog(specs []ToolSpec) *Catalog {
	index := make(map[string]int, len(specs))
	for i, spec := range specs {
		index[spec.QualifiedName] = i
	}
	return &Catalog{specs: specs, index: index}
}

// Tools returns the specs in catalog order. The slice is shared; callers
// must not modify it.
func (c *Catalog) Tools() []ToolSpec {
	if c == nil {
		return nil
	}
	return c.specs
}

// Lookup resolves a qualified name to its spec.
func (c *Catalog) Lookup(qualified string) (ToolSpec, bool) {
	if c == nil {
		return ToolSpec{}, false
	}
	i, ok := c.index[qualified]
	if !ok {
		return ToolSpec{}, false
	}
	return c.specs[i], true
}

// Len reports the number of tools in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.specs)
}
