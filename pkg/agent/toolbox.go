package agent

import (
	"context"
	"errors"

	"github.com/agentry/mcp-agent-go/pkg/mcpclient"
)

// ToolResult is the outcome of one tool invocation. A failed invocation
// carries its error kind and message instead of aborting the loop; the text
// is fed back to the model so it can react.
type ToolResult struct {
	Name       string
	Content    string
	Structured any
	ErrKind    string
	ErrMessage string
}

// Failed reports whether the invocation ended in an error.
func (r ToolResult) Failed() bool { return r.ErrKind != "" }

// Toolbox is the set of tools a Loop can dispatch to.
type Toolbox interface {
	// Tools lists the available tools in a stable order.
	Tools() []ToolDef
	// Call invokes a tool by name. Errors are folded into the result.
	Call(ctx context.Context, name string, args map[string]any) ToolResult
}

// registryToolbox adapts an mcpclient.Registry to the Toolbox interface.
type registryToolbox struct {
	reg *mcpclient.Registry
}

// NewRegistryToolbox exposes a registry's discovered catalog as a Toolbox.
// Discover must have been called before the loop starts.
func NewRegistryToolbox(reg *mcpclient.Registry) Toolbox {
	return &registryToolbox{reg: reg}
}

func (t *registryToolbox) Tools() []ToolDef {
	specs := t.reg.Catalog().Tools()
	defs := make([]ToolDef, 0, len(specs))
	for _, spec := range specs {
		defs = append(defs, ToolDef{
			Name:        spec.QualifiedName,
			Description: spec.Description,
			InputSchema: spec.InputSchema,
		})
	}
	return defs
}

func (t *registryToolbox) Call(ctx context.Context, name string, args map[string]any) ToolResult {
	res, err := t.reg.Call(ctx, name, args)
	if err != nil {
		kind := "internal"
		var me *mcpclient.Error
		if errors.As(err, &me) {
			kind = string(me.Kind)
		}
		return ToolResult{Name: name, ErrKind: kind, ErrMessage: err.Error()}
	}
	return ToolResult{
		Name:       name,
		Content:    res.Content,
		Structured: res.Structured,
	}
}
