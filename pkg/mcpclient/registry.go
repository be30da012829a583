package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/agentry/mcp-agent-go/pkg/mcpconfig"
)

// Options configures a Registry. The zero value is usable.
type Options struct {
	// ClientName and ClientVersion identify this client during the MCP
	// handshake.
	ClientName    string
	ClientVersion string
	// Namespace maps native tool names to qualified names. Defaults to
	// ServerPrefixNamespace with DefaultSeparator.
	Namespace Namespace
	// Logger receives connection and discovery events. Defaults to
	// slog.Default().
	Logger *slog.Logger
	// CallRetries enables exponential-backoff retry of tool calls that fail
	// at the transport level. Zero disables retry.
	CallRetries uint64
}

func (o Options) withDefaults() Options {
	if o.ClientName == "" {
		o.ClientName = "mcp-agent-go"
	}
	if o.ClientVersion == "" {
		o.ClientVersion = "dev"
	}
	if o.Namespace == nil {
		o.Namespace = ServerPrefixNamespace{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// CallResult is the flattened outcome of a successful tool call.
type CallResult struct {
	QualifiedName string
	Server        string
	// Content is the concatenated text content of the result.
	Content string
	// Structured is the structured content, when the server returned any.
	Structured any
}

// target routes a qualified name to the owning connection and the tool's
// native name there.
type target struct {
	conn *serverConn
	name string
}

// Registry aggregates tools from a set of MCP servers and routes calls to
// the owning server.
type Registry struct {
	opts  Options
	impl  *mcp.Implementation
	conns []*serverConn

	mu       sync.RWMutex
	catalog  *Catalog
	targets  map[string]target
	failures []*Error
}

// NewRegistry builds a registry for the given descriptors. Connections are
// not dialed until Discover. Duplicate server names are rejected.
func NewRegistry(descs []mcpconfig.ServerDescriptor, opts Options) (*Registry, error) {
	opts = opts.withDefaults()
	impl := &mcp.Implementation{Name: opts.ClientName, Version: opts.ClientVersion}

	seen := make(map[string]struct{}, len(descs))
	conns := make([]*serverConn, 0, len(descs))
	for _, desc := range descs {
		if _, dup := seen[desc.Name]; dup {
			return nil, &mcpconfig.ConfigError{Server: desc.Name, Reason: "duplicate server name"}
		}
		seen[desc.Name] = struct{}{}
		conns = append(conns, newServerConn(desc, impl, opts.Logger))
	}

	return &Registry{
		opts:    opts,
		impl:    impl,
		conns:   conns,
		catalog: newCatalog(nil),
		targets: map[string]target{},
	}, nil
}

// Discover connects to every server concurrently, lists its tools, and
// builds the qualified catalog. A server that fails to connect or list is
// recorded in Failures and excluded from the catalog; the remaining servers
// stay usable. Discover returns an error only when every configured server
// failed, or when there are no servers at all and nothing to report.
func (r *Registry) Discover(ctx context.Context) (*Catalog, error) {
	type discovery struct {
		tools []*mcp.Tool
		err   *Error
	}
	results := make([]discovery, len(r.conns))

	var g errgroup.Group
	for i, conn := range r.conns {
		g.Go(func() error {
			tools, err := conn.listTools(ctx)
			if err != nil {
				results[i].err = classify(conn.desc.Name, "", err, KindTransport)
				return nil
			}
			results[i].tools = tools
			return nil
		})
	}
	_ = g.Wait()

	var (
		specs    []ToolSpec
		targets  = make(map[string]target)
		failures []*Error
	)
	for i, conn := range r.conns {
		res := results[i]
		if res.err != nil {
			r.opts.Logger.Warn("mcp server discovery failed",
				"server", conn.desc.Name, "error", res.err)
			failures = append(failures, res.err)
			continue
		}
		server := sanitizeServerName(conn.desc.Name, separatorOf(r.opts.Namespace))
		tools := append([]*mcp.Tool(nil), res.tools...)
		sort.Slice(tools, func(a, b int) bool { return tools[a].Name < tools[b].Name })
		for _, tool := range tools {
			qualified := r.opts.Namespace.Qualify(server, tool.Name)
			if _, exists := targets[qualified]; exists {
				r.opts.Logger.Warn("duplicate qualified tool name, keeping first",
					"tool", qualified, "server", conn.desc.Name)
				continue
			}
			schema, err := toolSchema(tool.InputSchema)
			if err != nil {
				r.opts.Logger.Warn("undecodable tool input schema, skipping validation",
					"server", conn.desc.Name, "tool", tool.Name, "error", err)
			}
			targets[qualified] = target{conn: conn, name: tool.Name}
			specs = append(specs, ToolSpec{
				QualifiedName: qualified,
				Name:          tool.Name,
				Server:        conn.desc.Name,
				Description:   tool.Description,
				InputSchema:   schema,
			})
		}
		r.opts.Logger.Debug("mcp server discovered",
			"server", conn.desc.Name, "tools", len(tools))
	}

	catalog := newCatalog(specs)

	r.mu.Lock()
	r.catalog = catalog
	r.targets = targets
	r.failures = failures
	r.mu.Unlock()

	if len(r.conns) > 0 && len(failures) == len(r.conns) {
		errs := make([]error, len(failures))
		for i, f := range failures {
			errs[i] = f
		}
		return catalog, fmt.Errorf("all %d mcp servers failed discovery: %w", len(r.conns), errors.Join(errs...))
	}
	return catalog, nil
}

// separatorOf recovers the separator used for sanitizing server names when
// the namespace is the built-in one.
func separatorOf(ns Namespace) string {
	if p, ok := ns.(ServerPrefixNamespace); ok && p.Separator != "" {
		return p.Separator
	}
	return DefaultSeparator
}

// Catalog returns the snapshot built by the last Discover.
func (r *Registry) Catalog() *Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// Failures returns the per-server errors from the last Discover, ordered by
// server name.
func (r *Registry) Failures() []*Error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Error(nil), r.failures...)
}

// ServerStates reports the current connection state of every configured
// server.
func (r *Registry) ServerStates() map[string]ConnState {
	states := make(map[string]ConnState, len(r.conns))
	for _, conn := range r.conns {
		states[conn.desc.Name] = conn.currentState()
	}
	return states
}

// Call routes a qualified tool name to its server. Arguments are validated
// against the tool's input schema before dispatch. A call the server
// executed but flagged as failed returns a KindToolError whose message is
// the result's text content.
func (r *Registry) Call(ctx context.Context, qualified string, args map[string]any) (*CallResult, error) {
	r.mu.RLock()
	tgt, ok := r.targets[qualified]
	spec, _ := r.catalog.Lookup(qualified)
	r.mu.RUnlock()
	if !ok {
		return nil, &Error{Kind: KindUnknownTool, Tool: qualified, Err: fmt.Errorf("no server advertises this tool")}
	}
	if err := validateArguments(spec.InputSchema, args); err != nil {
		return nil, &Error{Kind: KindInvalidArguments, Server: tgt.conn.desc.Name, Tool: qualified, Err: err}
	}

	res, err := r.dispatch(ctx, tgt, args)
	if err != nil {
		me := classify(tgt.conn.desc.Name, qualified, err, KindTransport)
		me.Tool = qualified
		return nil, me
	}

	content := flattenContent(res.Content)
	if res.IsError {
		msg := content
		if msg == "" {
			msg = "tool reported an error"
		}
		return nil, &Error{Kind: KindToolError, Server: tgt.conn.desc.Name, Tool: qualified, Err: errors.New(msg)}
	}
	return &CallResult{
		QualifiedName: qualified,
		Server:        tgt.conn.desc.Name,
		Content:       content,
		Structured:    res.StructuredContent,
	}, nil
}

// dispatch performs the call, retrying transport-level failures when
// CallRetries is set. Protocol, timeout, and tool errors are not retried.
func (r *Registry) dispatch(ctx context.Context, tgt target, args map[string]any) (*mcp.CallToolResult, error) {
	if r.opts.CallRetries == 0 {
		return tgt.conn.callTool(ctx, tgt.name, args)
	}

	var res *mcp.CallToolResult
	op := func() error {
		var err error
		res, err = tgt.conn.callTool(ctx, tgt.name, args)
		if err == nil {
			return nil
		}
		if IsKind(err, KindTransport) {
			return err
		}
		return backoff.Permanent(err)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.opts.CallRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Err
		}
		return nil, err
	}
	return res, nil
}

// Close tears down every live session. Safe to call more than once.
func (r *Registry) Close() error {
	var errs []error
	for _, conn := range r.conns {
		if err := conn.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// flattenContent joins the textual pieces of a tool result.
func flattenContent(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
