package mcpclient

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can branch on the failure mode
// without string matching.
type ErrorKind string

const (
	// KindTransport covers connection, network, and HTTP-level failures.
	KindTransport ErrorKind = "transport"
	// KindProtocol covers malformed or unexpected MCP responses.
	KindProtocol ErrorKind = "protocol"
	// KindTimeout marks an operation that exceeded its server deadline.
	KindTimeout ErrorKind = "timeout"
	// KindUnknownTool marks a call to a qualified name no server advertises.
	KindUnknownTool ErrorKind = "unknown_tool"
	// KindInvalidArguments marks a call rejected by input schema validation
	// before reaching the server.
	KindInvalidArguments ErrorKind = "invalid_arguments"
	// KindToolError marks a call the server executed but reported as failed.
	KindToolError ErrorKind = "tool_error"
)

// Error is the package error type. Server names the originating server when
// known; Tool names the qualified tool for call failures.
type Error struct {
	Kind   ErrorKind
	Server string
	Tool   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Tool != "":
		return fmt.Sprintf("mcp %s: tool %q: %v", e.Kind, e.Tool, e.Err)
	case e.Server != "":
		return fmt.Sprintf("mcp %s: server %q: %v", e.Kind, e.Server, e.Err)
	default:
		return fmt.Sprintf("mcp %s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var me *Error
	return errors.As(err, &me) && me.Kind == kind
}

// classify wraps err with the kind inferred from its cause, preferring
// timeout when the context deadline fired.
func classify(server, tool string, err error, fallback ErrorKind) *Error {
	kind := fallback
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	var me *Error
	if errors.As(err, &me) {
		return me
	}
	return &Error{Kind: kind, Server: server, Tool: tool, Err: err}
}
