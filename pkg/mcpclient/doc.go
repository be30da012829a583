// Package mcpclient connects to multiple MCP servers over SSE or Streamable
// HTTP, aggregates their tools under qualified names, and routes tool calls
// back to the owning server.
//
// The entry point is the Registry: construct one with NewRegistry, add the
// resolved server descriptors, and call Discover to connect and list tools
// concurrently. Servers that fail to connect or list are isolated; their
// errors are retained and reported via Failures while healthy servers stay
// usable. Call dispatches a qualified tool name to its server with per-server
// timeouts, and Close tears down every live session.
package mcpclient
