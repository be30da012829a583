package mcpconfig

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/tidwall/jsonc"
)

// Transport selects the wire protocol used to reach an MCP server.
type Transport string

const (
	// TransportSSE is the HTTP+SSE transport (GET event stream, POST messages).
	TransportSSE Transport = "sse"
	// TransportStreamableHTTP is the Streamable HTTP transport.
	TransportStreamableHTTP Transport = "streamable_http"
)

// Defaults applied to entries that omit the corresponding field.
const (
	DefaultTimeout        = 60 * time.Second
	DefaultSSEReadTimeout = 300 * time.Second
)

// wrapperKey is the conventional envelope used by host application config
// files. Its presence switches Resolve into wrapper mode.
const wrapperKey = "mcpServers"

// ServerEntry is the raw JSON shape of a single server block. Durations are
// expressed in seconds, matching the common host configuration convention.
type ServerEntry struct {
	Transport      string            `json:"transport,omitempty"`
	URL            string            `json:"url"`
	Headers        map[string]string `json:"headers,omitempty"`
	Timeout        float64           `json:"timeout,omitempty"`
	SSEReadTimeout float64           `json:"sse_read_timeout,omitempty"`
}

// ServerDescriptor is a fully resolved connection target: every field is
// validated and defaulted, ready to hand to a client.
type ServerDescriptor struct {
	Name           string
	Transport      Transport
	URL            string
	Headers        map[string]string
	Timeout        time.Duration
	SSEReadTimeout time.Duration
}

// ConfigError reports a single invalid server entry. Resolution stops at the
// first invalid entry found.
type ConfigError struct {
	Server string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Server == "" {
		return fmt.Sprintf("mcp config: %s", e.Reason)
	}
	if e.Field == "" {
		return fmt.Sprintf("mcp config: server %q: %s", e.Server, e.Reason)
	}
	return fmt.Sprintf("mcp config: server %q: field %q: %s", e.Server, e.Field, e.Reason)
}

// Resolve parses a configuration document and returns the descriptors in
// server-name order. The document may be a flat map of server names to
// entries, or the same map nested under the "mcpServers" key. JSONC comments
// and trailing commas are tolerated.
func Resolve(data []byte) ([]ServerDescriptor, error) {
	data = jsonc.ToJSON(data)

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("document is not a JSON object: %v", err)}
	}
	if inner, ok := top[wrapperKey]; ok {
		top = nil
		if err := json.Unmarshal(inner, &top); err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("%q is not a JSON object: %v", wrapperKey, err)}
		}
	}

	entries := make(map[string]ServerEntry, len(top))
	for name, raw := range top {
		var entry ServerEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, &ConfigError{Server: name, Reason: fmt.Sprintf("invalid entry: %v", err)}
		}
		entries[name] = entry
	}
	return ResolveMap(entries)
}

// ResolveMap validates and defaults already-decoded entries. Descriptors are
// returned sorted by server name so callers see a deterministic order.
func ResolveMap(entries map[string]ServerEntry) ([]ServerDescriptor, error) {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ServerDescriptor, 0, len(names))
	for _, name := range names {
		desc, err := resolveEntry(name, entries[name])
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

func resolveEntry(name string, entry ServerEntry) (ServerDescriptor, error) {
	if name == "" {
		return ServerDescriptor{}, &ConfigError{Reason: "server name must not be empty"}
	}
	if entry.URL == "" {
		return ServerDescriptor{}, &ConfigError{Server: name, Field: "url", Reason: "required"}
	}
	parsed, err := url.Parse(entry.URL)
	if err != nil {
		return ServerDescriptor{}, &ConfigError{Server: name, Field: "url", Reason: err.Error()}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ServerDescriptor{}, &ConfigError{Server: name, Field: "url", Reason: fmt.Sprintf("unsupported scheme %q", parsed.Scheme)}
	}

	transport := Transport(entry.Transport)
	switch transport {
	case "":
		transport = TransportSSE
	case TransportSSE, TransportStreamableHTTP:
	default:
		return ServerDescriptor{}, &ConfigError{Server: name, Field: "transport", Reason: fmt.Sprintf("unknown transport %q", entry.Transport)}
	}

	timeout, err := secondsField(name, "timeout", entry.Timeout, DefaultTimeout)
	if err != nil {
		return ServerDescriptor{}, err
	}
	readTimeout, err := secondsField(name, "sse_read_timeout", entry.SSEReadTimeout, DefaultSSEReadTimeout)
	if err != nil {
		return ServerDescriptor{}, err
	}

	var headers map[string]string
	if len(entry.Headers) > 0 {
		headers = make(map[string]string, len(entry.Headers))
		for k, v := range entry.Headers {
			headers[k] = v
		}
	}

	return ServerDescriptor{
		Name:           name,
		Transport:      transport,
		URL:            entry.URL,
		Headers:        headers,
		Timeout:        timeout,
		SSEReadTimeout: readTimeout,
	}, nil
}

func secondsField(server, field string, seconds float64, fallback time.Duration) (time.Duration, error) {
	if seconds < 0 {
		return 0, &ConfigError{Server: server, Field: field, Reason: "must not be negative"}
	}
	if seconds == 0 {
		return fallback, nil
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
