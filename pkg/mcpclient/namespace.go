package mcpclient

import "strings"

// DefaultSeparator joins a server name and a native tool name into a
// qualified name, e.g. "search.web_search".
const DefaultSeparator = "."

// Namespace maps native tool names into the shared registry namespace.
type Namespace interface {
	// Qualify returns the registry-wide name for a server's native tool.
	Qualify(server, tool string) string
}

// ServerPrefixNamespace qualifies tools as server + separator + tool. A zero
// value uses DefaultSeparator.
type ServerPrefixNamespace struct {
	Separator string
}

func (n ServerPrefixNamespace) Qualify(server, tool string) string {
	sep := n.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	return server + sep + tool
}

// sanitizeServerName replaces characters that would be ambiguous inside a
// qualified name.
func sanitizeServerName(name, sep string) string {
	if sep == "" {
		sep = DefaultSeparator
	}
	return strings.ReplaceAll(name, sep, "_")
}
