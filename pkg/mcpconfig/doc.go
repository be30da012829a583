// Package mcpconfig resolves MCP server connection settings from JSON
// documents into normalized descriptors.
//
// Two document shapes are accepted: a flat object mapping server names to
// entries, and the conventional wrapper {"mcpServers": {...}} used by many
// host applications. Entries may carry comments and trailing commas (JSONC).
// Resolution validates every entry, applies defaults, and reports the first
// problem found as a *ConfigError naming the offending server and field.
package mcpconfig
