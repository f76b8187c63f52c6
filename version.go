// Package shellgate runs shell commands on behalf of HTTP and MCP clients,
// either verbatim or translated from natural language.
package shellgate

// Version is the shellgate release version.
const Version = "0.3.0"
