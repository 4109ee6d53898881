// Package driving defines the entry points the CLI, the MCP server and the
// folder watcher call into: ingestion, retrieval and settings.
//
// internal/core/services implements all three.
package driving
