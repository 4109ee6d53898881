// Package mcp exposes retrieval over the Model Context Protocol, so that
// AI assistants can search the local knowledge base.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
