// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - MetadataStore: Documents and chunks with soft deletes (SQLite)
//   - VectorIndexManager: Base + Delta vector indices on disk
//   - EmbeddingService: Text to vector
//   - Loader, LoaderRegistry: Text extraction per file type
//   - ConfigStore: Application configuration (TOML)
//   - CommandRunner: External program execution (pdftotext fallback)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or loader package
package driven
