// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IngestService is the only writer of the metadata store and the vector
// indices. SearchService only reads them.
package services
