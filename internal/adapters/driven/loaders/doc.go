// Package loaders turns files on disk into text for chunking.
//
// Each sub-package handles one document type. Registry dispatches on the
// file extension and is the driven.LoaderRegistry used by the ingestion
// orchestrator.
package loaders
