// Package embedding holds the embedding service adapters and the
// Normalizing decorator shared by all of them.
//
// Every vector handed to the index passes through Normalizing, so
// inner products computed by the index are cosine similarities
// regardless of which provider produced them.
package embedding
