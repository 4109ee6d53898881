// Package flat provides an exact inner-product vector index keyed by chunk ID,
// with a self-validating binary file format.
//
// Search scans every stored vector. For L2-normalised vectors the inner
// product equals cosine similarity.
package flat
