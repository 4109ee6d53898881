// Package file stores recall settings as TOML at <data dir>/config.toml.
//
// Nested tables are exposed as flat dot keys, e.g. "embedding.provider".
package file
