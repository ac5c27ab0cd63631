// Package store provides the read-only key-value handles shared by the lookup
// workers.
//
// A Handle is opened once at process start and never mutated afterwards, so
// every implementation must be safe for concurrent Lookup calls. Two
// implementations ship with the package:
//
//   - SQLite: a sqlite file (modernc.org/sqlite, opened mode=ro) holding one
//     table of key/value rows. This is what `steeze-kv serve` uses.
//   - Memory: a map-backed handle for tests and one-off CLI lookups.
//
// Rows are written ahead of time by Loader (`steeze-kv load`).
package store
