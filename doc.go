// Package mirrorcache mirrors an externally-owned dataset (a config file,
// a small key/value table, a token set, or a single object) into process
// memory and keeps it fresh on a timer. Readers are served from an
// immutable snapshot behind one atomic pointer: no read-side locking, no
// torn reads, and every refresh replaces the whole dataset at once.
//
// Components:
//   - Source: supplies raw bytes plus an opaque version token (mtime, ETag,
//     commit SHA) and answers conditional "anything newer than V?" fetches.
//     Built-ins: local file, HTTP, GitHub, Redis, S3.
//   - Processor[V]: pure function from raw bytes to the typed dataset.
//     Built-ins: line-oriented map/set parsers, JSON, YAML, msgpack, CBOR,
//     protobuf.
//   - Metrics and update/failure callbacks observe refresh outcomes. All of
//     them run on the single writer goroutine.
//
// Refresh protocol, per cycle:
//
//	token := current snapshot's version token
//	no token -> Fetch (unconditional)
//	token    -> FetchIfNewer(token); unchanged -> nothing to do
//	changed  -> Process -> swap the snapshot atomically
//
// The initial load runs synchronously inside New: it installs real data,
// installs the configured fallback, or fails without leaving anything
// running. After construction, failures never disturb the served snapshot;
// they surface only through the failure callback and metrics.
package mirrorcache
