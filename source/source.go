// Package source defines the upstream contract used by mirrorcache and
// ships the built-in connectors: local file, HTTP, GitHub, Redis and S3.
//
// A source hands the cache a raw payload together with an opaque version
// token (mtime, ETag, commit SHA, content digest). The cache never
// interprets tokens; it stores the last one and hands it back on the next
// conditional fetch. An empty token means the source cannot version its
// data, and the cache then fetches unconditionally every cycle.
//
// Connectors own their I/O deadlines. Refresh cycles are serialized, so a
// fetch that can hang forever stalls every later cycle; bound latency with
// client timeouts or context deadlines.
package source

import "context"

// Source supplies raw payloads for one external dataset. Implementations
// must be safe for repeated calls. Version tokens are opaque to callers;
// only the source that minted a token may interpret it.
type Source interface {
	// Fetch unconditionally retrieves the payload and its version token.
	// An empty token means no version is known.
	Fetch(ctx context.Context) (version string, payload []byte, err error)

	// FetchIfNewer retrieves the payload only if the upstream dataset
	// changed relative to version. changed=false means unchanged; the
	// other return values are then meaningless.
	FetchIfNewer(ctx context.Context, version string) (newVersion string, payload []byte, changed bool, err error)

	// String describes the source for logs and errors.
	String() string
}
