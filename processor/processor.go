// Package processor turns raw source payloads into the typed datasets
// served by mirrorcache.
//
// A processor runs once per changed payload, on the writer goroutine. A
// processing error never disturbs the served snapshot; the cache keeps the
// previous dataset and retries with a fresh unconditional fetch on the
// next cycle.
package processor

// Processor converts one raw payload into a typed dataset. Process must
// be a pure function of its input: no side effects, safe for repeated
// calls with the same bytes.
type Processor[V any] interface {
	Process(raw []byte) (V, error)
}
