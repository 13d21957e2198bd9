package processor

import "fmt"

// Limit wraps another processor to enforce a maximum allowed payload
// size. If Max <= 0, size limiting is disabled.
//
// Typical use: protect against oversized or malicious payloads from a
// shared or semi-trusted source.
type Limit[V any] struct {
	// Inner is the underlying processor being wrapped. It must be set.
	Inner Processor[V]
	// Max is the maximum permitted payload length in bytes. Larger
	// payloads are rejected without invoking Inner.
	Max int
}

func (p Limit[V]) Process(raw []byte) (V, error) {
	if p.Max > 0 && len(raw) > p.Max {
		var zero V
		return zero, fmt.Errorf("processor: payload too large: %d > %d", len(raw), p.Max)
	}
	return p.Inner.Process(raw)
}
