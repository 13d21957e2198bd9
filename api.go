package mirrorcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/mirrorcache/processor"
	"github.com/unkn0wn-root/mirrorcache/source"
)

// Options tune a cache. Source, Processor and Interval are required;
// everything else has a working default. Options are consumed by New and
// must not be mutated afterwards.
type Options[V any] struct {
	// Required
	Source    source.Source          // where the dataset lives
	Processor processor.Processor[V] // raw bytes -> typed dataset
	Interval  time.Duration          // refresh period

	Name      string        // log field name; "" => the source description
	OnUpdate  UpdateFunc[V] // called after every successful swap
	OnFailure FailureFunc   // called after every failed cycle
	Fallback  func() V      // initial-load fallback supplier; consumed at most once
	Metrics   Metrics       // nil => NopMetrics
	Logger    Logger        // nil => NopLogger
	Pacing    Pacing        // default PaceFixedRate
}

// New builds a cache, performs the initial load synchronously, and starts
// the background refresh. ctx bounds only the initial load; later cycles
// run until Close. On error nothing is left running.
func New[V any](ctx context.Context, opts Options[V]) (*Cache[V], error) {
	return newCache(ctx, opts)
}

// NewMap builds a cache over a map-shaped dataset and wraps it in the
// map accessor view.
func NewMap[K comparable, V any](ctx context.Context, opts Options[map[K]V]) (*MapCache[K, V], error) {
	c, err := newCache(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &MapCache[K, V]{c}, nil
}

// NewSet builds a cache over a set-shaped dataset and wraps it in the
// set accessor view. Pair it with processor.LineSet or any processor
// producing map[T]struct{}.
func NewSet[T comparable](ctx context.Context, opts Options[map[T]struct{}]) (*SetCache[T], error) {
	c, err := newCache(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &SetCache[T]{c}, nil
}
