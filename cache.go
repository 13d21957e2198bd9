package mirrorcache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Cache mirrors one external dataset. Reads load the current snapshot
// through a single atomic pointer and never block on a refresh; the only
// writer is the serialized refresh cycle.
type Cache[V any] struct {
	name    string
	holder  *holder[V]
	updater *updater[V]
	log     Logger

	onUpdate  UpdateFunc[V]
	onFailure FailureFunc

	// 1-slot semaphore serializing scheduled cycles against Refresh.
	writeLock chan struct{}

	// Writer-only; read under the semaphore.
	lastSuccess time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	sched     scheduler
	closeOnce sync.Once
}

func newCache[V any](ctx context.Context, opts Options[V]) (*Cache[V], error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("mirrorcache: source is required")
	}
	if opts.Processor == nil {
		return nil, fmt.Errorf("mirrorcache: processor is required")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("mirrorcache: refresh interval is required")
	}

	c := &Cache[V]{
		name:      coalesce(opts.Name, opts.Source.String()),
		holder:    &holder[V]{},
		onUpdate:  opts.OnUpdate,
		onFailure: opts.OnFailure,
		writeLock: make(chan struct{}, 1),
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	metrics := coalesce[Metrics](opts.Metrics, NopMetrics{})
	c.updater = &updater[V]{
		holder:    c.holder,
		source:    opts.Source,
		processor: opts.Processor,
		metrics:   metrics,
	}

	snap, err := c.updater.run(ctx)
	if err == nil && snap == nil {
		// The initial fetch is unconditional and must produce data.
		err = fmt.Errorf("mirrorcache: unconditional fetch returned no data")
	}
	if err != nil {
		if opts.Fallback == nil {
			return nil, fmt.Errorf("%w: %v", ErrInitialLoad, err)
		}
		c.log.Warn("initial load failed, installing fallback", Fields{"cache": c.name, "err": err})
		c.holder.store(&Snapshot[V]{value: opts.Fallback(), at: time.Now()})
		metrics.FallbackInvoked()
	} else {
		if c.onUpdate != nil {
			c.onUpdate(nil, snap.version, snap.value)
		}
	}
	c.lastSuccess = time.Now()

	c.ctx, c.cancel = context.WithCancel(context.Background())
	switch opts.Pacing {
	case PaceFixedDelay:
		c.sched = startTimer(opts.Interval, c.cycle)
	default:
		c.sched = startTicker(opts.Interval, c.cycle)
	}
	c.log.Info("cache running", Fields{"cache": c.name, "interval": opts.Interval.String()})
	return c, nil
}

// cycle runs one scheduled refresh. Scheduled cycles are already
// sequential; the semaphore keeps them from overlapping an explicit
// Refresh.
func (c *Cache[V]) cycle() {
	select {
	case c.writeLock <- struct{}{}:
	case <-c.ctx.Done():
		return
	}
	defer func() { <-c.writeLock }()
	_ = c.runLocked(c.ctx)
}

// runLocked executes one cycle and routes its outcome to the callbacks.
// Callers must hold the write semaphore.
func (c *Cache[V]) runLocked(ctx context.Context) error {
	previous := c.holder.load()
	snap, err := c.updater.run(ctx)
	switch {
	case err != nil:
		c.log.Warn("refresh failed", Fields{"cache": c.name, "err": err})
		if c.onFailure != nil {
			var last *Checkpoint
			if previous != nil {
				last = &Checkpoint{Version: previous.version, At: c.lastSuccess}
			}
			c.onFailure(err, last)
		}
		return err
	case snap != nil:
		c.lastSuccess = time.Now()
		c.log.Debug("dataset replaced", Fields{"cache": c.name, "version": snap.version})
		if c.onUpdate != nil {
			c.onUpdate(previous, snap.version, snap.value)
		}
	}
	return nil
}

// Refresh runs one refresh cycle immediately, serialized against the
// scheduled ones. Unlike scheduled cycles, its error is returned to the
// caller (the failure callback fires either way).
func (c *Cache[V]) Refresh(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case c.writeLock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
	defer func() { <-c.writeLock }()
	return c.runLocked(ctx)
}

// Snapshot returns the current snapshot.
func (c *Cache[V]) Snapshot() *Snapshot[V] { return c.holder.mustLoad() }

// Value returns the current dataset. Treat it as read-only.
func (c *Cache[V]) Value() V { return c.holder.mustLoad().value }

// Version returns the current version token, false when none is known
// (fallback data or an unversioned source).
func (c *Cache[V]) Version() (string, bool) { return c.holder.mustLoad().Version() }

// Name returns the configured name, or the source description.
func (c *Cache[V]) Name() string { return c.name }

// Close stops the background refresh: it cancels the loop context, halts
// the driver and waits for an in-flight cycle to finish. Reads keep
// working against the last snapshot, and snapshots already handed out
// stay valid. Close is idempotent.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.sched.stop()
		c.log.Info("cache stopped", Fields{"cache": c.name})
	})
}
