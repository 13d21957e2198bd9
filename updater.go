package mirrorcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/mirrorcache/processor"
	"github.com/unkn0wn-root/mirrorcache/source"
)

// updater performs one fetch -> process -> swap cycle against the holder.
// It is the holder's only writer. Callers must serialize calls to run;
// the cache does this with its write semaphore.
type updater[V any] struct {
	holder    *holder[V]
	source    source.Source
	processor processor.Processor[V]
	metrics   Metrics

	// Set after a process failure so the next cycle refetches
	// unconditionally instead of asking for "newer than" a version whose
	// payload is already known to be unparseable. Writer-only.
	forceRefetch bool
}

// run executes one refresh cycle. It returns the installed snapshot when
// the dataset changed, nil when upstream reported no change, and an error
// when the cycle failed. The holder is untouched on every failure path.
func (u *updater[V]) run(ctx context.Context) (*Snapshot[V], error) {
	version := u.holder.version()
	if u.forceRefetch {
		version = ""
	}

	var (
		newVersion string
		payload    []byte
		changed    = true
		err        error
	)
	fetchStart := time.Now()
	if version == "" {
		newVersion, payload, err = u.source.Fetch(ctx)
	} else {
		newVersion, payload, changed, err = u.source.FetchIfNewer(ctx, version)
	}
	fetchTime := time.Since(fetchStart)

	if err != nil {
		cerr := &CycleError{Stage: StageFetch, Source: u.source.String(), Err: err}
		u.metrics.FetchError(cerr)
		return nil, cerr
	}
	if !changed {
		u.metrics.LastSuccessfulCheck(time.Now())
		u.metrics.CheckNoUpdate(fetchTime)
		return nil, nil
	}

	processStart := time.Now()
	value, err := u.processor.Process(payload)
	processTime := time.Since(processStart)
	if err != nil {
		u.forceRefetch = true
		cerr := &CycleError{Stage: StageProcess, Source: u.source.String(), Err: err}
		u.metrics.ProcessError(cerr)
		return nil, cerr
	}
	u.forceRefetch = false

	// The swap is the last step of the cycle, so an abandoned cycle can
	// never leave a half-written snapshot behind.
	snap := newSnapshot(newVersion, value)
	u.holder.store(snap)

	now := time.Now()
	u.metrics.LastSuccessfulCheck(now)
	u.metrics.LastSuccessfulUpdate(now)
	u.metrics.Update(newVersion, fetchTime, processTime)
	return snap, nil
}
