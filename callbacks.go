package mirrorcache

import "time"

// UpdateFunc is invoked on the writer goroutine after every successful
// snapshot swap, including the initial one. previous is nil for the
// initial install. newVersion is "" when the source reported no token.
type UpdateFunc[V any] func(previous *Snapshot[V], newVersion string, newValue V)

// Checkpoint identifies the last known good dataset: its version token
// ("" when unknown) and when it was installed.
type Checkpoint struct {
	Version string
	At      time.Time
}

// FailureFunc is invoked on the writer goroutine after every failed
// refresh cycle. err is a *CycleError. lastGood describes the snapshot
// still being served, nil when there is none to describe.
type FailureFunc func(err error, lastGood *Checkpoint)
