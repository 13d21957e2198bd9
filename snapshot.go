package mirrorcache

import (
	"sync/atomic"
	"time"
)

// Snapshot is one immutable observable state of the mirrored dataset: the
// typed value together with the version token the source assigned to it.
// Snapshots handed out by a cache stay valid after later refreshes and
// after the cache is closed.
type Snapshot[V any] struct {
	version string
	value   V
	at      time.Time
}

func newSnapshot[V any](version string, value V) *Snapshot[V] {
	return &Snapshot[V]{version: version, value: value, at: time.Now()}
}

// Version returns the source-assigned version token and whether one is
// known. Fallback data and unversioned sources have no token.
func (s *Snapshot[V]) Version() (string, bool) { return s.version, s.version != "" }

// Value returns the dataset. Treat it as read-only; it is shared by every
// reader holding this snapshot.
func (s *Snapshot[V]) Value() V { return s.value }

// At returns when the snapshot was installed.
func (s *Snapshot[V]) At() time.Time { return s.at }

// holder is the single swappable reference to the current snapshot.
// The pointer is nil only before construction completes; a cache returned
// by New never exposes that state. Written only by the updater, read by
// everyone.
type holder[V any] struct {
	p atomic.Pointer[Snapshot[V]]
}

func (h *holder[V]) load() *Snapshot[V]   { return h.p.Load() }
func (h *holder[V]) store(s *Snapshot[V]) { h.p.Store(s) }

// mustLoad panics on a nil snapshot. Reaching it means a reader escaped
// the constructor's initialization guarantee, which is a bug in this
// package, not a recoverable condition.
func (h *holder[V]) mustLoad() *Snapshot[V] {
	s := h.p.Load()
	if s == nil {
		panic("mirrorcache: read from a cache that never finished construction")
	}
	return s
}

// version returns the last known version token, or "" when none is known.
func (h *holder[V]) version() string {
	if s := h.p.Load(); s != nil {
		return s.version
	}
	return ""
}
