package mirrorcache

import "time"

// Metrics receives refresh outcomes. Every call is made synchronously from
// the single writer goroutine, so implementations never see concurrent
// calls and need no locking of their own. Implementations MUST be cheap
// and must not panic; a panicking sink would kill the refresh loop.
type Metrics interface {
	// Update reports a successful refresh that installed a new snapshot.
	Update(version string, fetchTime, processTime time.Duration)
	// LastSuccessfulUpdate reports when the dataset was last replaced.
	LastSuccessfulUpdate(ts time.Time)
	// CheckNoUpdate reports a conditional fetch that found no change.
	CheckNoUpdate(checkTime time.Duration)
	// LastSuccessfulCheck reports when upstream was last consulted
	// without error.
	LastSuccessfulCheck(ts time.Time)
	// FallbackInvoked reports that the configured fallback dataset was
	// installed during construction.
	FallbackInvoked()
	// FetchError reports a failed fetch stage.
	FetchError(err error)
	// ProcessError reports a failed process stage.
	ProcessError(err error)
}

// NopMetrics is the default.
type NopMetrics struct{}

func (NopMetrics) Update(string, time.Duration, time.Duration) {}
func (NopMetrics) LastSuccessfulUpdate(time.Time)              {}
func (NopMetrics) CheckNoUpdate(time.Duration)                 {}
func (NopMetrics) LastSuccessfulCheck(time.Time)               {}
func (NopMetrics) FallbackInvoked()                            {}
func (NopMetrics) FetchError(error)                            {}
func (NopMetrics) ProcessError(error)                          {}

// LogMetrics forwards every metrics event to a Logger. Successful paths
// log at debug, failures at warn. Handy when a real metrics backend is
// not wired up yet.
type LogMetrics struct{ L Logger }

var _ Metrics = LogMetrics{}

func (m LogMetrics) Update(version string, fetchTime, processTime time.Duration) {
	m.L.Debug("dataset updated", Fields{
		"version":    version,
		"fetch_ms":   fetchTime.Milliseconds(),
		"process_ms": processTime.Milliseconds(),
	})
}

func (m LogMetrics) LastSuccessfulUpdate(ts time.Time) {
	m.L.Debug("last successful update", Fields{"ts": ts})
}

func (m LogMetrics) CheckNoUpdate(checkTime time.Duration) {
	m.L.Debug("no update", Fields{"check_ms": checkTime.Milliseconds()})
}

func (m LogMetrics) LastSuccessfulCheck(ts time.Time) {
	m.L.Debug("last successful check", Fields{"ts": ts})
}

func (m LogMetrics) FallbackInvoked() {
	m.L.Warn("fallback invoked", nil)
}

func (m LogMetrics) FetchError(err error) {
	m.L.Warn("fetch failed", Fields{"err": err})
}

func (m LogMetrics) ProcessError(err error) {
	m.L.Warn("process failed", Fields{"err": err})
}
