package mirrorcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/mirrorcache/processor"
	"github.com/unkn0wn-root/mirrorcache/source"
)

// fakeSource is an in-memory Source with call counters.
type fakeSource struct {
	mu           sync.Mutex
	version      string
	payload      []byte
	err          error
	fetches      int // unconditional
	conditionals int
}

var _ source.Source = (*fakeSource)(nil)

func newFakeSource(version, payload string) *fakeSource {
	return &fakeSource{version: version, payload: []byte(payload)}
}

func (s *fakeSource) set(version, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version, s.payload, s.err = version, []byte(payload), nil
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSource) counts() (fetches, conditionals int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches, s.conditionals
}

func (s *fakeSource) Fetch(context.Context) (string, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return "", nil, s.err
	}
	return s.version, s.payload, nil
}

func (s *fakeSource) FetchIfNewer(_ context.Context, version string) (string, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditionals++
	if s.err != nil {
		return "", nil, false, s.err
	}
	if s.version == version {
		return "", nil, false, nil
	}
	return s.version, s.payload, true, nil
}

func (s *fakeSource) String() string { return "fake" }

// intLines parses "key=value" lines with int values; blanks and '#'
// comments are skipped.
func intLines() processor.LineMap[string, int] {
	return processor.LineMap[string, int]{Parse: func(line string) (string, int, bool, error) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return "", 0, false, nil
		}
		k, v, ok := strings.Cut(trimmed, "=")
		if !ok {
			return "", 0, false, fmt.Errorf("no '=' in %q", line)
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return "", 0, false, err
		}
		return strings.TrimSpace(k), n, true, nil
	}}
}

// recordingMetrics counts metric events.
type recordingMetrics struct {
	mu          sync.Mutex
	updates     int
	noUpdates   int
	fallbacks   int
	fetchErrs   int
	processErrs int
}

var _ Metrics = (*recordingMetrics)(nil)

func (m *recordingMetrics) Update(string, time.Duration, time.Duration) {
	m.mu.Lock()
	m.updates++
	m.mu.Unlock()
}
func (m *recordingMetrics) LastSuccessfulUpdate(time.Time) {}
func (m *recordingMetrics) CheckNoUpdate(time.Duration) {
	m.mu.Lock()
	m.noUpdates++
	m.mu.Unlock()
}
func (m *recordingMetrics) LastSuccessfulCheck(time.Time) {}
func (m *recordingMetrics) FallbackInvoked() {
	m.mu.Lock()
	m.fallbacks++
	m.mu.Unlock()
}
func (m *recordingMetrics) FetchError(error) {
	m.mu.Lock()
	m.fetchErrs++
	m.mu.Unlock()
}
func (m *recordingMetrics) ProcessError(error) {
	m.mu.Lock()
	m.processErrs++
	m.mu.Unlock()
}

func (m *recordingMetrics) snapshot() (updates, noUpdates, fallbacks, fetchErrs, processErrs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates, m.noUpdates, m.fallbacks, m.fetchErrs, m.processErrs
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

// ==============================
// Construction
// ==============================

func TestOptionsValidation(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("v1", "A=1")

	if _, err := New[map[string]int](ctx, Options[map[string]int]{
		Processor: intLines(), Interval: time.Second,
	}); err == nil || !strings.Contains(err.Error(), "source") {
		t.Fatalf("expected missing-source error, got %v", err)
	}
	if _, err := New[map[string]int](ctx, Options[map[string]int]{
		Source: src, Interval: time.Second,
	}); err == nil || !strings.Contains(err.Error(), "processor") {
		t.Fatalf("expected missing-processor error, got %v", err)
	}
	if _, err := New[map[string]int](ctx, Options[map[string]int]{
		Source: src, Processor: intLines(),
	}); err == nil || !strings.Contains(err.Error(), "interval") {
		t.Fatalf("expected missing-interval error, got %v", err)
	}
}

func TestInitialLoad(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("v1", "A=1\nB=2\n")

	var calls int32
	var firstPrevious atomic.Bool
	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  time.Hour,
		OnUpdate: func(previous *Snapshot[map[string]int], _ string, _ map[string]int) {
			atomic.AddInt32(&calls, 1)
			firstPrevious.Store(previous == nil)
		},
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	defer c.Close()

	if v, ok := c.Get("A"); !ok || v != 1 {
		t.Fatalf("Get A = %v, %v", v, ok)
	}
	if v, ok := c.Get("B"); !ok || v != 2 {
		t.Fatalf("Get B = %v, %v", v, ok)
	}
	if c.Len() != 2 || c.IsEmpty() {
		t.Fatalf("Len = %d", c.Len())
	}
	if v, ok := c.Version(); !ok || v != "v1" {
		t.Fatalf("Version = %q, %v", v, ok)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("update callback fired %d times", n)
	}
	if !firstPrevious.Load() {
		t.Fatal("initial update callback expected previous == nil")
	}
}

func TestInitialLoadFallback(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("", "")
	src.fail(errors.New("upstream down"))
	metrics := &recordingMetrics{}

	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  time.Hour,
		Fallback:  func() map[string]int { return map[string]int{"D": 4} },
		Metrics:   metrics,
	})
	if err != nil {
		t.Fatalf("NewMap with fallback: %v", err)
	}
	defer c.Close()

	if v, ok := c.Get("D"); !ok || v != 4 {
		t.Fatalf("Get D = %v, %v", v, ok)
	}
	if _, ok := c.Version(); ok {
		t.Fatal("fallback data must carry no version")
	}
	if _, _, fallbacks, _, _ := metrics.snapshot(); fallbacks != 1 {
		t.Fatalf("fallbacks = %d", fallbacks)
	}
}

func TestInitialLoadFailureNoFallback(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("", "")
	src.fail(errors.New("upstream down"))

	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  5 * time.Millisecond,
	})
	if err == nil {
		c.Close()
		t.Fatal("expected construction error")
	}
	if !errors.Is(err, ErrInitialLoad) {
		t.Fatalf("expected ErrInitialLoad, got %v", err)
	}
	if c != nil {
		t.Fatal("expected nil cache on construction failure")
	}

	// Nothing may keep refreshing after a failed build.
	fetches, conditionals := src.counts()
	time.Sleep(50 * time.Millisecond)
	f2, c2 := src.counts()
	if f2 != fetches || c2 != conditionals {
		t.Fatalf("background fetches after failed build: %d/%d -> %d/%d", fetches, conditionals, f2, c2)
	}
}

// ==============================
// Refresh semantics
// ==============================

func TestNoChangeKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("v1", "A=1\n")
	metrics := &recordingMetrics{}
	var calls int32

	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  time.Hour,
		Metrics:   metrics,
		OnUpdate: func(*Snapshot[map[string]int], string, map[string]int) {
			atomic.AddInt32(&calls, 1)
		},
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	defer c.Close()

	before := c.Snapshot()
	for i := 0; i < 3; i++ {
		if err := c.Refresh(ctx); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}
	if c.Snapshot() != before {
		t.Fatal("unchanged upstream must not replace the snapshot")
	}
	updates, noUpdates, _, _, _ := metrics.snapshot()
	if updates != 1 || noUpdates != 3 {
		t.Fatalf("updates=%d noUpdates=%d", updates, noUpdates)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("update callback fired %d times", n)
	}
}

func TestWholesaleReplacement(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("v1", "A=1\nB=2\n")

	var mu sync.Mutex
	var previous map[string]int
	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  time.Hour,
		OnUpdate: func(prev *Snapshot[map[string]int], _ string, _ map[string]int) {
			if prev == nil {
				return
			}
			mu.Lock()
			previous = prev.Value()
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	defer c.Close()

	src.set("v2", "A=3\n# comment\nC=5\n")
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if v, ok := c.Get("A"); !ok || v != 3 {
		t.Fatalf("Get A = %v, %v", v, ok)
	}
	if v, ok := c.Get("C"); !ok || v != 5 {
		t.Fatalf("Get C = %v, %v", v, ok)
	}
	if _, ok := c.Get("B"); ok {
		t.Fatal("B must be gone: refresh replaces wholesale, never merges")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(previous) != 2 || previous["A"] != 1 || previous["B"] != 2 {
		t.Fatalf("previous dataset = %v", previous)
	}
}

func TestProcessErrorKeepsOldAndForcesRefetch(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("v1", "A=1\n")

	var mu sync.Mutex
	var lastGood *Checkpoint
	var failure error
	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  time.Hour,
		OnFailure: func(err error, last *Checkpoint) {
			mu.Lock()
			failure, lastGood = err, last
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	defer c.Close()

	src.set("v2", "garbage line\n")
	err = c.Refresh(ctx)
	var cerr *CycleError
	if !errors.As(err, &cerr) || cerr.Stage != StageProcess {
		t.Fatalf("expected process-stage CycleError, got %v", err)
	}
	if v, ok := c.Get("A"); !ok || v != 1 {
		t.Fatalf("old snapshot must survive a process error, Get A = %v, %v", v, ok)
	}
	if got, _ := c.Version(); got != "v1" {
		t.Fatalf("stored version changed to %q", got)
	}
	mu.Lock()
	if failure == nil || lastGood == nil || lastGood.Version != "v1" {
		t.Fatalf("failure callback got err=%v lastGood=%+v", failure, lastGood)
	}
	mu.Unlock()

	// A fixed payload at the same broken version token must still be
	// picked up: the cycle after a process error refetches
	// unconditionally.
	fetchesBefore, _ := src.counts()
	src.set("v2", "A=9\n")
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh after fix: %v", err)
	}
	fetchesAfter, _ := src.counts()
	if fetchesAfter != fetchesBefore+1 {
		t.Fatalf("expected one unconditional refetch, fetches %d -> %d", fetchesBefore, fetchesAfter)
	}
	if v, ok := c.Get("A"); !ok || v != 9 {
		t.Fatalf("Get A after fix = %v, %v", v, ok)
	}
}

func TestFetchErrorKeepsServing(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("v1", "A=1\n")
	metrics := &recordingMetrics{}

	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  time.Hour,
		Metrics:   metrics,
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	defer c.Close()

	src.fail(errors.New("upstream down"))
	err = c.Refresh(ctx)
	var cerr *CycleError
	if !errors.As(err, &cerr) || cerr.Stage != StageFetch {
		t.Fatalf("expected fetch-stage CycleError, got %v", err)
	}
	if v, ok := c.Get("A"); !ok || v != 1 {
		t.Fatalf("Get A after fetch error = %v, %v", v, ok)
	}
	if _, _, _, fetchErrs, _ := metrics.snapshot(); fetchErrs != 1 {
		t.Fatalf("fetchErrs = %d", fetchErrs)
	}
}

// ==============================
// Concurrency
// ==============================

func TestAtomicVisibility(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("a", "A=1\n")

	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  time.Hour,
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	var torn atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := c.Snapshot()
				v, _ := snap.Version()
				val := snap.Value()
				switch v {
				case "a":
					if len(val) != 1 || val["A"] != 1 {
						torn.Add(1)
					}
				case "b":
					if len(val) != 1 || val["B"] != 2 {
						torn.Add(1)
					}
				default:
					torn.Add(1)
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			src.set("b", "B=2\n")
		} else {
			src.set("a", "A=1\n")
		}
		if err := c.Refresh(ctx); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}
	close(done)
	wg.Wait()

	if n := torn.Load(); n != 0 {
		t.Fatalf("%d reads observed a snapshot whose version and value did not match", n)
	}
}

// ==============================
// Scheduling and teardown
// ==============================

func TestScheduledRefresh(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("v1", "A=1\n")

	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	defer c.Close()

	src.set("v2", "A=3\n")
	waitFor(t, 2*time.Second, func() bool {
		v, ok := c.Get("A")
		return ok && v == 3
	})
}

func TestFixedDelayPacing(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("v1", "A=1\n")

	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  5 * time.Millisecond,
		Pacing:    PaceFixedDelay,
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	defer c.Close()

	src.set("v2", "A=7\n")
	waitFor(t, 2*time.Second, func() bool {
		v, ok := c.Get("A")
		return ok && v == 7
	})
}

func TestCloseStopsRefresh(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("v1", "A=1\n")

	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    src,
		Processor: intLines(),
		Interval:  5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}

	c.Close()
	fetches, conditionals := src.counts()
	time.Sleep(50 * time.Millisecond)
	f2, c2 := src.counts()
	if f2 != fetches || c2 != conditionals {
		t.Fatalf("refresh continued after Close: %d/%d -> %d/%d", fetches, conditionals, f2, c2)
	}

	if err := c.Refresh(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Refresh after Close = %v, want ErrClosed", err)
	}
	if v, ok := c.Get("A"); !ok || v != 1 {
		t.Fatalf("reads must keep working after Close, Get A = %v, %v", v, ok)
	}
	c.Close() // idempotent
}

// ==============================
// Views
// ==============================

func TestSetView(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource("v1", "alice\nbob\n# staff below\ncarol\n")

	s, err := NewSet(ctx, Options[map[string]struct{}]{
		Source:    src,
		Processor: processor.LineSet[string]{Parse: processor.Words()},
		Interval:  time.Hour,
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	defer s.Close()

	if !s.Contains("alice") || !s.Contains("carol") {
		t.Fatal("expected members missing")
	}
	if s.Contains("mallory") {
		t.Fatal("unexpected member")
	}
	if s.Len() != 3 || s.IsEmpty() {
		t.Fatalf("Len = %d", s.Len())
	}
}

func TestReadBeforeInitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on read from an uninitialized holder")
		}
	}()
	h := &holder[int]{}
	h.mustLoad()
}

// ==============================
// End to end against a real file
// ==============================

func TestEndToEndFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "my.config")
	if err := os.WriteFile(path, []byte("A=1\nB=2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var updates atomic.Int32
	var mu sync.Mutex
	var previous map[string]int
	c, err := NewMap(ctx, Options[map[string]int]{
		Source:    source.File{Path: path},
		Processor: intLines(),
		Interval:  20 * time.Millisecond,
		OnUpdate: func(prev *Snapshot[map[string]int], _ string, _ map[string]int) {
			updates.Add(1)
			if prev != nil {
				mu.Lock()
				previous = prev.Value()
				mu.Unlock()
			}
		},
	})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	defer c.Close()

	if v, ok := c.Get("A"); !ok || v != 1 {
		t.Fatalf("Get A = %v, %v", v, ok)
	}

	if err := os.WriteFile(path, []byte("A=3\n#comment\nC=5\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	// Force the mtime forward so coarse filesystem timestamps cannot hide
	// the change.
	bump := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, bump, bump); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		v, ok := c.Get("A")
		return ok && v == 3
	})

	if v, ok := c.Get("C"); !ok || v != 5 {
		t.Fatalf("Get C = %v, %v", v, ok)
	}
	if _, ok := c.Get("B"); ok {
		t.Fatal("B must be gone after wholesale replacement")
	}
	if n := updates.Load(); n != 2 {
		t.Fatalf("update callback fired %d times, want 2", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(previous) != 2 || previous["A"] != 1 || previous["B"] != 2 {
		t.Fatalf("previous dataset = %v", previous)
	}
}
