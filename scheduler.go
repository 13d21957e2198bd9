package mirrorcache

import (
	"sync"
	"time"
)

// Pacing selects how the background driver spaces refresh cycles.
type Pacing int

const (
	// PaceFixedRate ticks every interval regardless of how long cycles
	// take. Cycles never overlap: a cycle that outlives the interval
	// absorbs the next tick instead of running concurrently with it.
	PaceFixedRate Pacing = iota
	// PaceFixedDelay waits interval after each cycle finishes before
	// starting the next one.
	PaceFixedDelay
)

// scheduler drives the refresh loop on its own goroutine. Exactly one
// cycle runs at a time; stop halts future cycles and waits for an
// in-flight one to finish.
type scheduler interface {
	stop()
}

type tickerScheduler struct {
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

func startTicker(interval time.Duration, cycle func()) *tickerScheduler {
	s := &tickerScheduler{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ticker.C:
				cycle()
			case <-s.done:
				return
			}
		}
	}()
	return s
}

func (s *tickerScheduler) stop() {
	s.ticker.Stop()
	close(s.done)
	s.wg.Wait()
}

type timerScheduler struct {
	done chan struct{}
	wg   sync.WaitGroup
}

func startTimer(interval time.Duration, cycle func()) *timerScheduler {
	s := &timerScheduler{done: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTimer(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				cycle()
				t.Reset(interval)
			case <-s.done:
				return
			}
		}
	}()
	return s
}

func (s *timerScheduler) stop() {
	close(s.done)
	s.wg.Wait()
}
