package mirrorcache

import (
	"errors"
	"fmt"
)

// Stages of a refresh cycle that can fail.
const (
	StageFetch   = "fetch"
	StageProcess = "process"
)

// ErrInitialLoad marks a failed construction: the first fetch (or its
// processing) failed and no fallback was configured.
var ErrInitialLoad = errors.New("mirrorcache: initial load failed")

// ErrClosed is returned by Refresh on a closed cache.
var ErrClosed = errors.New("mirrorcache: cache closed")

// CycleError describes a failed refresh cycle: which stage broke and which
// source was being refreshed. The served snapshot is never touched by a
// failing cycle.
type CycleError struct {
	Stage  string // StageFetch or StageProcess
	Source string
	Err    error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("mirrorcache: %s from %s failed: %v", e.Stage, e.Source, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }
