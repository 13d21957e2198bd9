package processor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// LineMapFunc parses one line into a key/value pair. Return keep=false to
// skip the line (comments, blanks).
type LineMapFunc[K comparable, V any] func(line string) (key K, value V, keep bool, err error)

// LineMap builds a map dataset from a line-oriented payload. A later line
// with the same key overwrites an earlier one.
type LineMap[K comparable, V any] struct {
	Parse LineMapFunc[K, V]
}

func (p LineMap[K, V]) Process(raw []byte) (map[K]V, error) {
	if p.Parse == nil {
		return nil, errors.New("processor: LineMap.Parse is nil")
	}
	m := make(map[K]V)
	sc := bufio.NewScanner(bytes.NewReader(raw))
	ln := 0
	for sc.Scan() {
		ln++
		k, v, keep, err := p.Parse(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("processor: line %d: %w", ln, err)
		}
		if !keep {
			continue
		}
		m[k] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("processor: scan: %w", err)
	}
	return m, nil
}

// LineSetFunc parses one line into a set member. Return keep=false to
// skip the line.
type LineSetFunc[T comparable] func(line string) (member T, keep bool, err error)

// LineSet builds a set dataset (map[T]struct{}) from a line-oriented
// payload.
type LineSet[T comparable] struct {
	Parse LineSetFunc[T]
}

func (p LineSet[T]) Process(raw []byte) (map[T]struct{}, error) {
	if p.Parse == nil {
		return nil, errors.New("processor: LineSet.Parse is nil")
	}
	set := make(map[T]struct{})
	sc := bufio.NewScanner(bytes.NewReader(raw))
	ln := 0
	for sc.Scan() {
		ln++
		m, keep, err := p.Parse(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("processor: line %d: %w", ln, err)
		}
		if !keep {
			continue
		}
		set[m] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("processor: scan: %w", err)
	}
	return set, nil
}

// KeyValues returns a LineMapFunc for "key<sep>value" lines. Blank lines
// and lines starting with '#' are skipped; keys and values are trimmed.
func KeyValues(sep string) LineMapFunc[string, string] {
	return func(line string) (string, string, bool, error) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return "", "", false, nil
		}
		k, v, ok := strings.Cut(trimmed, sep)
		if !ok {
			return "", "", false, fmt.Errorf("no %q in %q", sep, line)
		}
		return strings.TrimSpace(k), strings.TrimSpace(v), true, nil
	}
}

// Words returns a LineSetFunc keeping every non-blank, non-comment line
// as-is (trimmed).
func Words() LineSetFunc[string] {
	return func(line string) (string, bool, error) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return "", false, nil
		}
		return trimmed, true, nil
	}
}
