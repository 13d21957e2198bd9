package mirrorcache

// MapCache is the read-only map view over a cache whose dataset is a map.
// Every operation reads from the snapshot current at call time.
type MapCache[K comparable, V any] struct {
	*Cache[map[K]V]
}

// Get returns the value for key in the current snapshot.
func (m *MapCache[K, V]) Get(key K) (V, bool) {
	v, ok := m.Value()[key]
	return v, ok
}

func (m *MapCache[K, V]) Len() int      { return len(m.Value()) }
func (m *MapCache[K, V]) IsEmpty() bool { return m.Len() == 0 }

// SetCache is the read-only set view over a cache whose dataset is a
// map[T]struct{}.
type SetCache[T comparable] struct {
	*Cache[map[T]struct{}]
}

// Contains reports whether v is in the current snapshot.
func (s *SetCache[T]) Contains(v T) bool {
	_, ok := s.Value()[v]
	return ok
}

func (s *SetCache[T]) Len() int      { return len(s.Value()) }
func (s *SetCache[T]) IsEmpty() bool { return s.Len() == 0 }
