package source

import (
	"context"
	"strconv"
	"sync"
)

// Static serves an in-memory payload. Update replaces the payload and
// bumps the version, so a cache mirroring it picks the change up on its
// next cycle. Intended for tests and for datasets produced in-process.
type Static struct {
	mu      sync.Mutex
	seq     uint64
	payload []byte
}

var _ Source = (*Static)(nil)

func NewStatic(payload []byte) *Static {
	return &Static{seq: 1, payload: payload}
}

// Update replaces the payload and bumps the version token.
func (s *Static) Update(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.payload = payload
}

func (s *Static) Fetch(context.Context) (string, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token(), s.copy(), nil
}

func (s *Static) FetchIfNewer(_ context.Context, version string) (string, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token() == version {
		return "", nil, false, nil
	}
	return s.token(), s.copy(), true, nil
}

func (s *Static) token() string { return "v" + strconv.FormatUint(s.seq, 10) }

func (s *Static) copy() []byte {
	out := make([]byte, len(s.payload))
	copy(out, s.payload)
	return out
}

func (s *Static) String() string { return "static" }
