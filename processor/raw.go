package processor

// Bytes is an identity processor for []byte datasets. The returned slice
// is a copy, so later payload reuse by a source cannot mutate a served
// snapshot.
type Bytes struct{}

func (Bytes) Process(raw []byte) ([]byte, error) {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// Text is a trivial processor for string datasets. By convention this
// assumes UTF-8 and performs no validation.
type Text struct{}

func (Text) Process(raw []byte) (string, error) { return string(raw), nil }
