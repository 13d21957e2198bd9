package processor

import "github.com/fxamacker/cbor/v2"

// CBOR decodes the payload using fxamacker/cbor. The zero value is NOT
// ready to use; construct with NewCBOR or MustCBOR.
type CBOR[V any] struct {
	dec cbor.DecMode
}

var _ Processor[struct{}] = CBOR[struct{}]{}

// NewCBOR constructs a CBOR processor with the given decode options.
// Pass the zero cbor.DecOptions for sensible defaults.
func NewCBOR[V any](opts cbor.DecOptions) (CBOR[V], error) {
	dm, err := opts.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error. Handy for package-level
// variables in tests and examples; avoid in production setup paths.
func MustCBOR[V any](opts cbor.DecOptions) CBOR[V] {
	c, err := NewCBOR[V](opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Process(raw []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(raw, &v)
	return v, err
}
