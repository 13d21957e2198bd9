package processor

import "github.com/vmihailenco/msgpack/v5"

// Msgpack decodes the payload using vmihailenco/msgpack/v5. The zero
// value is ready to use.
//
// Be mindful of struct tag differences vs JSON; use `msgpack:"fieldName"`
// tags for explicit control.
type Msgpack[V any] struct{}

func (Msgpack[V]) Process(raw []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(raw, &v)
	return v, err
}
