package processor

import "encoding/json"

// JSON decodes the payload as a JSON document into V.
type JSON[V any] struct{}

func (JSON[V]) Process(raw []byte) (V, error) {
	var v V
	err := json.Unmarshal(raw, &v)
	return v, err
}
