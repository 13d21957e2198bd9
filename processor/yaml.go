package processor

import "gopkg.in/yaml.v3"

// YAML decodes the payload as a YAML document into V. The common case for
// mirrored config files.
type YAML[V any] struct{}

func (YAML[V]) Process(raw []byte) (V, error) {
	var v V
	err := yaml.Unmarshal(raw, &v)
	return v, err
}
