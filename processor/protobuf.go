package processor

import "google.golang.org/protobuf/proto"

// Protobuf decodes the payload into a concrete proto message.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *mypb.Flags { return &mypb.Flags{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (p Protobuf[T]) Process(raw []byte) (T, error) {
	m := p.new()
	err := proto.Unmarshal(raw, m)
	return m, err
}
