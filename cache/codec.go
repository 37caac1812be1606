package cache

import "github.com/vmihailenco/msgpack/v5"

// Codec turns values into the bytes handed to a Store.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// MsgpackCodec encodes with msgpack. Decimal amounts go through their BinaryMarshaler.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
