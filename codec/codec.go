// Package codec provides the pluggable serialization strategy for a Data
// message's args/reply payload.
//
// Grounded on the teacher's codec package: a small Codec interface
// (Encode/Decode/Type) with a factory keyed by a 1-byte CodecType, so a new
// format can be added without touching any other layer. The teacher's
// BinaryCodec hand-rolled a layout specific to RPCMessage's three fixed
// fields (ServiceMethod/Payload/Error); dispatch's args/reply are arbitrary
// application structs with no such fixed shape, and the gateway's own wire
// envelope already has its own fixed-layout codec (message.Encode/Decode),
// so only the generic JSONCodec carries over here.
package codec

// CodecType identifies the serialization format.
type CodecType byte

const (
	// CodecTypeJSON selects JSONCodec.
	CodecTypeJSON CodecType = iota
)

// Codec serializes and deserializes a handler's args/reply values.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType
}

// GetCodec returns the Codec for codecType. Unrecognized types fall back to
// JSONCodec, the only format this gateway ships.
func GetCodec(codecType CodecType) Codec {
	return &JSONCodec{}
}
