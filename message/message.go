// Package message defines the application-level structure carried inside a
// Data packet, and its wire codec.
//
// Framing varies by MsgType:
//
//	Request : type(1) | id(1) | protocol_id(2) | payload
//	Response: type(1) | id(1)                   | payload
//	Notify  : type(1)        | protocol_id(2)    | payload
//	Push    : type(1)        | protocol_id(2)    | payload
//
// Fields not carried by a given MsgType decode to zero: Notify/Push always
// decode with id=0, Response always decodes with protocol_id=0.
package message

import (
	"encoding/binary"
	"errors"
)

// MsgType identifies the shape of a Message.
type MsgType byte

const (
	Request MsgType = iota
	Response
	Notify
	Push
)

// ErrUnknownMessageType is returned by Decode when the type byte does not
// match any known MsgType.
var ErrUnknownMessageType = errors.New("message: unknown message type")

// ErrTruncated is returned by Decode when data is shorter than the fields
// required by its MsgType.
var ErrTruncated = errors.New("message: truncated message")

func (t MsgType) String() string {
	switch t {
	case Request:
		return "Request"
	case Response:
		return "Response"
	case Notify:
		return "Notify"
	case Push:
		return "Push"
	default:
		return "Unknown"
	}
}

// Message is the application-level envelope carried inside a Data packet.
type Message struct {
	Type       MsgType
	ProtocolID uint16
	ID         uint8
	Payload    []byte
}

func hasID(t MsgType) bool {
	return t == Request || t == Response
}

func hasProtocolID(t MsgType) bool {
	return t == Request || t == Notify || t == Push
}

func validType(t MsgType) bool {
	return t >= Request && t <= Push
}

// Encode serializes m per the wire layout for m.Type.
func Encode(m Message) ([]byte, error) {
	if !validType(m.Type) {
		return nil, ErrUnknownMessageType
	}
	size := 1
	if hasID(m.Type) {
		size++
	}
	if hasProtocolID(m.Type) {
		size += 2
	}
	size += len(m.Payload)

	buf := make([]byte, size)
	buf[0] = byte(m.Type)
	offset := 1
	if hasID(m.Type) {
		buf[offset] = m.ID
		offset++
	}
	if hasProtocolID(m.Type) {
		binary.BigEndian.PutUint16(buf[offset:], m.ProtocolID)
		offset += 2
	}
	copy(buf[offset:], m.Payload)
	return buf, nil
}

// Decode deserializes data into a Message. Fields not carried by the decoded
// MsgType are zero-filled (see package doc).
func Decode(data []byte) (Message, error) {
	if len(data) < 1 {
		return Message{}, ErrUnknownMessageType
	}
	t := MsgType(data[0])
	if !validType(t) {
		return Message{}, ErrUnknownMessageType
	}
	offset := 1
	m := Message{Type: t}
	if hasID(t) {
		if len(data) < offset+1 {
			return Message{}, ErrTruncated
		}
		m.ID = data[offset]
		offset++
	}
	if hasProtocolID(t) {
		if len(data) < offset+2 {
			return Message{}, ErrTruncated
		}
		m.ProtocolID = binary.BigEndian.Uint16(data[offset:])
		offset += 2
	}
	m.Payload = data[offset:]
	return m, nil
}
