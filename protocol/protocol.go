// Package protocol implements the gateway's framed packet codec.
//
// Each frame on the wire is a 4-byte header followed by a payload:
//
//	0      1              4
//	┌──────┬──────────────┬───────────────┐
//	│ type │ length (u24) │ payload ...   │
//	└──────┴──────────────┴───────────────┘
//
// length is the payload size in bytes, big-endian, not including the header.
// The framer (see package framer) is responsible for delivering exactly one
// complete frame's bytes to Decode; Decode does not re-validate length.
package protocol

import (
	"errors"
	"io"
)

// HeaderSize is the fixed header length: 1 byte type + 3 bytes length.
const HeaderSize = 4

// MaxPayloadLen is the largest payload a 24-bit length field can express.
const MaxPayloadLen = 1<<24 - 1

// PacketType identifies the kind of frame carried on the wire.
type PacketType byte

const (
	Handshake PacketType = iota
	HandshakeAck
	Heartbeat
	Data
	Kick
	Error
)

// ErrUnknownPacketType is returned by Decode when the header's type byte does
// not match any known PacketType.
var ErrUnknownPacketType = errors.New("protocol: unknown packet type")

// ErrPayloadTooLarge is returned by Encode when the payload exceeds MaxPayloadLen.
var ErrPayloadTooLarge = errors.New("protocol: payload exceeds max frame size")

func (t PacketType) String() string {
	switch t {
	case Handshake:
		return "Handshake"
	case HandshakeAck:
		return "HandshakeAck"
	case Heartbeat:
		return "Heartbeat"
	case Data:
		return "Data"
	case Kick:
		return "Kick"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

func validType(t PacketType) bool {
	return t >= Handshake && t <= Error
}

// Encode writes a complete frame (header + payload) to w.
func Encode(w io.Writer, t PacketType, payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = byte(t)
	length := len(payload)
	buf[1] = byte(length >> 16)
	buf[2] = byte(length >> 8)
	buf[3] = byte(length)
	copy(buf[HeaderSize:], payload)

	_, err := w.Write(buf)
	return err
}

// Decode interprets frame as a complete header+payload byte blob, as produced
// by the framer. It trusts the caller has already delimited exactly one frame;
// it does not re-check the declared length against len(frame).
func Decode(frame []byte) (PacketType, []byte, error) {
	if len(frame) < HeaderSize {
		return 0, nil, io.ErrUnexpectedEOF
	}
	t := PacketType(frame[0])
	if !validType(t) {
		return 0, nil, ErrUnknownPacketType
	}
	return t, frame[HeaderSize:], nil
}
