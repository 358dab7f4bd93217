package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		pt      PacketType
		payload []byte
	}{
		{"data with body", Data, []byte("hi")},
		{"empty heartbeat", Heartbeat, nil},
		{"handshake payload", Handshake, []byte{0x14}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, c.pt, c.payload); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			gotType, gotBody, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if gotType != c.pt {
				t.Errorf("type mismatch: got %v, want %v", gotType, c.pt)
			}
			if !bytes.Equal(gotBody, c.payload) {
				t.Errorf("payload mismatch: got %v, want %v", gotBody, c.payload)
			}
		})
	}
}

func TestEncodeWireExact(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Handshake, []byte{0x14}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x01, 0x14}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("wire mismatch: got %x, want %x", buf.Bytes(), want)
	}
}

func TestEncodeEmptyHandshake(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Handshake, nil); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("wire mismatch: got %x, want %x", buf.Bytes(), want)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	frame := []byte{0xff, 0x00, 0x00, 0x00}
	if _, _, err := Decode(frame); err != ErrUnknownPacketType {
		t.Errorf("expected ErrUnknownPacketType, got %v", err)
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	big := make([]byte, MaxPayloadLen+1)
	var buf bytes.Buffer
	if err := Encode(&buf, Data, big); err != ErrPayloadTooLarge {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestZeroLengthPayloadValid(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Heartbeat, []byte{}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if buf.Len() != HeaderSize {
		t.Errorf("expected %d bytes, got %d", HeaderSize, buf.Len())
	}
}
