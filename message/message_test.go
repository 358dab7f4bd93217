package message

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRequestVector(t *testing.T) {
	m := Message{Type: Request, ProtocolID: 1234, ID: 5, Payload: []byte("Hello, world!")}
	buf, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := append([]byte{0x00, 0x05, 0x04, 0xD2}, []byte("Hello, world!")...)
	if !bytes.Equal(buf, want) {
		t.Fatalf("wire mismatch: got %x, want %x", buf, want)
	}
	if len(buf) != 17 {
		t.Errorf("expected length 17, got %d", len(buf))
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Type != Request || got.ProtocolID != 1234 || got.ID != 5 || !bytes.Equal(got.Payload, m.Payload) {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestEncodeDecodeResponse(t *testing.T) {
	m := Message{Type: Response, ProtocolID: 5678, ID: 9, Payload: []byte("X")}
	buf, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(buf) != 3 {
		t.Errorf("expected length 3, got %d", len(buf))
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.ProtocolID != 0 {
		t.Errorf("expected zero-filled ProtocolID, got %d", got.ProtocolID)
	}
	if got.ID != 9 {
		t.Errorf("expected ID 9, got %d", got.ID)
	}
}

func TestZeroFillContract(t *testing.T) {
	cases := []struct {
		name     string
		in       Message
		wantID   uint8
		wantProt uint16
	}{
		{"notify zero id", Message{Type: Notify, ProtocolID: 42, Payload: []byte("a")}, 0, 42},
		{"push zero id", Message{Type: Push, ProtocolID: 7, Payload: []byte("b")}, 0, 7},
		{"response zero protocol id", Message{Type: Response, ID: 3, Payload: []byte("c")}, 3, 0},
		{"request carries both", Message{Type: Request, ProtocolID: 9, ID: 1, Payload: []byte("d")}, 1, 9},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buf, err := Encode(c.in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := Decode(buf)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got.ID != c.wantID {
				t.Errorf("id: got %d, want %d", got.ID, c.wantID)
			}
			if got.ProtocolID != c.wantProt {
				t.Errorf("protocol_id: got %d, want %d", got.ProtocolID, c.wantProt)
			}
			if !bytes.Equal(got.Payload, c.in.Payload) {
				t.Errorf("payload: got %v, want %v", got.Payload, c.in.Payload)
			}
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, err := Decode([]byte{0xff}); err != ErrUnknownMessageType {
		t.Errorf("expected ErrUnknownMessageType, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := Decode([]byte{byte(Request)}); err != ErrTruncated {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestEncodeUnknownType(t *testing.T) {
	if _, err := Encode(Message{Type: MsgType(99)}); err != ErrUnknownMessageType {
		t.Errorf("expected ErrUnknownMessageType, got %v", err)
	}
}
