package app

import (
	"bytes"
	"encoding/json"
	"net"
	"testing"
	"time"

	"tcpgate/dispatch"
	"tcpgate/message"
	"tcpgate/protocol"
	"tcpgate/transport"
)

type echoArgs struct {
	Text string `json:"text"`
}

type echoReply struct {
	Text string `json:"text"`
}

type echoHandler struct{}

func (echoHandler) Handle(args *echoArgs, reply *echoReply) error {
	reply.Text = args.Text
	return nil
}

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	c := New(Config{ServerID: 1, HeartbeatInterval: time.Second}, nil)
	if err := dispatch.Register(c.dispatcher, 7, &echoHandler{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return c
}

func readN(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	total := 0
	for total < n {
		k, err := conn.Read(buf[total:])
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		total += k
	}
	return buf
}

// TestNewSessionRoutesDataThroughDispatcher checks that a session built by
// Container.newSession, once handshaken, runs a Data Request all the way
// through the middleware chain into the registered handler and back.
func TestNewSessionRoutesDataThroughDispatcher(t *testing.T) {
	c := newTestContainer(t)

	client, server := net.Pipe()
	defer client.Close()
	socket := transport.NewSocketHandle(server, nil)
	sess := c.newSession(socket)

	var hs bytes.Buffer
	protocol.Encode(&hs, protocol.Handshake, nil)
	sess.ReceiveMsg(hs.Bytes())
	readN(t, client, 5) // handshake reply

	var ack bytes.Buffer
	protocol.Encode(&ack, protocol.HandshakeAck, nil)
	sess.ReceiveMsg(ack.Bytes())

	payload, _ := json.Marshal(echoArgs{Text: "hi"})
	enc, err := message.Encode(message.Message{Type: message.Request, ProtocolID: 7, ID: 5, Payload: payload})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var data bytes.Buffer
	protocol.Encode(&data, protocol.Data, enc)
	sess.ReceiveMsg(data.Bytes())

	header := readN(t, client, protocol.HeaderSize)
	payloadLen := int(header[1])<<16 | int(header[2])<<8 | int(header[3])
	respPayload := readN(t, client, payloadLen)

	resp, err := message.Decode(respPayload)
	if err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.Type != message.Response || resp.ID != 5 {
		t.Fatalf("unexpected response envelope: %+v", resp)
	}
	var reply echoReply
	if err := json.Unmarshal(resp.Payload, &reply); err != nil {
		t.Fatalf("unmarshal reply failed: %v", err)
	}
	if reply.Text != "hi" {
		t.Fatalf("expected echoed text, got %q", reply.Text)
	}
}

// TestWrapSessionFactoryRegisters checks that a session built through the
// gateway.SessionFactory closure is reachable from the registry by id.
func TestWrapSessionFactoryRegisters(t *testing.T) {
	c := newTestContainer(t)
	factory := c.wrapSessionFactory()

	client, server := net.Pipe()
	defer client.Close()
	socket := transport.NewSocketHandle(server, nil)
	sess := factory(socket)

	got, ok := c.registry.Get(sess.ID())
	if !ok {
		t.Fatal("expected session to be registered")
	}
	if got != sess {
		t.Fatal("expected the registered session to be the one the factory returned")
	}
}
