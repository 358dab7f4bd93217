// Package client implements a reference TCP client for the gateway: the
// handshake/heartbeat/Data exchange a real client must drive, multiplexing
// concurrent Requests over one connection. It exists for load generation and
// end-to-end testing, not as part of the gateway's own runtime surface.
//
// Grounded on the teacher's ClientTransport (transport/client_transport.go):
// a background recvLoop continuously reads frames and routes each response
// to the caller waiting on it via a pending map keyed by the request's id, a
// sending mutex serializes writes so concurrent Requests don't interleave
// frames, and a ticker-driven heartbeatLoop keeps the connection alive. The
// teacher's pending map is keyed by a uint32 sequence number assigned per
// connection; this narrows to the wire format's 1-byte request id, wrapping
// modulo 256, and multiplexes at most 256 requests in flight per connection
// at once.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"tcpgate/framer"
	"tcpgate/message"
	"tcpgate/protocol"
)

// ErrConnClosed is returned by Request and Notify once the connection's
// recvLoop has exited.
var ErrConnClosed = errors.New("client: connection closed")

// Conn is one multiplexed connection to the gateway.
type Conn struct {
	conn    net.Conn
	sending sync.Mutex

	mu      sync.Mutex
	nextID  uint8
	pending map[uint8]chan message.Message

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to addr, performs the Handshake/HandshakeAck exchange, and
// starts the background recvLoop and heartbeat loop. The heartbeat interval
// is the seconds value the server's Handshake reply advertises; Dial reads
// that reply itself and uses it (1s if the reply carries no payload).
func Dial(addr string) (*Conn, error) {
	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c := &Conn{
		conn:    netConn,
		pending: make(map[uint8]chan message.Message),
		closed:  make(chan struct{}),
	}

	if err := c.handshake(); err != nil {
		netConn.Close()
		return nil, err
	}

	go c.recvLoop()
	return c, nil
}

func (c *Conn) handshake() error {
	var hs bytes.Buffer
	if err := protocol.Encode(&hs, protocol.Handshake, nil); err != nil {
		return err
	}
	if _, err := c.conn.Write(hs.Bytes()); err != nil {
		return err
	}

	header := make([]byte, protocol.HeaderSize)
	if _, err := readFull(c.conn, header); err != nil {
		return fmt.Errorf("client: handshake reply read failed: %w", err)
	}
	payloadLen := int(header[1])<<16 | int(header[2])<<8 | int(header[3])
	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := readFull(c.conn, payload); err != nil {
			return fmt.Errorf("client: handshake reply payload read failed: %w", err)
		}
	}
	pt, _, err := protocol.Decode(append(header, payload...))
	if err != nil {
		return err
	}
	if pt != protocol.Handshake {
		return fmt.Errorf("client: expected Handshake reply, got %s", pt)
	}
	interval := time.Second
	if len(payload) > 0 {
		interval = time.Duration(payload[0]) * time.Second
	}

	var ack bytes.Buffer
	if err := protocol.Encode(&ack, protocol.HandshakeAck, nil); err != nil {
		return err
	}
	if _, err := c.conn.Write(ack.Bytes()); err != nil {
		return err
	}

	go c.heartbeatLoop(interval)
	return nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Request sends a Request message carrying protocolID and payload under the
// next request id, and blocks until the matching
// Response arrives, ctx is cancelled, or the connection closes.
func (c *Conn) Request(ctx context.Context, protocolID uint16, payload []byte) (message.Message, error) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	respCh := make(chan message.Message, 1)
	c.pending[id] = respCh
	c.mu.Unlock()

	req := message.Message{Type: message.Request, ProtocolID: protocolID, ID: id, Payload: payload}
	if err := c.send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return message.Message{}, err
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return message.Message{}, ctx.Err()
	case <-c.closed:
		return message.Message{}, ErrConnClosed
	}
}

// Notify sends a fire-and-forget message; no response is expected.
func (c *Conn) Notify(protocolID uint16, payload []byte) error {
	return c.send(message.Message{Type: message.Notify, ProtocolID: protocolID, Payload: payload})
}

func (c *Conn) send(msg message.Message) error {
	body, err := message.Encode(msg)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := protocol.Encode(&buf, protocol.Data, body); err != nil {
		return err
	}

	c.sending.Lock()
	defer c.sending.Unlock()
	_, err = c.conn.Write(buf.Bytes())
	return err
}

// recvLoop reads frames through the framer, routing Response messages to
// their waiting Request caller by id and discarding anything else (Push
// messages have no caller to notify and are dropped; a real load-test
// client would expose a PushHandler here).
func (c *Conn) recvLoop() {
	defer c.teardown()

	extractor := framer.New()
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			frames, ferr := extractor.Process(buf[:n])
			for _, frame := range frames {
				c.handleFrame(frame)
			}
			if ferr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *Conn) handleFrame(frame []byte) {
	pt, payload, err := protocol.Decode(frame)
	if err != nil {
		return
	}
	if pt != protocol.Data {
		return
	}
	msg, err := message.Decode(payload)
	if err != nil {
		return
	}
	if msg.Type != message.Response {
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[msg.ID]
	if ok {
		delete(c.pending, msg.ID)
	}
	c.mu.Unlock()
	if ok {
		ch <- msg
	}
}

func (c *Conn) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			var buf bytes.Buffer
			if err := protocol.Encode(&buf, protocol.Heartbeat, nil); err != nil {
				return
			}
			c.sending.Lock()
			_, err := c.conn.Write(buf.Bytes())
			c.sending.Unlock()
			if err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// teardown marks the connection closed exactly once, unblocking every
// Request still waiting in its select on c.closed. Pending channels are
// intentionally left unclosed (not sent to, not closed): the waiting
// Request always wakes via c.closed instead, so there is no race between a
// zero-value receive on a closed channel and the close signal.
func (c *Conn) teardown() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		c.pending = make(map[uint8]chan message.Message)
		c.mu.Unlock()
	})
}

// Close closes the underlying connection and unblocks any pending Request.
func (c *Conn) Close() error {
	c.teardown()
	return c.conn.Close()
}
