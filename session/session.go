// Package session implements the per-connection handshake/heartbeat state
// machine driven by inbound packets.
//
// Grounded on the source's Client (gate/src/client/socket_client.rs): an
// atomic state, a one-slot heartbeat-received channel, and a watchdog task
// with a 2x-heartbeat-interval deadline. The source's second Handshake/
// HandshakeAck echo variant is not used here; on receiving HandshakeAck the
// session simply advances to ready without replying, matching the simpler of
// the source's two variants.
package session

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tcpgate/message"
	"tcpgate/middleware"
	"tcpgate/protocol"
	"tcpgate/transport"
)

// State values for Session.state.
const (
	WaitForHandshake uint32 = iota
	WaitForHandshakeAck
	Ready
)

// DefaultHeartbeatInterval is the interval advertised to clients in the
// Handshake reply, and the base unit for the watchdog deadline (2x this).
const DefaultHeartbeatInterval = 20 * time.Second

// DataHandler processes a decoded Data message for a ready session and
// returns the Response to send back for a Request (ignored for
// Notify/Push). It shares its signature with middleware.HandlerFunc, so the
// same app.Container-assembled middleware.Chain that wraps dispatch.Dispatcher
// plugs in here unchanged. It is invoked synchronously from ReceiveMsg;
// callers that need to do real work should hand off to their own goroutine
// or worker pool.
type DataHandler = middleware.HandlerFunc

// Session is the per-connection handshake/heartbeat state machine. It
// satisfies registry.Session.
type Session struct {
	id                uint64
	socket            *transport.SocketHandle
	state             atomic.Uint32
	heartbeatInterval time.Duration
	heartbeatRecv     chan struct{}
	onData            DataHandler
	onClose           func(id uint64)
	closeOnce         sync.Once
	log               *zap.Logger
}

// New creates a Session bound to socket and starts its heartbeat watchdog.
// onData is called for decoded Data messages once the session is ready; on
// success its returned Message is framed and sent back as the Response to a
// Request (the return value is ignored for Notify/Push). An error from
// onData is logged and produces no response frame at all, leaving the caller
// of a Request to time out rather than receive a malformed reply.
// onClose is called exactly once, by NotifyClosed, to trigger registry
// removal and any other cleanup. heartbeatInterval of 0 uses the default.
func New(socket *transport.SocketHandle, heartbeatInterval time.Duration, onData DataHandler, onClose func(uint64), log *zap.Logger) *Session {
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	s := &Session{
		id:                socket.ID(),
		socket:            socket,
		heartbeatInterval: heartbeatInterval,
		heartbeatRecv:     make(chan struct{}, 1),
		onData:            onData,
		onClose:           onClose,
		log:               log,
	}
	go s.watchdog()
	return s
}

// ID returns the session's transport id.
func (s *Session) ID() uint64 { return s.id }

// State returns the current handshake/ready state.
func (s *Session) State() uint32 { return s.state.Load() }

// Done returns a channel closed once the underlying connection is finished.
func (s *Session) Done() <-chan struct{} { return s.socket.Done() }

// ReceiveMsg decodes a complete packet frame and drives the state machine.
// Unknown packet types are already rejected by protocol.Decode; a frame that
// fails to decode is dropped and logged, never panics the reader task.
func (s *Session) ReceiveMsg(frame []byte) {
	pt, payload, err := protocol.Decode(frame)
	if err != nil {
		s.logErr("decode packet failed, dropping frame", err)
		return
	}
	switch pt {
	case protocol.Handshake:
		s.handleHandshake()
	case protocol.HandshakeAck:
		s.handleHandshakeAck()
	case protocol.Heartbeat:
		s.handleHeartbeat()
	case protocol.Data:
		s.handleData(payload)
	case protocol.Kick, protocol.Error:
		s.socket.Close()
	}
}

func (s *Session) handleHandshake() {
	if !s.state.CompareAndSwap(WaitForHandshake, WaitForHandshakeAck) {
		return
	}
	seconds := uint8(s.heartbeatInterval / time.Second)
	var buf bytes.Buffer
	if err := protocol.Encode(&buf, protocol.Handshake, []byte{seconds}); err != nil {
		s.logErr("encode handshake reply failed", err)
		return
	}
	if err := s.socket.Send(context.Background(), buf.Bytes()); err != nil {
		s.logErr("send handshake reply failed", err)
	}
}

func (s *Session) handleHandshakeAck() {
	s.state.CompareAndSwap(WaitForHandshakeAck, Ready)
}

func (s *Session) handleHeartbeat() {
	select {
	case s.heartbeatRecv <- struct{}{}:
	default:
	}
	var buf bytes.Buffer
	if err := protocol.Encode(&buf, protocol.Heartbeat, nil); err != nil {
		s.logErr("encode heartbeat reply failed", err)
		return
	}
	if err := s.socket.Send(context.Background(), buf.Bytes()); err != nil {
		s.logErr("send heartbeat reply failed", err)
	}
}

func (s *Session) handleData(payload []byte) {
	if s.state.Load() != Ready {
		return
	}
	msg, err := message.Decode(payload)
	if err != nil {
		s.logErr("decode message failed, dropping", err)
		return
	}
	if s.onData == nil {
		return
	}
	resp, err := s.onData(context.Background(), s.id, msg)
	if err != nil {
		s.logErr("handling data message failed", err)
		return
	}
	if msg.Type != message.Request {
		return
	}
	body, err := message.Encode(resp)
	if err != nil {
		s.logErr("encode response message failed", err)
		return
	}
	var buf bytes.Buffer
	if err := protocol.Encode(&buf, protocol.Data, body); err != nil {
		s.logErr("encode data packet failed", err)
		return
	}
	if err := s.socket.Send(context.Background(), buf.Bytes()); err != nil {
		s.logErr("send response failed", err)
	}
}

// watchdog fires Close on the socket if no heartbeat arrives within
// 2 x heartbeatInterval. It exits once the connection closes for any reason.
func (s *Session) watchdog() {
	deadline := 2 * s.heartbeatInterval
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for {
		select {
		case <-s.heartbeatRecv:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(deadline)
		case <-timer.C:
			s.socket.Close()
			return
		case <-s.socket.Done():
			return
		}
	}
}

// NotifyClosed must be called exactly once by the reader task that owns this
// session's connection, after its read loop exits for any reason (EOF, peer
// reset, framer error, watchdog close, or Kick). It is safe to call more than
// once; only the first call runs onClose.
func (s *Session) NotifyClosed() {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose(s.id)
		}
	})
}

func (s *Session) logErr(msg string, err error) {
	if s.log == nil {
		return
	}
	s.log.Error(msg, zap.Uint64("conn_id", s.id), zap.Error(err))
}
