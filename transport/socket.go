// Package transport implements the per-connection write actor and the cheap,
// cloneable SocketHandle that fronts it.
//
// Grounded on the source's TcpWriteActor/SocketHandle (orion/src/net/tcp/
// tcp_actors.rs): a single writer goroutine owns the socket's write half and
// drains a bounded mailbox of Send/Close messages in FIFO order. The source's
// tokio_util::sync::CancellationToken is replaced by a context.Context/
// CancelFunc pair, which is the idiomatic Go analogue for a one-shot,
// broadcast-to-many-awaiters cancellation signal. Go's net.Conn does not
// split into independent owned read/write halves the way tokio's does, so the
// write actor owns the whole net.Conn and Close tears the connection down
// fully rather than half-closing only the write side.
package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync/atomic"

	"go.uber.org/zap"
)

// MailboxSize is the bounded mailbox capacity for a connection's write queue.
const MailboxSize = 20

// ErrClosed is returned by Send once the connection's cancellation has fired.
var ErrClosed = errors.New("transport: connection closed")

type mailboxMsg struct {
	payload []byte
	isClose bool
}

// idCounter allocates process-wide unique SocketHandle ids. Widened to 64
// bits so wraparound within one process's lifetime cannot happen, unlike the
// source's u32 counter.
var idCounter uint64

// SocketHandle is a cheap, cloneable handle to one TCP connection's write
// side. Handles compare and hash by ID.
type SocketHandle struct {
	id     uint64
	mail   chan mailboxMsg
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSocketHandle allocates a new id, spawns the write-actor goroutine over
// conn, and returns the handle. The handle's Done channel closes once the
// connection is finished (write error, explicit Close, or an external Cancel).
func NewSocketHandle(conn net.Conn, log *zap.Logger) *SocketHandle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &SocketHandle{
		id:     atomic.AddUint64(&idCounter, 1),
		mail:   make(chan mailboxMsg, MailboxSize),
		ctx:    ctx,
		cancel: cancel,
	}
	go runWriteActor(h, conn, log)
	return h
}

// ID returns the handle's process-wide unique id.
func (h *SocketHandle) ID() uint64 { return h.id }

// Done returns a channel closed once the connection is finished.
func (h *SocketHandle) Done() <-chan struct{} { return h.ctx.Done() }

// Send enqueues payload for writing, blocking if the mailbox is full
// (backpressure, no silent drop) until capacity frees up, the connection
// closes, or ctx is cancelled.
func (h *SocketHandle) Send(ctx context.Context, payload []byte) error {
	select {
	case h.mail <- mailboxMsg{payload: payload}:
		return nil
	case <-h.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close requests the write actor shut down the connection and fire
// cancellation. Idempotent: closing an already-closed handle is a no-op.
func (h *SocketHandle) Close() {
	select {
	case h.mail <- mailboxMsg{isClose: true}:
	case <-h.ctx.Done():
	}
}

// Cancel fires the handle's cancellation without going through the mailbox,
// for a collaborator that has already observed the connection is dead. It
// does not close the underlying net.Conn; Close does.
func (h *SocketHandle) Cancel() { h.cancel() }

func runWriteActor(h *SocketHandle, conn net.Conn, log *zap.Logger) {
	w := bufio.NewWriter(conn)
	defer h.cancel()
	for {
		select {
		case msg := <-h.mail:
			if msg.isClose {
				w.Flush()
				conn.Close()
				return
			}
			if _, err := w.Write(msg.payload); err != nil {
				logWriteErr(log, h.id, err)
				conn.Close()
				return
			}
			if err := w.Flush(); err != nil {
				logWriteErr(log, h.id, err)
				conn.Close()
				return
			}
		case <-h.ctx.Done():
			return
		}
	}
}

func logWriteErr(log *zap.Logger, id uint64, err error) {
	if log == nil {
		return
	}
	log.Error("write failed, closing connection", zap.Uint64("conn_id", id), zap.Error(err))
}
