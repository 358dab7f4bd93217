// Package gateway implements the accept loop: one goroutine per accepted
// connection, reading frames into the package extractor and delivering
// completed packets into a session.
//
// Grounded on the source's serve_tcp (orion/src/net/tcp.rs) and the teacher's
// Server.Serve/handleConn accept-loop shape (server/server.go): a listener
// goroutine that Accepts in a loop and spawns one reader goroutine per
// connection, checking a shutdown flag to distinguish an intentional
// listener.Close() from a real Accept error.
package gateway

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tcpgate/framer"
	"tcpgate/session"
	"tcpgate/transport"
)

// SessionFactory builds the per-connection session wired to socket. The
// Listener itself calls the returned session's NotifyClosed once the
// connection's reader loop exits. Callers typically close over a
// registry.Manager and a dispatch.Dispatcher here.
type SessionFactory func(socket *transport.SocketHandle) *session.Session

// readBufSize is the read(2) buffer size per connection.
const readBufSize = 4096

// Listener runs the accept loop for one bound address.
type Listener struct {
	ln           net.Listener
	newSession   SessionFactory
	log          *zap.Logger
	wg           sync.WaitGroup
	shuttingDown atomic.Bool
}

// Listen binds addr and returns a Listener ready for Serve. newSession is
// called once per accepted connection to build the session that will own it.
func Listen(addr string, newSession SessionFactory, log *zap.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, newSession: newSession, log: log}, nil
}

// Addr returns the bound address, useful when addr was passed as ":0".
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve runs the accept loop until the listener is closed by Shutdown. It
// returns nil on an intentional shutdown and the underlying error otherwise.
func (l *Listener) Serve() error {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.shuttingDown.Load() {
				return nil
			}
			return err
		}
		l.wg.Add(1)
		go l.handleConn(conn)
	}
}

// Shutdown stops accepting new connections and waits for in-flight readers
// to finish unwinding, up to timeout. It does not itself close live
// connections; callers drive that by cancelling sessions (e.g. via Kick)
// before calling Shutdown, or accept that readers drain naturally on EOF.
func (l *Listener) Shutdown(timeout time.Duration) error {
	l.shuttingDown.Store(true)
	l.ln.Close()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("gateway: timeout waiting for connections to drain")
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	defer l.wg.Done()

	socket := transport.NewSocketHandle(conn, l.log)
	sess := l.newSession(socket)
	defer sess.NotifyClosed()

	l.logInfo("connection opened", socket.ID())

	extractor := framer.New()
	buf := make([]byte, readBufSize)
	for {
		select {
		case <-socket.Done():
			l.logInfo("connection cancelled", socket.ID())
			return
		default:
		}

		n, err := conn.Read(buf)
		if n > 0 {
			frames, ferr := extractor.Process(buf[:n])
			for _, frame := range frames {
				sess.ReceiveMsg(frame)
			}
			if ferr != nil {
				l.logErr("framer error, closing connection", socket.ID(), ferr)
				socket.Close()
				return
			}
		}
		if err != nil {
			l.logInfo("connection closed", socket.ID())
			socket.Close()
			return
		}
	}
}

func (l *Listener) logInfo(msg string, id uint64) {
	if l.log == nil {
		return
	}
	l.log.Info(msg, zap.Uint64("conn_id", id))
}

func (l *Listener) logErr(msg string, id uint64, err error) {
	if l.log == nil {
		return
	}
	l.log.Error(msg, zap.Uint64("conn_id", id), zap.Error(err))
}
