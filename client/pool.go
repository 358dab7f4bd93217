// Pool bounds how many dialed, handshaken Conns a load generator keeps open
// at once, so simulated-client count can exceed the pool size without
// re-dialing and re-handshaking per simulated client.
//
// Grounded on the teacher's transport.ConnPool (transport/pool.go): a
// buffered channel used as a FIFO free list, lazy connection creation up to
// maxConns, and a curConns counter guarded by a mutex so concurrent Gets
// can't overshoot the limit. The teacher's pool hands out a bare net.Conn for
// exclusive, one-request-at-a-time use; this pools *Conn instead, since a
// Conn already multiplexes many concurrent Requests internally and a load
// generator wants a bounded set of such multiplexed connections to share
// across many more simulated clients.
package client

import (
	"fmt"
	"sync"
)

// Pool manages a bounded set of dialed Conns to a single gateway address.
type Pool struct {
	mu       sync.Mutex
	conns    chan *Conn
	addr     string
	maxConns int
	curConns int
}

// NewPool creates a pool that dials addr lazily, up to maxConns Conns at
// once.
func NewPool(addr string, maxConns int) *Pool {
	return &Pool{
		conns:    make(chan *Conn, maxConns),
		addr:     addr,
		maxConns: maxConns,
	}
}

// Get returns an existing idle Conn if one is free, dials a new one if the
// pool is under capacity, or blocks until a Conn is returned otherwise.
func (p *Pool) Get() (*Conn, error) {
	select {
	case conn := <-p.conns:
		return conn, nil
	default:
		p.mu.Lock()
		if p.curConns < p.maxConns {
			p.curConns++
			p.mu.Unlock()
			conn, err := Dial(p.addr)
			if err != nil {
				p.mu.Lock()
				p.curConns--
				p.mu.Unlock()
				return nil, fmt.Errorf("client: pool dial failed: %w", err)
			}
			return conn, nil
		}
		p.mu.Unlock()
		conn := <-p.conns
		return conn, nil
	}
}

// Put returns conn to the pool for reuse by a future Get.
func (p *Pool) Put(conn *Conn) {
	p.conns <- conn
}

// Close closes every idle Conn currently sitting in the pool. Conns
// currently checked out by a caller are the caller's responsibility to
// Close directly.
func (p *Pool) Close() error {
	close(p.conns)
	for conn := range p.conns {
		conn.Close()
		p.mu.Lock()
		p.curConns--
		p.mu.Unlock()
	}
	return nil
}
