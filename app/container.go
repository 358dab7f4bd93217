// Package app wires the gateway's collaborators into one process: the
// connection registry, the downstream KV and pub/sub clients, the
// dispatcher and its middleware chain, and the accept loop, then drives
// startup and graceful shutdown.
//
// Grounded on the source's Application (orion/src/app.rs): a struct holding
// a numeric server id, a Start that installs SIGINT/SIGTERM handling and
// blocks until one fires, and a Shutdown hook. The source's Application is a
// near-empty shell (its shutdown is a no-op and its collaborators live in
// process-wide OnceLock statics reached through orion::app()/orion::comp());
// this rewrite gives Container the explicit fields the source's own comment
// ("only immutable data can be stored in a static variable") argues against
// doing, and a Shutdown that actually drains the gateway.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tcpgate/dispatch"
	"tcpgate/gateway"
	"tcpgate/kv"
	"tcpgate/middleware"
	"tcpgate/pubsub"
	"tcpgate/registry"
	"tcpgate/session"
	"tcpgate/transport"
)

// ShutdownTimeout bounds how long Shutdown waits for in-flight connections
// to drain before giving up and closing downstream clients anyway.
const ShutdownTimeout = 10 * time.Second

// Config carries the environment-derived settings Container needs to start.
type Config struct {
	ServerID          int
	Addr              string
	RedisAddrs        []string
	NATSURLs          []string
	HeartbeatInterval time.Duration
}

// Container owns the gateway's collaborators as explicit fields: the
// registry, the KV store, the pub/sub bus, the dispatcher, and the
// listener built over them. Nothing here lives behind a package-level
// singleton.
type Container struct {
	serverID int
	cfg      Config
	log      *zap.Logger

	registry   *registry.Manager
	kv         kv.Store
	bus        *pubsub.Bus
	dispatcher *dispatch.Dispatcher
	listener   *gateway.Listener
}

// New builds a Container and its collaborators, but does not yet bind the
// listening socket or connect downstream clients: call Start for that.
func New(cfg Config, log *zap.Logger) *Container {
	return &Container{
		serverID:   cfg.ServerID,
		cfg:        cfg,
		log:        log,
		registry:   registry.New(log),
		dispatcher: dispatch.New(),
	}
}

// Dispatcher exposes the container's dispatcher so main can Register
// handlers on it before Start.
func (c *Container) Dispatcher() *dispatch.Dispatcher { return c.dispatcher }

// KV returns the container's downstream KV store, valid only after Start.
func (c *Container) KV() kv.Store { return c.kv }

// Bus returns the container's pub/sub bus, valid only after Start.
func (c *Container) Bus() *pubsub.Bus { return c.bus }

// Registry returns the container's connection registry.
func (c *Container) Registry() *registry.Manager { return c.registry }

// handlerChain assembles the middleware chain around the dispatcher: every
// decoded Data message a ready session hands up runs through logging, rate
// limiting, and a timeout before (and after) reaching a registered handler.
// RetryMiddleware is not part of this chain, so a failed handler call is not
// retried.
func (c *Container) handlerChain() middleware.HandlerFunc {
	chain := middleware.Chain(
		middleware.LoggingMiddleware(c.log),
		middleware.RateLimitMiddleware(200, 400),
		middleware.TimeoutMiddleware(5*time.Second),
	)
	return chain(c.dispatcher.Handle)
}

func (c *Container) newSession(socket *transport.SocketHandle) *session.Session {
	handler := c.handlerChain()
	return session.New(socket, c.cfg.HeartbeatInterval, handler, c.registry.Remove, c.log)
}

// Start connects the downstream KV and pub/sub clients, binds the listening
// socket, and runs the accept loop in the background. It blocks until
// SIGINT or SIGTERM arrives or ctx is done, then runs Shutdown and returns
// its error. If the accept loop exits first, Start returns that loop's
// result without running Shutdown.
func (c *Container) Start(ctx context.Context) error {
	c.kv = kv.Connect(c.cfg.RedisAddrs)
	c.bus = pubsub.Connect(c.cfg.NATSURLs, c.log)

	ln, err := gateway.Listen(c.cfg.Addr, c.wrapSessionFactory(), c.log)
	if err != nil {
		return fmt.Errorf("app: failed to bind %s: %w", c.cfg.Addr, err)
	}
	c.listener = ln

	serveErr := make(chan error, 1)
	go func() { serveErr <- c.listener.Serve() }()

	c.logInfo("gateway started", c.listener.Addr().String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		c.logInfo("received shutdown signal", sig.String())
		return c.Shutdown()
	case err := <-serveErr:
		if err != nil {
			c.logErr("accept loop exited with error", err)
		}
		return err
	case <-ctx.Done():
		return c.Shutdown()
	}
}

// wrapSessionFactory adapts Container.newSession to gateway.SessionFactory,
// additionally registering the new session with the registry as soon as
// it's constructed so it's reachable for Kick/GetByUID before the first
// inbound packet arrives.
func (c *Container) wrapSessionFactory() gateway.SessionFactory {
	return func(socket *transport.SocketHandle) *session.Session {
		sess := c.newSession(socket)
		c.registry.Add(sess.ID(), sess)
		return sess
	}
}

// Shutdown stops accepting new connections, waits up to ShutdownTimeout for
// in-flight connections to drain, then closes the KV and pub/sub clients
// regardless of whether the drain finished in time.
func (c *Container) Shutdown() error {
	var drainErr error
	if c.listener != nil {
		drainErr = c.listener.Shutdown(ShutdownTimeout)
		if drainErr != nil {
			c.logErr("timed out draining connections", drainErr)
		}
	}
	if c.kv != nil {
		if err := c.kv.Close(); err != nil {
			c.logErr("failed to close kv store", err)
		}
	}
	if c.bus != nil {
		if err := c.bus.Close(); err != nil {
			c.logErr("failed to close pub/sub bus", err)
		}
	}
	return drainErr
}

func (c *Container) logInfo(msg string, detail string) {
	if c.log == nil {
		return
	}
	c.log.Info(msg, zap.Int("server_id", c.serverID), zap.String("detail", detail))
}

func (c *Container) logErr(msg string, err error) {
	if c.log == nil {
		return
	}
	c.log.Error(msg, zap.Int("server_id", c.serverID), zap.Error(err))
}
