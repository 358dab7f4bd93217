// Package pubsub implements the gateway's downstream publish/subscribe bus
// handle.
//
// Grounded on the original source's orion::nats_client / NatsComp
// (orion/src/net/nats_client.rs, orion/src/comp/nats_comp.rs): publish is
// fire-and-forget logging any error, and request-reply makes up to 3
// attempts, short-circuiting immediately on a "no responders" error rather than
// retrying it. No pack example wires a pub/sub bus, so github.com/nats-io/
// nats.go is named directly from the source rather than grounded in the Go
// pack, per the grounding rules for out-of-pack dependencies.
package pubsub

import (
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"tcpgate/loadbalance"
)

// requestTimeout matches the source's per-attempt 1s request timeout.
const requestTimeout = time.Second

// maxRequestAttempts matches the source's 3-attempt retry loop.
const maxRequestAttempts = 3

// ErrNoResponders is returned by Request when no subscriber answered and
// NATS reported it authoritatively; it is not worth retrying.
var ErrNoResponders = errors.New("pubsub: no responders")

// ErrRequestFailed is returned by Request once all attempts are exhausted
// for reasons other than no-responders.
var ErrRequestFailed = errors.New("pubsub: request failed after retries")

// Bus is a connected handle to the publish/subscribe bus.
type Bus struct {
	conn *nats.Conn
	log  *zap.Logger
}

// Connect dials one of urls (chosen first via round-robin so concurrently
// starting gateway processes don't all prefer the same seed), handing the
// full seed list to the client so it can fail over between them. Per the
// source's behavior, an unreachable bus at startup is fatal: Connect panics.
func Connect(urls []string, log *zap.Logger) *Bus {
	if len(urls) == 0 {
		urls = []string{"nats://127.0.0.1:4222"}
	}

	ordered := reorderFromRoundRobin(urls)
	conn, err := nats.Connect(strings.Join(ordered, ","))
	if err != nil {
		panic("pubsub: failed to connect to NATS: " + err.Error())
	}
	return &Bus{conn: conn, log: log}
}

// seedPicker is package-level so repeated Connect calls (e.g. one gateway
// process reconnecting, or a test exercising several bus instances) keep
// rotating through the configured seeds instead of always preferring the
// same one.
var seedPicker loadbalance.RoundRobinBalancer

func reorderFromRoundRobin(urls []string) []string {
	endpoints := make([]loadbalance.Endpoint, len(urls))
	for i, u := range urls {
		endpoints[i] = loadbalance.Endpoint{Addr: u}
	}
	first, err := seedPicker.Pick(endpoints)
	if err != nil {
		return urls
	}
	ordered := make([]string, 0, len(urls))
	ordered = append(ordered, first.Addr)
	for _, u := range urls {
		if u != first.Addr {
			ordered = append(ordered, u)
		}
	}
	return ordered
}

// Publish sends payload to subject, logging and swallowing any error: the
// source treats publish as fire-and-forget.
func (b *Bus) Publish(subject string, payload []byte) {
	if err := b.conn.Publish(subject, payload); err != nil {
		b.logErr("pubsub: publish failed", subject, err)
	}
}

// Request sends payload to subject and waits for a single reply, making up
// to 3 attempts in total. A "no responders" error is returned immediately without
// retrying, matching the source's try_request.
func (b *Bus) Request(subject string, payload []byte) ([]byte, error) {
	var lastErr error
	for i := 0; i < maxRequestAttempts; i++ {
		msg, err := b.conn.Request(subject, payload, requestTimeout)
		if err == nil {
			return msg.Data, nil
		}
		lastErr = err
		b.logErr("pubsub: request attempt failed", subject, err)
		if errors.Is(err, nats.ErrNoResponders) {
			return nil, ErrNoResponders
		}
	}
	b.logErr("pubsub: request exhausted retries", subject, lastErr)
	return nil, ErrRequestFailed
}

// Close closes the underlying connection without draining it first.
func (b *Bus) Close() error {
	b.conn.Close()
	return nil
}

func (b *Bus) logErr(msg, subject string, err error) {
	if b.log == nil {
		return
	}
	b.log.Error(msg, zap.String("subject", subject), zap.Error(err))
}
