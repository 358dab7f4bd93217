package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tcpgate/dispatch"
	"tcpgate/gateway"
	"tcpgate/middleware"
	"tcpgate/session"
	"tcpgate/transport"
)

type addArgs struct {
	A, B int
}

type addReply struct {
	Result int
}

type addHandler struct{}

func (addHandler) Handle(args *addArgs, reply *addReply) error {
	reply.Result = args.A + args.B
	return nil
}

const addProtocolID = 1

func startTestGateway(t *testing.T) *gateway.Listener {
	t.Helper()
	d := dispatch.New()
	if err := dispatch.Register(d, addProtocolID, &addHandler{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	chain := middleware.Chain()(d.Handle)

	ln, err := gateway.Listen("127.0.0.1:0", func(socket *transport.SocketHandle) *session.Session {
		return session.New(socket, 20*time.Second, chain, func(uint64) {}, nil)
	}, nil)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	go ln.Serve()
	t.Cleanup(func() { ln.Shutdown(time.Second) })
	return ln
}

func TestRequestRoundTrip(t *testing.T) {
	ln := startTestGateway(t)

	conn, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	payload, _ := json.Marshal(addArgs{A: 1, B: 2})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := conn.Request(ctx, addProtocolID, payload)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var reply addReply
	if err := json.Unmarshal(resp.Payload, &reply); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if reply.Result != 3 {
		t.Fatalf("expected 3, got %d", reply.Result)
	}
}

func TestConcurrentRequestsMultiplex(t *testing.T) {
	ln := startTestGateway(t)

	conn, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			payload, _ := json.Marshal(addArgs{A: i, B: i})
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			resp, err := conn.Request(ctx, addProtocolID, payload)
			if err != nil {
				errs <- err
				return
			}
			var reply addReply
			if err := json.Unmarshal(resp.Payload, &reply); err != nil {
				errs <- err
				return
			}
			if reply.Result != i*2 {
				errs <- &mismatchError{want: i * 2, got: reply.Result}
				return
			}
			errs <- nil
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("request failed: %v", err)
		}
	}
}

type mismatchError struct{ want, got int }

func (e *mismatchError) Error() string {
	return "mismatch"
}

func TestNotifyDoesNotBlock(t *testing.T) {
	ln := startTestGateway(t)

	conn, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	payload, _ := json.Marshal(addArgs{A: 1, B: 1})
	if err := conn.Notify(addProtocolID, payload); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
}

func TestRequestTimesOutWhenUnanswered(t *testing.T) {
	ln := startTestGateway(t)

	conn, err := Dial(ln.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = conn.Request(ctx, 999, nil)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected context deadline exceeded, got %v", err)
	}
}
