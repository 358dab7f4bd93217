package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestPoolReusesReturnedConn(t *testing.T) {
	ln := startTestGateway(t)
	pool := NewPool(ln.Addr().String(), 2)
	defer pool.Close()

	conn, err := pool.Get()
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	pool.Put(conn)

	again, err := pool.Get()
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if again != conn {
		t.Fatalf("expected pool to hand back the same idle conn")
	}
	pool.Put(again)
}

func TestPoolDialsUpToMax(t *testing.T) {
	ln := startTestGateway(t)
	pool := NewPool(ln.Addr().String(), 2)
	defer pool.Close()

	a, err := pool.Get()
	if err != nil {
		t.Fatalf("get a failed: %v", err)
	}
	b, err := pool.Get()
	if err != nil {
		t.Fatalf("get b failed: %v", err)
	}
	if a == b {
		t.Fatalf("expected two distinct conns")
	}

	payload, _ := json.Marshal(addArgs{A: 2, B: 3})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := a.Request(ctx, addProtocolID, payload)
	if err != nil {
		t.Fatalf("request on pooled conn failed: %v", err)
	}
	var reply addReply
	if err := json.Unmarshal(resp.Payload, &reply); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if reply.Result != 5 {
		t.Fatalf("expected 5, got %d", reply.Result)
	}

	pool.Put(a)
	pool.Put(b)
}
