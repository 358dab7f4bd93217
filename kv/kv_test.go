package kv

import (
	"testing"

	"github.com/redis/go-redis/v9"

	"tcpgate/loadbalance"
)

// TestShardForIsStable checks that the same key always resolves to the same
// underlying client, which is the property kv.Store relies on to keep a
// uid's keys on one shard.
func TestShardForIsStable(t *testing.T) {
	hash := loadbalance.NewConsistentHashBalancer()
	clients := map[string]*redis.Client{
		"a:6379": redis.NewClient(&redis.Options{Addr: "a:6379"}),
		"b:6379": redis.NewClient(&redis.Options{Addr: "b:6379"}),
		"c:6379": redis.NewClient(&redis.Options{Addr: "c:6379"}),
	}
	for addr := range clients {
		hash.Add(&loadbalance.Endpoint{Addr: addr})
	}
	s := &shardedStore{clients: clients, hash: hash}

	first, err := s.shardFor("user-42")
	if err != nil {
		t.Fatalf("shardFor failed: %v", err)
	}
	second, err := s.shardFor("user-42")
	if err != nil {
		t.Fatalf("shardFor failed: %v", err)
	}
	if first != second {
		t.Fatal("expected the same key to resolve to the same shard")
	}
}

func TestShardForWithNoEndpointsErrors(t *testing.T) {
	s := &shardedStore{clients: map[string]*redis.Client{}, hash: loadbalance.NewConsistentHashBalancer()}
	if _, err := s.shardFor("anything"); err == nil {
		t.Fatal("expected an error when no shards are configured")
	}
}
