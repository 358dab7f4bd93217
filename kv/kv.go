// Package kv implements the gateway's downstream key-value store handle.
//
// Grounded on the original source's orion::async_redis (connection manager
// wrapping github.com/redis/go-redis, gate/src/global.rs's REDIS singleton)
// and on the pack's own use of github.com/redis/go-redis/v9. The source
// models Redis as a process-wide OnceLock; this rewrite threads a Store
// through app.Container and its handlers explicitly instead, per the
// "avoid process-wide mutable globals" design note.
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tcpgate/loadbalance"
)

// connectTimeout bounds the initial PING to each endpoint used to verify
// reachability at startup; Connect panics if the PING does not succeed
// within it.
const connectTimeout = 5 * time.Second

// Store is the gateway's view of the downstream key-value store: the
// minimal surface handlers need, independent of the underlying client.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// shardedStore fronts one *redis.Client per configured endpoint, picking a
// shard per key via consistent hashing so a given key always lands on the
// same endpoint.
type shardedStore struct {
	clients map[string]*redis.Client
	hash    *loadbalance.ConsistentHashBalancer
}

// Connect dials one *redis.Client per address in addrs, verifies each is
// reachable with a PING, and returns a Store that shards keys across them
// by consistent hash. Per the source's behavior, an unreachable endpoint at
// startup is fatal: Connect panics rather than returning a degraded Store,
// since the gateway has no useful way to run without its KV store.
func Connect(addrs []string) Store {
	if len(addrs) == 0 {
		addrs = []string{"127.0.0.1:6379"}
	}

	hash := loadbalance.NewConsistentHashBalancer()
	clients := make(map[string]*redis.Client, len(addrs))
	for _, addr := range addrs {
		client := redis.NewClient(&redis.Options{Addr: addr})

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			panic(fmt.Sprintf("kv: failed to connect to redis at %s: %v", addr, err))
		}

		clients[addr] = client
		hash.Add(&loadbalance.Endpoint{Addr: addr})
	}

	return &shardedStore{clients: clients, hash: hash}
}

func (s *shardedStore) shardFor(key string) (*redis.Client, error) {
	ep, err := s.hash.Pick(key)
	if err != nil {
		return nil, err
	}
	client, ok := s.clients[ep.Addr]
	if !ok {
		return nil, fmt.Errorf("kv: no client for shard %s", ep.Addr)
	}
	return client, nil
}

func (s *shardedStore) Get(ctx context.Context, key string) (string, error) {
	client, err := s.shardFor(key)
	if err != nil {
		return "", err
	}
	v, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (s *shardedStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	client, err := s.shardFor(key)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, value, ttl).Err()
}

func (s *shardedStore) Del(ctx context.Context, key string) error {
	client, err := s.shardFor(key)
	if err != nil {
		return err
	}
	return client.Del(ctx, key).Err()
}

func (s *shardedStore) Close() error {
	var firstErr error
	for _, client := range s.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
