package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
)

// ConsistentHashBalancer maps keys to endpoints using a hash ring. The same
// key always maps to the same endpoint (until the ring changes), which is
// what kv.Store relies on to shard a uid/key across several Redis endpoints
// without scattering one uid's keys across shards.
//
// Virtual nodes: each real endpoint is mapped to N virtual nodes on the ring.
// Without virtual nodes, a handful of endpoints might cluster together on
// the ring, causing uneven load distribution. 100 virtual nodes per endpoint
// gives statistical uniformity.
type ConsistentHashBalancer struct {
	replicas int                  // Virtual nodes per real endpoint
	ring     []uint32             // Sorted hash values on the ring
	nodes    map[uint32]*Endpoint // Hash value → endpoint mapping
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per endpoint.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		ring:     []uint32{},
		nodes:    make(map[uint32]*Endpoint),
	}
}

// Add places an endpoint onto the hash ring with N virtual nodes. Each
// virtual node is hashed from "{addr}#{i}" to spread evenly across the ring.
func (b *ConsistentHashBalancer) Add(endpoint *Endpoint) {
	for i := 0; i < b.replicas; i++ {
		key := fmt.Sprintf("%s#%d", endpoint.Addr, i)
		hash := crc32.ChecksumIEEE([]byte(key))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = endpoint
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// Pick finds the endpoint responsible for the given key. It hashes the key,
// then binary-searches for the first node >= hash on the ring, wrapping
// around to the first node if the hash exceeds all of them.
func (b *ConsistentHashBalancer) Pick(key string) (*Endpoint, error) {
	if len(b.ring) == 0 {
		return nil, fmt.Errorf("no endpoints available")
	}

	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}

	return b.nodes[b.ring[idx]], nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
