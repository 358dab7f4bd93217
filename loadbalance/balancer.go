// Package loadbalance provides strategies for distributing work across
// multiple downstream endpoints.
//
// Three strategies are implemented:
//   - RoundRobin:      equal-capacity endpoints (NATS seed selection)
//   - WeightedRandom:  heterogeneous endpoints
//   - ConsistentHash:  key-affine sharding (Redis shard selection)
package loadbalance

// Endpoint is one addressable downstream target. Weight is only consulted
// by WeightedRandomBalancer; other strategies ignore it.
type Endpoint struct {
	Addr   string
	Weight int
}

// Balancer is the interface for load balancing strategies that pick among a
// list of equivalent endpoints.
type Balancer interface {
	// Pick selects one endpoint from the available list. Must be
	// goroutine-safe; called on every connection/request.
	Pick(endpoints []Endpoint) (*Endpoint, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}
