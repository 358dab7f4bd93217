package loadbalance

import (
	"fmt"
	"math/rand"
)

// WeightedRandomBalancer selects endpoints probabilistically based on their
// weight. An endpoint with weight 10 gets roughly 2x the traffic of one with
// weight 5.
//
// Algorithm:
//  1. Sum all weights → totalWeight
//  2. Generate random number r in [0, totalWeight)
//  3. Subtract each endpoint's weight from r until r < 0
//  4. The endpoint that makes r negative is selected
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints available")
	}

	totalWeight := 0
	for _, v := range endpoints {
		totalWeight += v.Weight
	}

	r := rand.Intn(totalWeight)
	for i := range endpoints {
		r -= endpoints[i].Weight
		if r < 0 {
			return &endpoints[i], nil
		}
	}

	return nil, fmt.Errorf("unexpected error in weighted random selection")
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}
