// Package rpc chooses a JSON-RPC endpoint for each chain from its primary
// and fallback URLs.
package rpc

import (
	"errors"
	"sort"
	"time"
)

// ErrNoHealthyRPC is returned when no endpoint of a chain answers.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm names a selection strategy.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Nodes more than this many blocks behind the best are stale.
	staleBlockThreshold = 3
)

// ParseAlgorithm maps a config value to an Algorithm; unknown values select
// fastest.
func ParseAlgorithm(s string) Algorithm {
	switch a := Algorithm(s); a {
	case AlgorithmRoundRobin, AlgorithmFailover:
		return a
	default:
		return AlgorithmFastest
	}
}

// Endpoint is one pinged URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// Healthy reports whether the ping succeeded.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// pick chooses among pinged endpoints, listed in configuration order. next
// is the round-robin cursor.
func pick(algo Algorithm, endpoints []Endpoint, next int) (Endpoint, error) {
	fresh := freshEndpoints(endpoints)
	if len(fresh) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}
	switch algo {
	case AlgorithmFailover:
		return fresh[0], nil
	case AlgorithmRoundRobin:
		return fresh[next%len(fresh)], nil
	default:
		sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Latency < fresh[j].Latency })
		return fresh[0], nil
	}
}

// freshEndpoints drops failed pings and nodes lagging the best block,
// keeping the original order.
func freshEndpoints(endpoints []Endpoint) []Endpoint {
	var best uint64
	for _, e := range endpoints {
		if e.Healthy() && e.BlockNumber > best {
			best = e.BlockNumber
		}
	}
	var out []Endpoint
	for _, e := range endpoints {
		if !e.Healthy() || best-e.BlockNumber > staleBlockThreshold {
			continue
		}
		out = append(out, e)
	}
	return out
}
