package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
)

var pingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "w3studio_rpc_ping_seconds",
	Help:    "Latency of eth_blockNumber pings per chain.",
	Buckets: prometheus.ExponentialBuckets(0.025, 2, 8),
}, []string{"chain"})

const (
	defaultTTL   = 5 * time.Minute
	pingTimeout = 5 * time.Second
)

type selection struct {
	url     string
	expires time.Time
	next    int
}

// Dialer hands out one client per chain, probing the chain's endpoints when
// there is more than one and caching the winner.
type Dialer struct {
	algo      Algorithm
	ttl       time.Duration
	overrides map[int64][]string
	log       logrus.FieldLogger

	mu     sync.Mutex
	chosen map[int64]*selection
	ping   func(ctx context.Context, url string) (time.Duration, uint64, error)
}

// NewDialer returns a Dialer. overrides replaces the built-in endpoints of a
// chain id.
func NewDialer(algo Algorithm, overrides map[int64][]string, log logrus.FieldLogger) *Dialer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dialer{
		algo:      algo,
		ttl:       defaultTTL,
		overrides: overrides,
		log:       log.WithField("module", "rpc"),
		chosen:    map[int64]*selection{},
		ping: func(ctx context.Context, url string) (time.Duration, uint64, error) {
			return chain.NewEVMClient(url).Ping(ctx)
		},
	}
}

// URL returns the endpoint to use for d.
func (r *Dialer) URL(ctx context.Context, d *chain.Descriptor) (string, error) {
	urls := r.overrides[d.ChainID]
	if len(urls) == 0 {
		urls = d.RPCs()
	}
	if len(urls) == 1 {
		return urls[0], nil
	}

	r.mu.Lock()
	sel := r.chosen[d.ChainID]
	if sel != nil && time.Now().Before(sel.expires) && r.algo != AlgorithmRoundRobin {
		r.mu.Unlock()
		return sel.url, nil
	}
	next := 0
	if sel != nil {
		next = sel.next
	}
	r.mu.Unlock()

	endpoints := r.pingAll(ctx, d, urls)
	winner, err := pick(r.algo, endpoints, next)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.chosen[d.ChainID] = &selection{url: winner.URL, expires: time.Now().Add(r.ttl), next: next + 1}
	r.mu.Unlock()
	r.log.WithFields(logrus.Fields{"chain": d.Slug, "url": winner.URL, "latency": winner.Latency}).Debug("RPC endpoint selected")
	return winner.URL, nil
}

// Client returns a JSON-RPC client for d.
func (r *Dialer) Client(ctx context.Context, d *chain.Descriptor) (*chain.EVMClient, error) {
	u, err := r.URL(ctx, d)
	if err != nil {
		return nil, err
	}
	return chain.NewEVMClient(u), nil
}

// pingAll pings every URL in parallel.
func (r *Dialer) pingAll(ctx context.Context, d *chain.Descriptor, urls []string) []Endpoint {
	out := make([]Endpoint, len(urls))
	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			latency, block, err := r.ping(pctx, u)
			out[i] = Endpoint{URL: u, Latency: latency, BlockNumber: block, Err: err}
			if err != nil {
				r.log.WithError(err).WithField("url", u).Debug("RPC ping failed")
				return nil
			}
			pingLatency.WithLabelValues(d.Slug).Observe(latency.Seconds())
			return nil
		})
	}
	_ = g.Wait()
	return out
}
