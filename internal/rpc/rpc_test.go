package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
)

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type pingResult struct {
	latency time.Duration
	block   uint64
	err     error
}

func stubDialer(algo Algorithm, results map[string]pingResult) (*Dialer, *atomic.Int32) {
	var pings atomic.Int32
	d := NewDialer(algo, nil, quiet())
	d.ping = func(_ context.Context, url string) (time.Duration, uint64, error) {
		pings.Add(1)
		r := results[url]
		return r.latency, r.block, r.err
	}
	return d, &pings
}

func desc(urls ...string) *chain.Descriptor {
	return &chain.Descriptor{ChainID: 1, Slug: "ethereum", RPCURL: urls[0], FallbackRPCs: urls[1:]}
}

func TestPickFastest(t *testing.T) {
	got, err := pick(AlgorithmFastest, []Endpoint{
		{URL: "a", Latency: 90 * time.Millisecond, BlockNumber: 100},
		{URL: "b", Latency: 20 * time.Millisecond, BlockNumber: 100},
		{URL: "c", Latency: 5 * time.Millisecond, Err: errors.New("down")},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, "b", got.URL)
}

func TestPickSkipsStaleNodes(t *testing.T) {
	got, err := pick(AlgorithmFastest, []Endpoint{
		{URL: "lagging", Latency: time.Millisecond, BlockNumber: 90},
		{URL: "synced", Latency: 50 * time.Millisecond, BlockNumber: 100},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, "synced", got.URL)
}

func TestPickFailoverKeepsOrder(t *testing.T) {
	got, err := pick(AlgorithmFailover, []Endpoint{
		{URL: "primary", Err: errors.New("timeout")},
		{URL: "backup1", Latency: 80 * time.Millisecond, BlockNumber: 5},
		{URL: "backup2", Latency: 10 * time.Millisecond, BlockNumber: 5},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, "backup1", got.URL)
}

func TestPickRoundRobin(t *testing.T) {
	eps := []Endpoint{{URL: "a"}, {URL: "b"}, {URL: "c"}}
	var seen []string
	for i := 0; i < 4; i++ {
		e, err := pick(AlgorithmRoundRobin, eps, i)
		require.NoError(t, err)
		seen = append(seen, e.URL)
	}
	assert.Equal(t, []string{"a", "b", "c", "a"}, seen)
}

func TestPickNoneHealthy(t *testing.T) {
	_, err := pick(AlgorithmFastest, []Endpoint{{URL: "a", Err: errors.New("x")}}, 0)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)

	_, err = pick(AlgorithmFastest, nil, 0)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestParseAlgorithm(t *testing.T) {
	assert.Equal(t, AlgorithmRoundRobin, ParseAlgorithm("round-robin"))
	assert.Equal(t, AlgorithmFailover, ParseAlgorithm("failover"))
	assert.Equal(t, AlgorithmFastest, ParseAlgorithm(""))
	assert.Equal(t, AlgorithmFastest, ParseAlgorithm("bogus"))
}

func TestDialerCachesSelection(t *testing.T) {
	d, pings := stubDialer(AlgorithmFastest, map[string]pingResult{
		"a": {latency: 40 * time.Millisecond, block: 10},
		"b": {latency: 10 * time.Millisecond, block: 10},
	})
	ctx := context.Background()

	u, err := d.URL(ctx, desc("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", u)
	assert.Equal(t, int32(2), pings.Load())

	u, err = d.URL(ctx, desc("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", u)
	assert.Equal(t, int32(2), pings.Load(), "cached selection is reused")
}

func TestDialerRepingsAfterTTL(t *testing.T) {
	d, pings := stubDialer(AlgorithmFastest, map[string]pingResult{
		"a": {latency: time.Millisecond, block: 1},
		"b": {latency: time.Millisecond, block: 1},
	})
	d.ttl = 0
	ctx := context.Background()
	_, err := d.URL(ctx, desc("a", "b"))
	require.NoError(t, err)
	_, err = d.URL(ctx, desc("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, int32(4), pings.Load())
}

func TestDialerRoundRobinRotates(t *testing.T) {
	d, _ := stubDialer(AlgorithmRoundRobin, map[string]pingResult{
		"a": {block: 1},
		"b": {block: 1},
	})
	ctx := context.Background()
	first, err := d.URL(ctx, desc("a", "b"))
	require.NoError(t, err)
	second, err := d.URL(ctx, desc("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
}

func TestDialerSingleURLAndOverride(t *testing.T) {
	d, pings := stubDialer(AlgorithmFastest, nil)
	ctx := context.Background()

	u, err := d.URL(ctx, desc("only"))
	require.NoError(t, err)
	assert.Equal(t, "only", u)

	d.overrides = map[int64][]string{1: {"https://custom.example"}}
	u, err = d.URL(ctx, desc("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "https://custom.example", u)
	assert.Zero(t, pings.Load())
}

func TestDialerAllDown(t *testing.T) {
	d, _ := stubDialer(AlgorithmFastest, map[string]pingResult{
		"a": {err: errors.New("refused")},
		"b": {err: errors.New("timeout")},
	})
	_, err := d.Client(context.Background(), desc("a", "b"))
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func blockNumberServer(t *testing.T, block uint64, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":"0x%x"}`, block)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDialerPingsLiveEndpoints(t *testing.T) {
	slow := blockNumberServer(t, 100, 60*time.Millisecond)
	fast := blockNumberServer(t, 100, 0)
	stale := blockNumberServer(t, 50, 0)

	d := NewDialer(AlgorithmFastest, nil, quiet())
	c, err := d.Client(context.Background(), desc(slow.URL, stale.URL, fast.URL))
	require.NoError(t, err)
	assert.Equal(t, fast.URL, c.URL())
}
