// Package source resolves contract ABIs from verification providers.
//
// The order is fixed: the keyless Sourcify registry first, then the
// Etherscan-family explorer. Sourcify failures of any kind fall through to
// the explorer once; explorer errors are final and classified.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/sirupsen/logrus"

	"github.com/Mohsinsiddi/w3studio/internal/match"
)

// CodeReader reads deployed bytecode.
type CodeReader interface {
	GetCode(ctx context.Context, address string) (string, error)
}

// Request identifies one resolution. APIKey is the caller's own explorer
// credential, if any; Code enables the no-contract check.
type Request struct {
	ChainID int64
	Address string
	APIKey  string
	Code    CodeReader
}

// Provider is one ABI source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, req Request) (*ContractDescriptor, error)
}

// proxyNames matches contract names of proxy contracts, e.g.
// TransparentUpgradeableProxy, ERC1967Proxy, AdminUpgradeabilityProxy.
var proxyNames = match.New(match.Suffix, "proxy")

// Resolver runs the providers in order.
type Resolver struct {
	registry Provider
	explorer Provider
	cache    *freecache.Cache
	ttl      time.Duration
	log      logrus.FieldLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// MaxCachedDescriptor is the largest encoded descriptor the resolver cache
// holds.
const MaxCachedDescriptor = 64 << 10

// CacheSize returns the freecache size for sizeMB that still admits entries
// of maxEntry bytes. freecache rejects entries above 1/1024 of its size.
func CacheSize(sizeMB, maxEntry int) int {
	size := sizeMB << 20
	if floor := maxEntry * 1024; size < floor {
		size = floor
	}
	return size
}

// WithCache caches successful resolutions in sizeMB of memory for ttl.
// Cached copies do not keep SourceCode.
func WithCache(sizeMB int, ttl time.Duration) Option {
	return func(r *Resolver) {
		if sizeMB <= 0 || ttl <= 0 {
			return
		}
		r.cache = freecache.NewCache(CacheSize(sizeMB, MaxCachedDescriptor))
		r.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) { r.log = log.WithField("module", "source") }
}

// NewResolver returns a Resolver. registry may be nil to go straight to the
// explorer.
func NewResolver(registry, explorer Provider, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		explorer: explorer,
		log:      logrus.StandardLogger().WithField("module", "source"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the descriptor for req or a *Error.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*ContractDescriptor, error) {
	log := r.log.WithFields(logrus.Fields{"chain": req.ChainID, "address": req.Address})
	if d := r.cached(req); d != nil {
		log.Debug("descriptor cache hit")
		return d, nil
	}

	if r.registry != nil {
		d, err := r.registry.Fetch(ctx, req)
		observe(r.registry.Name(), err)
		if err == nil {
			r.store(req, d)
			return d, nil
		}
		log.WithError(err).Debugf("%s miss, falling back to %s", r.registry.Name(), r.explorer.Name())
	}

	d, err := r.explorer.Fetch(ctx, req)
	observe(r.explorer.Name(), err)
	if err != nil {
		return nil, err
	}
	r.store(req, d)
	return d, nil
}

// FetchImplementationABI resolves the implementation behind a proxy.
//
// Explorers sometimes answer a query for the implementation address with the
// proxy's record. When the result reports itself as a proxy, or carries a
// proxy contract name, it returns (nil, nil) and the caller keeps the proxy's
// own ABI.
func (r *Resolver) FetchImplementationABI(ctx context.Context, req Request) (*ContractDescriptor, error) {
	d, err := r.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if d.ReportedProxy || proxyNames.Match(d.Name) {
		providerBugs.Inc()
		r.log.WithFields(logrus.Fields{
			"implementation": req.Address,
			"name":           d.Name,
			"provider":       d.Source,
		}).Warn("provider returned a proxy record for the implementation address, ignoring")
		r.forget(req)
		return nil, nil
	}
	return d, nil
}

func cacheKey(req Request) []byte {
	return []byte(fmt.Sprintf("%d:%s", req.ChainID, strings.ToLower(req.Address)))
}

func (r *Resolver) cached(req Request) *ContractDescriptor {
	if r.cache == nil {
		return nil
	}
	raw, err := r.cache.Get(cacheKey(req))
	if err != nil {
		return nil
	}
	var d ContractDescriptor
	if json.Unmarshal(raw, &d) != nil {
		return nil
	}
	cacheHits.Inc()
	// The stored copy keeps the first caller's casing.
	d.Address = req.Address
	return &d
}

func (r *Resolver) store(req Request, d *ContractDescriptor) {
	if r.cache == nil {
		return
	}
	slim := *d
	slim.SourceCode = ""
	raw, err := json.Marshal(&slim)
	if err != nil {
		return
	}
	if err := r.cache.Set(cacheKey(req), raw, int(r.ttl.Seconds())); err != nil {
		log := r.log.WithError(err).WithFields(logrus.Fields{"address": req.Address, "size": len(raw)})
		if errors.Is(err, freecache.ErrLargeEntry) {
			log.Warn("descriptor too large to cache")
			return
		}
		log.Debug("descriptor not cached")
	}
}

func (r *Resolver) forget(req Request) {
	if r.cache != nil {
		r.cache.Del(cacheKey(req))
	}
}
