// Package studio ties the pipeline together: load a contract (proxy
// detection and ABI resolution in parallel, then the implementation ABI),
// classify its functions, infer parameter hints, scan it for risks, and run
// simulations or transactions against it.
//
// Nothing here reads settings on its own. Credentials and the last-contract
// cache are handed in by the caller.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3studio/internal/audit"
	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/contract"
	"github.com/Mohsinsiddi/w3studio/internal/ens"
	"github.com/Mohsinsiddi/w3studio/internal/proxy"
	"github.com/Mohsinsiddi/w3studio/internal/settings"
	"github.com/Mohsinsiddi/w3studio/internal/source"
	"github.com/Mohsinsiddi/w3studio/internal/units"
	"github.com/Mohsinsiddi/w3studio/internal/validate"
)

var (
	// ErrInvalidAddress is returned for input that is neither an address
	// nor, on ENS-capable chains, an ENS name.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrSuperseded is returned by a load that finished after a newer load
	// started. Its result is discarded.
	ErrSuperseded = errors.New("load superseded by a newer request")
)

// Client is the chain capability a loaded contract needs.
type Client interface {
	GetStorageAt(ctx context.Context, address, slot string) (string, error)
	GetCode(ctx context.Context, address string) (string, error)
	CallContract(ctx context.Context, to, calldata string) (string, error)
	SimulateCall(ctx context.Context, msg chain.CallMsg) (*chain.CallResult, error)
	WaitForReceipt(ctx context.Context, hash string, interval time.Duration) (*chain.TxReceipt, error)
}

// DialFunc returns a client for a chain.
type DialFunc func(ctx context.Context, d *chain.Descriptor) (Client, error)

// Resolver is the ABI source.
type Resolver interface {
	Resolve(ctx context.Context, req source.Request) (*source.ContractDescriptor, error)
	FetchImplementationABI(ctx context.Context, req source.Request) (*source.ContractDescriptor, error)
}

// LastContractCache receives every successful, current load.
type LastContractCache interface {
	SetLastContract(lc settings.LastContract) error
}

// Options configures a Studio.
type Options struct {
	// FollowBeacon resolves beacon proxies through the beacon's
	// implementation(). Off by default: a beacon match is reported with the
	// beacon address and the proxy ABI is kept.
	FollowBeacon bool
	// SkipKeyReads disables the automatic preview of zero-argument key reads.
	SkipKeyReads bool
	Scanner      *audit.Scanner
	LastContract LastContractCache
	// ReceiptInterval is the receipt polling period for Send.
	ReceiptInterval time.Duration
	Logger          logrus.FieldLogger
}

// Studio loads contracts and runs calls against them.
type Studio struct {
	chains   *chain.Registry
	resolver Resolver
	dial     DialFunc
	opts     Options
	log      logrus.FieldLogger

	gen     atomic.Uint64
	mu      sync.RWMutex
	current *Session
}

// New returns a Studio. dial defaults to a plain JSON-RPC client on the
// chain's primary endpoint.
func New(chains *chain.Registry, resolver Resolver, dial DialFunc, opts Options) *Studio {
	if dial == nil {
		dial = func(_ context.Context, d *chain.Descriptor) (Client, error) {
			return chain.NewEVMClient(d.RPCURL), nil
		}
	}
	if opts.Scanner == nil {
		opts.Scanner = audit.NewScanner(nil)
	}
	if opts.ReceiptInterval <= 0 {
		opts.ReceiptInterval = 2 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Studio{
		chains:   chains,
		resolver: resolver,
		dial:     dial,
		opts:     opts,
		log:      log.WithField("module", "studio"),
	}
}

// LoadRequest names the contract to load. APIKey is the caller's own
// explorer credential, if any.
//
// A non-empty ABI is used as-is instead of asking the providers, for
// contracts that were never verified. The implementation is not fetched.
//
// Cached is a descriptor from an earlier load, typically the last loaded
// contract. It replaces provider resolution when it names the same chain
// and address and the proxy still points at the implementation it was built
// from.
type LoadRequest struct {
	ChainID int64
	Target  string
	APIKey  string
	ABI     []contract.ABIEntry
	ABIName string
	Cached  *source.ContractDescriptor
}

// reusable reports whether cached still describes address as detected.
func reusable(cached *source.ContractDescriptor, chainID int64, address string, p proxy.Info) bool {
	if cached == nil || len(cached.ABI) == 0 || cached.ChainID != chainID || !strings.EqualFold(cached.Address, address) {
		return false
	}
	if !p.IsProxy {
		return true
	}
	if p.Pattern == proxy.PatternBeaconSlot {
		return false
	}
	return cached.ImplementationABI && strings.EqualFold(cached.Implementation, p.Implementation)
}

// KeyRead is the previewed result of one key read function.
type KeyRead struct {
	Signature string   `json:"signature"`
	Values    []string `json:"values,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Session is one loaded contract.
type Session struct {
	Generation uint64                     `json:"generation"`
	Chain      chain.Descriptor           `json:"chain"`
	Input      string                     `json:"input"`
	Address    string                     `json:"address"`
	Descriptor *source.ContractDescriptor `json:"descriptor"`
	Proxy      proxy.Info                 `json:"proxy"`
	Functions  contract.Classified        `json:"functions"`
	// Hints holds one hint per input, keyed by function signature.
	Hints    map[string][]units.ParamHint `json:"hints"`
	Decimals *int                         `json:"decimals,omitempty"`
	KeyReads []KeyRead                    `json:"key_reads,omitempty"`
	Audit    audit.Report                 `json:"audit"`
	Warnings []string                     `json:"warnings,omitempty"`
	LoadedAt time.Time                    `json:"loaded_at"`

	client Client
}

// Current returns the newest published session, or nil.
func (s *Studio) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Chains returns the chain registry.
func (s *Studio) Chains() *chain.Registry { return s.chains }

// Load resolves req into a Session and makes it current. Input errors are
// returned before any network access. A load overtaken by a newer one
// returns ErrSuperseded.
func (s *Studio) Load(ctx context.Context, req LoadRequest) (*Session, error) {
	gen := s.gen.Add(1)
	sess, err := s.build(ctx, req, gen)
	if err != nil {
		return nil, err
	}
	log := s.log.WithFields(logrus.Fields{"chain": sess.Chain.ChainID, "address": sess.Address, "generation": gen})

	if !s.publish(sess) {
		log.Debug("discarding stale load")
		return nil, ErrSuperseded
	}
	if s.opts.LastContract != nil {
		err := s.opts.LastContract.SetLastContract(settings.LastContract{
			ChainID:    sess.Chain.ChainID,
			Address:    sess.Address,
			Descriptor: sess.Descriptor,
			LoadedAt:   sess.LoadedAt,
		})
		if err != nil {
			log.WithError(err).Warn("last contract not cached")
		}
	}
	log.WithFields(logrus.Fields{
		"name":   sess.Descriptor.Name,
		"source": sess.Descriptor.Source,
		"proxy":  sess.Descriptor.IsProxy,
		"read":   len(sess.Functions.Read),
		"write":  len(sess.Functions.Write),
	}).Info("contract loaded")
	return sess, nil
}

// Inspect runs the same pipeline as Load without touching the current
// session. The HTTP API uses it so concurrent clients do not supersede each
// other.
func (s *Studio) Inspect(ctx context.Context, req LoadRequest) (*Session, error) {
	return s.build(ctx, req, 0)
}

func (s *Studio) build(ctx context.Context, req LoadRequest, gen uint64) (*Session, error) {
	desc, err := s.chains.Get(req.ChainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", err, req.ChainID)
	}
	target := strings.TrimSpace(req.Target)
	isName := ens.IsName(target)
	if isName && !desc.SupportsENS {
		return nil, fmt.Errorf("%w: ENS names are not supported on %s", ErrInvalidAddress, desc.Name)
	}
	if !isName {
		if err := validate.Value("address", target); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
	}

	log := s.log.WithFields(logrus.Fields{"chain": desc.ChainID, "target": target, "generation": gen})
	client, err := s.dial(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", desc.Name, err)
	}

	address := target
	if isName {
		address, err = ens.Resolve(ctx, client, target)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
		}
		log.WithField("address", address).Debug("ENS name resolved")
	} else {
		address = common.HexToAddress(target).Hex()
	}

	sess := &Session{
		Generation: gen,
		Chain:      *desc,
		Input:      target,
		Address:    address,
		client:     client,
	}
	srcReq := source.Request{ChainID: desc.ChainID, Address: address, APIKey: req.APIKey, Code: client}
	detector := proxy.NewDetector(client, log)

	// With a cached descriptor at hand the providers are only asked once
	// detection shows it is stale.
	resolveNow := len(req.ABI) == 0 && req.Cached == nil

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sess.Proxy = detector.Detect(gctx, address)
		return nil
	})
	if resolveNow {
		g.Go(func() error {
			d, err := s.resolver.Resolve(gctx, srcReq)
			if err != nil {
				return err
			}
			sess.Descriptor = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case len(req.ABI) > 0:
		sess.Descriptor = &source.ContractDescriptor{
			Address: address,
			ChainID: desc.ChainID,
			ABI:     req.ABI,
			Name:    req.ABIName,
			Source:  source.ManualSource,
		}
		if sess.Proxy.IsProxy {
			sess.Warnings = append(sess.Warnings, fmt.Sprintf("%s proxy: the supplied ABI is used as given", sess.Proxy.Pattern))
		}
	case reusable(req.Cached, desc.ChainID, address, sess.Proxy):
		log.Debug("using cached descriptor")
		sess.Descriptor = req.Cached
	default:
		if !resolveNow {
			log.Debug("cached descriptor is stale")
			d, err := s.resolver.Resolve(ctx, srcReq)
			if err != nil {
				return nil, err
			}
			sess.Descriptor = d
		}
		s.resolveImplementation(ctx, sess, srcReq, detector, log)
	}

	sess.Functions = contract.Classify(sess.Descriptor.ABI)
	sess.Decimals = s.readDecimals(ctx, sess, log)
	sess.Hints = hintsFor(sess.Functions, sess.Decimals)
	if !s.opts.SkipKeyReads {
		sess.KeyReads = s.previewKeyReads(ctx, sess)
	}
	sess.Audit = s.opts.Scanner.Scan(sess.Descriptor.ABI, sess.Descriptor.Name)
	sess.LoadedAt = time.Now().UTC()
	return sess, nil
}

// publish makes sess current unless a newer load has started.
func (s *Studio) publish(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.Generation != s.gen.Load() {
		return false
	}
	s.current = sess
	return true
}

// resolveImplementation swaps in the implementation ABI when the contract is
// a proxy with a known implementation. Any failure keeps the proxy's own ABI.
func (s *Studio) resolveImplementation(ctx context.Context, sess *Session, req source.Request, det *proxy.Detector, log logrus.FieldLogger) {
	info := sess.Proxy
	impl := info.Implementation
	if info.Pattern == proxy.PatternBeaconSlot {
		if !s.opts.FollowBeacon {
			sess.Warnings = append(sess.Warnings, fmt.Sprintf("beacon proxy: %s is the beacon, not the implementation; showing the proxy ABI", impl))
			return
		}
		impl = det.ResolveBeacon(ctx, info.Implementation)
		if impl == "" {
			sess.Warnings = append(sess.Warnings, "beacon did not report an implementation; showing the proxy ABI")
			return
		}
		sess.Proxy.Implementation = impl
	}
	if !info.IsProxy && sess.Descriptor.IsProxy {
		impl = sess.Descriptor.Implementation
	}
	if impl == "" || strings.EqualFold(impl, sess.Address) {
		return
	}

	req.Address = impl
	implDesc, err := s.resolver.FetchImplementationABI(ctx, req)
	switch {
	case err != nil:
		log.WithError(err).WithField("implementation", impl).Warn("implementation ABI unavailable")
		sess.Warnings = append(sess.Warnings, "implementation ABI unavailable ("+source.UserMessage(err)+"); showing the proxy ABI")
	case implDesc == nil || len(implDesc.ABI) == 0:
		sess.Warnings = append(sess.Warnings, "provider returned the proxy's ABI for the implementation; showing the proxy ABI")
	default:
		sess.Descriptor = sess.Descriptor.WithImplementation(implDesc, impl)
	}
}

// readDecimals calls decimals() when the ABI has it. Failures are ignored.
func (s *Studio) readDecimals(ctx context.Context, sess *Session, log logrus.FieldLogger) *int {
	if !contract.HasFunction(sess.Descriptor.ABI, "decimals") {
		return nil
	}
	out, err := contract.CallFunction(ctx, sess.client, sess.Address, contract.DecimalsEntry)
	if err != nil || len(out) == 0 {
		log.WithError(err).Debug("decimals() read failed")
		return nil
	}
	d, err := strconv.Atoi(out[0])
	if err != nil || d < 0 || d > units.MaxDecimals {
		return nil
	}
	return &d
}

// previewKeyReads calls the zero-argument key reads concurrently.
func (s *Studio) previewKeyReads(ctx context.Context, sess *Session) []KeyRead {
	var fns []contract.ParsedFunction
	for _, f := range contract.KeyReads(sess.Functions.Read) {
		if len(f.Entry.Inputs) == 0 {
			fns = append(fns, f)
		}
	}
	if len(fns) == 0 {
		return nil
	}
	out := make([]KeyRead, len(fns))
	var g errgroup.Group
	g.SetLimit(4)
	for i, f := range fns {
		g.Go(func() error {
			out[i] = KeyRead{Signature: f.Signature}
			values, err := contract.CallFunction(ctx, sess.client, sess.Address, f.Entry)
			if err != nil {
				out[i].Error = err.Error()
				return nil
			}
			out[i].Values = values
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func hintsFor(c contract.Classified, decimals *int) map[string][]units.ParamHint {
	hints := map[string][]units.ParamHint{}
	for _, f := range c.All() {
		hints[f.Signature] = paramHints(f.Entry, decimals)
	}
	return hints
}

func paramHints(e contract.ABIEntry, decimals *int) []units.ParamHint {
	out := make([]units.ParamHint, len(e.Inputs))
	for i, in := range e.Inputs {
		h := units.Infer(in.Name, in.Type)
		if decimals != nil {
			h = h.WithDecimals(*decimals)
		}
		out[i] = h
	}
	return out
}
