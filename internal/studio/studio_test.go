package studio

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/contract"
	"github.com/Mohsinsiddi/w3studio/internal/proxy"
	"github.com/Mohsinsiddi/w3studio/internal/settings"
	"github.com/Mohsinsiddi/w3studio/internal/source"
	"github.com/Mohsinsiddi/w3studio/internal/units"
)

const dai = "0x6B175474E89094C44Da98b954EedeAC495271d0F"

var (
	other = common.HexToAddress("0x1f9840a85d5af5bf1d1762f925bdaddc4201f984").Hex()
	impl  = common.HexToAddress("0x43506849d7c04f9138d1a2050bbf3a0c054402dd").Hex()
)

const tokenABI = `[
 {"type":"function","name":"name","inputs":[],"outputs":[{"type":"string"}],"stateMutability":"view"},
 {"type":"function","name":"decimals","inputs":[],"outputs":[{"type":"uint8"}],"stateMutability":"view"},
 {"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"type":"uint256"}],"stateMutability":"view"},
 {"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}],"stateMutability":"nonpayable"},
 {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}],"stateMutability":"nonpayable"},
 {"type":"function","name":"transferOwnership","inputs":[{"name":"newOwner","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
 {"type":"function","name":"deposit","inputs":[],"outputs":[],"stateMutability":"payable"}
]`

const proxyABI = `[
 {"type":"function","name":"upgradeTo","inputs":[{"name":"newImplementation","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
 {"type":"function","name":"admin","inputs":[],"outputs":[{"type":"address"}],"stateMutability":"view"}
]`

func mustABI(t *testing.T, s string) []contract.ABIEntry {
	t.Helper()
	abi, err := contract.ParseABI([]byte(s))
	require.NoError(t, err)
	return abi
}

func word(hexDigits string) string {
	return "0x" + strings.Repeat("0", 64-len(hexDigits)) + hexDigits
}

func addrWord(addr string) string {
	return word(strings.ToLower(strings.TrimPrefix(addr, "0x")))
}

// fakeClient answers storage reads per slot and calls per selector.
type fakeClient struct {
	mu         sync.Mutex
	slots      map[string]string
	calls      map[string]string
	simulated  []chain.CallMsg
	simResult  *chain.CallResult
	simErr     error
	receipt    *chain.TxReceipt
	receiptErr error
}

func (f *fakeClient) GetStorageAt(_ context.Context, _, slot string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.slots[slot]; ok {
		return w, nil
	}
	return word("0"), nil
}

func (f *fakeClient) GetCode(context.Context, string) (string, error) { return "0x6080", nil }

func (f *fakeClient) CallContract(_ context.Context, _, calldata string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(calldata) >= 10 {
		if out, ok := f.calls[calldata[:10]]; ok {
			return out, nil
		}
	}
	return "", errors.New("execution reverted")
}

func (f *fakeClient) SimulateCall(_ context.Context, msg chain.CallMsg) (*chain.CallResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulated = append(f.simulated, msg)
	if f.simErr != nil {
		return nil, f.simErr
	}
	if f.simResult != nil {
		return f.simResult, nil
	}
	return &chain.CallResult{Success: true, ReturnData: word("1"), GasEstimate: 46000}, nil
}

func (f *fakeClient) WaitForReceipt(_ context.Context, hash string, _ time.Duration) (*chain.TxReceipt, error) {
	if f.receipt == nil {
		return &chain.TxReceipt{Hash: hash, Status: 1, BlockNumber: 10}, f.receiptErr
	}
	return f.receipt, f.receiptErr
}

// stubResolver returns fixed descriptors per lowercase address.
type stubResolver struct {
	mu       sync.Mutex
	byAddr   map[string]*source.ContractDescriptor
	err      error
	implErr  error
	implNil  bool
	implReqs []string
	// gate, when set for an address, blocks Resolve until closed.
	gate    map[string]chan struct{}
	started chan string
}

func (r *stubResolver) Resolve(ctx context.Context, req source.Request) (*source.ContractDescriptor, error) {
	if r.started != nil {
		r.started <- req.Address
	}
	if g, ok := r.gate[strings.ToLower(req.Address)]; ok {
		select {
		case <-g:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	d, ok := r.byAddr[strings.ToLower(req.Address)]
	if !ok {
		return nil, source.ErrNotVerified
	}
	return d, nil
}

func (r *stubResolver) FetchImplementationABI(_ context.Context, req source.Request) (*source.ContractDescriptor, error) {
	r.mu.Lock()
	r.implReqs = append(r.implReqs, req.Address)
	r.mu.Unlock()
	if r.implErr != nil {
		return nil, r.implErr
	}
	if r.implNil {
		return nil, nil
	}
	return r.byAddr[strings.ToLower(req.Address)], nil
}

type recorder struct {
	saved []settings.LastContract
}

func (r *recorder) SetLastContract(lc settings.LastContract) error {
	r.saved = append(r.saved, lc)
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func tokenClient() *fakeClient {
	return &fakeClient{calls: map[string]string{
		contract.Selector("decimals()"): word("12"),
	}}
}

func newStudio(t *testing.T, r *stubResolver, c *fakeClient, opts Options) (*Studio, *atomic.Int32) {
	t.Helper()
	dials := new(atomic.Int32)
	opts.Logger = quietLogger()
	opts.ReceiptInterval = time.Millisecond
	s := New(chain.NewRegistry(), r, func(context.Context, *chain.Descriptor) (Client, error) {
		dials.Add(1)
		return c, nil
	}, opts)
	return s, dials
}

func tokenResolver(t *testing.T) *stubResolver {
	return &stubResolver{byAddr: map[string]*source.ContractDescriptor{
		strings.ToLower(dai): {Address: dai, ChainID: 1, ABI: mustABI(t, tokenABI), Name: "Dai", Verified: true, Source: "explorer"},
	}}
}

func TestLoadTokenEndToEnd(t *testing.T) {
	rec := &recorder{}
	s, _ := newStudio(t, tokenResolver(t), tokenClient(), Options{LastContract: rec})

	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: strings.ToLower(dai)})
	require.NoError(t, err)

	assert.Equal(t, dai, sess.Address, "address is checksummed")
	assert.False(t, sess.Proxy.IsProxy)
	require.NotNil(t, sess.Decimals)
	assert.Equal(t, 18, *sess.Decimals)

	approve, err := sess.Functions.Find("approve(address,uint256)")
	require.NoError(t, err)
	assert.False(t, approve.Dangerous)

	hints := sess.Hints["approve(address,uint256)"]
	require.Len(t, hints, 2)
	assert.Equal(t, units.CategoryNone, hints[0].Category)
	assert.Equal(t, units.CategoryTokenDecimal, hints[1].Category)
	require.NotNil(t, hints[1].Decimals)
	assert.Equal(t, 18, *hints[1].Decimals)

	owner, err := sess.Functions.Find("transferOwnership")
	require.NoError(t, err)
	assert.True(t, owner.Dangerous)

	assert.NotEmpty(t, sess.Audit.Findings)
	assert.Same(t, sess, s.Current())

	require.Len(t, rec.saved, 1)
	assert.Equal(t, int64(1), rec.saved[0].ChainID)
	assert.Equal(t, dai, rec.saved[0].Address)
}

func TestLoadKeyReadsPreview(t *testing.T) {
	s, _ := newStudio(t, tokenResolver(t), tokenClient(), Options{})
	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)

	bySig := map[string]KeyRead{}
	for _, kr := range sess.KeyReads {
		bySig[kr.Signature] = kr
	}
	assert.Equal(t, []string{"18"}, bySig["decimals()"].Values)
	assert.NotEmpty(t, bySig["name()"].Error, "failed reads are reported, not fatal")
	_, hasBalance := bySig["balanceOf(address)"]
	assert.False(t, hasBalance, "reads with arguments are not previewed")
}

func TestLoadDecimalsFailureIsSwallowed(t *testing.T) {
	s, _ := newStudio(t, tokenResolver(t), &fakeClient{}, Options{SkipKeyReads: true})
	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)
	assert.Nil(t, sess.Decimals)
	assert.Nil(t, sess.Hints["approve(address,uint256)"][1].Decimals)
	assert.Empty(t, sess.KeyReads)
}

func TestLoadRejectsBadInputBeforeNetwork(t *testing.T) {
	s, dials := newStudio(t, tokenResolver(t), tokenClient(), Options{})

	_, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: "0x1234"})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	// bad checksum
	_, err = s.Load(context.Background(), LoadRequest{ChainID: 1, Target: "0x6b175474E89094C44Da98b954EedeAC495271d0F"})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	// ENS on a chain without ENS
	_, err = s.Load(context.Background(), LoadRequest{ChainID: 137, Target: "vitalik.eth"})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = s.Load(context.Background(), LoadRequest{ChainID: 999999, Target: dai})
	assert.ErrorIs(t, err, chain.ErrChainNotFound)

	assert.Zero(t, dials.Load())
	assert.Nil(t, s.Current())
}

func TestLoadResolutionErrorPropagates(t *testing.T) {
	r := &stubResolver{err: source.ErrNoContract}
	s, _ := newStudio(t, r, tokenClient(), Options{})
	_, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	assert.ErrorIs(t, err, source.ErrNoContract)
	assert.Nil(t, s.Current())
}

func proxyFixture(t *testing.T) (*stubResolver, *fakeClient) {
	r := &stubResolver{byAddr: map[string]*source.ContractDescriptor{
		strings.ToLower(dai):  {Address: dai, ChainID: 1, ABI: mustABI(t, proxyABI), Name: "TransparentUpgradeableProxy", Verified: true, IsProxy: true},
		strings.ToLower(impl): {Address: impl, ChainID: 1, ABI: mustABI(t, tokenABI), Name: "TokenV2", Verified: true},
	}}
	c := tokenClient()
	c.slots = map[string]string{proxy.SlotEIP1967Implementation: addrWord(impl)}
	return r, c
}

func TestLoadProxySubstitutesImplementationABI(t *testing.T) {
	r, c := proxyFixture(t)
	s, _ := newStudio(t, r, c, Options{})

	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)

	assert.True(t, sess.Proxy.IsProxy)
	assert.Equal(t, proxy.PatternStandardSlot, sess.Proxy.Pattern)
	assert.Equal(t, []string{impl}, r.implReqs)
	assert.True(t, sess.Descriptor.ImplementationABI)
	assert.Equal(t, "TransparentUpgradeableProxy → TokenV2", sess.Descriptor.Name)
	assert.Equal(t, dai, sess.Descriptor.Address)
	_, err = sess.Functions.Find("approve(address,uint256)")
	assert.NoError(t, err)
	_, err = sess.Functions.Find("upgradeTo")
	assert.ErrorIs(t, err, contract.ErrFunctionNotFound, "no partial merge of proxy functions")

	// the resolver's descriptor is untouched
	assert.False(t, r.byAddr[strings.ToLower(dai)].ImplementationABI)
}

func TestLoadProxyKeepsOwnABIOnProviderBug(t *testing.T) {
	r, c := proxyFixture(t)
	r.implNil = true
	s, _ := newStudio(t, r, c, Options{})

	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)
	assert.False(t, sess.Descriptor.ImplementationABI)
	_, err = sess.Functions.Find("upgradeTo")
	assert.NoError(t, err)
	assert.NotEmpty(t, sess.Warnings)
}

func TestLoadProxyKeepsOwnABIOnImplementationError(t *testing.T) {
	r, c := proxyFixture(t)
	r.implErr = source.ErrNotVerified
	s, _ := newStudio(t, r, c, Options{})

	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)
	assert.Len(t, sess.Functions.Write, 1)
	assert.NotEmpty(t, sess.Warnings)
}

func TestLoadBeaconIsNotFollowedByDefault(t *testing.T) {
	r, c := proxyFixture(t)
	beacon := common.HexToAddress("0x5a2a4f2f3c18f09179b6703e63d9edd165909073").Hex()
	c.slots = map[string]string{proxy.SlotEIP1967Beacon: addrWord(beacon)}
	c.calls[proxy.SelectorImplementation] = addrWord(impl)
	s, _ := newStudio(t, r, c, Options{})

	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)
	assert.Equal(t, proxy.PatternBeaconSlot, sess.Proxy.Pattern)
	assert.Equal(t, beacon, sess.Proxy.Implementation)
	assert.Empty(t, r.implReqs)
	assert.False(t, sess.Descriptor.ImplementationABI)
}

func TestLoadBeaconFollowed(t *testing.T) {
	r, c := proxyFixture(t)
	beacon := common.HexToAddress("0x5a2a4f2f3c18f09179b6703e63d9edd165909073").Hex()
	c.slots = map[string]string{proxy.SlotEIP1967Beacon: addrWord(beacon)}
	c.calls[proxy.SelectorImplementation] = addrWord(impl)
	s, _ := newStudio(t, r, c, Options{FollowBeacon: true})

	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)
	assert.Equal(t, impl, sess.Proxy.Implementation)
	assert.Equal(t, []string{impl}, r.implReqs)
	assert.True(t, sess.Descriptor.ImplementationABI)
}

func TestLoadWithSuppliedABISkipsProviders(t *testing.T) {
	r, c := proxyFixture(t)
	r.err = errors.New("providers must not be asked")
	s, _ := newStudio(t, r, c, Options{})

	sess, err := s.Load(context.Background(), LoadRequest{
		ChainID: 1,
		Target:  dai,
		ABI:     mustABI(t, tokenABI),
		ABIName: "ERC-20 Token",
	})
	require.NoError(t, err)
	assert.Equal(t, source.ManualSource, sess.Descriptor.Source)
	assert.Equal(t, "ERC-20 Token", sess.Descriptor.Name)
	assert.False(t, sess.Descriptor.Verified)
	assert.True(t, sess.Proxy.IsProxy)
	assert.Empty(t, r.implReqs, "implementation is not fetched for a supplied ABI")
	assert.NotEmpty(t, sess.Warnings)
	_, err = sess.Functions.Find("transfer(address,uint256)")
	assert.NoError(t, err)
}

func TestLoadReusesCachedDescriptor(t *testing.T) {
	r, c := proxyFixture(t)
	s, _ := newStudio(t, r, c, Options{})
	first, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)
	require.True(t, first.Descriptor.ImplementationABI)

	r.err = errors.New("providers must not be asked")
	r.implErr = r.err
	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai, Cached: first.Descriptor})
	require.NoError(t, err)
	assert.Same(t, first.Descriptor, sess.Descriptor)
	assert.Len(t, r.implReqs, 1)
	assert.Empty(t, sess.Warnings)
}

func TestLoadRefreshesCachedDescriptorAfterUpgrade(t *testing.T) {
	r, c := proxyFixture(t)
	s, _ := newStudio(t, r, c, Options{})
	stale := &source.ContractDescriptor{
		Address:           dai,
		ChainID:           1,
		ABI:               mustABI(t, proxyABI),
		Name:              "TransparentUpgradeableProxy → TokenV1",
		IsProxy:           true,
		Implementation:    "0x00000000000000000000000000000000000000aa",
		ImplementationABI: true,
	}

	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai, Cached: stale})
	require.NoError(t, err)
	assert.Equal(t, []string{impl}, r.implReqs)
	assert.Equal(t, impl, sess.Descriptor.Implementation)
	assert.Equal(t, "TransparentUpgradeableProxy → TokenV2", sess.Descriptor.Name)
}

func TestLoadIgnoresCachedDescriptorForOtherAddress(t *testing.T) {
	s, _ := newStudio(t, tokenResolver(t), tokenClient(), Options{})
	foreign := &source.ContractDescriptor{Address: impl, ChainID: 1, ABI: mustABI(t, proxyABI), Name: "Other"}

	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai, Cached: foreign})
	require.NoError(t, err)
	assert.Equal(t, "Dai", sess.Descriptor.Name)
}

func TestInspectDoesNotPublish(t *testing.T) {
	rec := &recorder{}
	s, _ := newStudio(t, tokenResolver(t), tokenClient(), Options{LastContract: rec})

	loaded, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)

	inspected, err := s.Inspect(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), inspected.Generation)
	assert.Same(t, loaded, s.Current(), "inspect leaves the current session alone")
	assert.Len(t, rec.saved, 1, "inspect does not touch the last-contract cache")

	// a later load is not superseded by an inspect
	again, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)
	assert.Same(t, again, s.Current())
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	r := tokenResolver(t)
	r.byAddr[strings.ToLower(other)] = &source.ContractDescriptor{Address: other, ChainID: 1, ABI: mustABI(t, tokenABI), Name: "Uni"}
	release := make(chan struct{})
	r.gate = map[string]chan struct{}{strings.ToLower(dai): release}
	r.started = make(chan string, 4)
	rec := &recorder{}
	s, _ := newStudio(t, r, tokenClient(), Options{LastContract: rec, SkipKeyReads: true})

	type result struct {
		sess *Session
		err  error
	}
	first := make(chan result, 1)
	go func() {
		sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
		first <- result{sess, err}
	}()
	<-r.started

	second, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: other})
	require.NoError(t, err)
	close(release)

	res := <-first
	assert.ErrorIs(t, res.err, ErrSuperseded)
	assert.Nil(t, res.sess)
	assert.Same(t, second, s.Current())
	require.Len(t, rec.saved, 1)
	assert.Equal(t, other, rec.saved[0].Address)
}

func loadToken(t *testing.T, c *fakeClient) (*Studio, *Session) {
	t.Helper()
	s, _ := newStudio(t, tokenResolver(t), c, Options{SkipKeyReads: true})
	sess, err := s.Load(context.Background(), LoadRequest{ChainID: 1, Target: dai})
	require.NoError(t, err)
	return s, sess
}

func TestSimulateConvertsDisplayAmounts(t *testing.T) {
	c := tokenClient()
	s, sess := loadToken(t, c)

	res, err := s.Simulate(context.Background(), sess, Call{
		Signature: "transfer",
		Args:      []string{other, "1.5"},
		From:      dai,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"true"}, res.Outputs)
	assert.Equal(t, uint64(46000), res.GasEstimate)

	require.Len(t, c.simulated, 1)
	msg := c.simulated[0]
	assert.Equal(t, dai, msg.To)
	assert.Equal(t, dai, msg.From)
	assert.True(t, strings.HasPrefix(msg.Data, "0xa9059cbb"))
	amount, ok := new(big.Int).SetString(msg.Data[len(msg.Data)-64:], 16)
	require.True(t, ok)
	assert.Equal(t, "1500000000000000000", amount.String())
}

func TestSimulateRawArgs(t *testing.T) {
	c := tokenClient()
	s, sess := loadToken(t, c)
	_, err := s.Simulate(context.Background(), sess, Call{Signature: "transfer(address,uint256)", Args: []string{other, "7"}, Raw: true})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(c.simulated[0].Data, word("7")[2:]))
}

func TestSimulateRevertIsResult(t *testing.T) {
	c := tokenClient()
	c.simResult = &chain.CallResult{Success: false, RevertReason: "ERC20: insufficient balance"}
	s, sess := loadToken(t, c)

	res, err := s.Simulate(context.Background(), sess, Call{Signature: "transfer", Args: []string{other, "1"}})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "ERC20: insufficient balance", res.RevertReason)
}

func TestSimulateTransportErrorIsError(t *testing.T) {
	c := tokenClient()
	c.simErr = errors.New("connection refused")
	s, sess := loadToken(t, c)
	_, err := s.Simulate(context.Background(), sess, Call{Signature: "transfer", Args: []string{other, "1"}})
	assert.Error(t, err)
}

func TestSimulateInvalidArgsNeverReachChain(t *testing.T) {
	c := tokenClient()
	s, sess := loadToken(t, c)

	_, err := s.Simulate(context.Background(), sess, Call{Signature: "transfer", Args: []string{other, "abc"}})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Simulate(context.Background(), sess, Call{Signature: "transfer", Args: []string{"0x1234", "1"}})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Simulate(context.Background(), sess, Call{Signature: "transfer", Args: []string{other}})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Simulate(context.Background(), sess, Call{Signature: "transfer", Args: []string{other, "1"}, Value: "0.1"})
	assert.ErrorIs(t, err, ErrNotPayable)

	_, err = s.Simulate(context.Background(), sess, Call{Signature: "nope"})
	assert.ErrorIs(t, err, contract.ErrFunctionNotFound)

	assert.Empty(t, c.simulated)
}

func TestSimulateDetachedSession(t *testing.T) {
	s, _ := loadToken(t, tokenClient())
	_, err := s.Simulate(context.Background(), &Session{}, Call{Signature: "transfer"})
	assert.ErrorIs(t, err, ErrDetached)
}

type fakeWallet struct {
	accounts []string
	switched int64
	sent     []TxRequest
}

func (w *fakeWallet) Accounts(context.Context) ([]string, error) { return w.accounts, nil }

func (w *fakeWallet) SwitchChain(_ context.Context, id int64) error {
	w.switched = id
	return nil
}

func (w *fakeWallet) SendTransaction(_ context.Context, tx TxRequest) (string, error) {
	w.sent = append(w.sent, tx)
	return "0xabc", nil
}

func TestSendDangerousRequiresExactToken(t *testing.T) {
	s, sess := loadToken(t, tokenClient())
	w := &fakeWallet{accounts: []string{other}}
	call := Call{Signature: "transferOwnership", Args: []string{other}}

	for _, token := range []string{"", "confirm", "CONFIRM ", "CONF"} {
		_, err := s.Send(context.Background(), sess, call, token, w)
		assert.ErrorIs(t, err, ErrConfirmationRequired, "token %q", token)
	}
	assert.Empty(t, w.sent)

	res, err := s.Send(context.Background(), sess, call, ConfirmationToken, w)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "0xabc", res.Hash)
	assert.Equal(t, other, res.From)
	assert.Equal(t, "https://etherscan.io/tx/0xabc", res.URL)
	assert.Equal(t, int64(1), w.switched)
	require.Len(t, w.sent, 1)
	assert.Equal(t, dai, w.sent[0].To)
}

func TestSendBenignWithoutConfirmation(t *testing.T) {
	s, sess := loadToken(t, tokenClient())
	w := &fakeWallet{accounts: []string{other}}
	res, err := s.Send(context.Background(), sess, Call{Signature: "deposit", Value: "0.25"}, "", w)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, w.sent, 1)
	assert.Equal(t, "250000000000000000", w.sent[0].Value.String())
}

func TestSendRevertedReceipt(t *testing.T) {
	c := tokenClient()
	c.receipt = &chain.TxReceipt{Hash: "0xabc", Status: 0}
	c.receiptErr = chain.ErrTxReverted
	s, sess := loadToken(t, c)

	res, err := s.Send(context.Background(), sess, Call{Signature: "transfer", Args: []string{other, "1"}}, "", &fakeWallet{accounts: []string{other}})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, uint64(0), res.Receipt.Status)
}

func TestSendRejectsReadsAndEmptyWallets(t *testing.T) {
	s, sess := loadToken(t, tokenClient())
	_, err := s.Send(context.Background(), sess, Call{Signature: "decimals"}, "", &fakeWallet{accounts: []string{other}})
	assert.ErrorIs(t, err, ErrReadOnly)

	_, err = s.Send(context.Background(), sess, Call{Signature: "transfer", Args: []string{other, "1"}}, "", &fakeWallet{})
	assert.ErrorIs(t, err, ErrNoAccount)
}

func TestPrepareBytes32Text(t *testing.T) {
	sess := &Session{Functions: contract.Classify(mustABI(t, `[
		{"type":"function","name":"setName","inputs":[{"name":"label","type":"bytes32"}],"outputs":[],"stateMutability":"nonpayable"}
	]`))}
	sess.Hints = hintsFor(sess.Functions, nil)

	calldata, err := sess.Prepare(Call{Signature: "setName", Args: []string{"Hello"}})
	require.NoError(t, err)
	assert.Equal(t, "48656c6c6f"+strings.Repeat("0", 54), calldata[10:])
}
