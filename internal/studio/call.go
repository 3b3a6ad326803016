package studio

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/contract"
	"github.com/Mohsinsiddi/w3studio/internal/units"
)

// ConfirmationToken must be typed exactly to send a dangerous function.
const ConfirmationToken = "CONFIRM"

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrConfirmationRequired = errors.New("dangerous function: type " + ConfirmationToken + " to confirm")
	ErrNotPayable           = errors.New("function is not payable")
	ErrReadOnly             = errors.New("read functions cannot be sent as transactions")
	ErrNoAccount            = errors.New("wallet has no accounts")
	// ErrDetached is returned for sessions that were not produced by Load,
	// e.g. decoded from JSON.
	ErrDetached = errors.New("session has no chain connection; load the contract again")
)

// Call describes one invocation.
type Call struct {
	// Signature is the full signature, or the bare name when not overloaded.
	Signature string
	// Args holds one value per input. Unless Raw is set, values are display
	// values converted through the parameter hints (e.g. "1.5" tokens).
	Args []string
	Raw  bool
	// Unit overrides the default unit of amount parameters.
	Unit units.Unit
	From string
	// Value is the native value in ether, e.g. "0.1".
	Value string
}

// SimulationResult is the outcome of a dry run. A revert is Success=false
// with the decoded reason, not an error.
type SimulationResult struct {
	Function     string   `json:"function"`
	Calldata     string   `json:"calldata"`
	Success      bool     `json:"success"`
	Outputs      []string `json:"outputs,omitempty"`
	RevertReason string   `json:"revert_reason,omitempty"`
	GasEstimate  uint64   `json:"gas_estimate,omitempty"`
}

// TxRequest is handed to the wallet for signing.
type TxRequest struct {
	ChainID int64
	From    string
	To      string
	Data    string
	Value   *big.Int
}

// Wallet signs and sends transactions.
type Wallet interface {
	Accounts(ctx context.Context) ([]string, error)
	SwitchChain(ctx context.Context, chainID int64) error
	SendTransaction(ctx context.Context, tx TxRequest) (string, error)
}

// SendResult is a mined transaction.
type SendResult struct {
	Function string           `json:"function"`
	Hash     string           `json:"hash"`
	From     string           `json:"from"`
	Receipt  *chain.TxReceipt `json:"receipt,omitempty"`
	Success  bool             `json:"success"`
	URL      string           `json:"url,omitempty"`
}

type prepared struct {
	fn       *contract.ParsedFunction
	method   *contract.Method
	calldata string
	value    *big.Int
}

// Prepare validates and encodes c without touching the network.
func (s *Session) Prepare(c Call) (string, error) {
	p, err := s.prepare(c)
	if err != nil {
		return "", err
	}
	return p.calldata, nil
}

func (s *Session) prepare(c Call) (*prepared, error) {
	fn, err := s.Functions.Find(c.Signature)
	if err != nil {
		return nil, err
	}
	inputs := fn.Entry.Inputs
	if len(c.Args) != len(inputs) {
		return nil, fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrInvalidArgument, fn.Signature, len(inputs), len(c.Args))
	}

	hints := s.Hints[fn.Signature]
	raw := make([]string, len(inputs))
	for i, in := range inputs {
		arg := c.Args[i]
		if !c.Raw && i < len(hints) {
			arg, err = hints[i].ToRaw(arg, c.Unit)
			if err != nil {
				return nil, fmt.Errorf("%w %s: %w", ErrInvalidArgument, paramName(in.Name, i), err)
			}
		}
		raw[i] = arg
	}

	m, err := contract.NewMethod(fn.Entry)
	if err != nil {
		return nil, err
	}
	calldata, err := m.Encode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	p := &prepared{fn: fn, method: m, calldata: calldata}
	if v := strings.TrimSpace(c.Value); v != "" && v != "0" {
		if !fn.Entry.IsPayable() {
			return nil, fmt.Errorf("%w: %s", ErrNotPayable, fn.Signature)
		}
		p.value, err = units.EtherToWei(v)
		if err != nil {
			return nil, fmt.Errorf("%w value: %w", ErrInvalidArgument, err)
		}
	}
	return p, nil
}

func paramName(name string, i int) string {
	if name == "" {
		return fmt.Sprintf("#%d", i)
	}
	return name
}

// Simulate dry-runs c against the session's contract with eth_call.
func (s *Studio) Simulate(ctx context.Context, sess *Session, c Call) (*SimulationResult, error) {
	if sess.client == nil {
		return nil, ErrDetached
	}
	p, err := sess.prepare(c)
	if err != nil {
		return nil, err
	}
	res, err := sess.client.SimulateCall(ctx, chain.CallMsg{
		From:  c.From,
		To:    sess.Address,
		Data:  p.calldata,
		Value: p.value,
	})
	if err != nil {
		return nil, fmt.Errorf("simulating %s: %w", p.fn.Signature, err)
	}
	out := &SimulationResult{
		Function:     p.fn.Signature,
		Calldata:     p.calldata,
		Success:      res.Success,
		RevertReason: res.RevertReason,
		GasEstimate:  res.GasEstimate,
	}
	if res.Success && res.ReturnData != "" && res.ReturnData != "0x" {
		if decoded, err := p.method.Decode(res.ReturnData); err == nil {
			out.Outputs = decoded
		}
	}
	s.log.WithFields(logrus.Fields{"function": p.fn.Signature, "success": out.Success}).Debug("simulated")
	return out, nil
}

// Send signs c through w and waits for the receipt. Dangerous functions
// need confirmation == ConfirmationToken, compared exactly.
func (s *Studio) Send(ctx context.Context, sess *Session, c Call, confirmation string, w Wallet) (*SendResult, error) {
	if sess.client == nil {
		return nil, ErrDetached
	}
	p, err := sess.prepare(c)
	if err != nil {
		return nil, err
	}
	if p.fn.Entry.IsReadFunction() {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, p.fn.Signature)
	}
	if p.fn.Dangerous && confirmation != ConfirmationToken {
		return nil, fmt.Errorf("%w (%s)", ErrConfirmationRequired, p.fn.Signature)
	}

	accounts, err := w.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccount
	}
	from := accounts[0]
	if c.From != "" {
		from = c.From
	}
	if err := w.SwitchChain(ctx, sess.Chain.ChainID); err != nil {
		return nil, fmt.Errorf("switching wallet to %s: %w", sess.Chain.Name, err)
	}

	hash, err := w.SendTransaction(ctx, TxRequest{
		ChainID: sess.Chain.ChainID,
		From:    from,
		To:      sess.Address,
		Data:    p.calldata,
		Value:   p.value,
	})
	if err != nil {
		return nil, fmt.Errorf("sending %s: %w", p.fn.Signature, err)
	}
	log := s.log.WithFields(logrus.Fields{"function": p.fn.Signature, "hash": hash})
	log.Info("transaction sent")

	out := &SendResult{Function: p.fn.Signature, Hash: hash, From: from, URL: sess.Chain.TxURL(hash)}
	receipt, err := sess.client.WaitForReceipt(ctx, hash, s.opts.ReceiptInterval)
	out.Receipt = receipt
	switch {
	case errors.Is(err, chain.ErrTxReverted):
		log.Warn("transaction reverted")
		return out, nil
	case err != nil:
		return out, fmt.Errorf("waiting for %s: %w", hash, err)
	}
	out.Success = true
	return out, nil
}
