package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/studio"
)

var (
	ErrNoChain      = errors.New("wallet is not connected to a chain")
	ErrWrongChain   = errors.New("RPC endpoint reports a different chain id")
	ErrFromMismatch = errors.New("transaction sender is not the wallet account")
)

// Backend is the chain access a local wallet needs to send.
type Backend interface {
	ChainID(ctx context.Context) (int64, error)
	PendingNonce(ctx context.Context, address string) (uint64, error)
	SuggestFees(ctx context.Context) (*chain.FeeSuggestion, error)
	EstimateGas(ctx context.Context, msg chain.CallMsg) (uint64, error)
	SendRawTransaction(ctx context.Context, rawTx string) (string, error)
}

// DialFunc returns a backend for a chain id.
type DialFunc func(ctx context.Context, chainID int64) (Backend, error)

// Local signs with a key held by the Manager and broadcasts through a
// Backend. It satisfies studio.Wallet.
type Local struct {
	m       *Manager
	account *Account
	dial    DialFunc
	backend Backend
	chainID int64
	// GasMargin is added to the gas estimate, in percent.
	GasMargin int64
}

// NewLocal returns a wallet for account.
func NewLocal(m *Manager, account *Account, dial DialFunc) *Local {
	return &Local{m: m, account: account, dial: dial, GasMargin: 20}
}

// Accounts returns the single account.
func (l *Local) Accounts(context.Context) ([]string, error) {
	return []string{l.account.Address}, nil
}

// SwitchChain connects to chainID and checks the endpoint agrees.
func (l *Local) SwitchChain(ctx context.Context, chainID int64) error {
	b, err := l.dial(ctx, chainID)
	if err != nil {
		return err
	}
	got, err := b.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}
	if got != chainID {
		return fmt.Errorf("%w: want %d, got %d", ErrWrongChain, chainID, got)
	}
	l.backend, l.chainID = b, chainID
	return nil
}

// SendTransaction builds an EIP-1559 transaction, signs it and broadcasts
// it. It returns the transaction hash.
func (l *Local) SendTransaction(ctx context.Context, req studio.TxRequest) (string, error) {
	if l.backend == nil {
		return "", ErrNoChain
	}
	if req.ChainID != l.chainID {
		return "", fmt.Errorf("%w: connected to %d, transaction for %d", ErrWrongChain, l.chainID, req.ChainID)
	}
	if req.From != "" && common.HexToAddress(req.From) != common.HexToAddress(l.account.Address) {
		return "", fmt.Errorf("%w: %s", ErrFromMismatch, req.From)
	}

	data, err := hexutil.Decode(req.Data)
	if err != nil {
		return "", fmt.Errorf("decoding calldata: %w", err)
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := l.backend.PendingNonce(ctx, l.account.Address)
	if err != nil {
		return "", fmt.Errorf("getting nonce: %w", err)
	}
	fees, err := l.backend.SuggestFees(ctx)
	if err != nil {
		return "", fmt.Errorf("suggesting fees: %w", err)
	}
	gas, err := l.backend.EstimateGas(ctx, chain.CallMsg{From: l.account.Address, To: req.To, Data: req.Data, Value: value})
	if err != nil {
		return "", fmt.Errorf("estimating gas: %w", err)
	}
	gas += gas * uint64(l.GasMargin) / 100

	to := common.HexToAddress(req.To)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(req.ChainID),
		Nonce:     nonce,
		GasTipCap: fees.GasTipCap,
		GasFeeCap: fees.GasFeeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	raw, err := l.signTx(tx, big.NewInt(req.ChainID))
	if err != nil {
		return "", err
	}
	return l.backend.SendRawTransaction(ctx, hexutil.Encode(raw))
}

// signTx signs tx with the account key and returns the raw encoding.
func (l *Local) signTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	key, err := l.m.privateKey(l.account)
	if err != nil {
		return nil, err
	}
	if crypto.PubkeyToAddress(key.PublicKey) != common.HexToAddress(l.account.Address) {
		return nil, fmt.Errorf("%w: key does not match %s", ErrInvalidKey, l.account.Address)
	}
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return raw, nil
}
