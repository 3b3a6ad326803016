package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// ErrTxReverted is returned by WaitForReceipt when the mined transaction
// has status 0.
var ErrTxReverted = errors.New("transaction reverted")

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url    string
	client *http.Client
	nextID atomic.Int64
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string) *EVMClient {
	return &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// URL returns the endpoint the client talks to.
func (c *EVMClient) URL() string { return c.url }

// CallMsg is the argument of eth_call / eth_estimateGas.
type CallMsg struct {
	From  string
	To    string
	Data  string
	Value *big.Int
}

func (m CallMsg) params() map[string]string {
	p := map[string]string{"to": m.To}
	if m.From != "" {
		p["from"] = m.From
	}
	if m.Data != "" {
		p["data"] = m.Data
	}
	if m.Value != nil && m.Value.Sign() > 0 {
		p["value"] = "0x" + m.Value.Text(16)
	}
	return p
}

// CallResult is the outcome of a simulated call. A revert is a normal
// result, not an error.
type CallResult struct {
	Success      bool   `json:"success"`
	ReturnData   string `json:"return_data,omitempty"`
	RevertReason string `json:"revert_reason,omitempty"`
	GasEstimate  uint64 `json:"gas_estimate,omitempty"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// IsRevert reports whether the node rejected a call because execution
// reverted.
func (e *RPCError) IsRevert() bool {
	m := strings.ToLower(e.Message)
	return e.Code == 3 || strings.Contains(m, "revert") || strings.Contains(m, "execution")
}

// GetStorageAt reads a raw 32-byte storage slot from a contract.
func (c *EVMClient) GetStorageAt(ctx context.Context, address, slot string) (string, error) {
	if !strings.HasPrefix(slot, "0x") {
		slot = "0x" + slot
	}
	return c.callString(ctx, "eth_getStorageAt", address, slot, "latest")
}

// GetCode returns the bytecode at an address. Empty "0x" means no code.
func (c *EVMClient) GetCode(ctx context.Context, address string) (string, error) {
	return c.callString(ctx, "eth_getCode", address, "latest")
}

// CallContract calls a contract read function with the given calldata.
func (c *EVMClient) CallContract(ctx context.Context, toAddr, calldata string) (string, error) {
	return c.callString(ctx, "eth_call", CallMsg{To: toAddr, Data: calldata}.params(), "latest")
}

// SimulateCall dry-runs msg with eth_call. Reverts come back as
// CallResult{Success: false}; only transport and node failures are errors.
func (c *EVMClient) SimulateCall(ctx context.Context, msg CallMsg) (*CallResult, error) {
	out, err := c.callString(ctx, "eth_call", msg.params(), "latest")
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && rpcErr.IsRevert() {
			return &CallResult{Success: false, RevertReason: revertReason(rpcErr)}, nil
		}
		return nil, err
	}
	res := &CallResult{Success: true, ReturnData: out}
	if gas, err := c.EstimateGas(ctx, msg); err == nil {
		res.GasEstimate = gas
	}
	return res, nil
}

// EstimateGas estimates gas for a transaction.
func (c *EVMClient) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	return c.callUint(ctx, "eth_estimateGas", msg.params(), "latest")
}

// GasPrice returns the current legacy gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_gasPrice")
}

// MaxPriorityFee returns the node's suggested EIP-1559 tip.
func (c *EVMClient) MaxPriorityFee(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_maxPriorityFeePerGas")
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (int64, error) {
	n, err := c.callBig(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// PendingNonce returns the transaction count including queued transactions.
func (c *EVMClient) PendingNonce(ctx context.Context, address string) (uint64, error) {
	return c.callUint(ctx, "eth_getTransactionCount", address, "pending")
}

// SendRawTransaction broadcasts a signed raw transaction.
func (c *EVMClient) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	return c.callString(ctx, "eth_sendRawTransaction", rawTx)
}

// TxReceipt holds the on-chain receipt of a mined transaction.
type TxReceipt struct {
	Hash        string `json:"hash"`
	Status      uint64 `json:"status"` // 1 = success, 0 = reverted
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

// GetTransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash string) (*TxReceipt, error) {
	raw, err := c.callRaw(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var r struct {
		Status      string `json:"status"`
		BlockNumber string `json:"blockNumber"`
		GasUsed     string `json:"gasUsed"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}

	receipt := &TxReceipt{Hash: hash}
	if s, ok := parseBigHex(r.Status); ok {
		receipt.Status = s.Uint64()
	}
	if bn, ok := parseBigHex(r.BlockNumber); ok {
		receipt.BlockNumber = bn.Uint64()
	}
	if gu, ok := parseBigHex(r.GasUsed); ok {
		receipt.GasUsed = gu.Uint64()
	}
	return receipt, nil
}

// WaitForReceipt polls every interval until the transaction is mined or ctx
// is done. A mined but reverted transaction returns the receipt together
// with ErrTxReverted.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash string, interval time.Duration) (*TxReceipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		receipt, err := c.GetTransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrTxReverted, hash)
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.callUint(ctx, "eth_blockNumber")
	return time.Since(start), blockNum, err
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func (c *EVMClient) callRaw(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

func (c *EVMClient) callString(ctx context.Context, method string, params ...interface{}) (string, error) {
	raw, err := c.callRaw(ctx, method, params...)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("unexpected %s result: %s", method, string(raw))
	}
	return s, nil
}

func (c *EVMClient) callBig(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	s, err := c.callString(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	n, ok := parseBigHex(s)
	if !ok {
		return nil, fmt.Errorf("could not parse %s result: %s", method, s)
	}
	return n, nil
}

func (c *EVMClient) callUint(ctx context.Context, method string, params ...interface{}) (uint64, error) {
	n, err := c.callBig(ctx, method, params...)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// --- helpers ---

// errorSelector is the selector of Error(string), the standard revert payload.
const errorSelector = "08c379a0"

// revertReason extracts a readable reason from a revert error. ABI-encoded
// Error(string) data is decoded; otherwise the node message is returned.
func revertReason(e *RPCError) string {
	var data string
	if len(e.Data) > 0 {
		if json.Unmarshal(e.Data, &data) != nil {
			var nested struct {
				Data string `json:"data"`
			}
			if json.Unmarshal(e.Data, &nested) == nil {
				data = nested.Data
			}
		}
	}
	if reason, ok := decodeErrorString(data); ok {
		return reason
	}
	if idx := strings.Index(e.Message, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(e.Message[idx+len("execution reverted:"):])
	}
	return e.Message
}

func decodeErrorString(data string) (string, bool) {
	h := strings.TrimPrefix(data, "0x")
	if !strings.HasPrefix(h, errorSelector) {
		return "", false
	}
	b, err := hex.DecodeString(h[len(errorSelector):])
	if err != nil || len(b) < 64 {
		return "", false
	}
	length := new(big.Int).SetBytes(b[32:64])
	if !length.IsInt64() || 64+length.Int64() > int64(len(b)) {
		return "", false
	}
	return string(b[64 : 64+length.Int64()]), true
}

func parseBigHex(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return new(big.Int), true
	}
	return new(big.Int).SetString(s, 16)
}
