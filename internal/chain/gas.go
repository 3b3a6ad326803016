package chain

import (
	"context"
	"encoding/json"
	"math/big"
)

// FeeSuggestion holds the EIP-1559 fee caps used to build a transaction.
// On chains without a base fee, GasFeeCap and GasTipCap both equal the
// legacy gas price.
type FeeSuggestion struct {
	BaseFee   *big.Int
	GasTipCap *big.Int
	GasFeeCap *big.Int
}

// SuggestFees derives fee caps from the latest base fee and the node's
// priority-fee suggestion: feeCap = 2*baseFee + tip.
func (c *EVMClient) SuggestFees(ctx context.Context) (*FeeSuggestion, error) {
	baseFee := c.latestBaseFee(ctx)
	if baseFee == nil {
		gp, err := c.GasPrice(ctx)
		if err != nil {
			return nil, err
		}
		return &FeeSuggestion{GasTipCap: gp, GasFeeCap: gp}, nil
	}

	tip, err := c.MaxPriorityFee(ctx)
	if err != nil {
		// Older nodes lack eth_maxPriorityFeePerGas.
		tip = big.NewInt(1_500_000_000)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)
	return &FeeSuggestion{BaseFee: baseFee, GasTipCap: tip, GasFeeCap: feeCap}, nil
}

func (c *EVMClient) latestBaseFee(ctx context.Context) *big.Int {
	raw, err := c.callRaw(ctx, "eth_getBlockByNumber", "latest", false)
	if err != nil || len(raw) == 0 {
		return nil
	}
	var rb struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}
	if json.Unmarshal(raw, &rb) != nil || rb.BaseFeePerGas == "" {
		return nil
	}
	bf, ok := parseBigHex(rb.BaseFeePerGas)
	if !ok {
		return nil
	}
	return bf
}
