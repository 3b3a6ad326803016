package contract

import (
	"context"
	"fmt"
)

// Reader performs eth_call.
type Reader interface {
	CallContract(ctx context.Context, to, calldata string) (string, error)
}

// CallFunction encodes, calls and decodes a single function entry.
func CallFunction(ctx context.Context, client Reader, contractAddr string, e ABIEntry, args ...string) ([]string, error) {
	m, err := NewMethod(e)
	if err != nil {
		return nil, err
	}
	calldata, err := m.Encode(args)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}
	result, err := client.CallContract(ctx, contractAddr, calldata)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}
	decoded, err := m.Decode(result)
	if err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return decoded, nil
}
