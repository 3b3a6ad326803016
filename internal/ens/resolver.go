package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ENS Registry address, same on Ethereum mainnet and Sepolia.
const registryAddr = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"

const (
	selectorResolver = "0x0178b8bf" // resolver(bytes32)
	selectorAddr     = "0x3b3b57de" // addr(bytes32)
)

var (
	ErrNoResolver = errors.New("no resolver set")
	ErrNoAddress  = errors.New("no address record")
)

// Caller performs eth_call against a contract.
type Caller interface {
	CallContract(ctx context.Context, to, calldata string) (string, error)
}

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return false
	}
	i := strings.LastIndex(s, ".")
	return i > 0 && i < len(s)-1 && !strings.ContainsAny(s, " /\\")
}

// Resolve resolves an ENS name to a checksummed address.
// It queries the ENS registry for the resolver, then calls addr(bytes32) on it.
func Resolve(ctx context.Context, client Caller, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	node := Namehash(name)

	resolverResult, err := client.CallContract(ctx, registryAddr, selectorResolver+node)
	if err != nil {
		return "", fmt.Errorf("querying ENS registry: %w", err)
	}
	resolverAddr := parseAddress(resolverResult)
	if resolverAddr == "" {
		return "", fmt.Errorf("%w for %q", ErrNoResolver, name)
	}

	addrResult, err := client.CallContract(ctx, resolverAddr, selectorAddr+node)
	if err != nil {
		return "", fmt.Errorf("querying ENS resolver: %w", err)
	}
	resolved := parseAddress(addrResult)
	if resolved == "" {
		return "", fmt.Errorf("%w for %q", ErrNoAddress, name)
	}
	return resolved, nil
}

// Namehash implements EIP-137 namehash algorithm.
// namehash("") = 0x00...00
// namehash("eth") = keccak256(namehash("") + keccak256("eth"))
func Namehash(name string) string {
	node := make([]byte, 32)
	if name == "" {
		return fmt.Sprintf("%064x", node)
	}

	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := keccak256([]byte(labels[i]))
		node = keccak256(append(node, labelHash...))
	}
	return fmt.Sprintf("%064x", node)
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// parseAddress extracts a non-zero address from a 32-byte ABI-encoded word.
func parseAddress(hexResult string) string {
	clean := strings.TrimPrefix(hexResult, "0x")
	if len(clean) < 64 {
		return ""
	}
	addr := common.HexToAddress(clean[24:64])
	if addr == (common.Address{}) {
		return ""
	}
	return addr.Hex()
}
