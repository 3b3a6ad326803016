package ens

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// EIP-137 namehash vectors
// ---------------------------------------------------------------------------

func TestNamehash_Empty(t *testing.T) {
	assert.Equal(t, strings.Repeat("0", 64), Namehash(""))
}

func TestNamehash_ETH(t *testing.T) {
	assert.Equal(t, "93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae", Namehash("eth"))
}

func TestNamehash_FooETH(t *testing.T) {
	assert.Equal(t, "de9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f", Namehash("foo.eth"))
}

func TestNamehash_Subdomain(t *testing.T) {
	result := Namehash("sub.test.eth")
	assert.Len(t, result, 64)
	assert.NotEqual(t, Namehash("test.eth"), result)
}

// ---------------------------------------------------------------------------
// IsName
// ---------------------------------------------------------------------------

func TestIsName(t *testing.T) {
	assert.True(t, IsName("vitalik.eth"))
	assert.True(t, IsName("sub.name.eth"))
	assert.False(t, IsName("0x6B175474E89094C44Da98b954EedeAC495271d0F"))
	assert.False(t, IsName("eth"))
	assert.False(t, IsName("name."))
	assert.False(t, IsName("bad name.eth"))
}

// ---------------------------------------------------------------------------
// Resolve
// ---------------------------------------------------------------------------

// fakeCaller answers eth_call by target address.
type fakeCaller struct {
	byTarget map[string]string
	err      error
	calls    []string
}

func (f *fakeCaller) CallContract(_ context.Context, to, data string) (string, error) {
	f.calls = append(f.calls, to+":"+data[:10])
	if f.err != nil {
		return "", f.err
	}
	return f.byTarget[strings.ToLower(to)], nil
}

func word(addr string) string {
	return "0x" + strings.Repeat("0", 24) + strings.ToLower(strings.TrimPrefix(addr, "0x"))
}

var (
	resolverAddr = common.HexToAddress("0x4976fb03c32e5b8cfe2b6ccb31c09ba78ebaba41").Hex()
	vitalikAddr  = common.HexToAddress("0xd8da6bf26964af9d7eed9e03e53415d37aa96045").Hex()
)

func TestResolveSuccess(t *testing.T) {
	f := &fakeCaller{byTarget: map[string]string{
		strings.ToLower(registryAddr): word(resolverAddr),
		strings.ToLower(resolverAddr): word(vitalikAddr),
	}}
	got, err := Resolve(context.Background(), f, "Vitalik.eth")
	require.NoError(t, err)
	assert.Equal(t, vitalikAddr, got)
	require.Len(t, f.calls, 2)
	assert.Equal(t, registryAddr+":"+selectorResolver, f.calls[0])
}

func TestResolveNoResolver(t *testing.T) {
	f := &fakeCaller{byTarget: map[string]string{
		strings.ToLower(registryAddr): "0x" + strings.Repeat("0", 64),
	}}
	_, err := Resolve(context.Background(), f, "nobody.eth")
	assert.ErrorIs(t, err, ErrNoResolver)
}

func TestResolveNoAddress(t *testing.T) {
	f := &fakeCaller{byTarget: map[string]string{
		strings.ToLower(registryAddr): word(resolverAddr),
		strings.ToLower(resolverAddr): "0x",
	}}
	_, err := Resolve(context.Background(), f, "empty.eth")
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestResolveRPCError(t *testing.T) {
	f := &fakeCaller{err: errors.New("connection refused")}
	_, err := Resolve(context.Background(), f, "x.eth")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENS registry")
}
