package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ---------------------------------------------------------------------------
// Words
// ---------------------------------------------------------------------------

func TestWordsCamelCase(t *testing.T) {
	assert.Equal(t, []string{"max", "amount", "in"}, Words("maxAmountIn"))
}

func TestWordsSnakeCase(t *testing.T) {
	assert.Equal(t, []string{"unlock", "time"}, Words("_unlock_time"))
}

func TestWordsAcronym(t *testing.T) {
	assert.Equal(t, []string{"amount", "eth", "max"}, Words("amountETHMax"))
}

func TestWordsEmpty(t *testing.T) {
	assert.Empty(t, Words(""))
}

// ---------------------------------------------------------------------------
// modes
// ---------------------------------------------------------------------------

func TestExact(t *testing.T) {
	m := New(Exact, "transferownership")
	assert.True(t, m.Match("transferOwnership"))
	assert.True(t, m.Match("transfer_ownership"))
	assert.False(t, m.Match("transferOwnershipSafe"))
}

func TestPrefix(t *testing.T) {
	m := New(Prefix, "upgradeto")
	assert.True(t, m.Match("upgradeTo"))
	assert.True(t, m.Match("upgradeToAndCall"))
	assert.False(t, m.Match("doUpgradeTo"))
}

func TestSuffix(t *testing.T) {
	m := New(Suffix, "owner")
	assert.True(t, m.Match("setOwner"))
	assert.False(t, m.Match("ownerOf"))
}

func TestContains(t *testing.T) {
	m := New(Contains, "id")
	assert.True(t, m.Match("tokenId"))
	assert.True(t, m.Match("liquidity"))
	assert.False(t, m.Match("amount"))
}

func TestWordBoundaries(t *testing.T) {
	m := New(Word, "amount")
	assert.True(t, m.Match("amount"), "exact")
	assert.True(t, m.Match("amountOut"), "start")
	assert.True(t, m.Match("maxAmount"), "end")
	assert.True(t, m.Match("maxAmountIn"), "inner")
	assert.True(t, m.Match("max_amount_in"), "snake")
	assert.False(t, m.Match("amounts"))
	assert.False(t, m.Match("paramount"))
}

func TestWordMultiWordFragment(t *testing.T) {
	m := New(Word, "feeBps", "basisPoints")
	assert.True(t, m.Match("protocolFeeBps"))
	assert.True(t, m.Match("basis_points"))
	assert.False(t, m.Match("feeCollectorAddress"))
}

func TestFindReturnsFragment(t *testing.T) {
	frag, ok := New(Word, "deadline", "expiry").Find("orderExpiry")
	assert.True(t, ok)
	assert.Equal(t, "expiry", frag)
}

func TestEmptyIdentifierNeverMatches(t *testing.T) {
	assert.False(t, Any("", Contains, "a"))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "word", Word.String())
	assert.Equal(t, "unknown", Mode(42).String())
}
