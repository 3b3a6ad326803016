package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const daiChecksummed = "0x6B175474E89094C44Da98b954EedeAC495271d0F"

// ---------------------------------------------------------------------------
// address
// ---------------------------------------------------------------------------

func TestAddressChecksumValid(t *testing.T) {
	assert.NoError(t, Value("address", daiChecksummed))
}

func TestAddressLowercaseAccepted(t *testing.T) {
	assert.NoError(t, Value("address", strings.ToLower(daiChecksummed)))
}

func TestAddressBadChecksum(t *testing.T) {
	bad := "0x6b175474E89094C44Da98b954EedeAC495271d0F"
	err := Value("address", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum")
	assert.Contains(t, err.Error(), "address")
}

func TestAddressWrongLength(t *testing.T) {
	err := Value("address", "0x1234")
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "address", verr.Type)
}

func TestAddressMissingPrefix(t *testing.T) {
	assert.Error(t, Value("address", daiChecksummed[2:]))
}

// ---------------------------------------------------------------------------
// scalars
// ---------------------------------------------------------------------------

func TestBool(t *testing.T) {
	assert.NoError(t, Value("bool", "true"))
	assert.NoError(t, Value("bool", "FALSE"))
	assert.Error(t, Value("bool", "yes"))
}

func TestUint(t *testing.T) {
	assert.NoError(t, Value("uint256", "0"))
	assert.NoError(t, Value("uint256", "115792089237316195423570985008687907853269984665640564039457584007913129639935"))
	assert.Error(t, Value("uint256", "115792089237316195423570985008687907853269984665640564039457584007913129639936"))
	assert.Error(t, Value("uint8", "256"))
	assert.Error(t, Value("uint256", "-1"))

	err := Value("uint256", "1.5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decimal point")
}

func TestInt(t *testing.T) {
	assert.NoError(t, Value("int256", "-42"))
	assert.NoError(t, Value("int8", "-128"))
	assert.Error(t, Value("int8", "128"))
	assert.Error(t, Value("int", "1.0"))
	assert.Error(t, Value("int64", "abc"))
}

func TestString(t *testing.T) {
	assert.NoError(t, Value("string", "anything at all"))
}

func TestBytes32HexOrText(t *testing.T) {
	assert.NoError(t, Value("bytes32", "0x"+strings.Repeat("ab", 32)))
	assert.NoError(t, Value("bytes32", "Hello"))
	err := Value("bytes32", strings.Repeat("x", 33))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bytes32")
}

func TestFixedBytes(t *testing.T) {
	assert.NoError(t, Value("bytes4", "0xa9059cbb"))
	assert.Error(t, Value("bytes4", "0xa9059c"))
	assert.Error(t, Value("bytes4", "transfer"))
}

func TestDynamicBytes(t *testing.T) {
	assert.NoError(t, Value("bytes", "0x"))
	assert.NoError(t, Value("bytes", "0xdeadbeef"))
	assert.Error(t, Value("bytes", "0xabc"))
	assert.Error(t, Value("bytes", "0xzz"))
}

func TestUnknownTypeAcceptsAnything(t *testing.T) {
	assert.NoError(t, Value("tuple", "(1,2)"))
	assert.NoError(t, Value("function", "whatever"))
}

// ---------------------------------------------------------------------------
// arrays
// ---------------------------------------------------------------------------

func TestNormalizeArrayNumeric(t *testing.T) {
	out, err := NormalizeArray("uint256[]", "1, 2,3")
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", out)
}

func TestNormalizeArrayQuotes(t *testing.T) {
	out, err := NormalizeArray("address[]", `0xabc, "0xdef"`)
	require.NoError(t, err)
	assert.Equal(t, `["0xabc","0xdef"]`, out)
}

func TestNormalizeArrayJSONPassThrough(t *testing.T) {
	out, err := NormalizeArray("string[]", `["a","b"]`)
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, out)

	_, err = NormalizeArray("string[]", `["a",`)
	assert.Error(t, err)
}

func TestArrayElementValidation(t *testing.T) {
	assert.NoError(t, Value("uint256[]", "1,2,3"))
	err := Value("uint256[]", "1,2.5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")

	assert.NoError(t, Value("address[]", daiChecksummed+","+strings.ToLower(daiChecksummed)))
	assert.Error(t, Value("address[]", "0x1"))
}

func TestFixedArrayLength(t *testing.T) {
	assert.NoError(t, Value("uint8[2]", "1,2"))
	assert.Error(t, Value("uint8[2]", "1,2,3"))
}

func TestNestedArray(t *testing.T) {
	assert.NoError(t, Value("uint256[][]", "[[1,2],[3]]"))
	assert.Error(t, Value("uint256[][]", "[[1,-2]]"))
}
