package units

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, s)
	return n
}

// ---------------------------------------------------------------------------
// Infer
// ---------------------------------------------------------------------------

func TestInferAddressIsNone(t *testing.T) {
	assert.Equal(t, CategoryNone, Infer("feeCollectorAddress", "address").Category)
}

func TestInferBytes32(t *testing.T) {
	assert.Equal(t, CategoryBytes32Text, Infer("role", "bytes32").Category)
}

func TestInferNeverConvert(t *testing.T) {
	for _, name := range []string{"tokenId", "nonce", "decimals", "orderStatus", "roundNumber"} {
		assert.Equal(t, CategoryRaw, Infer(name, "uint256").Category, name)
	}
}

func TestInferTimestamp(t *testing.T) {
	for _, name := range []string{"deadline", "unlockTime", "_expiry", "vestingStart"} {
		assert.Equal(t, CategoryUnixTimestamp, Infer(name, "uint64").Category, name)
	}
}

func TestInferBasisPoints(t *testing.T) {
	for _, name := range []string{"feeBps", "protocol_fee_bps", "interestRate", "apy"} {
		assert.Equal(t, CategoryBasisPoints, Infer(name, "uint16").Category, name)
	}
}

func TestInferAmount(t *testing.T) {
	for _, name := range []string{"maxAmountIn", "amount", "wad", "value", "shares"} {
		assert.Equal(t, CategoryTokenDecimal, Infer(name, "uint256").Category, name)
	}
}

func TestInferFallbacks(t *testing.T) {
	assert.Equal(t, CategoryRaw, Infer("x", "uint256").Category)
	assert.Equal(t, CategoryNone, Infer("flag", "bool").Category)
	assert.Equal(t, CategoryNone, Infer("amounts", "uint256[]").Category)
	assert.Equal(t, CategoryNone, Infer("data", "bytes").Category)
}

func TestWithDecimalsOnlyForTokenAmounts(t *testing.T) {
	h := Infer("amount", "uint256").WithDecimals(18)
	require.NotNil(t, h.Decimals)
	assert.Equal(t, 18, *h.Decimals)
	assert.Equal(t, UnitToken, h.Units()[0])

	raw := Infer("x", "uint256").WithDecimals(18)
	assert.Nil(t, raw.Decimals)
}

func TestUnitsWithoutDecimalsFallsBackToEther(t *testing.T) {
	assert.Equal(t, []Unit{UnitEther, UnitGwei, UnitWei}, Infer("amount", "uint256").Units())
}

// ---------------------------------------------------------------------------
// round trips
// ---------------------------------------------------------------------------

func TestTokenDecimalRoundTrip(t *testing.T) {
	values := []string{"0", "1", "999999", "1000000000000000000",
		"115792089237316195423570985008687907853269984665640564039457584007913129639935"}
	for _, d := range []int{0, 6, 8, 18, 24} {
		for _, v := range values {
			raw := bigFromString(t, v)
			disp, err := ToDisplay(raw, d)
			require.NoError(t, err)
			back, err := FromDisplay(disp, d)
			require.NoError(t, err)
			assert.Equal(t, 0, raw.Cmp(back), "d=%d v=%s disp=%s", d, v, disp)
		}
	}
}

func TestWeiEtherRoundTrip(t *testing.T) {
	wei := bigFromString(t, "1234567890123456789012")
	eth := WeiToEther(wei)
	assert.Equal(t, "1234.567890123456789012", eth)
	back, err := EtherToWei(eth)
	require.NoError(t, err)
	assert.Equal(t, wei.String(), back.String())
}

func TestWeiGweiRoundTrip(t *testing.T) {
	wei := bigFromString(t, "30000000001")
	g := WeiToGwei(wei)
	assert.Equal(t, "30.000000001", g)
	back, err := GweiToWei(g)
	require.NoError(t, err)
	assert.Equal(t, wei.String(), back.String())
}

func TestFromDisplayRejectsExcessPrecision(t *testing.T) {
	_, err := FromDisplay("1.0000001", 6)
	assert.ErrorIs(t, err, ErrTooPrecise)
}

func TestFromDisplayRejectsGarbage(t *testing.T) {
	_, err := FromDisplay("1e18", 18)
	assert.ErrorIs(t, err, ErrNotANumber)
	_, err = FromDisplay("abc", 18)
	assert.ErrorIs(t, err, ErrNotANumber)
}

func TestDecimalsRange(t *testing.T) {
	_, err := ToDisplay(big.NewInt(1), 256)
	assert.ErrorIs(t, err, ErrDecimalsRange)
	_, err = FromDisplay("1", -1)
	assert.ErrorIs(t, err, ErrDecimalsRange)
}

// ---------------------------------------------------------------------------
// basis points
// ---------------------------------------------------------------------------

func TestBpsToPercent(t *testing.T) {
	assert.Equal(t, "1.25", BpsToPercent(big.NewInt(125)))
	assert.Equal(t, "100.00", BpsToPercent(big.NewInt(10000)))
	assert.Equal(t, "0.00", BpsToPercent(big.NewInt(0)))
}

func TestPercentToBps(t *testing.T) {
	n, err := PercentToBps("1.25")
	require.NoError(t, err)
	assert.Equal(t, int64(125), n.Int64())

	n, err = PercentToBps("1.255")
	require.NoError(t, err)
	assert.Equal(t, int64(126), n.Int64(), "rounds to nearest basis point")
}

func TestBpsRoundTrip(t *testing.T) {
	for _, b := range []int64{0, 1, 99, 125, 5000, 10000} {
		back, err := PercentToBps(BpsToPercent(big.NewInt(b)))
		require.NoError(t, err)
		assert.Equal(t, b, back.Int64())
	}
}

// ---------------------------------------------------------------------------
// timestamps
// ---------------------------------------------------------------------------

func TestUnixTimeRoundTrip(t *testing.T) {
	ts, err := UnixToTime(big.NewInt(1893456000))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
	assert.Equal(t, "2030-01-01T00:00:00Z", ts.Format(time.RFC3339))
	assert.Equal(t, int64(1893456000), TimeToUnix(ts).Int64())
}

func TestParseDateTime(t *testing.T) {
	n, err := ParseDateTime("2030-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1893456000), n.Int64())

	n, err = ParseDateTime("2030-01-01 00:00")
	require.NoError(t, err)
	assert.Equal(t, int64(1893456000), n.Int64(), "no zone means UTC")

	n, err = ParseDateTime("1893456000")
	require.NoError(t, err)
	assert.Equal(t, int64(1893456000), n.Int64())

	_, err = ParseDateTime("next tuesday")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// bytes32
// ---------------------------------------------------------------------------

func TestBytes32HelloRoundTrip(t *testing.T) {
	enc, err := TextToBytes32("Hello")
	require.NoError(t, err)
	assert.Equal(t, "0x48656c6c6f"+strings.Repeat("00", 27), enc)
	assert.Len(t, enc, 66)

	dec, err := Bytes32ToText(enc)
	require.NoError(t, err)
	assert.Equal(t, "Hello", dec)
}

func TestTextToBytes32TooLong(t *testing.T) {
	_, err := TextToBytes32(strings.Repeat("a", 33))
	assert.ErrorIs(t, err, ErrTextTooLong)

	_, err = TextToBytes32(strings.Repeat("a", 32))
	assert.NoError(t, err)
}

func TestBytes32ToTextInvalid(t *testing.T) {
	_, err := Bytes32ToText("0x1234")
	assert.ErrorIs(t, err, ErrInvalidBytes32)
	_, err = Bytes32ToText("0xff" + strings.Repeat("00", 31))
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

// ---------------------------------------------------------------------------
// hint conversion
// ---------------------------------------------------------------------------

func TestHintToRawTokenDecimals(t *testing.T) {
	h := Infer("amount", "uint256").WithDecimals(6)
	raw, err := h.ToRaw("12.5", "")
	require.NoError(t, err)
	assert.Equal(t, "12500000", raw)

	disp, err := h.FromRaw(raw, "")
	require.NoError(t, err)
	assert.Equal(t, "12.5", disp)
}

func TestHintToRawUnitOverride(t *testing.T) {
	h := Infer("amount", "uint256")
	raw, err := h.ToRaw("2", UnitGwei)
	require.NoError(t, err)
	assert.Equal(t, "2000000000", raw)

	_, err = h.ToRaw("2", UnitToken)
	assert.ErrorIs(t, err, ErrNoDecimals)
}

func TestHintToRawBytes32(t *testing.T) {
	h := Infer("name", "bytes32")
	raw, err := h.ToRaw("Hello", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "0x48656c6c6f"))

	hexIn := "0x" + strings.Repeat("ab", 32)
	raw, err = h.ToRaw(hexIn, "")
	require.NoError(t, err)
	assert.Equal(t, hexIn, raw)
}

func TestHintTimestampRoundTrip(t *testing.T) {
	h := Infer("deadline", "uint256")
	raw, err := h.ToRaw("2030-01-01T00:00:00Z", "")
	require.NoError(t, err)
	assert.Equal(t, "1893456000", raw)
	disp, err := h.FromRaw(raw, "")
	require.NoError(t, err)
	assert.Equal(t, "2030-01-01T00:00:00Z", disp)
}

func TestHintRawPassThrough(t *testing.T) {
	h := Infer("tokenId", "uint256")
	raw, err := h.ToRaw(" 42 ", "")
	require.NoError(t, err)
	assert.Equal(t, "42", raw)
}
