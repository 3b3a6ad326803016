package units

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest decimals value an ERC-20 can declare (uint8).
const MaxDecimals = 255

// Unit is a display unit for integer amounts.
type Unit string

const (
	UnitToken Unit = "token"
	UnitEther Unit = "ether"
	UnitGwei  Unit = "gwei"
	UnitWei   Unit = "wei"
)

var (
	ErrDecimalsRange  = errors.New("decimals must be between 0 and 255")
	ErrTooPrecise     = errors.New("value has more decimal places than the unit allows")
	ErrNotANumber     = errors.New("not a decimal number")
	ErrTextTooLong    = errors.New("text exceeds 32 bytes")
	ErrInvalidBytes32 = errors.New("not a 32-byte hex value")
	ErrInvalidUTF8    = errors.New("bytes32 value is not valid UTF-8 text")
	ErrUnknownUnit    = errors.New("unknown unit")
	ErrNoDecimals     = errors.New("token decimals unknown")
)

// Decimals returns the power-of-ten exponent for u. token uses tokenDecimals.
func (u Unit) Decimals(tokenDecimals *int) (int, error) {
	switch u {
	case UnitWei:
		return 0, nil
	case UnitGwei:
		return 9, nil
	case UnitEther:
		return 18, nil
	case UnitToken:
		if tokenDecimals == nil {
			return 0, ErrNoDecimals
		}
		return *tokenDecimals, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, string(u))
	}
}

// ---------------------------------------------------------------------------
// fixed-point amounts
// ---------------------------------------------------------------------------

// ToDisplay renders raw scaled down by 10^decimals without losing precision.
func ToDisplay(raw *big.Int, decimals int) (string, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return "", ErrDecimalsRange
	}
	if raw == nil {
		raw = new(big.Int)
	}
	return decimal.NewFromBigInt(raw, int32(-decimals)).String(), nil
}

// FromDisplay parses a decimal literal and scales it up by 10^decimals. Input
// with more fractional digits than decimals is rejected rather than rounded.
func FromDisplay(display string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, ErrDecimalsRange
	}
	d, err := parseDecimal(display)
	if err != nil {
		return nil, err
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s with %d decimals", ErrTooPrecise, display, decimals)
	}
	return scaled.BigInt(), nil
}

// WeiToEther formats wei as ether.
func WeiToEther(wei *big.Int) string { s, _ := ToDisplay(wei, 18); return s }

// EtherToWei parses an ether amount into wei.
func EtherToWei(ether string) (*big.Int, error) { return FromDisplay(ether, 18) }

// WeiToGwei formats wei as gwei.
func WeiToGwei(wei *big.Int) string { s, _ := ToDisplay(wei, 9); return s }

// GweiToWei parses a gwei amount into wei.
func GweiToWei(gwei string) (*big.Int, error) { return FromDisplay(gwei, 9) }

// ---------------------------------------------------------------------------
// basis points
// ---------------------------------------------------------------------------

// BpsToPercent renders basis points as a percent with two decimal places.
func BpsToPercent(bps *big.Int) string {
	if bps == nil {
		bps = new(big.Int)
	}
	return decimal.NewFromBigInt(bps, -2).StringFixed(2)
}

// PercentToBps converts a percent literal to basis points, rounding to the
// nearest whole basis point.
func PercentToBps(percent string) (*big.Int, error) {
	d, err := parseDecimal(percent)
	if err != nil {
		return nil, err
	}
	return d.Shift(2).Round(0).BigInt(), nil
}

// ---------------------------------------------------------------------------
// timestamps
// ---------------------------------------------------------------------------

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// UnixToTime converts seconds since epoch to a UTC time.
func UnixToTime(secs *big.Int) (time.Time, error) {
	if secs == nil || !secs.IsInt64() {
		return time.Time{}, fmt.Errorf("timestamp out of range")
	}
	return time.Unix(secs.Int64(), 0).UTC(), nil
}

// TimeToUnix converts t to UTC seconds since epoch.
func TimeToUnix(t time.Time) *big.Int {
	return big.NewInt(t.UTC().Unix())
}

// ParseDateTime parses a date-time literal. Values without a zone are UTC.
// A bare integer is taken as seconds since epoch.
func ParseDateTime(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return n, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return TimeToUnix(t), nil
		}
	}
	return nil, fmt.Errorf("unrecognised date-time %q (use RFC 3339, e.g. 2030-01-01T00:00:00Z)", s)
}

// ---------------------------------------------------------------------------
// bytes32 text
// ---------------------------------------------------------------------------

// TextToBytes32 encodes text as UTF-8 right-padded with zeros to 32 bytes.
func TextToBytes32(text string) (string, error) {
	b := []byte(text)
	if len(b) > 32 {
		return "", fmt.Errorf("%w: %d bytes", ErrTextTooLong, len(b))
	}
	var word [32]byte
	copy(word[:], b)
	return "0x" + hex.EncodeToString(word[:]), nil
}

// Bytes32ToText strips trailing zero bytes and decodes the rest as UTF-8.
func Bytes32ToText(value string) (string, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X")
	if len(h) != 64 {
		return "", ErrInvalidBytes32
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return "", ErrInvalidBytes32
	}
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	b = b[:end]
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

// ---------------------------------------------------------------------------
// hint-driven conversion
// ---------------------------------------------------------------------------

// ToRaw converts a display value entered for h into the raw argument text.
// unit only applies to amount categories; empty selects the default unit.
func (h ParamHint) ToRaw(display string, unit Unit) (string, error) {
	display = strings.TrimSpace(display)
	switch h.Category {
	case CategoryTokenDecimal, CategoryWei, CategoryGwei, CategoryEther:
		d, err := h.unitDecimals(unit)
		if err != nil {
			return "", err
		}
		n, err := FromDisplay(display, d)
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case CategoryBasisPoints, CategoryPercent:
		n, err := PercentToBps(display)
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case CategoryUnixTimestamp:
		n, err := ParseDateTime(display)
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case CategoryBytes32Text:
		if isHex32(display) {
			return strings.ToLower(display), nil
		}
		return TextToBytes32(display)
	default:
		return display, nil
	}
}

// FromRaw renders a raw argument value for display in h's unit.
func (h ParamHint) FromRaw(raw string, unit Unit) (string, error) {
	raw = strings.TrimSpace(raw)
	switch h.Category {
	case CategoryTokenDecimal, CategoryWei, CategoryGwei, CategoryEther:
		d, err := h.unitDecimals(unit)
		if err != nil {
			return "", err
		}
		n, ok := new(big.Int).SetString(raw, 0)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNotANumber, raw)
		}
		return ToDisplay(n, d)
	case CategoryBasisPoints, CategoryPercent:
		n, ok := new(big.Int).SetString(raw, 0)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNotANumber, raw)
		}
		return BpsToPercent(n), nil
	case CategoryUnixTimestamp:
		n, ok := new(big.Int).SetString(raw, 0)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNotANumber, raw)
		}
		t, err := UnixToTime(n)
		if err != nil {
			return "", err
		}
		return t.Format(time.RFC3339), nil
	case CategoryBytes32Text:
		return Bytes32ToText(raw)
	default:
		return raw, nil
	}
}

func (h ParamHint) unitDecimals(unit Unit) (int, error) {
	if unit == "" {
		units := h.Units()
		if len(units) == 0 {
			return 0, nil
		}
		unit = units[0]
	}
	return unit.Decimals(h.Decimals)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	return d, nil
}

func isHex32(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	if len(s) != 66 {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}
