// Package units infers display units for ABI parameters and converts between
// human-entered display values and raw call arguments.
package units

import (
	"strings"

	"github.com/Mohsinsiddi/w3studio/internal/match"
)

// Category is the semantic unit of a parameter.
type Category string

const (
	CategoryRaw           Category = "raw"
	CategoryWei           Category = "wei"
	CategoryGwei          Category = "gwei"
	CategoryEther         Category = "ether"
	CategoryTokenDecimal  Category = "token-decimal"
	CategoryBasisPoints   Category = "basis-points"
	CategoryPercent       Category = "percent"
	CategoryUnixTimestamp Category = "unix-timestamp"
	CategoryBytes32Text   Category = "bytes32-as-text"
	CategoryNone          Category = "none"
)

// ParamHint is the inferred display metadata for one parameter.
type ParamHint struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Category    Category `json:"category"`
	Label       string   `json:"label"`
	Example     string   `json:"example"`
	Description string   `json:"description"`
	// Decimals is set for token-decimal hints once the target contract's
	// decimals() has been read.
	Decimals *int `json:"decimals,omitempty"`
}

// Fragment tables. Order of evaluation lives in Infer.
var (
	neverConvert = match.New(match.Contains,
		"decimals", "precision", "scale", "nonce", "id", "index", "length", "count",
		"size", "iteration", "round", "epoch", "version", "type", "status", "state",
		"mode", "flag",
	)
	timestampFragments = match.New(match.Word,
		"deadline", "timestamp", "unlockTime", "lockTime", "startTime", "endTime",
		"expiry", "expires", "maturity", "vestingEnd", "vestingStart",
	)
	rateFragments = match.New(match.Word,
		"feeBps", "bps", "basisPoints", "feeRate", "interestRate", "apr", "apy",
	)
	amountFragments = match.New(match.Word,
		"amount", "value", "qty", "quantity", "wad", "shares", "assets", "tokens",
		"balance", "supply",
	)
)

// Infer maps a parameter name and Solidity type to a ParamHint. The first
// matching rule wins.
func Infer(name, solType string) ParamHint {
	h := ParamHint{Name: name, Type: solType}
	t := strings.TrimSpace(solType)

	switch {
	case t == "address":
		return h.with(CategoryNone, "Address", "0x0000000000000000000000000000000000000000",
			"20-byte account or contract address (ENS names accepted where supported)")
	case t == "bytes32":
		return h.with(CategoryBytes32Text, "Bytes32 / text", "0x"+strings.Repeat("00", 32),
			"32-byte value as hex, or up to 32 bytes of UTF-8 text")
	case isIntegerType(t):
		return inferInteger(h, name)
	default:
		return h.with(CategoryNone, t, "", "")
	}
}

func inferInteger(h ParamHint, name string) ParamHint {
	switch {
	case neverConvert.Match(name):
		return h.with(CategoryRaw, "Integer", "1", "Plain integer, passed through unchanged")
	case timestampFragments.Match(name):
		return h.with(CategoryUnixTimestamp, "Date / time (UTC)", "2030-01-01T00:00:00Z",
			"Unix timestamp in seconds; enter a date-time or raw seconds")
	case rateFragments.Match(name):
		return h.with(CategoryBasisPoints, "Percent", "1.25",
			"Basis points shown as percent (100 bps = 1%)")
	case amountFragments.Match(name):
		return h.with(CategoryTokenDecimal, "Amount", "1.5",
			"Token amount; converted with the token's decimals, or ether/gwei/wei")
	default:
		return h.with(CategoryRaw, "Integer", "0", "Plain integer, passed through unchanged")
	}
}

func (h ParamHint) with(c Category, label, example, desc string) ParamHint {
	h.Category = c
	h.Label = label
	h.Example = example
	h.Description = desc
	return h
}

// WithDecimals returns a copy of h carrying the token decimals. Only
// token-decimal hints are affected.
func (h ParamHint) WithDecimals(d int) ParamHint {
	if h.Category != CategoryTokenDecimal || d < 0 || d > MaxDecimals {
		return h
	}
	h.Decimals = &d
	return h
}

// Units lists the display units offered for h, default first.
func (h ParamHint) Units() []Unit {
	switch h.Category {
	case CategoryTokenDecimal:
		if h.Decimals != nil {
			return []Unit{UnitToken, UnitEther, UnitGwei, UnitWei}
		}
		return []Unit{UnitEther, UnitGwei, UnitWei}
	case CategoryWei:
		return []Unit{UnitWei, UnitEther, UnitGwei}
	case CategoryGwei:
		return []Unit{UnitGwei, UnitWei}
	case CategoryEther:
		return []Unit{UnitEther, UnitWei}
	default:
		return nil
	}
}

func isIntegerType(t string) bool {
	if strings.HasSuffix(t, "]") {
		return false
	}
	if strings.HasPrefix(t, "uint") {
		return allDigits(t[4:])
	}
	if strings.HasPrefix(t, "int") {
		return allDigits(t[3:])
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
