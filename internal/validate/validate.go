// Package validate checks human-entered text against Solidity parameter types
// before anything is encoded or sent to the network.
package validate

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Error describes a value rejected for a specific Solidity type.
type Error struct {
	Type   string
	Value  string
	Reason string
}

func (e *Error) Error() string {
	v := e.Value
	if len(v) > 48 {
		v = v[:45] + "..."
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Type, v, e.Reason)
}

// Rule accepts or rejects a single text value.
type Rule func(value string) error

// Value validates value against solType.
func Value(solType, value string) error {
	return For(solType)(value)
}

// For returns the validation rule for solType. Types without a dedicated rule
// accept any text.
func For(solType string) Rule {
	t := strings.TrimSpace(solType)
	if elem, ok := arrayElem(t); ok {
		return arrayRule(t, elem)
	}
	switch {
	case t == "address":
		return addressRule
	case t == "bool":
		return boolRule
	case t == "string":
		return func(string) error { return nil }
	case t == "bytes32":
		return bytes32Rule
	case t == "bytes":
		return dynamicBytesRule
	case strings.HasPrefix(t, "bytes"):
		n, err := strconv.Atoi(t[5:])
		if err != nil || n < 1 || n > 32 {
			return anyRule
		}
		return fixedBytesRule(t, n)
	case strings.HasPrefix(t, "uint"):
		bits, ok := intBits(t[4:])
		if !ok {
			return anyRule
		}
		return uintRule(t, bits)
	case strings.HasPrefix(t, "int"):
		bits, ok := intBits(t[3:])
		if !ok {
			return anyRule
		}
		return intRule(t, bits)
	default:
		return anyRule
	}
}

func anyRule(string) error { return nil }

// ---------------------------------------------------------------------------
// scalar rules
// ---------------------------------------------------------------------------

func addressRule(v string) error {
	s := strings.TrimSpace(v)
	if !strings.HasPrefix(s, "0x") {
		return &Error{"address", v, "must start with 0x"}
	}
	if len(s) != 42 {
		return &Error{"address", v, fmt.Sprintf("must be 40 hex characters after 0x, got %d", len(s)-2)}
	}
	if !common.IsHexAddress(s) {
		return &Error{"address", v, "contains non-hex characters"}
	}
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if common.HexToAddress(s).Hex() != s {
			return &Error{"address", v, "checksum mismatch (EIP-55)"}
		}
	}
	return nil
}

func boolRule(v string) error {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "false":
		return nil
	}
	return &Error{"bool", v, "must be true or false"}
}

func bytes32Rule(v string) error {
	s := strings.TrimSpace(v)
	if strings.HasPrefix(s, "0x") && isHex(s[2:]) && len(s) == 66 {
		return nil
	}
	if len([]byte(v)) > 32 {
		return &Error{"bytes32", v, fmt.Sprintf("text is %d bytes, maximum is 32", len([]byte(v)))}
	}
	return nil
}

func fixedBytesRule(t string, n int) Rule {
	return func(v string) error {
		s := strings.TrimSpace(v)
		if !strings.HasPrefix(s, "0x") || !isHex(s[2:]) {
			return &Error{t, v, "must be 0x-prefixed hex"}
		}
		if len(s[2:]) != n*2 {
			return &Error{t, v, fmt.Sprintf("must be exactly %d bytes (%d hex characters)", n, n*2)}
		}
		return nil
	}
}

func dynamicBytesRule(v string) error {
	s := strings.TrimSpace(v)
	if !strings.HasPrefix(s, "0x") || !isHex(s[2:]) {
		return &Error{"bytes", v, "must be 0x-prefixed hex"}
	}
	if len(s)%2 != 0 {
		return &Error{"bytes", v, "hex must have an even number of characters"}
	}
	return nil
}

func uintRule(t string, bits int) Rule {
	max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	return func(v string) error {
		s := strings.TrimSpace(v)
		if strings.Contains(s, ".") {
			return &Error{t, v, "must be a whole number (no decimal point)"}
		}
		if !isDigits(s) {
			return &Error{t, v, "must be a non-negative integer"}
		}
		n, _ := new(big.Int).SetString(s, 10)
		if n.Cmp(max) >= 0 {
			return &Error{t, v, fmt.Sprintf("exceeds the %d-bit maximum", bits)}
		}
		return nil
	}
}

func intRule(t string, bits int) Rule {
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	min := new(big.Int).Neg(limit)
	return func(v string) error {
		s := strings.TrimSpace(v)
		if strings.Contains(s, ".") {
			return &Error{t, v, "must be a whole number (no decimal point)"}
		}
		digits := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
		if !isDigits(digits) {
			return &Error{t, v, "must be an integer"}
		}
		n, _ := new(big.Int).SetString(s, 10)
		if n.Cmp(limit) >= 0 || n.Cmp(min) < 0 {
			return &Error{t, v, fmt.Sprintf("out of range for %d-bit signed integer", bits)}
		}
		return nil
	}
}

// ---------------------------------------------------------------------------
// arrays
// ---------------------------------------------------------------------------

func arrayRule(t, elem string) Rule {
	elemRule := For(elem)
	_, nested := arrayElem(elem)
	fixed := fixedLen(t)
	return func(v string) error {
		norm, err := NormalizeArray(t, v)
		if err != nil {
			return err
		}
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(norm), &items); err != nil {
			return &Error{t, v, "must be a JSON array or comma-separated list"}
		}
		if fixed >= 0 && len(items) != fixed {
			return &Error{t, v, fmt.Sprintf("must have exactly %d elements, got %d", fixed, len(items))}
		}
		for i, raw := range items {
			text := string(raw)
			if !nested {
				var s string
				if json.Unmarshal(raw, &s) == nil {
					text = s
				}
			}
			if err := elemRule(text); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	}
}

// NormalizeArray returns v as JSON array text. JSON input is passed through;
// a comma-separated list is wrapped, quoting non-numeric elements that are
// not already quoted.
func NormalizeArray(solType, v string) (string, error) {
	s := strings.TrimSpace(v)
	elem, ok := arrayElem(strings.TrimSpace(solType))
	if !ok {
		return "", &Error{solType, v, "not an array type"}
	}
	if strings.HasPrefix(s, "[") {
		if !json.Valid([]byte(s)) {
			return "", &Error{solType, v, "malformed JSON array"}
		}
		return s, nil
	}
	if s == "" {
		return "[]", nil
	}
	numeric := isNumericType(elem)
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case numeric:
			out = append(out, p)
		case len(p) >= 2 && strings.HasPrefix(p, `"`) && strings.HasSuffix(p, `"`):
			out = append(out, p)
		default:
			q, _ := json.Marshal(p)
			out = append(out, string(q))
		}
	}
	return "[" + strings.Join(out, ",") + "]", nil
}

// arrayElem splits "T[]" or "T[k]" into T.
func arrayElem(t string) (string, bool) {
	if !strings.HasSuffix(t, "]") {
		return "", false
	}
	i := strings.LastIndex(t, "[")
	if i <= 0 {
		return "", false
	}
	return t[:i], true
}

func fixedLen(t string) int {
	i := strings.LastIndex(t, "[")
	n, err := strconv.Atoi(t[i+1 : len(t)-1])
	if err != nil {
		return -1
	}
	return n
}

func isNumericType(t string) bool {
	if strings.HasPrefix(t, "uint") {
		_, ok := intBits(t[4:])
		return ok
	}
	if strings.HasPrefix(t, "int") {
		_, ok := intBits(t[3:])
		return ok
	}
	return false
}

func intBits(suffix string) (int, bool) {
	if suffix == "" {
		return 256, true
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 8 || n > 256 || n%8 != 0 {
		return 0, false
	}
	return n, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	if s == "" {
		return true
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
