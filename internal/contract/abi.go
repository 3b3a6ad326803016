package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ABIEntry is one ABI entry (function, event, constructor, ...).
type ABIEntry struct {
	Name            string     `json:"name,omitempty"`
	Type            string     `json:"type"`
	Inputs          []ABIParam `json:"inputs"`
	Outputs         []ABIParam `json:"outputs,omitempty"`
	StateMutability string     `json:"stateMutability,omitempty"`
	Anonymous       bool       `json:"anonymous,omitempty"`

	// Pre-0.4.16 compilers emit constant/payable instead of stateMutability.
	Constant *bool `json:"constant,omitempty"`
	Payable  *bool `json:"payable,omitempty"`
}

// ABIParam is a parameter in an ABI entry.
type ABIParam struct {
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	InternalType string     `json:"internalType,omitempty"`
	Indexed      bool       `json:"indexed,omitempty"`
	Components   []ABIParam `json:"components,omitempty"`
}

// CanonicalType returns the type as used in signatures: tuples are expanded
// into their component types, e.g. "tuple[]" becomes "(address,uint256)[]".
func (p ABIParam) CanonicalType() string {
	if !strings.HasPrefix(p.Type, "tuple") {
		return p.Type
	}
	parts := make([]string, len(p.Components))
	for i, c := range p.Components {
		parts[i] = c.CanonicalType()
	}
	return "(" + strings.Join(parts, ",") + ")" + strings.TrimPrefix(p.Type, "tuple")
}

// Mutability returns the effective state mutability, mapping legacy flags.
func (e ABIEntry) Mutability() string {
	if e.StateMutability != "" {
		return e.StateMutability
	}
	if e.Constant != nil && *e.Constant {
		return "view"
	}
	if e.Payable != nil && *e.Payable {
		return "payable"
	}
	return "nonpayable"
}

// IsReadFunction returns true if the function is read-only (view/pure).
func (e ABIEntry) IsReadFunction() bool {
	m := e.Mutability()
	return e.Type == "function" && (m == "view" || m == "pure")
}

// IsWriteFunction returns true if the function can modify state or accept value.
func (e ABIEntry) IsWriteFunction() bool {
	return e.Type == "function" && !e.IsReadFunction()
}

// IsPayable reports whether the function accepts native value.
func (e ABIEntry) IsPayable() bool {
	return e.Mutability() == "payable"
}

// Signature returns name(type1,type2,...) ignoring parameter names.
func (e ABIEntry) Signature() string {
	types := make([]string, len(e.Inputs))
	for i, p := range e.Inputs {
		types[i] = p.CanonicalType()
	}
	return e.Name + "(" + strings.Join(types, ",") + ")"
}

// HasFunction reports whether abi declares a function called name.
func HasFunction(abi []ABIEntry, name string) bool {
	for _, e := range abi {
		if e.Type == "function" && e.Name == name {
			return true
		}
	}
	return false
}

// ParseABI decodes an ABI JSON array.
func ParseABI(data []byte) ([]ABIEntry, error) {
	var abi []ABIEntry
	if err := json.Unmarshal(data, &abi); err != nil {
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '{' {
			return nil, fmt.Errorf("ABI is a JSON object, not an array; a Hardhat/Foundry artifact must have an \"abi\" key")
		}
		return nil, fmt.Errorf("invalid ABI JSON: expected an array of function/event definitions: %w", err)
	}
	for i := range abi {
		if abi[i].Type == "" {
			abi[i].Type = "function"
		}
	}
	return abi, nil
}

// LoadFromArtifact loads an ABI from a local file that is either:
//   - a raw ABI JSON array: [{"type":"function",...}, ...]
//   - a Hardhat/Foundry artifact: {"abi":[...],"bytecode":"0x...",...}
//
// Both formats are detected automatically.
func LoadFromArtifact(path string) ([]ABIEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read ABI file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ABI file is empty: %s", path)
	}

	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if json.Unmarshal(data, &artifact) == nil && len(artifact.ABI) > 1 && artifact.ABI[0] == '[' {
		data = artifact.ABI
	}

	abi, err := ParseABI(data)
	if err != nil {
		return nil, err
	}
	if err := validateABI(abi, path); err != nil {
		return nil, err
	}
	return abi, nil
}

// validateABI checks that the parsed ABI has at least one function or event.
func validateABI(abi []ABIEntry, path string) error {
	if len(abi) == 0 {
		return fmt.Errorf("ABI is empty (no functions or events found): %s", path)
	}
	for _, e := range abi {
		if e.Type == "function" || e.Type == "event" || e.Type == "constructor" {
			return nil
		}
	}
	return fmt.Errorf("ABI has %d entries but none are functions or events, check the file format: %s", len(abi), path)
}
