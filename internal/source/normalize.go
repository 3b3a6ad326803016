package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NotVerifiedSentinel is what explorers put in the ABI field of an
// unverified contract.
const NotVerifiedSentinel = "Contract source code not verified"

// Record is the one shape every explorer result is reduced to.
type Record struct {
	ABI            string
	ContractName   string
	SourceCode     string
	Proxy          bool
	Implementation string
}

// HasABI reports whether the record carries a usable ABI.
func (r Record) HasABI() bool {
	abi := strings.TrimSpace(r.ABI)
	return abi != "" && !strings.EqualFold(abi, NotVerifiedSentinel) && strings.HasPrefix(abi, "[")
}

// Shape tags which form the explorer's result field arrived in.
type Shape int

const (
	ShapeString Shape = iota
	ShapeArray
	ShapeObject
)

func (s Shape) String() string {
	switch s {
	case ShapeString:
		return "string"
	case ShapeArray:
		return "array"
	case ShapeObject:
		return "object"
	}
	return "unknown"
}

// Result is the explorer's result field, tagged by shape.
type Result struct {
	Shape Shape
	Text  string            // ShapeString
	Items []json.RawMessage // ShapeArray
	Raw   json.RawMessage   // ShapeObject
}

// ParseResult tags raw with its shape.
func ParseResult(raw json.RawMessage) (Result, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Result{Shape: ShapeString}, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Result{}, fmt.Errorf("decoding string result: %w", err)
		}
		return Result{Shape: ShapeString, Text: s}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return Result{}, fmt.Errorf("decoding array result: %w", err)
		}
		return Result{Shape: ShapeArray, Items: items}, nil
	case '{':
		return Result{Shape: ShapeObject, Raw: raw}, nil
	}
	return Result{}, fmt.Errorf("unexpected result of type %q", raw[:1])
}

// Normalize reduces a result of any shape to one Record.
//
//   - string: either JSON-encoded (re-parsed) or the ABI text itself, as
//     returned by action=getabi
//   - array: the first element is the record; an array of ABI entries is
//     the ABI itself
//   - object: the record
func Normalize(raw json.RawMessage) (Record, error) {
	res, err := ParseResult(raw)
	if err != nil {
		return Record{}, err
	}
	return res.Record()
}

// Record collapses the tagged result into a Record.
func (r Result) Record() (Record, error) {
	switch r.Shape {
	case ShapeString:
		text := strings.TrimSpace(r.Text)
		if strings.HasPrefix(text, "{") {
			return Normalize(json.RawMessage(text))
		}
		return Record{ABI: text}, nil

	case ShapeArray:
		if len(r.Items) == 0 {
			return Record{}, nil
		}
		if isABIEntry(r.Items[0]) {
			raw, err := json.Marshal(r.Items)
			if err != nil {
				return Record{}, err
			}
			return Record{ABI: string(raw)}, nil
		}
		return decodeRecord(r.Items[0])

	case ShapeObject:
		return decodeRecord(r.Raw)
	}
	return Record{}, fmt.Errorf("unknown result shape %d", r.Shape)
}

// explorerRecord is the getsourcecode element. Providers disagree on the
// types of ABI and Proxy, so both stay raw.
type explorerRecord struct {
	ABI            json.RawMessage `json:"ABI"`
	ContractName   string          `json:"ContractName"`
	SourceCode     string          `json:"SourceCode"`
	Proxy          json.RawMessage `json:"Proxy"`
	Implementation string          `json:"Implementation"`
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	var er explorerRecord
	if err := json.Unmarshal(raw, &er); err != nil {
		return Record{}, fmt.Errorf("decoding explorer record: %w", err)
	}
	rec := Record{
		ContractName:   er.ContractName,
		SourceCode:     er.SourceCode,
		Proxy:          flag(er.Proxy),
		Implementation: strings.TrimSpace(er.Implementation),
	}
	abi := bytes.TrimSpace(er.ABI)
	switch {
	case len(abi) == 0:
	case abi[0] == '"':
		var s string
		if err := json.Unmarshal(abi, &s); err != nil {
			return Record{}, fmt.Errorf("decoding ABI field: %w", err)
		}
		rec.ABI = s
	default:
		rec.ABI = string(abi)
	}
	return rec, nil
}

// flag accepts "1", 1, true and "true".
func flag(raw json.RawMessage) bool {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	return s == "1" || strings.EqualFold(s, "true")
}

func isABIEntry(raw json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return false
	}
	_, hasType := fields["type"]
	_, hasInputs := fields["inputs"]
	_, hasABI := fields["ABI"]
	return (hasType || hasInputs) && !hasABI
}
