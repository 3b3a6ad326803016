package contract

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3studio/internal/validate"
)

// Method wraps the go-ethereum method for one function entry.
type Method struct {
	entry  ABIEntry
	method abi.Method
}

// NewMethod builds an encodable method from a function entry.
func NewMethod(e ABIEntry) (*Method, error) {
	if e.Type != "function" {
		return nil, fmt.Errorf("%s is a %s, not a function", e.Name, e.Type)
	}
	raw, err := json.Marshal([]ABIEntry{e})
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", e.Signature(), err)
	}
	m, ok := parsed.Methods[e.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, e.Signature())
	}
	return &Method{entry: e, method: m}, nil
}

// Entry returns the underlying ABI entry.
func (m *Method) Entry() ABIEntry { return m.entry }

// Encode validates args (raw text, one per input) and returns 0x calldata.
func (m *Method) Encode(args []string) (string, error) {
	inputs := m.method.Inputs
	if len(args) != len(inputs) {
		return "", fmt.Errorf("%s expects %d argument(s), got %d", m.entry.Signature(), len(inputs), len(args))
	}
	values := make([]interface{}, len(inputs))
	for i, in := range inputs {
		v, err := ConvertArg(in.Type, args[i])
		if err != nil {
			name := in.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return "", fmt.Errorf("argument %s: %w", name, err)
		}
		values[i] = v
	}
	packed, err := inputs.Pack(values...)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", m.entry.Signature(), err)
	}
	return "0x" + hex.EncodeToString(append(m.method.ID, packed...)), nil
}

// Decode unpacks return data into display strings, one per output.
func (m *Method) Decode(hexData string) ([]string, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decoding hex result: %w", err)
	}
	if len(m.method.Outputs) == 0 {
		return nil, nil
	}
	values, err := m.method.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s result: %w", m.entry.Signature(), err)
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = FormatValue(v)
	}
	return out, nil
}

// ConvertArg turns validated text into the Go value go-ethereum packs for t.
func ConvertArg(t abi.Type, text string) (interface{}, error) {
	if err := validate.Value(t.String(), text); err != nil {
		return nil, err
	}
	switch t.T {
	case abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		norm := strings.TrimSpace(text)
		if t.T != abi.TupleTy {
			var err error
			if norm, err = validate.NormalizeArray(t.String(), text); err != nil {
				return nil, err
			}
		}
		var decoded interface{}
		dec := json.NewDecoder(strings.NewReader(norm))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return nil, fmt.Errorf("invalid %s JSON: %w", t.String(), err)
		}
		v, err := convertValue(t, decoded)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	default:
		v, err := convertValue(t, strings.TrimSpace(text))
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}
}

func convertValue(t abi.Type, in interface{}) (reflect.Value, error) {
	goType := t.GetType()
	switch t.T {
	case abi.AddressTy:
		s, err := scalarText(in)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(common.HexToAddress(s)), nil

	case abi.BoolTy:
		s, err := scalarText(in)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(strings.EqualFold(s, "true")), nil

	case abi.StringTy:
		s, err := scalarText(in)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(s), nil

	case abi.UintTy, abi.IntTy:
		s, err := scalarText(in)
		if err != nil {
			return reflect.Value{}, err
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return reflect.Value{}, fmt.Errorf("invalid integer %q", s)
		}
		if t.Size > 64 {
			return reflect.ValueOf(n), nil
		}
		if t.T == abi.UintTy {
			return reflect.ValueOf(n.Uint64()).Convert(goType), nil
		}
		return reflect.ValueOf(n.Int64()).Convert(goType), nil

	case abi.BytesTy:
		s, err := scalarText(in)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(common.FromHex(s)), nil

	case abi.FixedBytesTy:
		s, err := scalarText(in)
		if err != nil {
			return reflect.Value{}, err
		}
		b, err := fixedBytes(s, t.Size)
		if err != nil {
			return reflect.Value{}, err
		}
		v := reflect.New(goType).Elem()
		reflect.Copy(v, reflect.ValueOf(b))
		return v, nil

	case abi.SliceTy, abi.ArrayTy:
		items, ok := in.([]interface{})
		if !ok {
			return reflect.Value{}, fmt.Errorf("%s expects an array", t.String())
		}
		if t.T == abi.ArrayTy && len(items) != t.Size {
			return reflect.Value{}, fmt.Errorf("%s expects %d elements, got %d", t.String(), t.Size, len(items))
		}
		var v reflect.Value
		if t.T == abi.SliceTy {
			v = reflect.MakeSlice(goType, len(items), len(items))
		} else {
			v = reflect.New(goType).Elem()
		}
		for i, item := range items {
			ev, err := convertValue(*t.Elem, item)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			v.Index(i).Set(ev)
		}
		return v, nil

	case abi.TupleTy:
		v := reflect.New(goType).Elem()
		var fields []interface{}
		switch x := in.(type) {
		case []interface{}:
			fields = x
		case map[string]interface{}:
			fields = make([]interface{}, len(t.TupleRawNames))
			for i, name := range t.TupleRawNames {
				fields[i] = x[name]
			}
		default:
			return reflect.Value{}, fmt.Errorf("tuple expects a JSON array or object")
		}
		if len(fields) != len(t.TupleElems) {
			return reflect.Value{}, fmt.Errorf("tuple expects %d fields, got %d", len(t.TupleElems), len(fields))
		}
		for i, elem := range t.TupleElems {
			if err := validateNested(*elem, fields[i]); err != nil {
				return reflect.Value{}, fmt.Errorf("field %d: %w", i, err)
			}
			fv, err := convertValue(*elem, fields[i])
			if err != nil {
				return reflect.Value{}, fmt.Errorf("field %d: %w", i, err)
			}
			v.Field(i).Set(fv)
		}
		return v, nil

	default:
		return reflect.Value{}, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

// validateNested checks scalar tuple fields, which never pass through the
// top-level validator.
func validateNested(t abi.Type, in interface{}) error {
	switch t.T {
	case abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		return nil
	}
	s, err := scalarText(in)
	if err != nil {
		return err
	}
	return validate.Value(t.String(), s)
}

func scalarText(in interface{}) (string, error) {
	switch x := in.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		if x {
			return "true", nil
		}
		return "false", nil
	case nil:
		return "", fmt.Errorf("missing value")
	default:
		return "", fmt.Errorf("expected a scalar, got %T", in)
	}
}

func fixedBytes(s string, size int) ([]byte, error) {
	if size == 32 && !(strings.HasPrefix(s, "0x") && len(s) == 66) {
		if len(s) > 32 {
			return nil, fmt.Errorf("text exceeds 32 bytes")
		}
		return []byte(s), nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q", s)
	}
	if len(b) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(b))
	}
	return b, nil
}

// FormatValue renders a decoded ABI value for display.
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case *big.Int:
		return x.String()
	case common.Address:
		return x.Hex()
	case []byte:
		return "0x" + hex.EncodeToString(x)
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return "0x" + hex.EncodeToString(b)
		}
		fallthrough
	case reflect.Slice:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Struct:
		parts := make([]string, rv.NumField())
		for i := range parts {
			parts[i] = FormatValue(rv.Field(i).Interface())
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprint(v)
}
