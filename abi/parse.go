package abi

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseType parses a canonical type string such as "uint256", "bytes32[]",
// "address[3]" or "(uint256,string)[]".
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	t, rest, err := parseType(s)
	if err != nil {
		return Type{}, err
	}
	if rest != "" {
		return Type{}, fmt.Errorf("%w: trailing %q in %q", ErrInvalidType, rest, s)
	}
	return t, t.Validate()
}

// ParseTypes parses a list of type strings
func ParseTypes(list []string) ([]Type, error) {
	types := make([]Type, len(list))
	for i, s := range list {
		t, err := ParseType(s)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

func parseType(s string) (Type, string, error) {
	var (
		t    Type
		rest string
		err  error
	)
	if strings.HasPrefix(s, "(") {
		t, rest, err = parseTuple(s)
	} else {
		end := strings.IndexAny(s, "[,)")
		if end < 0 {
			end = len(s)
		}
		t, err = parseElementary(s[:end])
		rest = s[end:]
	}
	if err != nil {
		return Type{}, "", err
	}

	// array suffixes bind left to right: uint8[2][] is a dynamic list of pairs
	for strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return Type{}, "", fmt.Errorf("%w: unclosed array in %q", ErrInvalidType, s)
		}
		dim := rest[1:end]
		if dim == "" {
			t = Array(t)
		} else {
			n, err := strconv.Atoi(dim)
			if err != nil || n <= 0 {
				return Type{}, "", fmt.Errorf("%w: bad array length %q", ErrInvalidType, dim)
			}
			t = FixedArray(t, n)
		}
		rest = rest[end+1:]
	}
	return t, rest, nil
}

func parseTuple(s string) (Type, string, error) {
	rest := s[1:]
	var components []Type
	if strings.HasPrefix(rest, ")") {
		return Tuple(nil, nil), rest[1:], nil
	}
	for {
		c, r, err := parseType(rest)
		if err != nil {
			return Type{}, "", err
		}
		components = append(components, c)
		switch {
		case strings.HasPrefix(r, ","):
			rest = r[1:]
		case strings.HasPrefix(r, ")"):
			return Tuple(components, nil), r[1:], nil
		default:
			return Type{}, "", fmt.Errorf("%w: unclosed tuple in %q", ErrInvalidType, s)
		}
	}
}

func parseElementary(s string) (Type, error) {
	switch s {
	case "bool":
		return Bool(), nil
	case "address":
		return Address(), nil
	case "string":
		return String(), nil
	case "bytes":
		return Bytes(), nil
	case "uint":
		return Uint(256), nil
	case "int":
		return Int(256), nil
	}
	for _, p := range []struct {
		prefix string
		build  func(int) Type
	}{
		{"uint", Uint},
		{"int", Int},
		{"bytes", FixedBytes},
	} {
		if !strings.HasPrefix(s, p.prefix) {
			continue
		}
		n, err := strconv.Atoi(s[len(p.prefix):])
		if err != nil {
			return Type{}, fmt.Errorf("%w: %q", ErrInvalidType, s)
		}
		t := p.build(n)
		return t, t.Validate()
	}
	return Type{}, fmt.Errorf("%w: unknown type %q", ErrInvalidType, s)
}

// ParseValue converts command line text into a value of type t.
// Integers accept decimal or 0x hex, byte types take 0x hex, arrays and
// tuples take a JSON array whose items follow the same rules.
func ParseValue(t Type, s string) (Value, error) {
	switch t.Kind {
	case UintKind, IntKind:
		n, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrTypeMismatch, s)
		}
		if t.Kind == UintKind {
			if n.Sign() < 0 || n.BitLen() > t.Size {
				return nil, fmt.Errorf("%w: %s out of range for %s", ErrTypeMismatch, n, t)
			}
			return UintValue{Bits: t.Size, Value: n}, nil
		}
		if !fitsSigned(n, t.Size) {
			return nil, fmt.Errorf("%w: %s out of range for %s", ErrTypeMismatch, n, t)
		}
		return IntValue{Bits: t.Size, Value: n}, nil
	case BoolKind:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a bool", ErrTypeMismatch, s)
		}
		return BoolValue{Value: b}, nil
	case AddressKind:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("%w: %q is not an address", ErrTypeMismatch, s)
		}
		return AddressValue{Value: common.HexToAddress(s)}, nil
	case FixedBytesKind:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrTypeMismatch, s, err)
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%w: %d bytes given for %s", ErrTypeMismatch, len(b), t)
		}
		return FixedBytesValue{Size: t.Size, Value: common.RightPadBytes(b, t.Size)}, nil
	case BytesKind:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrTypeMismatch, s, err)
		}
		return BytesValue{Value: b}, nil
	case StringKind:
		return StringValue{Value: s}, nil
	case ArrayKind, TupleKind:
		items, err := splitJSONArray(s)
		if err != nil {
			return nil, err
		}
		return parseComposite(t, items)
	}
	return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidType, t.Kind)
}

func parseComposite(t Type, items []string) (Value, error) {
	if t.Kind == TupleKind {
		if len(items) != len(t.Components) {
			return nil, fmt.Errorf("%w: %s needs %d fields, got %d", ErrTypeMismatch, t, len(t.Components), len(items))
		}
		fields := make([]TupleField, len(items))
		for i, item := range items {
			v, err := ParseValue(t.Components[i], item)
			if err != nil {
				return nil, err
			}
			fields[i].Value = v
			if t.Names != nil {
				fields[i].Name = t.Names[i]
			}
		}
		return TupleValue{Fields: fields}, nil
	}

	if t.Length >= 0 && len(items) != t.Length {
		return nil, fmt.Errorf("%w: %s needs %d items, got %d", ErrTypeMismatch, t, t.Length, len(items))
	}
	values := make([]Value, len(items))
	for i, item := range items {
		v, err := ParseValue(*t.Elem, item)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return ArrayValue{Elem: *t.Elem, Length: t.Length, Items: values}, nil
}

// splitJSONArray returns each item of a JSON array as text; string items are
// unquoted, everything else keeps its raw JSON form.
func splitJSONArray(s string) ([]string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("%w: %q is not a JSON array", ErrTypeMismatch, s)
	}
	items := make([]string, len(raw))
	for i, r := range raw {
		var str string
		if err := json.Unmarshal(r, &str); err == nil {
			items[i] = str
			continue
		}
		items[i] = string(r)
	}
	return items, nil
}
