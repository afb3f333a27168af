package abi

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the family of an ABI type
type Kind uint8

const (
	UintKind Kind = iota
	IntKind
	BoolKind
	AddressKind
	FixedBytesKind
	BytesKind
	StringKind
	ArrayKind
	TupleKind
)

// SlotSize is the width of one head slot on the wire
const SlotSize = 32

// Type describes an ABI type.
//
// Size is the bit width for integers and the byte length for fixed bytes.
// Length is -1 for dynamic arrays and the element count for fixed arrays.
type Type struct {
	Kind       Kind
	Size       int
	Length     int
	Elem       *Type
	Components []Type
	Names      []string
}

func Uint(bits int) Type          { return Type{Kind: UintKind, Size: bits} }
func Int(bits int) Type           { return Type{Kind: IntKind, Size: bits} }
func Bool() Type                  { return Type{Kind: BoolKind} }
func Address() Type               { return Type{Kind: AddressKind} }
func FixedBytes(size int) Type    { return Type{Kind: FixedBytesKind, Size: size} }
func Bytes() Type                 { return Type{Kind: BytesKind} }
func String() Type                { return Type{Kind: StringKind} }
func Array(elem Type) Type        { return Type{Kind: ArrayKind, Length: -1, Elem: &elem} }
func FixedArray(elem Type, n int) Type {
	return Type{Kind: ArrayKind, Length: n, Elem: &elem}
}

// Tuple builds a tuple type; names may be nil or match components in length
func Tuple(components []Type, names []string) Type {
	return Type{Kind: TupleKind, Components: components, Names: names}
}

// Validate checks width and shape constraints recursively
func (t Type) Validate() error {
	switch t.Kind {
	case UintKind, IntKind:
		if t.Size < 8 || t.Size > 256 || t.Size%8 != 0 {
			return fmt.Errorf("%w: invalid integer width %d", ErrInvalidType, t.Size)
		}
	case FixedBytesKind:
		if t.Size < 1 || t.Size > 32 {
			return fmt.Errorf("%w: invalid fixed bytes size %d", ErrInvalidType, t.Size)
		}
	case BoolKind, AddressKind, BytesKind, StringKind:
	case ArrayKind:
		if t.Elem == nil {
			return fmt.Errorf("%w: array without element type", ErrInvalidType)
		}
		if t.Length < -1 || t.Length == 0 {
			return fmt.Errorf("%w: invalid array length %d", ErrInvalidType, t.Length)
		}
		return t.Elem.Validate()
	case TupleKind:
		if t.Names != nil && len(t.Names) != len(t.Components) {
			return fmt.Errorf("%w: tuple names do not match components", ErrInvalidType)
		}
		for _, c := range t.Components {
			if err := c.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidType, t.Kind)
	}
	return nil
}

// IsDynamic reports whether values of t are referenced through an offset
func (t Type) IsDynamic() bool {
	switch t.Kind {
	case BytesKind, StringKind:
		return true
	case ArrayKind:
		return t.Length < 0 || t.Elem.IsDynamic()
	case TupleKind:
		for _, c := range t.Components {
			if c.IsDynamic() {
				return true
			}
		}
	}
	return false
}

// headSize is the number of bytes t occupies in the head of its enclosing block
func (t Type) headSize() int {
	if t.IsDynamic() {
		return SlotSize
	}
	switch t.Kind {
	case ArrayKind:
		return t.Length * t.Elem.headSize()
	case TupleKind:
		size := 0
		for _, c := range t.Components {
			size += c.headSize()
		}
		return size
	}
	return SlotSize
}

// Equal reports whether two types describe the same wire shape
func (t Type) Equal(o Type) bool {
	return t.String() == o.String()
}

// String returns the canonical type name used in function signatures
func (t Type) String() string {
	switch t.Kind {
	case UintKind:
		return "uint" + strconv.Itoa(t.Size)
	case IntKind:
		return "int" + strconv.Itoa(t.Size)
	case BoolKind:
		return "bool"
	case AddressKind:
		return "address"
	case FixedBytesKind:
		return "bytes" + strconv.Itoa(t.Size)
	case BytesKind:
		return "bytes"
	case StringKind:
		return "string"
	case ArrayKind:
		if t.Length < 0 {
			return t.Elem.String() + "[]"
		}
		return t.Elem.String() + "[" + strconv.Itoa(t.Length) + "]"
	case TupleKind:
		parts := make([]string, len(t.Components))
		for i, c := range t.Components {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, ",") + ")"
	}
	return fmt.Sprintf("unknown(%d)", t.Kind)
}
