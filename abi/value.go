package abi

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Value is one of the closed set of ABI value variants below.
type Value interface {
	Type() Type
	isValue()
}

type UintValue struct {
	Bits  int
	Value *big.Int
}

type IntValue struct {
	Bits  int
	Value *big.Int
}

type BoolValue struct {
	Value bool
}

type AddressValue struct {
	Value common.Address
}

type FixedBytesValue struct {
	Size  int
	Value []byte
}

type BytesValue struct {
	Value []byte
}

type StringValue struct {
	Value string
}

// ArrayValue holds a homogeneous list. Length -1 marks a dynamic array.
type ArrayValue struct {
	Elem   Type
	Length int
	Items  []Value
}

// TupleField is one member of a tuple, Name may be empty
type TupleField struct {
	Name  string
	Value Value
}

type TupleValue struct {
	Fields []TupleField
}

func (v UintValue) Type() Type       { return Uint(v.Bits) }
func (v IntValue) Type() Type        { return Int(v.Bits) }
func (BoolValue) Type() Type         { return Bool() }
func (AddressValue) Type() Type      { return Address() }
func (v FixedBytesValue) Type() Type { return FixedBytes(v.Size) }
func (BytesValue) Type() Type        { return Bytes() }
func (StringValue) Type() Type       { return String() }

func (v ArrayValue) Type() Type {
	if v.Length < 0 {
		return Array(v.Elem)
	}
	return FixedArray(v.Elem, v.Length)
}

func (v TupleValue) Type() Type {
	components := make([]Type, len(v.Fields))
	var names []string
	for i, f := range v.Fields {
		components[i] = f.Value.Type()
		if f.Name != "" {
			if names == nil {
				names = make([]string, len(v.Fields))
			}
			names[i] = f.Name
		}
	}
	return Tuple(components, names)
}

func (UintValue) isValue()       {}
func (IntValue) isValue()        {}
func (BoolValue) isValue()       {}
func (AddressValue) isValue()    {}
func (FixedBytesValue) isValue() {}
func (BytesValue) isValue()      {}
func (StringValue) isValue()     {}
func (ArrayValue) isValue()      {}
func (TupleValue) isValue()      {}

// NewUint is a shorthand for UintValue
func NewUint(bits int, v *big.Int) UintValue { return UintValue{Bits: bits, Value: v} }

// NewUint64 is a shorthand for UintValue built from a uint64
func NewUint64(bits int, v uint64) UintValue {
	return UintValue{Bits: bits, Value: new(big.Int).SetUint64(v)}
}

// NewInt is a shorthand for IntValue
func NewInt(bits int, v *big.Int) IntValue { return IntValue{Bits: bits, Value: v} }

// NewDynamicArray builds a T[] value
func NewDynamicArray(elem Type, items ...Value) ArrayValue {
	return ArrayValue{Elem: elem, Length: -1, Items: items}
}

// NewFixedArray builds a T[k] value with k = len(items)
func NewFixedArray(elem Type, items ...Value) ArrayValue {
	return ArrayValue{Elem: elem, Length: len(items), Items: items}
}

// NewTuple builds an unnamed tuple
func NewTuple(values ...Value) TupleValue {
	fields := make([]TupleField, len(values))
	for i, v := range values {
		fields[i] = TupleField{Value: v}
	}
	return TupleValue{Fields: fields}
}

// TypesOf returns the declared type of every value
func TypesOf(values []Value) []Type {
	types := make([]Type, len(values))
	for i, v := range values {
		types[i] = v.Type()
	}
	return types
}

// Equal reports whether two values have the same type and content.
// Nil and empty byte slices compare equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case UintValue:
		y, ok := b.(UintValue)
		return ok && x.Bits == y.Bits && bigEqual(x.Value, y.Value)
	case IntValue:
		y, ok := b.(IntValue)
		return ok && x.Bits == y.Bits && bigEqual(x.Value, y.Value)
	case BoolValue:
		y, ok := b.(BoolValue)
		return ok && x.Value == y.Value
	case AddressValue:
		y, ok := b.(AddressValue)
		return ok && x.Value == y.Value
	case FixedBytesValue:
		y, ok := b.(FixedBytesValue)
		return ok && x.Size == y.Size && bytes.Equal(x.Value, y.Value)
	case BytesValue:
		y, ok := b.(BytesValue)
		return ok && bytes.Equal(x.Value, y.Value)
	case StringValue:
		y, ok := b.(StringValue)
		return ok && x.Value == y.Value
	case ArrayValue:
		y, ok := b.(ArrayValue)
		if !ok || x.Length != y.Length || !x.Elem.Equal(y.Elem) || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case TupleValue:
		y, ok := b.(TupleValue)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !Equal(x.Fields[i].Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// EqualAll compares two value lists element-wise
func EqualAll(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func bigEqual(a, b *big.Int) bool {
	if a == nil {
		a = new(big.Int)
	}
	if b == nil {
		b = new(big.Int)
	}
	return a.Cmp(b) == 0
}
