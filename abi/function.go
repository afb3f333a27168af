package abi

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// SelectorSize is the length of the function selector prefixing call data
const SelectorSize = 4

// Argument is a named function input or output
type Argument struct {
	Name string
	Type Type
}

// Function describes a contract method
type Function struct {
	Name    string
	Inputs  []Argument
	Outputs []Argument
}

// Signature returns the canonical "name(type,...)" form
func (f Function) Signature() string {
	parts := make([]string, len(f.Inputs))
	for i, in := range f.Inputs {
		parts[i] = in.Type.String()
	}
	return f.Name + "(" + strings.Join(parts, ",") + ")"
}

// Selector returns the first four bytes of keccak256(signature)
func (f Function) Selector() []byte {
	return crypto.Keccak256([]byte(f.Signature()))[:SelectorSize]
}

// InputTypes returns the types of the inputs
func (f Function) InputTypes() []Type {
	return argTypes(f.Inputs)
}

// OutputTypes returns the types of the outputs
func (f Function) OutputTypes() []Type {
	return argTypes(f.Outputs)
}

// EncodeCall builds call data: selector followed by the encoded arguments
func (f Function) EncodeCall(args []Value) ([]byte, error) {
	if len(args) != len(f.Inputs) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrTypeMismatch, f.Name, len(f.Inputs), len(args))
	}
	for i, arg := range args {
		if arg == nil || !arg.Type().Equal(f.Inputs[i].Type) {
			return nil, fmt.Errorf("%w: argument %d of %s must be %s", ErrTypeMismatch, i, f.Name, f.Inputs[i].Type)
		}
	}
	encoded, err := Encode(args)
	if err != nil {
		return nil, err
	}
	return append(f.Selector(), encoded...), nil
}

// DecodeInput parses call data produced by EncodeCall
func (f Function) DecodeInput(data []byte) ([]Value, error) {
	if len(data) < SelectorSize {
		return nil, fmt.Errorf("%w: call data shorter than a selector", ErrTruncatedInput)
	}
	if !bytes.Equal(data[:SelectorSize], f.Selector()) {
		return nil, fmt.Errorf("%w: selector %x is not %s", ErrTypeMismatch, data[:SelectorSize], f.Signature())
	}
	return Decode(f.InputTypes(), data[SelectorSize:])
}

// DecodeOutput parses the return data of a call
func (f Function) DecodeOutput(data []byte) ([]Value, error) {
	return Decode(f.OutputTypes(), data)
}

func argTypes(args []Argument) []Type {
	types := make([]Type, len(args))
	for i, a := range args {
		types[i] = a.Type
	}
	return types
}

// Contract is the set of functions loaded from a JSON ABI
type Contract struct {
	Functions map[string]Function
}

// Function looks up a function by name
func (c *Contract) Function(name string) (Function, bool) {
	f, ok := c.Functions[name]
	return f, ok
}

// Names returns the function names in sorted order
func (c *Contract) Names() []string {
	names := make([]string, 0, len(c.Functions))
	for name := range c.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseContractJSON reads a JSON ABI definition
func ParseContractJSON(r io.Reader) (*Contract, error) {
	parsed, err := gethabi.JSON(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI json: %w", err)
	}

	contract := &Contract{Functions: make(map[string]Function, len(parsed.Methods))}
	for name, m := range parsed.Methods {
		inputs, err := convertArguments(m.Inputs)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", name, err)
		}
		outputs, err := convertArguments(m.Outputs)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", name, err)
		}
		contract.Functions[name] = Function{Name: m.RawName, Inputs: inputs, Outputs: outputs}
	}
	return contract, nil
}

func convertArguments(args gethabi.Arguments) ([]Argument, error) {
	out := make([]Argument, len(args))
	for i, a := range args {
		t, err := FromGethType(a.Type)
		if err != nil {
			return nil, err
		}
		out[i] = Argument{Name: a.Name, Type: t}
	}
	return out, nil
}

// FromGethType converts a go-ethereum ABI type into a Type
func FromGethType(t gethabi.Type) (Type, error) {
	switch t.T {
	case gethabi.UintTy:
		return Uint(t.Size), nil
	case gethabi.IntTy:
		return Int(t.Size), nil
	case gethabi.BoolTy:
		return Bool(), nil
	case gethabi.AddressTy:
		return Address(), nil
	case gethabi.FixedBytesTy:
		return FixedBytes(t.Size), nil
	case gethabi.HashTy:
		return FixedBytes(32), nil
	case gethabi.BytesTy:
		return Bytes(), nil
	case gethabi.StringTy:
		return String(), nil
	case gethabi.SliceTy, gethabi.ArrayTy:
		elem, err := FromGethType(*t.Elem)
		if err != nil {
			return Type{}, err
		}
		if t.T == gethabi.SliceTy {
			return Array(elem), nil
		}
		return FixedArray(elem, t.Size), nil
	case gethabi.TupleTy:
		components := make([]Type, len(t.TupleElems))
		for i, e := range t.TupleElems {
			c, err := FromGethType(*e)
			if err != nil {
				return Type{}, err
			}
			components[i] = c
		}
		return Tuple(components, append([]string(nil), t.TupleRawNames...)), nil
	}
	return Type{}, fmt.Errorf("%w: unsupported ABI type %s", ErrInvalidType, t.String())
}
