package abi

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// Codec encodes and decodes values in the 32-byte slot ABI format.
type Codec struct {
	strict bool
}

// Option configures a Codec
type Option func(*Codec)

// WithLenientPadding accepts non-zero bytes in padding regions on decode
func WithLenientPadding() Option {
	return func(c *Codec) {
		c.strict = false
	}
}

// NewCodec creates a codec, strict by default
func NewCodec(opts ...Option) *Codec {
	c := &Codec{strict: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCodec = NewCodec()

// Encode encodes values with the default strict codec
func Encode(values []Value) ([]byte, error) {
	return defaultCodec.Encode(values)
}

// Decode decodes data with the default strict codec
func Decode(types []Type, data []byte) ([]Value, error) {
	return defaultCodec.Decode(types, data)
}

// Encode lays the values out as a single head/tail block.
func (c *Codec) Encode(values []Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.encodeBlock(&buf, values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Codec) encodeBlock(buf *bytes.Buffer, values []Value) error {
	headLen := 0
	for _, v := range values {
		if v == nil {
			return fmt.Errorf("%w: nil value", ErrTypeMismatch)
		}
		t := v.Type()
		if err := t.Validate(); err != nil {
			return err
		}
		headLen += t.headSize()
	}

	var head, tail bytes.Buffer
	for _, v := range values {
		if !v.Type().IsDynamic() {
			if err := c.encodeValue(&head, v); err != nil {
				return err
			}
			continue
		}
		head.Write(uintSlot(uint64(headLen + tail.Len())))
		if err := c.encodeValue(&tail, v); err != nil {
			return err
		}
	}
	buf.Write(head.Bytes())
	buf.Write(tail.Bytes())
	return nil
}

func (c *Codec) encodeValue(buf *bytes.Buffer, value Value) error {
	switch v := value.(type) {
	case UintValue:
		n := v.Value
		if n == nil {
			n = new(big.Int)
		}
		if n.Sign() < 0 || n.BitLen() > v.Bits {
			return fmt.Errorf("%w: %s does not fit uint%d", ErrTypeMismatch, n, v.Bits)
		}
		buf.Write(math.U256Bytes(new(big.Int).Set(n)))
	case IntValue:
		n := v.Value
		if n == nil {
			n = new(big.Int)
		}
		if !fitsSigned(n, v.Bits) {
			return fmt.Errorf("%w: %s does not fit int%d", ErrTypeMismatch, n, v.Bits)
		}
		buf.Write(math.U256Bytes(new(big.Int).Set(n)))
	case BoolValue:
		if v.Value {
			buf.Write(uintSlot(1))
		} else {
			buf.Write(uintSlot(0))
		}
	case AddressValue:
		buf.Write(common.LeftPadBytes(v.Value.Bytes(), SlotSize))
	case FixedBytesValue:
		if len(v.Value) != v.Size {
			return fmt.Errorf("%w: bytes%d given %d bytes", ErrTypeMismatch, v.Size, len(v.Value))
		}
		buf.Write(common.RightPadBytes(v.Value, SlotSize))
	case BytesValue:
		writeDynamicBytes(buf, v.Value)
	case StringValue:
		writeDynamicBytes(buf, []byte(v.Value))
	case ArrayValue:
		if v.Length >= 0 && len(v.Items) != v.Length {
			return fmt.Errorf("%w: %s given %d items", ErrTypeMismatch, v.Type(), len(v.Items))
		}
		for _, item := range v.Items {
			if item == nil || !item.Type().Equal(v.Elem) {
				return fmt.Errorf("%w: array of %s holds a different element type", ErrTypeMismatch, v.Elem)
			}
		}
		if v.Length < 0 {
			buf.Write(uintSlot(uint64(len(v.Items))))
		}
		return c.encodeBlock(buf, v.Items)
	case TupleValue:
		items := make([]Value, len(v.Fields))
		for i, f := range v.Fields {
			items[i] = f.Value
		}
		return c.encodeBlock(buf, items)
	default:
		return fmt.Errorf("%w: unsupported value %T", ErrTypeMismatch, value)
	}
	return nil
}

func writeDynamicBytes(buf *bytes.Buffer, data []byte) {
	buf.Write(uintSlot(uint64(len(data))))
	if len(data) == 0 {
		return
	}
	padded := (len(data) + SlotSize - 1) / SlotSize * SlotSize
	buf.Write(common.RightPadBytes(data, padded))
}

func uintSlot(n uint64) []byte {
	return math.U256Bytes(new(big.Int).SetUint64(n))
}

func fitsSigned(n *big.Int, bits int) bool {
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	if n.Sign() >= 0 {
		return n.Cmp(limit) < 0
	}
	return n.Cmp(new(big.Int).Neg(limit)) >= 0
}

// Decode parses data laid out as a single head/tail block of the given types.
func (c *Codec) Decode(types []Type, data []byte) ([]Value, error) {
	for _, t := range types {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return c.decodeBlock(types, data)
}

func (c *Codec) decodeBlock(types []Type, data []byte) ([]Value, error) {
	values := make([]Value, len(types))
	offset := 0
	for i, t := range types {
		if !t.IsDynamic() {
			size := t.headSize()
			if offset+size > len(data) {
				return nil, fmt.Errorf("%w: %s at %d needs %d bytes, %d left", ErrTruncatedInput, t, offset, size, len(data)-offset)
			}
			v, err := c.decodeValue(t, data[offset:offset+size])
			if err != nil {
				return nil, err
			}
			values[i] = v
			offset += size
			continue
		}

		ptr, err := c.readWord(data, offset)
		if err != nil {
			return nil, err
		}
		if ptr > len(data) {
			return nil, fmt.Errorf("%w: %s offset %d beyond %d bytes", ErrInvalidOffset, t, ptr, len(data))
		}
		v, err := c.decodeValue(t, data[ptr:])
		if err != nil {
			return nil, err
		}
		values[i] = v
		offset += SlotSize
	}
	return values, nil
}

// readWord reads an offset or length word. Words too large to be a position
// in any buffer are reported as invalid offsets.
func (c *Codec) readWord(data []byte, at int) (int, error) {
	if at+SlotSize > len(data) {
		return 0, fmt.Errorf("%w: need a word at %d, have %d bytes", ErrTruncatedInput, at, len(data))
	}
	word := new(big.Int).SetBytes(data[at : at+SlotSize])
	if !word.IsInt64() || word.Int64() > maxWord {
		return 0, fmt.Errorf("%w: word %s at %d exceeds buffer", ErrInvalidOffset, word, at)
	}
	return int(word.Int64()), nil
}

const maxWord = 1<<31 - 1

func (c *Codec) decodeValue(t Type, data []byte) (Value, error) {
	switch t.Kind {
	case UintKind:
		slot, err := c.slot(t, data)
		if err != nil {
			return nil, err
		}
		// strict mode has already rejected dirty high bytes
		n := new(big.Int).SetBytes(slot[SlotSize-t.Size/8:])
		return UintValue{Bits: t.Size, Value: n}, nil
	case IntKind:
		slot, err := c.slot(t, data)
		if err != nil {
			return nil, err
		}
		low := slot[SlotSize-t.Size/8:]
		n := new(big.Int).SetBytes(low)
		if low[0]&0x80 != 0 {
			n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(t.Size)))
		}
		return IntValue{Bits: t.Size, Value: n}, nil
	case BoolKind:
		slot, err := c.slot(t, data)
		if err != nil {
			return nil, err
		}
		if !isZero(slot[:SlotSize-1]) || slot[SlotSize-1] > 1 {
			if c.strict {
				return nil, fmt.Errorf("%w: non-canonical bool %x", ErrTypeMismatch, slot)
			}
		}
		return BoolValue{Value: slot[SlotSize-1] != 0}, nil
	case AddressKind:
		slot, err := c.slot(t, data)
		if err != nil {
			return nil, err
		}
		if c.strict && !isZero(slot[:SlotSize-common.AddressLength]) {
			return nil, fmt.Errorf("%w: dirty address padding %x", ErrTypeMismatch, slot)
		}
		return AddressValue{Value: common.BytesToAddress(slot[SlotSize-common.AddressLength:])}, nil
	case FixedBytesKind:
		slot, err := c.slot(t, data)
		if err != nil {
			return nil, err
		}
		if c.strict && !isZero(slot[t.Size:]) {
			return nil, fmt.Errorf("%w: dirty %s padding %x", ErrTypeMismatch, t, slot)
		}
		return FixedBytesValue{Size: t.Size, Value: common.CopyBytes(slot[:t.Size])}, nil
	case BytesKind:
		b, err := c.readDynamicBytes(data)
		if err != nil {
			return nil, err
		}
		return BytesValue{Value: b}, nil
	case StringKind:
		b, err := c.readDynamicBytes(data)
		if err != nil {
			return nil, err
		}
		return StringValue{Value: string(b)}, nil
	case ArrayKind:
		length := t.Length
		body := data
		if length < 0 {
			n, err := c.readWord(data, 0)
			if err != nil {
				return nil, err
			}
			if n > len(data) {
				return nil, fmt.Errorf("%w: %s length %d exceeds %d bytes", ErrTruncatedInput, t, n, len(data))
			}
			length = n
			body = data[SlotSize:]
		}
		if length*t.Elem.headSize() > len(body) {
			return nil, fmt.Errorf("%w: %s of %d items needs %d bytes, have %d", ErrTruncatedInput, t, length, length*t.Elem.headSize(), len(body))
		}
		types := make([]Type, length)
		for i := range types {
			types[i] = *t.Elem
		}
		items, err := c.decodeBlock(types, body)
		if err != nil {
			return nil, err
		}
		return ArrayValue{Elem: *t.Elem, Length: t.Length, Items: items}, nil
	case TupleKind:
		items, err := c.decodeBlock(t.Components, data)
		if err != nil {
			return nil, err
		}
		fields := make([]TupleField, len(items))
		for i, item := range items {
			fields[i].Value = item
			if t.Names != nil {
				fields[i].Name = t.Names[i]
			}
		}
		return TupleValue{Fields: fields}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidType, t.Kind)
}

// slot returns the first 32 bytes of data, checking integer padding in strict mode
func (c *Codec) slot(t Type, data []byte) ([]byte, error) {
	if len(data) < SlotSize {
		return nil, fmt.Errorf("%w: %s needs %d bytes, have %d", ErrTruncatedInput, t, SlotSize, len(data))
	}
	slot := data[:SlotSize]
	if !c.strict || (t.Kind != UintKind && t.Kind != IntKind) || t.Size == 256 {
		return slot, nil
	}
	// bytes above the declared width must be zero (uint) or a sign extension (int)
	pad := slot[:SlotSize-t.Size/8]
	if t.Kind == UintKind {
		if !isZero(pad) {
			return nil, fmt.Errorf("%w: dirty %s padding %x", ErrTypeMismatch, t, slot)
		}
		return slot, nil
	}
	fill := byte(0x00)
	if slot[SlotSize-t.Size/8]&0x80 != 0 {
		fill = 0xff
	}
	for _, b := range pad {
		if b != fill {
			return nil, fmt.Errorf("%w: bad %s sign extension %x", ErrTypeMismatch, t, slot)
		}
	}
	return slot, nil
}

func (c *Codec) readDynamicBytes(data []byte) ([]byte, error) {
	if len(data) < SlotSize {
		return nil, fmt.Errorf("%w: missing length word", ErrTruncatedInput)
	}
	size := new(big.Int).SetBytes(data[:SlotSize])
	if !size.IsInt64() || size.Int64() > int64(len(data)-SlotSize) {
		return nil, fmt.Errorf("%w: length %s exceeds %d remaining bytes", ErrTruncatedInput, size, len(data)-SlotSize)
	}
	n := int(size.Int64())
	content := data[SlotSize : SlotSize+n]
	if c.strict {
		padded := (n + SlotSize - 1) / SlotSize * SlotSize
		if SlotSize+padded > len(data) {
			return nil, fmt.Errorf("%w: content of %d bytes is not padded to a slot", ErrTruncatedInput, n)
		}
		if !isZero(data[SlotSize+n : SlotSize+padded]) {
			return nil, fmt.Errorf("%w: dirty padding after %d content bytes", ErrTypeMismatch, n)
		}
	}
	return common.CopyBytes(content), nil
}

func isZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}
