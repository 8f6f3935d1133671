package dbus

import (
	"math"
	"unicode/utf8"
)

// Body is a read cursor over a decoded message body (§4.5 "C5 Body
// reader"). It knows the body's signature and endianness but, per the
// Open Question decision recorded in DESIGN.md, Signature always
// returns the body's full original signature — it is never narrowed
// as values are read off the front.
type Body struct {
	buf    []byte
	endian Endianness
	sig    Signature
	pos    uint32
}

// NewBody wraps buf (the raw bytes of a message body) for reading,
// under the given endianness and signature. The caller is responsible
// for having already validated sig.
func NewBody(buf []byte, endian Endianness, sig Signature) *Body {
	return &Body{buf: buf, endian: endian, sig: sig}
}

// Signature returns the body's full signature.
func (b *Body) Signature() Signature { return b.sig }

// Len returns the total body length in bytes.
func (b *Body) Len() uint32 { return uint32(len(b.buf)) }

// Pos returns the current read offset.
func (b *Body) Pos() uint32 { return b.pos }

// IsEmpty reports whether the cursor has reached the end of the body.
func (b *Body) IsEmpty() bool { return b.pos >= uint32(len(b.buf)) }

func (b *Body) align(n uint32) error {
	next, _ := nextOffset(b.pos, n)
	if next > uint32(len(b.buf)) {
		return newError(ErrBufferUnderflow)
	}
	b.pos = next
	return nil
}

func (b *Body) need(n uint32) error {
	if b.pos+n > uint32(len(b.buf)) {
		return newError(ErrBufferUnderflow)
	}
	return nil
}

func (b *Body) readByte() (byte, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	v := b.buf[b.pos]
	b.pos++
	return v, nil
}

func (b *Body) readUint16() (uint16, error) {
	if err := b.align(2); err != nil {
		return 0, err
	}
	if err := b.need(2); err != nil {
		return 0, err
	}
	v := b.endian.Order().Uint16(b.buf[b.pos:])
	b.pos += 2
	return v, nil
}

func (b *Body) readUint32() (uint32, error) {
	if err := b.align(4); err != nil {
		return 0, err
	}
	if err := b.need(4); err != nil {
		return 0, err
	}
	v := b.endian.Order().Uint32(b.buf[b.pos:])
	b.pos += 4
	return v, nil
}

func (b *Body) readUint64() (uint64, error) {
	if err := b.align(8); err != nil {
		return 0, err
	}
	if err := b.need(8); err != nil {
		return 0, err
	}
	v := b.endian.Order().Uint64(b.buf[b.pos:])
	b.pos += 8
	return v, nil
}

func (b *Body) readDouble() (float64, error) {
	bits, err := b.readUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// readRawString reads a length-prefixed, NUL-terminated byte run whose
// length prefix has the given width (4 bytes for STRING/OBJECT_PATH, 1
// byte for SIGNATURE), validates UTF-8 and the NUL terminator, and
// returns the text without the terminator.
//
// length comes straight off the wire and so must be validated in
// arithmetic wide enough that a malformed length near the uint32 max
// (e.g. 0xFFFFFFFF) can't wrap "length + 1" back to a small, falsely
// in-bounds value and then panic — or worse, silently slice the wrong
// bytes — when added to the current position.
func (b *Body) readRawString(lenIsByte bool) (string, error) {
	var length uint32
	if lenIsByte {
		n, err := b.readByte()
		if err != nil {
			return "", err
		}
		length = uint32(n)
	} else {
		n, err := b.readUint32()
		if err != nil {
			return "", err
		}
		length = n
	}

	end := uint64(b.pos) + uint64(length)
	if end+1 > uint64(len(b.buf)) {
		return "", newError(ErrBufferUnderflow)
	}

	nulAt := uint32(end)
	data := b.buf[b.pos:nulAt]
	if b.buf[nulAt] != 0 {
		return "", newError(ErrNotNullTerminated)
	}
	if !utf8.Valid(data) {
		return "", newError(ErrUtf8)
	}
	b.pos = nulAt + 1
	return string(data), nil
}

func (b *Body) readString() (string, error) {
	return b.readRawString(false)
}

func (b *Body) readObjectPath() (ObjectPath, error) {
	s, err := b.readRawString(false)
	if err != nil {
		return "", err
	}
	if err := validateObjectPath(s); err != nil {
		return "", err
	}
	return ObjectPath(s), nil
}

func (b *Body) readSignature() (Signature, error) {
	s, err := b.readRawString(true)
	if err != nil {
		return "", err
	}
	if err := validateSignature([]byte(s)); err != nil {
		return "", err
	}
	return Signature(s), nil
}

func (b *Body) readVariant() (Variant, error) {
	sig, err := b.readSignature()
	if err != nil {
		return Variant{}, err
	}
	v, err := b.loadBySignature(sig)
	if err != nil {
		return Variant{}, err
	}
	return Variant{Sig: sig, Value: v}, nil
}

// loadBySignature dispatches to the right basic marker at runtime from
// a single variant type code. Only the closed set of markers allowed
// inside a variant (§4.2 supplement) is supported; anything else is
// ErrUnsupportedVariant.
func (b *Body) loadBySignature(sig Signature) (any, error) {
	if len(sig) != 1 {
		return nil, &Error{Kind: ErrUnsupportedVariant, Detail: string(sig)}
	}
	switch sig[0] {
	case typeByte:
		return Load[byte, ByteType](b)
	case typeBoolean:
		return Load[bool, BoolType](b)
	case typeInt16:
		return Load[int16, Int16Type](b)
	case typeUint16:
		return Load[uint16, Uint16Type](b)
	case typeInt32:
		return Load[int32, Int32Type](b)
	case typeUint32:
		return Load[uint32, Uint32Type](b)
	case typeInt64:
		return Load[int64, Int64Type](b)
	case typeUint64:
		return Load[uint64, Uint64Type](b)
	case typeDouble:
		return Load[float64, DoubleType](b)
	case typeString:
		return Load[string, StringType](b)
	case typeObjectPath:
		return Load[ObjectPath, ObjPathType](b)
	case typeSignature:
		return Load[Signature, SignatureType](b)
	case typeVariant:
		return Load[Variant, VariantType](b)
	default:
		return nil, &Error{Kind: ErrUnsupportedVariant, Detail: string(sig)}
	}
}

// Load reads one value of type V using marker M, aligning the cursor
// first. M is a zero-size witness type, e.g. Load[uint32,
// Uint32Type](body).
func Load[V any, M Marker[V]](b *Body) (V, error) {
	var m M
	var zero V
	if err := b.align(m.alignment()); err != nil {
		return zero, err
	}
	return m.load(b)
}

// LoadArray reads an array of V using element marker E.
func LoadArray[V any, E Marker[V]](b *Body) ([]V, error) {
	return Load[[]V, Array[V, E]](b)
}

// Skip advances the cursor past one complete value of the given
// signature without materializing it into a Go value, for discarding
// body arguments the caller isn't interested in. Message header fields
// are decoded with readVariant, not Skip.
func (b *Body) Skip(sig Signature) error {
	if len(sig) == 0 {
		return nil
	}
	switch sig[0] {
	case typeByte:
		_, err := b.readByte()
		return err
	case typeBoolean:
		_, err := Load[bool, BoolType](b)
		return err
	case typeInt16, typeUint16:
		_, err := b.readUint16()
		return err
	case typeInt32, typeUint32, typeUnixFD:
		_, err := b.readUint32()
		return err
	case typeInt64, typeUint64, typeDouble:
		_, err := b.readUint64()
		return err
	case typeString:
		_, err := b.readString()
		return err
	case typeObjectPath:
		_, err := b.readObjectPath()
		return err
	case typeSignature:
		_, err := b.readSignature()
		return err
	case typeVariant:
		_, err := b.readVariant()
		return err
	case typeArray:
		return b.skipArray(sig[1:])
	case typeStructOpen:
		return b.skipStruct(sig[1 : len(sig)-1])
	case typeDictOpen:
		return b.skipDict(sig[1 : len(sig)-1])
	default:
		return &SignatureError{Kind: UnknownTypeCode, Code: sig[0]}
	}
}

func (b *Body) skipArray(elem Signature) error {
	length, err := b.readUint32()
	if err != nil {
		return err
	}
	if length > maxArrayLen {
		return newError(ErrArrayTooLong)
	}
	align := elemAlignOf(elem)
	if err := b.align(align); err != nil {
		return err
	}
	end := b.pos + length
	if end > uint32(len(b.buf)) {
		return newError(ErrBufferUnderflow)
	}
	for b.pos < end {
		if err := b.Skip(elem); err != nil {
			return err
		}
	}
	return nil
}

func (b *Body) skipStruct(fields Signature) error {
	if err := b.align(8); err != nil {
		return err
	}
	it := fields.Iter()
	for {
		item, ok := it.Next()
		if !ok {
			return nil
		}
		if err := b.Skip(item.Kind); err != nil {
			return err
		}
	}
}

func (b *Body) skipDict(entry Signature) error {
	if err := b.align(8); err != nil {
		return err
	}
	it := entry.Iter()
	for {
		item, ok := it.Next()
		if !ok {
			return nil
		}
		if err := b.Skip(item.Kind); err != nil {
			return err
		}
	}
}

// elemAlignOf returns the wire alignment of an array element
// signature, used by Skip since it has no static Marker to ask.
func elemAlignOf(sig Signature) uint32 {
	if len(sig) == 0 {
		return 1
	}
	switch sig[0] {
	case typeByte, typeSignature, typeVariant:
		return 1
	case typeInt16, typeUint16:
		return 2
	case typeInt32, typeUint32, typeBoolean, typeString, typeObjectPath, typeUnixFD, typeArray:
		return 4
	case typeInt64, typeUint64, typeDouble, typeStructOpen, typeDictOpen:
		return 8
	default:
		return 1
	}
}
