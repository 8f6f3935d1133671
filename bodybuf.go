package dbus

import (
	"encoding/binary"
	"math"
)

// BodyBuf is a write cursor that builds a message body and its
// signature together, so the two can never drift apart (§4.6 "C6
// BodyBuf"). It mirrors original_source's BodyBuf (buf/mod.rs): an
// AlignedBuf paired with a SignatureBuilder and the chosen
// endianness.
type BodyBuf struct {
	buf    *AlignedBuf
	sig    *SignatureBuilder
	endian Endianness
}

// NewBodyBuf returns an empty body buffer using the native
// endianness.
func NewBodyBuf() *BodyBuf {
	return NewBodyBufWithEndianness(NativeEndian)
}

// NewBodyBufWithEndianness returns an empty body buffer using the
// given endianness.
func NewBodyBufWithEndianness(endian Endianness) *BodyBuf {
	return &BodyBuf{
		buf:    NewAlignedBuf(128),
		sig:    NewSignatureBuilder(),
		endian: endian,
	}
}

// Clear empties the buffer and its signature, retaining capacity.
func (w *BodyBuf) Clear() {
	w.buf.Reset()
	w.sig.Clear()
}

// Endianness reports the byte order values are encoded with.
func (w *BodyBuf) Endianness() Endianness { return w.endian }

func (w *BodyBuf) order() binary.ByteOrder { return w.endian.Order() }

// Signature returns the signature accumulated so far.
func (w *BodyBuf) Signature() Signature { return w.sig.Signature() }

// Len returns the number of body bytes written so far.
func (w *BodyBuf) Len() uint32 { return w.buf.Len() }

// IsEmpty reports whether nothing has been written yet.
func (w *BodyBuf) IsEmpty() bool { return w.buf.Len() == 0 }

// Bytes returns the accumulated body bytes.
func (w *BodyBuf) Bytes() []byte { return w.buf.Bytes() }

// AsBody returns a read cursor over the bytes written so far, useful
// for round-tripping a freshly built body in tests.
func (w *BodyBuf) AsBody() *Body {
	return NewBody(w.buf.Bytes(), w.endian, w.Signature())
}

func (w *BodyBuf) putByte(v byte) error {
	w.buf.PutByte(v)
	return nil
}

func (w *BodyBuf) putUint16(v uint16) error {
	w.buf.Align(2)
	var tmp [2]byte
	w.order().PutUint16(tmp[:], v)
	w.buf.Extend(tmp[:])
	return nil
}

func (w *BodyBuf) putUint32(v uint32) error {
	w.buf.Align(4)
	var tmp [4]byte
	w.order().PutUint32(tmp[:], v)
	w.buf.Extend(tmp[:])
	return nil
}

func (w *BodyBuf) putUint64(v uint64) error {
	w.buf.Align(8)
	var tmp [8]byte
	w.order().PutUint64(tmp[:], v)
	w.buf.Extend(tmp[:])
	return nil
}

func (w *BodyBuf) putDouble(v float64) error {
	return w.putUint64(math.Float64bits(v))
}

func (w *BodyBuf) putRawString(s string, lenIsByte bool) error {
	if lenIsByte {
		if len(s) > 255 {
			return newError(ErrHeaderTooLong)
		}
		if err := w.putByte(byte(len(s))); err != nil {
			return err
		}
		w.buf.ExtendNUL([]byte(s))
		return nil
	}
	if uint64(len(s)) > maxArrayLen {
		return newError(ErrArrayTooLong)
	}
	if err := w.putUint32(uint32(len(s))); err != nil {
		return err
	}
	w.buf.ExtendNUL([]byte(s))
	return nil
}

func (w *BodyBuf) putString(s string) error {
	return w.putRawString(s, false)
}

func (w *BodyBuf) putObjectPath(p ObjectPath) error {
	if err := validateObjectPath(string(p)); err != nil {
		return err
	}
	return w.putRawString(string(p), false)
}

func (w *BodyBuf) putSignature(sig Signature) error {
	if err := validateSignature([]byte(sig)); err != nil {
		return err
	}
	return w.putRawString(string(sig), true)
}

func (w *BodyBuf) putVariant(v Variant) error {
	if err := w.putSignature(v.Sig); err != nil {
		return err
	}
	return w.storeBySignature(v.Sig, v.Value)
}

// storeBySignature is putVariant's write-side counterpart to
// Body.loadBySignature: it dispatches on a runtime type code rather
// than a static Marker, since a Variant's payload type isn't known
// until the value is constructed. It writes only the payload bytes via
// the marker's store method directly (the way tuple.go's store calls
// ma.store, not Store) — the variant's signature was already appended
// by putVariant's call to putSignature, so going through Store here
// would append the payload's own type code a second time and corrupt
// the body signature (e.g. "v" would become "vu" for a U32 variant).
func (w *BodyBuf) storeBySignature(sig Signature, value any) error {
	if len(sig) != 1 {
		return &Error{Kind: ErrUnsupportedVariant, Detail: string(sig)}
	}
	switch sig[0] {
	case typeByte:
		return storeValue[byte, ByteType](w, value.(byte))
	case typeBoolean:
		return storeValue[bool, BoolType](w, value.(bool))
	case typeInt16:
		return storeValue[int16, Int16Type](w, value.(int16))
	case typeUint16:
		return storeValue[uint16, Uint16Type](w, value.(uint16))
	case typeInt32:
		return storeValue[int32, Int32Type](w, value.(int32))
	case typeUint32:
		return storeValue[uint32, Uint32Type](w, value.(uint32))
	case typeInt64:
		return storeValue[int64, Int64Type](w, value.(int64))
	case typeUint64:
		return storeValue[uint64, Uint64Type](w, value.(uint64))
	case typeDouble:
		return storeValue[float64, DoubleType](w, value.(float64))
	case typeString:
		return storeValue[string, StringType](w, value.(string))
	case typeObjectPath:
		return storeValue[ObjectPath, ObjPathType](w, value.(ObjectPath))
	case typeSignature:
		return storeValue[Signature, SignatureType](w, value.(Signature))
	case typeVariant:
		return storeValue[Variant, VariantType](w, value.(Variant))
	default:
		return &Error{Kind: ErrUnsupportedVariant, Detail: string(sig)}
	}
}

// storeValue aligns the cursor for marker M and writes v through it
// without touching the signature builder, used where the signature has
// already been (or must not be) accounted for separately — currently
// only a variant's payload (storeBySignature above).
func storeValue[V any, M Marker[V]](w *BodyBuf, v V) error {
	var m M
	w.buf.Align(m.alignment())
	return m.store(w, v)
}

// Store writes one value of type V using marker M, appending its
// signature fragment and aligning the cursor first. M is a zero-size
// witness type, e.g. Store[uint32, Uint32Type](body, 7).
func Store[V any, M Marker[V]](w *BodyBuf, v V) error {
	var m M
	if err := m.writeSignature(w.sig); err != nil {
		return err
	}
	w.buf.Align(m.alignment())
	return m.store(w, v)
}

// StoreArray writes v as an array of V using element marker E.
func StoreArray[V any, E Marker[V]](w *BodyBuf, v []V) error {
	return Store[[]V, Array[V, E]](w, v)
}
