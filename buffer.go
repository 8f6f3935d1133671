package dbus

import (
	"encoding/binary"
	"unsafe"
)

// AlignedBuf is an append-only byte buffer that tracks D-Bus alignment
// as it grows, used to build message bodies and header field arrays
// (§4.3/§4.4). Offset 0 is always 8-byte aligned, matching the fact
// that a body always starts a fresh alignment run.
//
// This mirrors the teacher's decoder/encoder offset bookkeeping
// (decoder.go's Align/nextOffset), generalized from a fixed read-only
// frame to a growable write buffer, the way
// original_source/crates/tokio-dbus/src/buf/aligned_buf.rs grows a
// buffer under the same alignment discipline.
type AlignedBuf struct {
	buf []byte
}

// NewAlignedBuf returns an empty buffer with cap bytes pre-reserved.
func NewAlignedBuf(cap int) *AlignedBuf {
	return &AlignedBuf{buf: make([]byte, 0, cap)}
}

// Len returns the number of bytes written so far.
func (b *AlignedBuf) Len() uint32 { return uint32(len(b.buf)) }

// Bytes returns the accumulated bytes. The slice is invalidated by the
// next write.
func (b *AlignedBuf) Bytes() []byte { return b.buf }

// Reset empties the buffer, retaining its capacity.
func (b *AlignedBuf) Reset() { b.buf = b.buf[:0] }

// Align pads the buffer with zero bytes until its length is a multiple
// of align, which must be a power of two.
func (b *AlignedBuf) Align(align uint32) {
	_, pad := nextOffset(b.Len(), align)
	for i := uint32(0); i < pad; i++ {
		b.buf = append(b.buf, 0)
	}
}

// Extend appends p verbatim, with no alignment or framing.
func (b *AlignedBuf) Extend(p []byte) {
	b.buf = append(b.buf, p...)
}

// ExtendNUL appends p followed by a single NUL byte, the framing every
// D-Bus string/object-path/signature value ends with on the wire.
func (b *AlignedBuf) ExtendNUL(p []byte) {
	b.buf = append(b.buf, p...)
	b.buf = append(b.buf, 0)
}

// PutByte appends a single byte.
func (b *AlignedBuf) PutByte(v byte) {
	b.buf = append(b.buf, v)
}

// wireInt is the set of fixed-width integer types that appear as
// length or offset prefixes on the wire and so can be back-patched via
// a Slot once their value is known.
type wireInt interface {
	~uint16 | ~uint32 | ~uint64 | ~int16 | ~int32 | ~int64
}

func sizeOfWireInt[T wireInt]() uint32 {
	var zero T
	return uint32(unsafe.Sizeof(zero))
}

// Slot is a placeholder reserved in an AlignedBuf for a value that is
// only known after more bytes have been written after it — the array
// and header-field-array length prefixes (§4.4 step a, §4.9 step 2).
// It mirrors the teacher's pattern of writing a placeholder length and
// patching it once the array body is known, generalized into a typed,
// reusable helper the way
// original_source/crates/tokio-dbus/src/buf/aligned_buf.rs's Alloc<T>
// does for Rust.
type Slot[T wireInt] struct {
	pos uint32
}

// AllocSlot aligns b to T's size, reserves size(T) zero bytes, and
// returns a Slot identifying them for a later PatchSlot call.
func AllocSlot[T wireInt](b *AlignedBuf) Slot[T] {
	size := sizeOfWireInt[T]()
	b.Align(size)
	pos := b.Len()
	b.buf = append(b.buf, make([]byte, size)...)
	return Slot[T]{pos: pos}
}

// PatchSlot writes v into the bytes reserved by AllocSlot, in the
// given byte order.
func PatchSlot[T wireInt](b *AlignedBuf, s Slot[T], v T, order binary.ByteOrder) {
	dst := b.buf[s.pos:]
	switch size := sizeOfWireInt[T](); size {
	case 2:
		order.PutUint16(dst, uint16(anyToUint64(v)))
	case 4:
		order.PutUint32(dst, uint32(anyToUint64(v)))
	case 8:
		order.PutUint64(dst, anyToUint64(v))
	}
}

// anyToUint64 reinterprets a wireInt value's bit pattern as a uint64,
// used so PatchSlot can share one implementation across signed and
// unsigned slot types without per-type duplication.
func anyToUint64[T wireInt](v T) uint64 {
	switch x := any(v).(type) {
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case int16:
		return uint64(uint16(x))
	case int32:
		return uint64(uint32(x))
	case int64:
		return uint64(x)
	default:
		return 0
	}
}

// Pos returns the slot's byte offset within the buffer, used by
// callers that need to compute a length relative to it (e.g. a uint32
// slot's trailing byte count = current length - (slot.Pos() + 4)).
func (s Slot[T]) Pos() uint32 { return s.pos }
