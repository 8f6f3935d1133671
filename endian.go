package dbus

import "encoding/binary"

// Endianness is the wire byte order of a D-Bus message, carried as the
// first byte of the fixed header ('l' or 'B').
type Endianness byte

// Endianness values recognized on the wire.
const (
	// LittleEndian is ASCII 'l'.
	LittleEndian Endianness = 'l'
	// BigEndian is ASCII 'B'.
	BigEndian Endianness = 'B'
)

// NativeEndian is the endianness this process encodes outgoing messages
// with. D-Bus clients are free to pick either; little-endian is what
// every major bus daemon and client library defaults to.
const NativeEndian = LittleEndian

// Order returns the binary.ByteOrder implied by e, or nil if e is not a
// recognized endianness flag.
func (e Endianness) Order() binary.ByteOrder {
	switch e {
	case LittleEndian:
		return binary.LittleEndian
	case BigEndian:
		return binary.BigEndian
	default:
		return nil
	}
}

// Valid reports whether e is a recognized wire endianness flag.
func (e Endianness) Valid() bool {
	return e == LittleEndian || e == BigEndian
}

func (e Endianness) String() string {
	switch e {
	case LittleEndian:
		return "little-endian"
	case BigEndian:
		return "big-endian"
	default:
		return "invalid"
	}
}

// nextOffset returns the next position that is a multiple of align along
// with the padding required to get there from current.
//
// align must be a power of two. Mirrors the offset arithmetic the teacher
// package used for its own header/body alignment bookkeeping.
func nextOffset(current, align uint32) (next, padding uint32) {
	if current%align == 0 {
		return current, 0
	}

	next = (current + align - 1) &^ (align - 1)
	padding = next - current
	return next, padding
}

// padding8 returns the padding bytes needed to bring current up to an
// 8-byte boundary, the alignment every D-Bus struct and message header
// uses.
func padding8(current uint32) uint32 {
	_, p := nextOffset(current, 8)
	return p
}
