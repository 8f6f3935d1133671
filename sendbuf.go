package dbus

import "encoding/binary"

// maxBodyLen and maxHeaderLen are the wire limits on body and header
// field array length (§3, §7 ErrBodyTooLong/ErrHeaderTooLong).
const (
	maxBodyLen   = 1 << 27
	maxHeaderLen = 1 << 26
)

// SendBuf accumulates complete, framed messages ready to write to a
// transport, and owns the monotonically increasing serial counter
// every sent message is stamped with (§4.8 "C8 send buffer"). It plays
// the same role the teacher's Client.nextMsgSerial/mu pair does in
// client.go, generalized from one fixed request shape to arbitrary
// messages.
type SendBuf struct {
	buf    *AlignedBuf
	serial uint32
}

// NewSendBuf returns an empty send buffer. Serials start at 1; 0 is
// never a valid serial (§7 ErrZeroSerial).
func NewSendBuf() *SendBuf {
	return &SendBuf{buf: NewAlignedBuf(512)}
}

// NextSerial allocates and returns the next message serial, wrapping
// past zero back to 1 if the counter ever overflows a uint32.
func (s *SendBuf) NextSerial() uint32 {
	s.serial++
	if s.serial == 0 {
		s.serial = 1
	}
	return s.serial
}

// Len returns the number of unflushed bytes queued.
func (s *SendBuf) Len() uint32 { return s.buf.Len() }

// Bytes returns the queued bytes. The slice is invalidated by the next
// WriteMessage or Consume call.
func (s *SendBuf) Bytes() []byte { return s.buf.Bytes() }

// Consume drops the first n bytes, called after a transport write
// reports n bytes sent.
func (s *SendBuf) Consume(n uint32) {
	rest := s.buf.Bytes()[n:]
	buf := NewAlignedBuf(len(rest))
	buf.Extend(rest)
	s.buf = buf
}

// WriteMessage encodes msg's header under endian, appends it to the
// send buffer, and returns the serial it was stamped with. The body
// bytes are copied as they are; they are not re-encoded, so they keep
// the byte order their BodyBuf was built with.
func (s *SendBuf) WriteMessage(endian Endianness, msg *OwnedMessage) (uint32, error) {
	if err := msg.Validate(); err != nil {
		return 0, err
	}

	serial := s.NextSerial()
	order := endian.Order()

	var bodyBytes []byte
	var bodySig Signature
	if msg.body != nil {
		bodyBytes = msg.body.Bytes()
		bodySig = msg.body.Signature()
	}
	if uint64(len(bodyBytes)) > maxBodyLen {
		return 0, newError(ErrBodyTooLong)
	}

	// Every message is encoded into its own buffer starting at offset
	// 0, since D-Bus alignment is relative to the start of the
	// message — the queue's messages are not individually padded, so
	// alignment math must never run against the concatenated queue
	// directly.
	msgBuf := NewAlignedBuf(64 + len(bodyBytes))

	// Fixed header (§6): endianness, type, flags, protocol version,
	// body length placeholder, serial.
	msgBuf.PutByte(byte(endian))
	msgBuf.PutByte(byte(msg.typ))
	msgBuf.PutByte(byte(msg.flags))
	msgBuf.PutByte(protocolVersion)
	bodyLenSlot := AllocSlot[uint32](msgBuf)
	msgBuf.Align(4)
	var serialBuf [4]byte
	order.PutUint32(serialBuf[:], serial)
	msgBuf.Extend(serialBuf[:])

	fieldsLenSlot := AllocSlot[uint32](msgBuf)
	fieldsStart := msgBuf.Len()

	if msg.path != "" {
		writeHeaderField(msgBuf, order, fieldPath, typeObjectPath, func() {
			writeRawString(msgBuf, order, string(msg.path), false)
		})
	}
	if msg.iface != "" {
		writeHeaderField(msgBuf, order, fieldInterface, typeString, func() {
			writeRawString(msgBuf, order, msg.iface, false)
		})
	}
	if msg.member != "" {
		writeHeaderField(msgBuf, order, fieldMember, typeString, func() {
			writeRawString(msgBuf, order, msg.member, false)
		})
	}
	if msg.errorName != "" {
		writeHeaderField(msgBuf, order, fieldErrorName, typeString, func() {
			writeRawString(msgBuf, order, msg.errorName, false)
		})
	}
	if msg.replySerial != 0 {
		writeHeaderField(msgBuf, order, fieldReplySerial, typeUint32, func() {
			msgBuf.Align(4)
			var tmp [4]byte
			order.PutUint32(tmp[:], msg.replySerial)
			msgBuf.Extend(tmp[:])
		})
	}
	if msg.destination != "" {
		writeHeaderField(msgBuf, order, fieldDestination, typeString, func() {
			writeRawString(msgBuf, order, msg.destination, false)
		})
	}
	if msg.sender != "" {
		writeHeaderField(msgBuf, order, fieldSender, typeString, func() {
			writeRawString(msgBuf, order, msg.sender, false)
		})
	}
	if bodySig != "" {
		writeHeaderField(msgBuf, order, fieldSignature, typeSignature, func() {
			writeRawString(msgBuf, order, string(bodySig), true)
		})
	}

	fieldsLen := msgBuf.Len() - fieldsStart
	if fieldsLen > maxHeaderLen {
		return 0, newError(ErrHeaderTooLong)
	}
	PatchSlot(msgBuf, fieldsLenSlot, fieldsLen, order)

	msgBuf.Align(8)
	PatchSlot(msgBuf, bodyLenSlot, uint32(len(bodyBytes)), order)

	msgBuf.Extend(bodyBytes)

	s.buf.Extend(msgBuf.Bytes())
	return serial, nil
}

// writeHeaderField appends one STRUCT(y,v) entry of the header field
// array: the 8-byte struct alignment, the field code byte, then the
// variant's signature and value, following the teacher's
// encodeHeaderField (header.go) byte-for-byte shape.
func writeHeaderField(buf *AlignedBuf, order binary.ByteOrder, code headerFieldCode, sigCode byte, writeValue func()) {
	buf.Align(8)
	buf.PutByte(byte(code))
	buf.PutByte(1)
	buf.PutByte(sigCode)
	buf.PutByte(0)
	switch sigCode {
	case typeObjectPath, typeString:
		buf.Align(4)
	case typeSignature:
		// 1-byte aligned, nothing to do.
	case typeUint32:
		buf.Align(4)
	}
	writeValue()
}

// writeRawString appends a length-prefixed, NUL-terminated string
// using either a 1-byte (signature) or 4-byte (string/object path)
// length prefix.
func writeRawString(buf *AlignedBuf, order binary.ByteOrder, s string, lenIsByte bool) {
	if lenIsByte {
		buf.PutByte(byte(len(s)))
	} else {
		buf.Align(4)
		var tmp [4]byte
		order.PutUint32(tmp[:], uint32(len(s)))
		buf.Extend(tmp[:])
	}
	buf.ExtendNUL([]byte(s))
}
