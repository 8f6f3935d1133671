package dbus

import (
	"bytes"
	"testing"
)

// TestWriteMessageMatchesS1Scenario checks the exact on-wire bytes
// given in the specification's §8 scenario S1: a little-endian
// MethodReturn with a "u" body, serial 0x12345678, flags
// NO_AUTO_START, reply_serial 0xabcdef12.
func TestWriteMessageMatchesS1Scenario(t *testing.T) {
	body := NewBodyBufWithEndianness(LittleEndian)
	if err := Store[uint32, Uint32Type](body, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}

	msg := MethodReturn(0xabcdef12).WithFlags(FlagNoAutoStart).WithBody(body)

	sb := NewSendBuf()
	sb.serial = 0x12345677 // NextSerial() will return 0x12345678.

	serial, err := sb.WriteMessage(LittleEndian, msg)
	if err != nil {
		t.Fatal(err)
	}
	if serial != 0x12345678 {
		t.Fatalf("serial = %#x, want 0x12345678", serial)
	}

	want := []byte{
		0x6c, 0x02, 0x02, 0x01, 0x04, 0x00, 0x00, 0x00,
		0x78, 0x56, 0x34, 0x12, 0x0f, 0x00, 0x00, 0x00,
		0x05, 0x01, 0x75, 0x00, 0x12, 0xef, 0xcd, 0xab,
		0x08, 0x01, 0x67, 0x00, 0x01, 0x75, 0x00, 0x00,
		0xef, 0xbe, 0xad, 0xde,
	}

	if got := sb.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("wire bytes mismatch:\n got: % x\nwant: % x", got, want)
	}
}

// TestWriteMessageMatchesS2Scenario checks S2: a MethodCall with no
// body, header array containing PATH, MEMBER, DESTINATION in that
// order with no SIGNATURE entry.
func TestWriteMessageMatchesS2Scenario(t *testing.T) {
	path, err := ParseObjectPath("/A")
	if err != nil {
		t.Fatal(err)
	}
	msg := MethodCall(path, "M").WithDestination("org.freedesktop.DBus")

	sb := NewSendBuf()
	serial, err := sb.WriteMessage(LittleEndian, msg)
	if err != nil {
		t.Fatal(err)
	}
	if serial != 1 {
		t.Fatalf("serial = %d, want 1", serial)
	}

	decoded, n, err := tryDecodeMessage(sb.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if n != len(sb.Bytes()) {
		t.Fatalf("consumed %d bytes, want %d", n, len(sb.Bytes()))
	}
	if decoded.Path != path {
		t.Errorf("Path = %q, want %q", decoded.Path, path)
	}
	if decoded.Member != "M" {
		t.Errorf("Member = %q, want M", decoded.Member)
	}
	if decoded.Destination != "org.freedesktop.DBus" {
		t.Errorf("Destination = %q, want org.freedesktop.DBus", decoded.Destination)
	}
	if decoded.Signature() != "" {
		t.Errorf("Signature() = %q, want empty (no SIGNATURE field for an empty body)", decoded.Signature())
	}

	// Confirm PATH, MEMBER, DESTINATION appear in that order within the
	// raw header field array, with no SIGNATURE byte anywhere.
	raw := sb.Bytes()
	fieldsLen := LittleEndian.Order().Uint32(raw[12:16])
	fields := raw[16 : 16+fieldsLen]

	var codes []headerFieldCode
	fb := NewBody(fields, LittleEndian, "")
	for !fb.IsEmpty() {
		if err := fb.align(8); err != nil {
			t.Fatal(err)
		}
		if fb.IsEmpty() {
			break
		}
		code, err := fb.readByte()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fb.readVariant(); err != nil {
			t.Fatal(err)
		}
		codes = append(codes, headerFieldCode(code))
	}

	want := []headerFieldCode{fieldPath, fieldMember, fieldDestination}
	if len(codes) != len(want) {
		t.Fatalf("header field codes = %v, want %v", codes, want)
	}
	for i, c := range codes {
		if c != want[i] {
			t.Errorf("codes[%d] = %v, want %v", i, c, want[i])
		}
	}
}
