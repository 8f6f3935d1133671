package dbus

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBodyBufScalarRoundTrip(t *testing.T) {
	w := NewBodyBuf()
	if err := Store[uint32, Uint32Type](w, 7); err != nil {
		t.Fatal(err)
	}
	if err := Store[string, StringType](w, "hello"); err != nil {
		t.Fatal(err)
	}
	if err := Store[byte, ByteType](w, 0x42); err != nil {
		t.Fatal(err)
	}

	if got, want := w.Signature(), Signature("usy"); got != want {
		t.Fatalf("Signature() = %q, want %q", got, want)
	}

	r := w.AsBody()
	u, err := Load[uint32, Uint32Type](r)
	if err != nil {
		t.Fatal(err)
	}
	if u != 7 {
		t.Errorf("u = %d, want 7", u)
	}
	s, err := Load[string, StringType](r)
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Errorf("s = %q, want hello", s)
	}
	b, err := Load[byte, ByteType](r)
	if err != nil {
		t.Fatal(err)
	}
	if b != 0x42 {
		t.Errorf("b = %#x, want 0x42", b)
	}
	if !r.IsEmpty() {
		t.Errorf("expected body fully consumed, %d bytes left", r.Len()-r.Pos())
	}
}

func TestBodyBufArrayRoundTrip(t *testing.T) {
	w := NewBodyBuf()
	in := []string{"one", "two", "three"}
	if err := StoreArray[string, StringType](w, in); err != nil {
		t.Fatal(err)
	}
	if got, want := w.Signature(), Signature("as"); got != want {
		t.Fatalf("Signature() = %q, want %q", got, want)
	}

	r := w.AsBody()
	out, err := LoadArray[string, StringType](r)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("array round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBodyBufEmptyArrayPadding(t *testing.T) {
	w := NewBodyBuf()
	if err := Store[byte, ByteType](w, 1); err != nil {
		t.Fatal(err)
	}
	if err := StoreArray[uint64, Uint64Type](w, nil); err != nil {
		t.Fatal(err)
	}

	r := w.AsBody()
	if _, err := Load[byte, ByteType](r); err != nil {
		t.Fatal(err)
	}
	out, err := LoadArray[uint64, Uint64Type](r)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("len(out) = %d, want 0", len(out))
	}
}

func TestBodyBufStructRoundTrip(t *testing.T) {
	w := NewBodyBuf()
	in := Pair2[string, int32]{F0: "answer", F1: 42}
	if err := StoreStruct[Pair2[string, int32], Tuple2[string, int32, StringType, Int32Type]](w, in); err != nil {
		t.Fatal(err)
	}
	if got, want := w.Signature(), Signature("(si)"); got != want {
		t.Fatalf("Signature() = %q, want %q", got, want)
	}

	r := w.AsBody()
	out, err := LoadStruct[Pair2[string, int32], Tuple2[string, int32, StringType, Int32Type]](r)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("struct round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBodyBufVariantRoundTrip(t *testing.T) {
	w := NewBodyBuf()
	v := NewVariant[uint32, Uint32Type](99)
	if err := Store[Variant, VariantType](w, v); err != nil {
		t.Fatal(err)
	}

	// S4: a Variant::U32 stored into an empty body must yield body
	// signature "v", not "vu" — the payload's own type code must not
	// be appended a second time on top of the variant's "v".
	if got, want := w.Signature(), Signature("v"); got != want {
		t.Fatalf("Signature() = %q, want %q", got, want)
	}

	r := w.AsBody()
	out, err := Load[Variant, VariantType](r)
	if err != nil {
		t.Fatal(err)
	}
	if out.Sig != "u" {
		t.Errorf("Sig = %q, want u", out.Sig)
	}
	if out.Value.(uint32) != 99 {
		t.Errorf("Value = %v, want 99", out.Value)
	}
}

// TestBodyBufVariantMatchesS4Scenario checks the exact on-wire bytes
// given in the specification's §8 scenario S4.
func TestBodyBufVariantMatchesS4Scenario(t *testing.T) {
	w := NewBodyBufWithEndianness(LittleEndian)
	v := NewVariant[uint32, Uint32Type](10)
	if err := Store[Variant, VariantType](w, v); err != nil {
		t.Fatal(err)
	}

	if got, want := w.Signature(), Signature("v"); got != want {
		t.Fatalf("Signature() = %q, want %q", got, want)
	}

	want := []byte{0x01, 0x75, 0x00, 0x00, 0x0a, 0x00, 0x00, 0x00}
	if got := w.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("body bytes = % x, want % x", got, want)
	}
}
