package dbus

import (
	"strings"
	"testing"
)

func TestParseSignatureValid(t *testing.T) {
	tests := []string{
		"",
		"y", "b", "n", "q", "i", "u", "x", "t", "d", "s", "o", "g", "h", "v",
		"ay", "as", "a(si)",
		"(yv)", "(siiiii)",
		"a{sv}",
		"a{s(ii)}",
		"aa{sv}",
	}
	for _, sig := range tests {
		if _, err := ParseSignature(sig); err != nil {
			t.Errorf("ParseSignature(%q) = %v, want nil", sig, err)
		}
	}
}

func TestParseSignatureInvalid(t *testing.T) {
	tests := []struct {
		sig  string
		kind SignatureErrorKind
	}{
		{"z", UnknownTypeCode},
		{"a", MissingArrayElementType},
		{"(", StructStartedButNotEnded},
		{")", StructEndedButNotStarted},
		{"()", StructHasNoFields},
		{"{sv}", DictEntryNotInsideArray},
		{"a{s}", DictEntryHasOnlyOneField},
		{"a{siv}", DictEntryHasTooManyFields},
		{"a{vs}", DictKeyMustBeBasicType},
		{"a{}", DictEntryHasNoFields},
	}
	for _, tc := range tests {
		_, err := ParseSignature(tc.sig)
		if err == nil {
			t.Errorf("ParseSignature(%q) = nil, want error", tc.sig)
			continue
		}
		se, ok := err.(*SignatureError)
		if !ok {
			t.Errorf("ParseSignature(%q) error type = %T, want *SignatureError", tc.sig, err)
			continue
		}
		if se.Kind != tc.kind {
			t.Errorf("ParseSignature(%q) kind = %v, want %v", tc.sig, se.Kind, tc.kind)
		}
	}
}

func TestSignatureIterStruct(t *testing.T) {
	sig := Signature("i(si)as")
	it := sig.Iter()

	item, ok := it.Next()
	if !ok || item.ItemKind() != ItemBasic || item.Kind != "i" {
		t.Fatalf("first item = %+v, ok=%v", item, ok)
	}

	item, ok = it.Next()
	if !ok || item.ItemKind() != ItemStruct || item.Inner != "si" {
		t.Fatalf("second item = %+v, ok=%v", item, ok)
	}

	item, ok = it.Next()
	if !ok || item.ItemKind() != ItemArray || item.Elem != "s" {
		t.Fatalf("third item = %+v, ok=%v", item, ok)
	}

	if _, ok = it.Next(); ok {
		t.Fatalf("expected iterator to be exhausted")
	}
}

// TestParseSignatureDepthLimits exercises the S6 scenarios from the
// specification's testable-properties section: a dict whose key isn't
// basic, 33 levels of array/struct nesting, and a dict entry with too
// many fields.
func TestParseSignatureDepthLimits(t *testing.T) {
	if _, err := ParseSignature("a{sv}"); err != nil {
		t.Errorf("a{sv} should be accepted, got %v", err)
	}

	tests := []struct {
		name string
		sig  string
		kind SignatureErrorKind
	}{
		{"dict key must be basic", "a{(ii)i}", DictKeyMustBeBasicType},
		{"33 leading arrays", strings.Repeat("a", 33) + "y", ExceededMaximumArrayRecursion},
		{"33 nested structs", strings.Repeat("(", 33) + strings.Repeat(")", 33), ExceededMaximumStructRecursion},
		{"dict entry has too many fields", "a{isi}", DictEntryHasTooManyFields},
	}
	for _, tc := range tests {
		_, err := ParseSignature(tc.sig)
		se, ok := err.(*SignatureError)
		if !ok {
			t.Errorf("%s: ParseSignature(%q) error type = %T, want *SignatureError", tc.name, tc.sig, err)
			continue
		}
		if se.Kind != tc.kind {
			t.Errorf("%s: ParseSignature(%q) kind = %v, want %v", tc.name, tc.sig, se.Kind, tc.kind)
		}
	}
}

func TestSignatureBuilderMatchesArray(t *testing.T) {
	b := NewSignatureBuilder()
	var arr Array[string, StringType]
	if err := arr.writeSignature(b); err != nil {
		t.Fatal(err)
	}
	if got, want := b.Signature(), Signature("as"); got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}
}
