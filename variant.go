package dbus

// Variant is a D-Bus VARIANT value: a signature naming exactly one
// type, paired with a value of that type (§4.2 supplement). Only the
// closed set of markers in this package may appear as Value — byte,
// bool, the signed/unsigned integers, double, string, object path,
// signature, and a nested Variant. Anything else (arrays, structs,
// dicts embedded in a variant) is rejected with ErrUnsupportedVariant,
// matching original_source's variant.rs scope.
type Variant struct {
	Sig   Signature
	Value any
}

// NewVariant builds a Variant from a known marker type, computing its
// signature from M so callers never hand-write the wire code.
func NewVariant[V any, M Marker[V]](v V) Variant {
	var m M
	b := NewSignatureBuilder()
	// writeSignature never fails for the basic markers allowed inside
	// a variant; ignore the error rather than thread it through every
	// call site.
	_ = m.writeSignature(b)
	return Variant{Sig: b.Signature(), Value: v}
}
