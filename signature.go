package dbus

// Type codes of the D-Bus type alphabet (§6 "Signature grammar").
const (
	typeByte       = 'y'
	typeBoolean    = 'b'
	typeInt16      = 'n'
	typeUint16     = 'q'
	typeInt32      = 'i'
	typeUint32     = 'u'
	typeInt64      = 'x'
	typeUint64     = 't'
	typeDouble     = 'd'
	typeString     = 's'
	typeObjectPath = 'o'
	typeSignature  = 'g'
	typeUnixFD     = 'h'
	typeVariant    = 'v'
	typeArray      = 'a'
	typeStructOpen = '('
	typeStructClose = ')'
	typeDictOpen   = '{'
	typeDictClose  = '}'
)

// Limits from §3/§6.
const (
	maxSignatureLen    = 255
	maxArrayDepth      = 32
	maxStructDepth     = 32
	maxContainerDepth  = 64
)

// Signature is a validated D-Bus type signature, a borrowed view over its
// bytes. The zero value is the empty signature, valid and denoting zero
// values.
type Signature string

// String returns the signature text.
func (s Signature) String() string { return string(s) }

// ParseSignature validates s and returns it as a Signature.
func ParseSignature(s string) (Signature, error) {
	if err := validateSignature([]byte(s)); err != nil {
		return "", err
	}
	return Signature(s), nil
}

// containerFrame is one entry of the validation/builder stack.
type containerFrame struct {
	kind  containerKind
	count uint8
}

type containerKind uint8

const (
	kindNone containerKind = iota
	kindArray
	kindStruct
	kindDict
)

// validateSignature walks bytes exactly like the original Rust validator
// (original_source/crates/tokio-dbus-core/src/signature/validation.rs):
// a fixed-depth stack of open containers, each closer auditing its own
// frame before popping it.
func validateSignature(bytes []byte) error {
	if len(bytes) > maxSignatureLen {
		return &SignatureError{Kind: SignatureTooLong}
	}

	var stack []containerFrame
	var arrays, structs int

	push := func(f containerFrame) bool {
		if len(stack) >= maxContainerDepth {
			return false
		}
		stack = append(stack, f)
		return true
	}
	pop := func() (containerFrame, bool) {
		if len(stack) == 0 {
			return containerFrame{}, false
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return f, true
	}
	peek := func() (containerFrame, bool) {
		if len(stack) == 0 {
			return containerFrame{}, false
		}
		return stack[len(stack)-1], true
	}

	for n := 0; n < len(bytes); n++ {
		b := bytes[n]
		isBasic := false

		switch b {
		case typeByte, typeBoolean, typeInt16, typeUint16, typeInt32, typeUint32,
			typeInt64, typeUint64, typeDouble, typeString, typeObjectPath,
			typeSignature, typeUnixFD:
			isBasic = true
		case typeVariant:
			// Variant is a container for dict-key purposes even though
			// it is a single basic-looking type code.
		case typeArray:
			if !push(containerFrame{kind: kindArray}) || arrays == maxArrayDepth {
				return &SignatureError{Kind: ExceededMaximumArrayRecursion}
			}
			arrays++
			continue
		case typeStructOpen:
			if !push(containerFrame{kind: kindStruct}) || structs == maxStructDepth {
				return &SignatureError{Kind: ExceededMaximumStructRecursion}
			}
			structs++
			continue
		case typeStructClose:
			f, ok := pop()
			switch {
			case ok && f.kind == kindStruct:
				if f.count == 0 {
					return &SignatureError{Kind: StructHasNoFields}
				}
				structs--
			case ok && f.kind == kindArray:
				return &SignatureError{Kind: MissingArrayElementType}
			default:
				return &SignatureError{Kind: StructEndedButNotStarted}
			}
		case typeDictOpen:
			if !push(containerFrame{kind: kindDict}) {
				return &SignatureError{Kind: ExceededMaximumDictRecursion}
			}
			continue
		case typeDictClose:
			f, ok := pop()
			switch {
			case ok && f.kind == kindDict:
				switch f.count {
				case 0:
					return &SignatureError{Kind: DictEntryHasNoFields}
				case 1:
					return &SignatureError{Kind: DictEntryHasOnlyOneField}
				case 2:
					// ok
				default:
					return &SignatureError{Kind: DictEntryHasTooManyFields}
				}
			case ok && f.kind == kindArray:
				return &SignatureError{Kind: MissingArrayElementType}
			default:
				return &SignatureError{Kind: DictEndedButNotStarted}
			}
			if top, ok := peek(); !ok || top.kind != kindArray {
				return &SignatureError{Kind: DictEntryNotInsideArray}
			}
		default:
			return &SignatureError{Kind: UnknownTypeCode, Code: b}
		}

		// A just-completed type closes out any enclosing array frames
		// (an array's element type is exactly the next complete type).
		for {
			top, ok := peek()
			if !ok || top.kind != kindArray {
				break
			}
			pop()
			arrays--
			isBasic = false
		}

		if top, ok := peek(); ok && top.kind == kindDict && top.count == 0 && !isBasic {
			return &SignatureError{Kind: DictKeyMustBeBasicType}
		}

		if f, ok := pop(); ok {
			f.count++
			push(f)
		}
	}

	if f, ok := pop(); ok {
		switch f.kind {
		case kindArray:
			return &SignatureError{Kind: MissingArrayElementType}
		case kindStruct:
			return &SignatureError{Kind: StructStartedButNotEnded}
		case kindDict:
			return &SignatureError{Kind: DictStartedButNotEnded}
		}
	}

	return nil
}

// SignatureItemKind identifies the shape of one top-level item yielded
// by SignatureIter.
type SignatureItemKind int

// Kinds of signature item, see SignatureItem.
const (
	ItemBasic SignatureItemKind = iota
	ItemArray
	ItemStruct
	ItemDict
)

// SignatureItem is one top-level type produced while iterating a
// signature (§4.1 "Iterate").
type SignatureItem struct {
	Kind Signature
	// Elem is the array element signature, set only when ItemKind() == ItemArray.
	Elem Signature
	// Inner is the struct's field signature(s) concatenated, set only
	// when ItemKind() == ItemStruct.
	Inner Signature
	// DictKey/DictValue are set only when ItemKind() == ItemDict.
	DictKey, DictValue Signature
	kind               SignatureItemKind
}

// ItemKind reports which shape this item has.
func (it SignatureItem) ItemKind() SignatureItemKind { return it.kind }

// SignatureIter walks the top-level types of a validated signature,
// yielding one item per call to Next.
type SignatureIter struct {
	rest []byte
}

// Iter returns an iterator over s's top-level types. s must already be
// valid (e.g. returned from ParseSignature); Iter does not re-validate.
func (s Signature) Iter() *SignatureIter {
	return &SignatureIter{rest: []byte(s)}
}

// Next returns the next top-level item, or ok=false once the signature
// is exhausted.
func (it *SignatureIter) Next() (item SignatureItem, ok bool) {
	if len(it.rest) == 0 {
		return SignatureItem{}, false
	}

	end := oneCompleteType(it.rest)
	full := it.rest[:end]
	it.rest = it.rest[end:]

	item.Kind = Signature(full)

	switch full[0] {
	case typeArray:
		item.kind = ItemArray
		item.Elem = Signature(full[1:])
	case typeStructOpen:
		item.kind = ItemStruct
		item.Inner = Signature(full[1 : len(full)-1])
	case typeDictOpen:
		item.kind = ItemDict
		inner := full[1 : len(full)-1]
		keyEnd := oneCompleteType(inner)
		item.DictKey = Signature(inner[:keyEnd])
		item.DictValue = Signature(inner[keyEnd:])
	default:
		item.kind = ItemBasic
	}

	return item, true
}

// oneCompleteType returns the length, in bytes, of the single complete
// type starting at bytes[0]. bytes must contain a validated signature
// (or a validated prefix of one).
func oneCompleteType(bytes []byte) int {
	switch bytes[0] {
	case typeArray:
		return 1 + oneCompleteType(bytes[1:])
	case typeStructOpen:
		depth := 1
		for n := 1; n < len(bytes); n++ {
			switch bytes[n] {
			case typeStructOpen:
				depth++
			case typeStructClose:
				depth--
				if depth == 0 {
					return n + 1
				}
			}
		}
		return len(bytes)
	case typeDictOpen:
		depth := 1
		for n := 1; n < len(bytes); n++ {
			switch bytes[n] {
			case typeDictOpen:
				depth++
			case typeDictClose:
				depth--
				if depth == 0 {
					return n + 1
				}
			}
		}
		return len(bytes)
	default:
		return 1
	}
}

// SignatureBuilder accumulates a signature under the same depth and
// length limits as validateSignature, used while composing a body so
// the signature always matches the payload written so far (§4.1
// "Builder").
type SignatureBuilder struct {
	buf   []byte
	stack []containerKind
}

// NewSignatureBuilder returns an empty builder.
func NewSignatureBuilder() *SignatureBuilder {
	return &SignatureBuilder{}
}

// Signature returns the signature accumulated so far. The builder must
// have no open containers.
func (b *SignatureBuilder) Signature() Signature {
	return Signature(b.buf)
}

// Len returns the number of bytes accumulated so far.
func (b *SignatureBuilder) Len() int { return len(b.buf) }

// Clear resets the builder to empty.
func (b *SignatureBuilder) Clear() {
	b.buf = b.buf[:0]
	b.stack = b.stack[:0]
}

func (b *SignatureBuilder) push(b1 byte, kind containerKind) error {
	if len(b.buf) >= maxSignatureLen {
		return &SignatureError{Kind: SignatureTooLong}
	}
	if len(b.stack) >= maxContainerDepth {
		if kind == kindStruct {
			return &SignatureError{Kind: ExceededMaximumStructRecursion}
		}
		return &SignatureError{Kind: ExceededMaximumArrayRecursion}
	}
	depth := 0
	for _, k := range b.stack {
		if k == kind {
			depth++
		}
	}
	if kind == kindArray && depth >= maxArrayDepth {
		return &SignatureError{Kind: ExceededMaximumArrayRecursion}
	}
	if kind == kindStruct && depth >= maxStructDepth {
		return &SignatureError{Kind: ExceededMaximumStructRecursion}
	}
	b.buf = append(b.buf, b1)
	b.stack = append(b.stack, kind)
	return nil
}

// OpenArray appends "a" and marks an array container as open.
func (b *SignatureBuilder) OpenArray() error {
	return b.push(typeArray, kindArray)
}

// CloseArray pops the array container opened by OpenArray. Arrays close
// implicitly once their single element type has been appended (by
// Append or CloseStruct), so nothing in this package calls it.
func (b *SignatureBuilder) CloseArray() error {
	if len(b.stack) == 0 || b.stack[len(b.stack)-1] != kindArray {
		return &SignatureError{Kind: MissingArrayElementType}
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

// OpenStruct appends "(" and marks a struct container as open.
func (b *SignatureBuilder) OpenStruct() error {
	return b.push(typeStructOpen, kindStruct)
}

// CloseStruct appends ")" and closes the struct container opened by the
// matching OpenStruct.
func (b *SignatureBuilder) CloseStruct() error {
	if len(b.stack) == 0 || b.stack[len(b.stack)-1] != kindStruct {
		return &SignatureError{Kind: StructEndedButNotStarted}
	}
	if len(b.buf) >= maxSignatureLen {
		return &SignatureError{Kind: SignatureTooLong}
	}
	b.stack = b.stack[:len(b.stack)-1]
	b.buf = append(b.buf, typeStructClose)

	// A closed struct is a complete type, so it also completes any
	// enclosing array frames, as in Append.
	for len(b.stack) > 0 && b.stack[len(b.stack)-1] == kindArray {
		b.stack = b.stack[:len(b.stack)-1]
	}
	return nil
}

// Append appends a complete, already-validated signature fragment
// (e.g. a single basic type code) to the builder.
func (b *SignatureBuilder) Append(sig Signature) error {
	if len(b.buf)+len(sig) > maxSignatureLen {
		return &SignatureError{Kind: SignatureTooLong}
	}
	b.buf = append(b.buf, sig...)

	// Close any array frame that the appended type completes (arrays
	// hold exactly one element-type after the "a").
	for len(b.stack) > 0 && b.stack[len(b.stack)-1] == kindArray {
		b.stack = b.stack[:len(b.stack)-1]
	}
	return nil
}

// AppendByte appends a single basic type code.
func (b *SignatureBuilder) AppendByte(code byte) error {
	return b.Append(Signature([]byte{code}))
}
