package dbus

import "fmt"

// SignatureErrorKind enumerates why a type signature failed validation.
type SignatureErrorKind int

// Signature validation failure kinds, see ParseSignature.
const (
	UnknownTypeCode SignatureErrorKind = iota
	SignatureTooLong
	MissingArrayElementType
	StructEndedButNotStarted
	DictEndedButNotStarted
	StructStartedButNotEnded
	DictStartedButNotEnded
	StructHasNoFields
	DictKeyMustBeBasicType
	DictEntryHasNoFields
	DictEntryHasOnlyOneField
	DictEntryNotInsideArray
	ExceededMaximumArrayRecursion
	ExceededMaximumStructRecursion
	ExceededMaximumDictRecursion
	DictEntryHasTooManyFields
)

func (k SignatureErrorKind) String() string {
	switch k {
	case UnknownTypeCode:
		return "unknown type code"
	case SignatureTooLong:
		return "signature too long"
	case MissingArrayElementType:
		return "missing array element type"
	case StructEndedButNotStarted:
		return "struct ended but not started"
	case DictEndedButNotStarted:
		return "dict ended but not started"
	case StructStartedButNotEnded:
		return "struct started but not ended"
	case DictStartedButNotEnded:
		return "dict started but not ended"
	case StructHasNoFields:
		return "struct has no fields"
	case DictKeyMustBeBasicType:
		return "dict key must be basic type"
	case DictEntryHasNoFields:
		return "dict entry has no fields"
	case DictEntryHasOnlyOneField:
		return "dict entry has only one field"
	case DictEntryNotInsideArray:
		return "dict entry not inside array"
	case ExceededMaximumArrayRecursion:
		return "exceeded maximum array recursion"
	case ExceededMaximumStructRecursion:
		return "exceeded maximum struct recursion"
	case ExceededMaximumDictRecursion:
		return "exceeded maximum dict recursion"
	case DictEntryHasTooManyFields:
		return "dict entry has too many fields"
	default:
		return "invalid signature error"
	}
}

// SignatureError is returned by signature validation and the signature
// builder when a signature is malformed or exceeds a limit.
type SignatureError struct {
	Kind SignatureErrorKind
	// Code is the offending type code, set only for UnknownTypeCode.
	Code byte
}

func (e *SignatureError) Error() string {
	if e.Kind == UnknownTypeCode {
		return fmt.Sprintf("dbus: %s: %q", e.Kind, e.Code)
	}
	return fmt.Sprintf("dbus: %s", e.Kind)
}

// ObjectPathError is returned when a string fails object path validation.
type ObjectPathError struct {
	Path string
}

func (e *ObjectPathError) Error() string {
	return fmt.Sprintf("dbus: invalid object path %q", e.Path)
}

// ErrorKind enumerates the taxonomy of codec and transport errors in
// §7 of the specification. Each corresponds to a distinct failure
// surfaced by the wire codec, the connection state machine, or SASL.
type ErrorKind int

// Error kinds, grouped as codec errors then transport errors.
const (
	// ErrBufferUnderflow means a read ran past the end of the body or
	// header slice it was bounded to.
	ErrBufferUnderflow ErrorKind = iota
	// ErrNotNullTerminated means a decoded string/signature/object path
	// was not followed by the mandatory NUL terminator.
	ErrNotNullTerminated
	// ErrArrayTooLong means an array's byte length exceeded 2^26.
	ErrArrayTooLong
	// ErrBodyTooLong means a message body exceeded 2^27 bytes.
	ErrBodyTooLong
	// ErrHeaderTooLong means a header field array exceeded 2^26 bytes.
	ErrHeaderTooLong
	// ErrInvalidProtocol means the protocol version byte was not 1.
	ErrInvalidProtocol
	// ErrZeroSerial means a received message's serial field was zero.
	ErrZeroSerial
	// ErrZeroReplySerial means a REPLY_SERIAL header field was zero.
	ErrZeroReplySerial
	// ErrMissingPath means a MethodCall/Signal lacked a PATH header.
	ErrMissingPath
	// ErrMissingMember means a MethodCall/Signal lacked a MEMBER header.
	ErrMissingMember
	// ErrMissingReplySerial means a MethodReturn/Error lacked REPLY_SERIAL.
	ErrMissingReplySerial
	// ErrMissingErrorName means an Error message lacked ERROR_NAME.
	ErrMissingErrorName
	// ErrUnsupportedVariant means a variant's embedded signature named a
	// container type this layer does not decode (anything but one of the
	// markers in §4.2).
	ErrUnsupportedVariant
	// ErrBusCallFailed means a method call's reply was a D-Bus ERROR
	// message; Detail carries the ERROR_NAME the peer returned.
	ErrBusCallFailed
	// ErrMissingMessage means there is no decoded message to read yet.
	ErrMissingMessage
	// ErrUtf8 means a string/object-path/signature was not valid UTF-8.
	ErrUtf8
	// ErrMissingBus means no bus address could be determined from the
	// environment and no default applies.
	ErrMissingBus
	// ErrInvalidAddress means a bus address string failed the address
	// grammar.
	ErrInvalidAddress
	// ErrInvalidSaslState means a SASL operation was attempted from a
	// state that doesn't allow it.
	ErrInvalidSaslState
	// ErrInvalidSasl means a SASL line failed to parse.
	ErrInvalidSasl
	// ErrInvalidSaslResponse means the server's SASL reply was not the
	// expected command.
	ErrInvalidSaslResponse
	// ErrWouldBlock signals that an I/O operation made no progress and
	// readiness must be re-armed. Poll returns it; Wait handles it.
	ErrWouldBlock
	// ErrIO wraps an underlying I/O error.
	ErrIO
)

var errKindText = map[ErrorKind]string{
	ErrBufferUnderflow:     "buffer underflow",
	ErrNotNullTerminated:   "string is not null terminated",
	ErrArrayTooLong:        "array too long (max 67108864 bytes)",
	ErrBodyTooLong:         "body too long (max 134217728 bytes)",
	ErrHeaderTooLong:       "header too long (max 67108864 bytes)",
	ErrInvalidProtocol:     "invalid protocol version",
	ErrZeroSerial:          "zero message serial",
	ErrZeroReplySerial:     "zero reply serial",
	ErrMissingPath:         "missing required PATH header",
	ErrMissingMember:       "missing required MEMBER header",
	ErrMissingReplySerial:  "missing required REPLY_SERIAL header",
	ErrMissingErrorName:    "missing required ERROR_NAME header",
	ErrUnsupportedVariant:  "unsupported variant signature",
	ErrBusCallFailed:       "bus replied with an error",
	ErrMissingMessage:      "no message decoded yet",
	ErrUtf8:                "invalid utf-8",
	ErrMissingBus:          "missing bus address",
	ErrInvalidAddress:      "invalid d-bus address",
	ErrInvalidSaslState:    "invalid sasl state for operation",
	ErrInvalidSasl:         "invalid sasl message",
	ErrInvalidSaslResponse: "invalid sasl response",
	ErrWouldBlock:          "would block",
	ErrIO:                  "i/o error",
}

func (k ErrorKind) String() string {
	if s, ok := errKindText[k]; ok {
		return s
	}
	return "unknown error"
}

// Error is the unified error type for the codec, message, and transport
// layers (§7). Use errors.Is with an *Error carrying the wanted Kind,
// or inspect Kind directly.
type Error struct {
	Kind ErrorKind
	// Detail carries kind-specific context (e.g. the offending length
	// for ErrArrayTooLong, or the unsupported signature text).
	Detail string
	// Err is the wrapped underlying error, if any (e.g. an *os.SyscallError
	// for ErrIO).
	Err error
}

func newError(kind ErrorKind) *Error {
	return &Error{Kind: kind}
}

func newErrorf(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("dbus: %s: %s", e.Kind, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("dbus: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("dbus: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, &dbus.Error{Kind: dbus.ErrWouldBlock}) style checks
// work without exposing ErrorKind comparisons directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// wrapIO wraps an I/O error as an *Error, classifying net.Error timeouts
// and EWOULDBLOCK-shaped errors as ErrWouldBlock so callers only need to
// check the Kind, not the underlying syscall errno.
func wrapIO(err error) error {
	if err == nil {
		return nil
	}
	if isWouldBlock(err) {
		return newError(ErrWouldBlock)
	}
	return &Error{Kind: ErrIO, Err: err}
}
