package dbus

// MessageType is the wire message type byte (§4.7), following the
// same small enum-of-byte-constants shape as the teacher's
// typeMethodCall/typeMethodReply/typeError/typeSignal group in
// header.go.
type MessageType byte

// Message types (§6).
const (
	TypeInvalid      MessageType = 0
	TypeMethodCall   MessageType = 1
	TypeMethodReturn MessageType = 2
	TypeError        MessageType = 3
	TypeSignal       MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case TypeMethodCall:
		return "method_call"
	case TypeMethodReturn:
		return "method_return"
	case TypeError:
		return "error"
	case TypeSignal:
		return "signal"
	default:
		return "invalid"
	}
}

// MessageFlags are the bitset flags carried in the fixed header
// (§6).
type MessageFlags byte

// Recognized flag bits.
const (
	FlagNoReplyExpected             MessageFlags = 1 << 0
	FlagNoAutoStart                 MessageFlags = 1 << 1
	FlagAllowInteractiveAuthorization MessageFlags = 1 << 2
)

// Has reports whether all bits of f are set.
func (m MessageFlags) Has(f MessageFlags) bool { return m&f == f }

// headerFieldCode identifies one entry of the header field array
// (§4.9), mirroring the teacher's fieldPath..fieldUnixFDs constants
// (header.go).
type headerFieldCode byte

const (
	fieldInvalid     headerFieldCode = 0
	fieldPath        headerFieldCode = 1
	fieldInterface   headerFieldCode = 2
	fieldMember      headerFieldCode = 3
	fieldErrorName   headerFieldCode = 4
	fieldReplySerial headerFieldCode = 5
	fieldDestination headerFieldCode = 6
	fieldSender      headerFieldCode = 7
	fieldSignature   headerFieldCode = 8
	fieldUnixFDs     headerFieldCode = 9
)

func (c headerFieldCode) String() string {
	switch c {
	case fieldPath:
		return "PATH"
	case fieldInterface:
		return "INTERFACE"
	case fieldMember:
		return "MEMBER"
	case fieldErrorName:
		return "ERROR_NAME"
	case fieldReplySerial:
		return "REPLY_SERIAL"
	case fieldDestination:
		return "DESTINATION"
	case fieldSender:
		return "SENDER"
	case fieldSignature:
		return "SIGNATURE"
	case fieldUnixFDs:
		return "UNIX_FDS"
	default:
		return "INVALID"
	}
}

// protocolVersion is the only wire protocol version this package
// speaks (§6).
const protocolVersion = 1

// Message is a decoded, received message: the fixed header plus the
// parsed header fields and the raw body bytes wrapped as a Body
// reader (§4.7). It borrows its bytes from the RecvBuf that produced
// it and is only valid until the next call that advances that buffer.
type Message struct {
	Endian      Endianness
	Type        MessageType
	Flags       MessageFlags
	Serial      uint32
	Path        ObjectPath
	Interface   string
	Member      string
	ErrorName   string
	ReplySerial uint32
	Destination string
	Sender      string
	Body        *Body
}

// Signature returns the message body's signature, or the empty
// signature if the message has no body.
func (m *Message) Signature() Signature {
	if m.Body == nil {
		return ""
	}
	return m.Body.Signature()
}

// snapshot returns an owned copy of m whose Body holds its own copy of
// the body bytes rather than borrowing from the RecvBuf that decoded
// m, so it remains valid after later Fill/Next calls reuse that
// buffer's storage (§4.9 "defer(msg) enqueues the owned copy").
func (m *Message) snapshot() *Message {
	cp := *m
	if m.Body != nil {
		buf := make([]byte, len(m.Body.buf))
		copy(buf, m.Body.buf)
		cp.Body = NewBody(buf, m.Body.endian, m.Body.sig)
	}
	return &cp
}

// MethodReturn builds a METHOD_RETURN replying to m, with m.Serial as
// the REPLY_SERIAL; the new message's own serial is assigned later by
// SendBuf.WriteMessage (§4.7 ".method_return(next_serial)").
// The destination is set to m's sender, mirroring the wire convention
// that a reply is addressed back to whoever sent the call.
func (m *Message) MethodReturn() *OwnedMessage {
	return MethodReturn(m.Serial).WithDestination(m.Sender)
}

// Error builds an ERROR reply to m tagged with name (§4.7
// ".error(name, next_serial)"), destined back to m's sender.
func (m *Message) Error(name string) *OwnedMessage {
	return ErrorReply(name, m.Serial).WithDestination(m.Sender)
}

// OwnedMessage is a message under construction, built with the same
// functional setter idiom the teacher's config.go uses for Client
// options, generalized from Option funcs to chainable With* methods
// since a message builder is mutated step by step rather than
// configured once.
type OwnedMessage struct {
	typ         MessageType
	flags       MessageFlags
	path        ObjectPath
	iface       string
	member      string
	errorName   string
	replySerial uint32
	destination string
	sender      string
	body        *BodyBuf
}

// MethodCall starts building a METHOD_CALL to member on path.
func MethodCall(path ObjectPath, member string) *OwnedMessage {
	return &OwnedMessage{typ: TypeMethodCall, path: path, member: member}
}

// MethodReturn starts building a METHOD_RETURN replying to replySerial.
func MethodReturn(replySerial uint32) *OwnedMessage {
	return &OwnedMessage{typ: TypeMethodReturn, replySerial: replySerial}
}

// ErrorReply starts building an ERROR reply to replySerial.
func ErrorReply(errorName string, replySerial uint32) *OwnedMessage {
	return &OwnedMessage{typ: TypeError, errorName: errorName, replySerial: replySerial}
}

// Signal starts building a SIGNAL emitted from path.
func Signal(path ObjectPath, iface, member string) *OwnedMessage {
	return &OwnedMessage{typ: TypeSignal, path: path, iface: iface, member: member}
}

// WithInterface sets the INTERFACE header field.
func (m *OwnedMessage) WithInterface(iface string) *OwnedMessage {
	m.iface = iface
	return m
}

// WithDestination sets the DESTINATION header field.
func (m *OwnedMessage) WithDestination(dest string) *OwnedMessage {
	m.destination = dest
	return m
}

// WithSender sets the SENDER header field.
func (m *OwnedMessage) WithSender(sender string) *OwnedMessage {
	m.sender = sender
	return m
}

// WithFlags sets the message flags.
func (m *OwnedMessage) WithFlags(flags MessageFlags) *OwnedMessage {
	m.flags = flags
	return m
}

// WithBody attaches body as the message's body buffer.
func (m *OwnedMessage) WithBody(body *BodyBuf) *OwnedMessage {
	m.body = body
	return m
}

// Kind reports the message's type.
func (m *OwnedMessage) Kind() MessageType { return m.typ }

// Validate checks the mandatory-header-field invariants of §4.7/§7
// before the message is handed to a SendBuf.
func (m *OwnedMessage) Validate() error {
	switch m.typ {
	case TypeMethodCall, TypeSignal:
		if m.path == "" {
			return newError(ErrMissingPath)
		}
		if m.member == "" {
			return newError(ErrMissingMember)
		}
	case TypeMethodReturn, TypeError:
		if m.replySerial == 0 {
			return newError(ErrMissingReplySerial)
		}
		if m.typ == TypeError && m.errorName == "" {
			return newError(ErrMissingErrorName)
		}
	}
	if _, err := ParseObjectPath(string(m.path)); m.path != "" && err != nil {
		return err
	}
	return nil
}
