package dbus

// org.freedesktop.DBus well-known names, used to talk to the bus
// daemon itself (Hello, RequestName).
const (
	BusDestination = "org.freedesktop.DBus"
	BusInterface   = "org.freedesktop.DBus"
	BusPath        = ObjectPath("/org/freedesktop/DBus")
)

// RequestName flags (§ supplement, org_freedesktop_dbus constants).
const (
	NameFlagAllowReplacement uint32 = 1 << 0
	NameFlagReplaceExisting  uint32 = 1 << 1
	NameFlagDoNotQueue       uint32 = 1 << 2
)

// NameReply is the RequestName call's reply code.
type NameReply uint32

// RequestName reply codes.
const (
	NameReplyPrimaryOwner NameReply = 1
	NameReplyInQueue      NameReply = 2
	NameReplyExists       NameReply = 3
	NameReplyAlreadyOwner NameReply = 4
)

func (r NameReply) String() string {
	switch r {
	case NameReplyPrimaryOwner:
		return "PRIMARY_OWNER"
	case NameReplyInQueue:
		return "IN_QUEUE"
	case NameReplyExists:
		return "EXISTS"
	case NameReplyAlreadyOwner:
		return "ALREADY_OWNER"
	default:
		return "UNKNOWN"
	}
}

// connState is the Connection's coarse lifecycle state (§4.11 "C11
// connection façade"): handshake in progress, Hello sent and awaited,
// or steady-state Idle. Mirrors
// original_source/crates/tokio-dbus/src/connection/connection.rs's
// ConnectionState enum (Init/HelloSent(serial)/Idle).
type connState int

const (
	stateHandshake connState = iota
	stateHelloSent
	stateIdle
)

// Readiness is the abstract process-local async runtime primitive a
// Connection waits on between non-blocking I/O attempts (§1 lists it
// as an out-of-scope collaborator). unixtransport supplies an
// epoll-backed implementation; tests can supply a no-op one since a
// Unix domain socket pair is usually already readable/writable.
type Readiness interface {
	WaitReadable() error
	WaitWritable() error
}

// Connection is the asynchronous D-Bus client façade: a Transport
// driving the SASL handshake and framed I/O, a SendBuf queuing
// outgoing messages, and a RecvBuf slicing incoming ones (§4.11).
// Poll and SendMessage are non-blocking; Wait consults a Readiness to
// decide when to retry, and Call and RequestName block through Wait.
type Connection struct {
	transport *Transport
	send      *SendBuf
	recv      *RecvBuf
	cfg       *config
	metrics   *ConnMetrics

	state       connState
	helloSerial uint32
	uniqueName  string

	// outbox holds framed message bytes queued by SendMessage before the
	// handshake has reached stateIdle. The transport's own sendBuf is
	// reserved for SASL handshake lines and the Hello call until then, so
	// a caller's messages can never interleave with that line-based
	// protocol on the wire.
	outbox [][]byte
}

// NewConnection wraps stream (already connected to a bus socket) in a
// Connection, ready to perform the SASL handshake.
func NewConnection(stream Stream, opts ...Option) *Connection {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	t := NewTransport(stream)
	t.BeginAuthExternal(cfg.uid)

	c := &Connection{
		transport: t,
		send:      NewSendBuf(),
		recv:      NewRecvBuf(),
		cfg:       cfg,
		metrics:   NewConnMetrics(),
		state:     stateHandshake,
	}
	if cfg.registerer != nil {
		cfg.registerer.MustRegister(c.metrics)
	}
	return c
}

// Metrics returns the connection's prometheus collector.
func (c *Connection) Metrics() *ConnMetrics { return c.metrics }

// UniqueName returns the bus-assigned unique name once Hello has
// completed, or the empty string before that.
func (c *Connection) UniqueName() string { return c.uniqueName }

// SendMessage validates and encodes msg, queuing it for the next
// Poll/Wait to flush. It returns the serial the message was stamped
// with. Messages sent before the handshake completes are held in an
// outbox rather than written to the transport immediately, since the
// transport's own send buffer is busy carrying the line-based SASL
// handshake at that point.
func (c *Connection) SendMessage(msg *OwnedMessage) (uint32, error) {
	serial, err := c.send.WriteMessage(NativeEndian, msg)
	if err != nil {
		return 0, err
	}
	n := c.send.Len()
	framed := make([]byte, n)
	copy(framed, c.send.Bytes())
	c.send.Consume(n)

	if c.state == stateIdle {
		c.transport.QueueBytes(framed)
	} else {
		c.outbox = append(c.outbox, framed)
	}
	c.metrics.messagesSent++
	c.metrics.bytesSent += uint64(n)
	return serial, nil
}

// flushOutbox moves any messages queued before the handshake completed
// onto the transport, called once the connection reaches stateIdle.
func (c *Connection) flushOutbox() {
	for _, framed := range c.outbox {
		c.transport.QueueBytes(framed)
	}
	c.outbox = nil
}

// Poll performs one round of non-blocking progress: advancing the
// SASL handshake, flushing queued bytes, and reading+decoding at most
// one message. It returns a wrapped ErrWouldBlock when no further
// progress is possible without new readiness.
func (c *Connection) Poll() (*Message, error) {
	if msg, ok := c.recv.TakeDeferred(); ok {
		return msg, nil
	}

	for i := 0; i < 64; i++ {
		if c.state == stateHandshake {
			done, err := c.pollHandshake()
			if err != nil {
				return nil, err
			}
			if !done {
				return nil, newError(ErrWouldBlock)
			}
			c.state = stateHelloSent
			continue
		}

		if msg, ok, err := c.recv.Next(); err != nil {
			return nil, err
		} else if ok {
			c.metrics.messagesReceived++
			if c.state == stateHelloSent && msg.ReplySerial == c.helloSerial {
				c.handleHelloReply(msg)
				c.state = stateIdle
				c.flushOutbox()
			}
			return msg, nil
		}

		if c.transport.Pending() {
			if err := c.transport.Flush(); err != nil {
				if isErrKind(err, ErrWouldBlock) {
					c.metrics.wouldBlockWrites++
				}
				return nil, err
			}
			continue
		}

		buf := make([]byte, c.cfg.readSize)
		n, err := c.transport.ReadBytes(buf)
		if err != nil {
			if isErrKind(err, ErrWouldBlock) {
				c.metrics.wouldBlockReads++
			}
			return nil, err
		}
		if n == 0 {
			return nil, newError(ErrWouldBlock)
		}
		c.metrics.bytesReceived += uint64(n)
		c.recv.Fill(buf[:n])
	}
	return nil, newError(ErrWouldBlock)
}

func (c *Connection) pollHandshake() (done bool, err error) {
	if c.transport.Pending() {
		if err := c.transport.Flush(); err != nil {
			c.cfg.logger.WithError(err).Error("dbus: sasl flush failed")
			return false, err
		}
	}
	switch c.transport.Phase() {
	case saslAwaitOK:
		line, ok, err := c.transport.RecvLine()
		if err != nil {
			c.cfg.logger.WithError(err).Error("dbus: sasl line read failed")
			return false, err
		}
		if !ok {
			return false, nil
		}
		if err := c.transport.HandleOKLine(line); err != nil {
			c.cfg.logger.WithField("line", line).WithError(err).Error("dbus: sasl handshake rejected")
			return false, err
		}
		c.cfg.logger.Debug("dbus: sasl authenticated, sending BEGIN")
		return false, nil
	case saslReady:
		serial, err := c.send.WriteMessage(NativeEndian, MethodCall(BusPath, "Hello").
			WithInterface(BusInterface).WithDestination(BusDestination))
		if err != nil {
			return false, err
		}
		c.helloSerial = serial
		c.transport.QueueBytes(c.send.Bytes())
		c.send.Consume(c.send.Len())
		c.cfg.logger.WithField("serial", serial).Debug("dbus: sent Hello")
		return true, nil
	default:
		return false, nil
	}
}

func (c *Connection) handleHelloReply(msg *Message) {
	if msg.Type != TypeMethodReturn || msg.Body == nil {
		c.cfg.logger.WithField("type", msg.Type).Warn("dbus: unexpected Hello reply")
		return
	}
	if name, err := Load[string, StringType](msg.Body); err == nil {
		c.uniqueName = name
		c.cfg.logger.WithField("name", name).Info("dbus: connected")
	}
}

// Wait calls Poll repeatedly, consulting r between attempts, until a
// message is decoded or a non-WouldBlock error occurs.
func (c *Connection) Wait(r Readiness) (*Message, error) {
	for {
		msg, err := c.Poll()
		if err == nil {
			return msg, nil
		}
		if !isErrKind(err, ErrWouldBlock) {
			return nil, err
		}
		if c.transport.Pending() {
			if werr := r.WaitWritable(); werr != nil {
				return nil, werr
			}
			continue
		}
		if rerr := r.WaitReadable(); rerr != nil {
			return nil, rerr
		}
	}
}

// Call sends msg and waits for its matching reply, deferring any
// other message observed in the meantime so Wait's other callers
// still see it in order (§9 "Defer queue vs. in-place message").
func (c *Connection) Call(r Readiness, msg *OwnedMessage) (*Message, error) {
	serial, err := c.SendMessage(msg)
	if err != nil {
		return nil, err
	}
	// Other messages are deferred only when Call returns: Poll hands
	// deferred messages back before doing any I/O, so deferring inside
	// the loop would make Wait return the same message again.
	var others []*Message
	defer func() {
		for _, m := range others {
			c.recv.Defer(m)
		}
	}()
	for {
		reply, err := c.Wait(r)
		if err != nil {
			return nil, err
		}
		if reply.Type == TypeMethodReturn || reply.Type == TypeError {
			if reply.ReplySerial == serial {
				return reply, nil
			}
		}
		others = append(others, reply)
	}
}

// RequestName asks the bus to assign name to this connection.
func (c *Connection) RequestName(r Readiness, name string, flags uint32) (NameReply, error) {
	body := NewBodyBuf()
	if err := Store[string, StringType](body, name); err != nil {
		return 0, err
	}
	if err := Store[uint32, Uint32Type](body, flags); err != nil {
		return 0, err
	}
	reply, err := c.Call(r, MethodCall(BusPath, "RequestName").
		WithInterface(BusInterface).WithDestination(BusDestination).WithBody(body))
	if err != nil {
		return 0, err
	}
	if reply.Type == TypeError {
		return 0, newErrorf(ErrBusCallFailed, reply.ErrorName)
	}
	code, err := Load[uint32, Uint32Type](reply.Body)
	if err != nil {
		return 0, err
	}
	return NameReply(code), nil
}

func isErrKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
