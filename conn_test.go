package dbus

import "testing"

// fakeStream is an in-memory, single-threaded stand-in for a Unix
// socket: writes accumulate in toServer, and reads drain fromServer,
// returning (0, nil) rather than blocking when nothing is buffered
// (mirroring what a non-blocking socket reports when idle).
type fakeStream struct {
	toServer   []byte
	fromServer []byte
}

func (s *fakeStream) Write(p []byte) (int, error) {
	s.toServer = append(s.toServer, p...)
	return len(p), nil
}

func (s *fakeStream) Read(p []byte) (int, error) {
	if len(s.fromServer) == 0 {
		return 0, nil
	}
	n := copy(p, s.fromServer)
	s.fromServer = s.fromServer[n:]
	return n, nil
}

func (s *fakeStream) queueReply(msg *OwnedMessage) {
	sb := NewSendBuf()
	if _, err := sb.WriteMessage(NativeEndian, msg); err != nil {
		panic(err)
	}
	s.fromServer = append(s.fromServer, sb.Bytes()...)
}

func mustWouldBlock(t *testing.T, err error) {
	t.Helper()
	if !isErrKind(err, ErrWouldBlock) {
		t.Fatalf("err = %v, want ErrWouldBlock", err)
	}
}

// TestConnectionHandshakeAndOutboxFlush drives a Connection through the
// SASL handshake and Hello call by hand, and checks that a message sent
// before the handshake completes is held back until the connection is
// idle rather than interleaved with the handshake bytes on the wire
// (see the outbox field on Connection).
func TestConnectionHandshakeAndOutboxFlush(t *testing.T) {
	stream := &fakeStream{}
	conn := NewConnection(stream, WithUID(1000))

	// Queue a user message before the handshake has even started.
	pingPath, err := ParseObjectPath("/org/example/Ping")
	if err != nil {
		t.Fatal(err)
	}
	earlySerial, err := conn.SendMessage(MethodCall(pingPath, "Ping").WithDestination("org.example"))
	if err != nil {
		t.Fatal(err)
	}
	if len(conn.outbox) != 1 {
		t.Fatalf("outbox len = %d, want 1 (message sent before handshake completes must be held back)", len(conn.outbox))
	}

	// First Poll: flushes AUTH EXTERNAL, then has nothing to read yet.
	if _, err := conn.Poll(); err != nil {
		mustWouldBlock(t, err)
	}
	if len(stream.toServer) == 0 {
		t.Fatal("expected AUTH EXTERNAL line to have been written to the stream")
	}

	// Server replies OK.
	stream.fromServer = append(stream.fromServer, []byte("OK 1234deadbeef\r\n")...)
	if _, err := conn.Poll(); err != nil {
		mustWouldBlock(t, err)
	}

	// Next Poll flushes BEGIN, builds and flushes the Hello call, then
	// blocks waiting for its reply.
	if _, err := conn.Poll(); err != nil {
		mustWouldBlock(t, err)
	}
	if conn.state != stateHelloSent {
		t.Fatalf("state = %v, want stateHelloSent", conn.state)
	}

	// Server replies to Hello with a unique name.
	helloReply := NewBodyBuf()
	if err := Store[string, StringType](helloReply, ":1.42"); err != nil {
		t.Fatal(err)
	}
	stream.queueReply(MethodReturn(conn.helloSerial).WithBody(helloReply))

	msg, err := conn.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if msg.ReplySerial != conn.helloSerial {
		t.Fatalf("ReplySerial = %d, want %d", msg.ReplySerial, conn.helloSerial)
	}
	if conn.UniqueName() != ":1.42" {
		t.Fatalf("UniqueName() = %q, want :1.42", conn.UniqueName())
	}
	if conn.state != stateIdle {
		t.Fatalf("state = %v, want stateIdle", conn.state)
	}
	if len(conn.outbox) != 0 {
		t.Fatal("expected outbox to be flushed once idle")
	}

	// flushOutbox only moves the Ping bytes onto the transport's send
	// buffer; one more Poll is needed to actually write them to the
	// stream.
	if _, err := conn.Poll(); err != nil {
		mustWouldBlock(t, err)
	}

	// toServer now holds the AUTH and BEGIN SASL lines followed by two
	// framed binary messages: Hello, then the early Ping call.
	rest := stream.toServer
	for i := 0; i < 2; i++ {
		idx := indexCRLF(rest)
		if idx < 0 {
			t.Fatalf("expected a CRLF-terminated SASL line at position %d", i)
		}
		rest = rest[idx+2:]
	}

	decoded, n, err := tryDecodeMessage(rest)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Member != "Hello" {
		t.Fatalf("first framed message = %q, want Hello", decoded.Member)
	}

	second, _, err := tryDecodeMessage(rest[n:])
	if err != nil {
		t.Fatal(err)
	}
	if second.Member != "Ping" {
		t.Fatalf("second framed message = %q, want Ping", second.Member)
	}
	if second.Serial != earlySerial {
		t.Fatalf("Ping serial = %d, want %d", second.Serial, earlySerial)
	}
}

// TestPollSurfacesDeferredBeforeIO checks that a message handed to
// RecvBuf.Defer is returned by the next Poll call without performing
// any transport I/O, ahead of whatever is waiting on the stream (§4.11
// wait() step 1, §9 "Defer queue vs. in-place message").
func TestPollSurfacesDeferredBeforeIO(t *testing.T) {
	stream := &fakeStream{}
	conn := NewConnection(stream, WithUID(1000))
	conn.state = stateIdle

	deferred := &Message{Type: TypeSignal, Member: "Deferred"}
	conn.recv.Defer(deferred)

	msg, err := conn.Poll()
	if err != nil {
		t.Fatal(err)
	}
	// Defer queues an owned snapshot, so compare contents rather than
	// pointer identity.
	if *msg != *deferred {
		t.Fatalf("Poll() = %v, want the deferred message %v", msg, deferred)
	}
	if len(stream.toServer) != 0 {
		t.Fatal("Poll() must not touch the transport while a deferred message is queued")
	}
}
