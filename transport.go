package dbus

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Stream is the abstract platform socket type a Transport is built
// over (§1 lists "the platform socket type" as an out-of-scope
// collaborator). Any non-blocking byte stream that surfaces
// EAGAIN/EWOULDBLOCK-shaped errors from Read/Write satisfies it; see
// the unixtransport subpackage for the concrete implementation.
type Stream interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
}

// defaultSystemBusSocket is the path every major bus daemon listens
// on when no override is given (original_source's transport.rs
// hardcodes the same default).
const defaultSystemBusSocket = "/var/run/dbus/system_bus_socket"

// SessionBusAddress resolves the session bus address from
// $DBUS_SESSION_BUS_ADDRESS.
func SessionBusAddress() (string, error) {
	if addr := os.Getenv("DBUS_SESSION_BUS_ADDRESS"); addr != "" {
		return addr, nil
	}
	return "", newError(ErrMissingBus)
}

// SystemBusAddress resolves the system bus address from
// $DBUS_SYSTEM_BUS_ADDRESS, falling back to the well-known default
// socket path.
func SystemBusAddress() (string, error) {
	if addr := os.Getenv("DBUS_SYSTEM_BUS_ADDRESS"); addr != "" {
		return addr, nil
	}
	return "unix:path=" + defaultSystemBusSocket, nil
}

// AddressFromEnv resolves a bus address the way a starter-launched
// process does: $DBUS_STARTER_ADDRESS first, then the session bus,
// then the system bus.
func AddressFromEnv() (string, error) {
	if addr := os.Getenv("DBUS_STARTER_ADDRESS"); addr != "" {
		return addr, nil
	}
	if addr, err := SessionBusAddress(); err == nil {
		return addr, nil
	}
	return SystemBusAddress()
}

// ParseUnixAddress extracts the socket path from a "unix:path=..."
// D-Bus address. It is the only address transport this package
// implements; abstract/tcp addresses are rejected with
// ErrInvalidAddress.
func ParseUnixAddress(addr string) (string, error) {
	for _, part := range strings.Split(addr, ";") {
		if !strings.HasPrefix(part, "unix:") {
			continue
		}
		for _, kv := range strings.Split(part[len("unix:"):], ",") {
			if path, ok := strings.CutPrefix(kv, "path="); ok {
				return path, nil
			}
		}
	}
	return "", newErrorf(ErrInvalidAddress, addr)
}

// hexEncodeUID renders uid as the ASCII-decimal-then-hex string the
// AUTH EXTERNAL SASL command expects.
func hexEncodeUID(uid int) string {
	return hex.EncodeToString([]byte(strconv.Itoa(uid)))
}

// saslPhase tracks progress through the line-based SASL handshake
// before the connection switches to binary message framing (§4.10).
type saslPhase int

const (
	saslSendAuth saslPhase = iota
	saslAwaitOK
	saslSendBegin
	saslReady
)

// Transport drives the SASL handshake over a Stream and, once
// authenticated, becomes a thin pass-through for framed message bytes
// (§4.10 "C10 transport state machine"). It mirrors
// original_source/crates/tokio-dbus/src/connection/transport.rs's
// Transport, translated from async Rust methods into explicit,
// retryable Go calls that surface ErrWouldBlock instead of awaiting.
type Transport struct {
	stream Stream
	phase  saslPhase

	sendBuf []byte
	lineBuf []byte
}

// NewTransport wraps stream for the SASL handshake and subsequent
// framed I/O.
func NewTransport(stream Stream) *Transport {
	return &Transport{stream: stream}
}

// BeginAuthExternal queues the AUTH EXTERNAL SASL command for uid.
func (t *Transport) BeginAuthExternal(uid int) {
	line := fmt.Sprintf("\x00AUTH EXTERNAL %s\r\n", hexEncodeUID(uid))
	t.sendBuf = append(t.sendBuf, line...)
	t.phase = saslSendAuth
}

// Flush writes queued bytes to the stream. It returns a wrapped
// ErrWouldBlock if the stream accepted zero bytes without error.
func (t *Transport) Flush() error {
	for len(t.sendBuf) > 0 {
		n, err := t.stream.Write(t.sendBuf)
		if err != nil {
			return wrapIO(err)
		}
		if n == 0 {
			return newError(ErrWouldBlock)
		}
		t.sendBuf = t.sendBuf[n:]
	}
	if t.phase == saslSendAuth {
		t.phase = saslAwaitOK
	} else if t.phase == saslSendBegin {
		t.phase = saslReady
	}
	return nil
}

// Pending reports whether Flush still has unwritten bytes queued.
func (t *Transport) Pending() bool { return len(t.sendBuf) > 0 }

// Phase reports the current handshake phase.
func (t *Transport) Phase() saslPhase { return t.phase }

// RecvLine reads available bytes looking for a "\r\n"-terminated
// line. ok is false (err nil) when no complete line is buffered yet
// and the caller should wait for readiness and retry.
func (t *Transport) RecvLine() (line string, ok bool, err error) {
	for {
		if idx := indexCRLF(t.lineBuf); idx >= 0 {
			line = string(t.lineBuf[:idx])
			t.lineBuf = t.lineBuf[idx+2:]
			return line, true, nil
		}

		var tmp [256]byte
		n, rerr := t.stream.Read(tmp[:])
		if n > 0 {
			t.lineBuf = append(t.lineBuf, tmp[:n]...)
			continue
		}
		if rerr != nil {
			return "", false, wrapIO(rerr)
		}
		return "", false, nil
	}
}

// HandleOKLine validates the server's SASL reply to AUTH EXTERNAL and
// queues BEGIN.
func (t *Transport) HandleOKLine(line string) error {
	if !strings.HasPrefix(line, "OK ") && line != "OK" {
		return newErrorf(ErrInvalidSaslResponse, line)
	}
	t.sendBuf = append(t.sendBuf, "BEGIN\r\n"...)
	t.phase = saslSendBegin
	return nil
}

// Ready reports whether the handshake has completed and the
// connection may switch to binary message framing.
func (t *Transport) Ready() bool { return t.phase == saslReady }

// QueueBytes appends raw framed-message bytes for the next Flush,
// used once Ready is true.
func (t *Transport) QueueBytes(p []byte) {
	t.sendBuf = append(t.sendBuf, p...)
}

// ReadBytes reads framed-message bytes directly from the stream once
// Ready is true.
func (t *Transport) ReadBytes(p []byte) (int, error) {
	n, err := t.stream.Read(p)
	if err != nil {
		return n, wrapIO(err)
	}
	return n, nil
}

func indexCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}
