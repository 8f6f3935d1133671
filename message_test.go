package dbus

import "testing"

func TestSendRecvMethodCallRoundTrip(t *testing.T) {
	body := NewBodyBuf()
	if err := Store[string, StringType](body, "unit.service"); err != nil {
		t.Fatal(err)
	}

	path, err := ParseObjectPath("/org/freedesktop/systemd1")
	if err != nil {
		t.Fatal(err)
	}

	msg := MethodCall(path, "GetUnit").
		WithInterface("org.freedesktop.systemd1.Manager").
		WithDestination("org.freedesktop.systemd1").
		WithBody(body)

	sb := NewSendBuf()
	serial, err := sb.WriteMessage(LittleEndian, msg)
	if err != nil {
		t.Fatal(err)
	}
	if serial != 1 {
		t.Errorf("serial = %d, want 1", serial)
	}

	decoded, n, err := tryDecodeMessage(sb.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if n != len(sb.Bytes()) {
		t.Errorf("consumed %d bytes, want %d", n, len(sb.Bytes()))
	}

	if decoded.Type != TypeMethodCall {
		t.Errorf("Type = %v, want MethodCall", decoded.Type)
	}
	if decoded.Path != path {
		t.Errorf("Path = %q, want %q", decoded.Path, path)
	}
	if decoded.Interface != "org.freedesktop.systemd1.Manager" {
		t.Errorf("Interface = %q", decoded.Interface)
	}
	if decoded.Member != "GetUnit" {
		t.Errorf("Member = %q", decoded.Member)
	}
	if decoded.Destination != "org.freedesktop.systemd1" {
		t.Errorf("Destination = %q", decoded.Destination)
	}
	if decoded.Serial != serial {
		t.Errorf("Serial = %d, want %d", decoded.Serial, serial)
	}

	arg, err := Load[string, StringType](decoded.Body)
	if err != nil {
		t.Fatal(err)
	}
	if arg != "unit.service" {
		t.Errorf("arg = %q, want unit.service", arg)
	}
}

func TestSendRecvMethodReturnNoBody(t *testing.T) {
	msg := MethodReturn(5)

	sb := NewSendBuf()
	if _, err := sb.WriteMessage(BigEndian, msg); err != nil {
		t.Fatal(err)
	}

	decoded, n, err := tryDecodeMessage(sb.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if n != len(sb.Bytes()) {
		t.Errorf("consumed %d, want %d", n, len(sb.Bytes()))
	}
	if decoded.Type != TypeMethodReturn {
		t.Errorf("Type = %v", decoded.Type)
	}
	if decoded.ReplySerial != 5 {
		t.Errorf("ReplySerial = %d, want 5", decoded.ReplySerial)
	}
	if decoded.Endian != BigEndian {
		t.Errorf("Endian = %v, want BigEndian", decoded.Endian)
	}
}

func TestRecvBufNeedsMoreData(t *testing.T) {
	msg := Signal("/org/freedesktop/systemd1", "org.freedesktop.systemd1.Manager", "UnitNew")
	sb := NewSendBuf()
	if _, err := sb.WriteMessage(LittleEndian, msg); err != nil {
		t.Fatal(err)
	}

	full := sb.Bytes()
	rb := NewRecvBuf()
	rb.Fill(full[:len(full)-1])
	if _, ok, err := rb.Next(); ok || err != nil {
		t.Fatalf("Next() on partial data = ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	rb.Fill(full[len(full)-1:])
	msg2, ok, err := rb.Next()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a complete message once all bytes are filled")
	}
	if msg2.Member != "UnitNew" {
		t.Errorf("Member = %q, want UnitNew", msg2.Member)
	}
}

func TestMessageMethodReturnAndErrorAddressBack(t *testing.T) {
	call := &Message{Type: TypeMethodCall, Serial: 7, Sender: ":1.5"}

	reply := call.MethodReturn()
	if reply.Kind() != TypeMethodReturn {
		t.Fatalf("Kind() = %v, want MethodReturn", reply.Kind())
	}
	if reply.replySerial != 7 {
		t.Errorf("replySerial = %d, want 7", reply.replySerial)
	}
	if reply.destination != ":1.5" {
		t.Errorf("destination = %q, want %q", reply.destination, ":1.5")
	}

	errReply := call.Error("org.example.Error.Failed")
	if errReply.Kind() != TypeError {
		t.Fatalf("Kind() = %v, want Error", errReply.Kind())
	}
	if errReply.replySerial != 7 {
		t.Errorf("replySerial = %d, want 7", errReply.replySerial)
	}
	if errReply.errorName != "org.example.Error.Failed" {
		t.Errorf("errorName = %q", errReply.errorName)
	}
	if errReply.destination != ":1.5" {
		t.Errorf("destination = %q, want %q", errReply.destination, ":1.5")
	}
}

func TestOwnedMessageValidateMissingFields(t *testing.T) {
	if err := MethodCall("", "").Validate(); err == nil {
		t.Error("expected error for missing path/member")
	}
	if err := ErrorReply("", 0).Validate(); err == nil {
		t.Error("expected error for missing reply serial")
	}
}
