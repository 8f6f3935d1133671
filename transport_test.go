package dbus

import "testing"

func TestParseUnixAddress(t *testing.T) {
	tests := []struct {
		addr string
		path string
		ok   bool
	}{
		{"unix:path=/run/dbus/system_bus_socket", "/run/dbus/system_bus_socket", true},
		{"unix:path=/run/user/1000/bus,guid=deadbeef", "/run/user/1000/bus", true},
		{"unix:abstract=/tmp/dbus-foo", "", false},
		{"tcp:host=localhost,port=1234", "", false},
	}
	for _, tc := range tests {
		path, err := ParseUnixAddress(tc.addr)
		if tc.ok && err != nil {
			t.Errorf("ParseUnixAddress(%q) = %v, want nil error", tc.addr, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseUnixAddress(%q) = nil error, want error", tc.addr)
		}
		if tc.ok && path != tc.path {
			t.Errorf("ParseUnixAddress(%q) = %q, want %q", tc.addr, path, tc.path)
		}
	}
}

func TestHexEncodeUID(t *testing.T) {
	if got, want := hexEncodeUID(1000), "31303030"; got != want {
		t.Errorf("hexEncodeUID(1000) = %q, want %q", got, want)
	}
}

func TestIndexCRLF(t *testing.T) {
	if idx := indexCRLF([]byte("OK 1234\r\nextra")); idx != 7 {
		t.Errorf("indexCRLF = %d, want 7", idx)
	}
	if idx := indexCRLF([]byte("no newline yet")); idx != -1 {
		t.Errorf("indexCRLF = %d, want -1", idx)
	}
}
