package dbus

import "testing"

func TestParseObjectPathValid(t *testing.T) {
	for _, p := range []string{"/", "/org", "/org/freedesktop/DBus", "/a_1/b2"} {
		if _, err := ParseObjectPath(p); err != nil {
			t.Errorf("ParseObjectPath(%q) = %v, want nil", p, err)
		}
	}
}

func TestParseObjectPathInvalid(t *testing.T) {
	for _, p := range []string{"", "org/freedesktop", "/org/", "/org//freedesktop", "/org.freedesktop"} {
		if _, err := ParseObjectPath(p); err == nil {
			t.Errorf("ParseObjectPath(%q) = nil, want error", p)
		}
	}
}
