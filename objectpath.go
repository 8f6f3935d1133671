package dbus

// ObjectPath is a validated D-Bus object path, e.g.
// "/org/freedesktop/DBus". The zero value is not a valid path; use
// ParseObjectPath or the ObjPathType marker to construct one.
type ObjectPath string

// String returns the path text.
func (p ObjectPath) String() string { return string(p) }

// ParseObjectPath validates s against the object path grammar (§6):
// it must start with '/', elements are separated by a single '/', each
// element is one or more of [A-Za-z0-9_], and the root path "/" has no
// elements and no trailing slash beyond the leading one.
func ParseObjectPath(s string) (ObjectPath, error) {
	if err := validateObjectPath(s); err != nil {
		return "", err
	}
	return ObjectPath(s), nil
}

func validateObjectPath(s string) error {
	if len(s) == 0 || s[0] != '/' {
		return &ObjectPathError{Path: s}
	}
	if s == "/" {
		return nil
	}
	if s[len(s)-1] == '/' {
		return &ObjectPathError{Path: s}
	}

	elemLen := 0
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '/' {
			if elemLen == 0 {
				return &ObjectPathError{Path: s}
			}
			elemLen = 0
			continue
		}
		if !isPathElementByte(c) {
			return &ObjectPathError{Path: s}
		}
		elemLen++
	}
	if elemLen == 0 {
		return &ObjectPathError{Path: s}
	}
	return nil
}

func isPathElementByte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_':
		return true
	default:
		return false
	}
}
