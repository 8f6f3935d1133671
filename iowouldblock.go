package dbus

import (
	"errors"
	"net"
	"syscall"
)

// isWouldBlock classifies an I/O error from the abstract Stream
// collaborator (§1: "the platform socket type") as a would-block
// condition. It recognizes the POSIX errno pair any non-blocking
// read/write surfaces, plus net.Error's Timeout() signal used by
// deadline-based Stream implementations.
func isWouldBlock(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
