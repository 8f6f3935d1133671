// Package unixtransport supplies a concrete, non-blocking Unix domain
// socket implementation of dbus.Stream and an epoll-backed
// dbus.Readiness, the platform socket type and async runtime
// primitives the core package treats as abstract collaborators (§1).
//
// It is grounded on golang.org/x/sys/unix the way the broader
// retrieval pack uses it for low-level, syscall-driven socket and
// kernel-facing work (e.g. m-lab/tcp-info, facebook/time), translated
// from those polling-daemon shapes into the one-socket,
// one-epoll-instance-per-connection shape a D-Bus client needs.
package unixtransport

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"
)

// Conn is a non-blocking Unix domain socket connection.
type Conn struct {
	fd int
}

// Dial connects to the Unix domain socket at path and puts it in
// non-blocking mode.
func Dial(path string) (*Conn, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Connect(fd, addr); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &Conn{fd: fd}, nil
}

// Fd returns the underlying file descriptor, for registering with an
// Epoll.
func (c *Conn) Fd() int { return c.fd }

// Read implements dbus.Stream. A would-block read is reported as an
// error satisfying net.Error with Timeout() true, the shape
// dbus.isWouldBlock recognizes.
func (c *Conn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err != nil {
		return 0, wrapErrno(err)
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements dbus.Stream.
func (c *Conn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if err != nil {
		return n, wrapErrno(err)
	}
	return n, nil
}

// Close closes the socket.
func (c *Conn) Close() error {
	return unix.Close(c.fd)
}

// wouldBlockError adapts a would-block unix.Errno into a net.Error
// (Timeout() true), since golang.org/x/sys/unix.Errno is a distinct
// type from syscall.Errno and would otherwise not compare equal under
// errors.Is.
type wouldBlockError struct {
	errno unix.Errno
}

func (e wouldBlockError) Error() string { return e.errno.Error() }
func (e wouldBlockError) Timeout() bool { return true }

// Temporary completes the net.Error method set.
func (e wouldBlockError) Temporary() bool { return true }

func wrapErrno(err error) error {
	var errno unix.Errno
	if errors.As(err, &errno) && (errno == unix.EAGAIN || errno == unix.EWOULDBLOCK) {
		return wouldBlockError{errno: errno}
	}
	return err
}

// Epoll is a one-socket epoll instance used as a dbus.Readiness.
type Epoll struct {
	epfd int
	fd   int
}

// NewEpoll creates an epoll instance watching conn for both
// readability and writability.
func NewEpoll(conn *Conn) (*Epoll, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLOUT, Fd: int32(conn.fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, conn.fd, &ev); err != nil {
		unix.Close(epfd)
		return nil, err
	}
	return &Epoll{epfd: epfd, fd: conn.fd}, nil
}

// WaitReadable blocks until the socket is readable.
func (e *Epoll) WaitReadable() error { return e.wait() }

// WaitWritable blocks until the socket is writable.
func (e *Epoll) WaitWritable() error { return e.wait() }

// wait blocks for any registered event; the caller re-attempts its
// non-blocking I/O call and re-waits on the next WouldBlock, so a
// single watch covering both directions is sufficient and avoids
// EPOLL_CTL_MOD churn per direction switch.
func (e *Epoll) wait() error {
	evs := make([]unix.EpollEvent, 1)
	for {
		n, err := unix.EpollWait(e.epfd, evs, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		if n > 0 {
			return nil
		}
	}
}

// Close releases the epoll instance.
func (e *Epoll) Close() error {
	return unix.Close(e.epfd)
}
