// Package dbus provides an asynchronous client library for the D-Bus
// wire protocol, suitable for building services and consumers atop the
// session or system bus.
//
// It speaks the transport-level handshake (SASL over a stream socket),
// constructs and parses the binary message format, and exposes a
// type-checked builder/reader interface for message bodies.
//
// The package does not implement XML introspection, object-model proxy
// generation, or Unix file descriptor passing; see the unixtransport
// subpackage for a concrete non-blocking Unix domain socket transport.
package dbus
