//go:build !windows

// Package netsocket adapts a net.Conn (optionally TLS-wrapped, e.g. by
// internal/rtmps) into the Socket contract rtmpcast.Session drives. The
// library itself never dials a connection or performs a TLS handshake;
// this package is the concrete collaborator the demo CLI hands to
// NewSession, same division of responsibility as the reference client
// leaving "the TCP socket itself" to its host application.
package netsocket

import (
	"net"
	"syscall"
)

// Socket wraps conn (typically a *net.TCPConn or a *tls.Conn dialed by
// the caller) to satisfy rtmpcast.Socket.
type Socket struct {
	conn net.Conn
}

// New wraps conn for use as a rtmpcast.Socket.
func New(conn net.Conn) *Socket {
	return &Socket{conn: conn}
}

// Read blocks until data arrives or the connection ends.
func (s *Socket) Read(p []byte) (int, error) {
	return s.conn.Read(p)
}

// Write hands p to the OS; net.Conn.Write already loops internally
// until the kernel accepts everything or returns an error, so this
// never reports a short write on a healthy connection. The send
// pipeline enters saturation mode only on a short write, so over this
// socket it does not.
func (s *Socket) Write(p []byte) (int, error) {
	return s.conn.Write(p)
}

// Abort closes the connection immediately.
func (s *Socket) Abort() error {
	return s.conn.Close()
}

// Flush is a no-op: net.Conn.Write already blocks until the kernel has
// accepted the bytes, so there is nothing further to hand off.
func (s *Socket) Flush() error {
	return nil
}

// SendBufferSize reads SO_SNDBUF from the underlying socket.
func (s *Socket) SendBufferSize() (int, error) {
	sc, ok := s.syscallConn()
	if !ok {
		return 0, nil
	}
	var size int
	var sockErr error
	if err := sc.Control(func(fd uintptr) {
		size, sockErr = syscall.GetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_SNDBUF)
	}); err != nil {
		return 0, err
	}
	return size, sockErr
}

// SetSendBufferSize requests a new SO_SNDBUF from the kernel.
func (s *Socket) SetSendBufferSize(bytes int) error {
	if tc, ok := s.conn.(*net.TCPConn); ok {
		return tc.SetWriteBuffer(bytes)
	}
	sc, ok := s.syscallConn()
	if !ok {
		return nil
	}
	var sockErr error
	if err := sc.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_SNDBUF, bytes)
	}); err != nil {
		return err
	}
	return sockErr
}

// BytesToWrite always reports zero: Write above blocks until the OS
// has accepted every byte, so this socket never carries a kernel-level
// backlog the session needs to subtract from SendBufferSize.
func (s *Socket) BytesToWrite() int {
	return 0
}

// SetNoDelay toggles TCP_NODELAY when the underlying connection is a
// *net.TCPConn; it is a no-op otherwise, including over a *tls.Conn
// in the RTMPS case.
func (s *Socket) SetNoDelay(enabled bool) error {
	if tc, ok := s.conn.(*net.TCPConn); ok {
		return tc.SetNoDelay(enabled)
	}
	return nil
}

type syscallConner interface {
	SyscallConn() (syscall.RawConn, error)
}

func (s *Socket) syscallConn() (syscall.RawConn, bool) {
	sc, ok := s.conn.(syscallConner)
	if !ok {
		return nil, false
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, false
	}
	return rc, true
}
