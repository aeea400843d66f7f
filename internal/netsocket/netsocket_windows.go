//go:build windows

package netsocket

import "net"

// Socket wraps conn for use as a rtmpcast.Socket. The windows build
// skips SO_SNDBUF introspection (syscall.GetsockoptInt's constants are
// unix-only); SendBufferSize falls back to a fixed estimate.
type Socket struct {
	conn net.Conn
}

// New wraps conn for use as a rtmpcast.Socket.
func New(conn net.Conn) *Socket {
	return &Socket{conn: conn}
}

func (s *Socket) Read(p []byte) (int, error)  { return s.conn.Read(p) }
func (s *Socket) Write(p []byte) (int, error) { return s.conn.Write(p) }
func (s *Socket) Abort() error                { return s.conn.Close() }
func (s *Socket) Flush() error                { return nil }

// SendBufferSize reports a fixed estimate; Windows getsockopt support
// needs a syscall package this module does not otherwise depend on.
func (s *Socket) SendBufferSize() (int, error) { return 64 * 1024, nil }

func (s *Socket) SetSendBufferSize(bytes int) error {
	if tc, ok := s.conn.(*net.TCPConn); ok {
		return tc.SetWriteBuffer(bytes)
	}
	return nil
}

func (s *Socket) BytesToWrite() int { return 0 }

func (s *Socket) SetNoDelay(enabled bool) error {
	if tc, ok := s.conn.(*net.TCPConn); ok {
		return tc.SetNoDelay(enabled)
	}
	return nil
}
