package rtmpcast

import (
	"bytes"
	"net"
	"testing"
	"time"

	"rtmpcast/internal/core/protocol/amf0"
	"rtmpcast/internal/core/protocol/rtmp"
)

// pipeSocket adapts a net.Conn (one end of a net.Pipe) to the Socket
// interface for tests: Write always accepts the full buffer, matching
// an unsaturated OS send buffer.
type pipeSocket struct {
	conn net.Conn
}

func (p *pipeSocket) Read(b []byte) (int, error)  { return p.conn.Read(b) }
func (p *pipeSocket) Write(b []byte) (int, error) { return p.conn.Write(b) }
func (p *pipeSocket) Abort() error                { return p.conn.Close() }
func (p *pipeSocket) Flush() error                { return nil }
func (p *pipeSocket) SendBufferSize() (int, error) { return 1 << 20, nil }
func (p *pipeSocket) SetSendBufferSize(int) error  { return nil }
func (p *pipeSocket) BytesToWrite() int            { return 0 }
func (p *pipeSocket) SetNoDelay(bool) error        { return nil }

// fakeServer plays the server side of the handshake and connect/
// createStream/publish command sequence over one end of a net.Pipe,
// enough to drive Session.Connect/ConnectToApp/CreatePublishStream
// through a real handshake and command round trip.
func fakeServer(t *testing.T, conn net.Conn) {
	t.Helper()
	go func() {
		hs := &rtmp.Handshake{}
		if err := serverHandshake(conn, hs); err != nil {
			return
		}
		cw := rtmp.NewChunkWriter()
		cr := rtmp.NewChunkReader()
		for {
			msg, err := cr.ReadMessage(conn)
			if err != nil {
				return
			}
			switch msg.Type {
			case rtmp.MessageTypeSetChunkSize:
				size, _ := rtmp.DecodeSetChunkSize(msg.Payload)
				cr.SetChunkSize(size)
			case rtmp.MessageTypeCommandAMF0:
				cmd, err := rtmp.ParseCommand(msg.Payload)
				if err != nil {
					continue
				}
				switch cmd.Name {
				case "connect":
					body, _ := amf0.EncodeCommand([]amf0.Value{"_result", float64(cmd.TxID), amf0.NewObject(), amf0.NewObject()})
					cw.WriteMessage(conn, rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, 0, 0, body)
				case "createStream":
					body, _ := amf0.EncodeCommand([]amf0.Value{"_result", float64(cmd.TxID), amf0.Null{}, float64(5)})
					cw.WriteMessage(conn, rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, 0, 0, body)
				case "publish":
					info := amf0.NewObject().Set("code", rtmp.StatusNetStreamPublishStart).Set("level", "status")
					body, _ := amf0.EncodeCommand([]amf0.Value{"onStatus", float64(0), amf0.Null{}, info})
					cw.WriteMessage(conn, rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, 0, 5, body)
				}
			}
		}
	}()
}

func serverHandshake(conn net.Conn, hs *rtmp.Handshake) error {
	var c0 [1]byte
	if _, err := readFull(conn, c0[:]); err != nil {
		return err
	}
	var c1 [rtmp.HandshakeC1S1Size]byte
	if _, err := readFull(conn, c1[:]); err != nil {
		return err
	}
	if _, err := conn.Write([]byte{rtmp.RTMPVersion}); err != nil {
		return err
	}
	var s1 [rtmp.HandshakeC1S1Size]byte
	if _, err := conn.Write(s1[:]); err != nil {
		return err
	}
	var c2 [rtmp.HandshakeC2S2Size]byte
	if _, err := readFull(conn, c2[:]); err != nil {
		return err
	}
	var s2 [rtmp.HandshakeC2S2Size]byte
	copy(s2[8:], c1[8:])
	_, err := conn.Write(s2[:])
	return err
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func TestSessionConnectAndPublishEndToEnd(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()
	fakeServer(t, serverConn)

	sess := NewSession(&pipeSocket{conn: clientConn}, "rtmpcast-test")
	sess.SetAutoConnectToApp(true)

	connected := make(chan struct{})
	createdStream := make(chan uint32, 1)
	sess.SetEvents(Events{
		OnConnectedToApp: func() { close(connected) },
		OnCreatedStream:  func(id uint32) { createdStream <- id },
	})

	target, err := ParseTarget("rtmp://localhost/live/key", true)
	if err != nil {
		t.Fatalf("ParseTarget: %v", err)
	}
	if err := sess.Connect(target); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	go sess.ReadLoop()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnConnectedToApp")
	}

	publisher := NewPublisher()
	sess.AttachPublisher(publisher)

	ready := make(chan struct{})
	publisher.OnReady(func() { close(ready) })

	if err := publisher.BeginPublishing("key"); err != nil {
		t.Fatalf("BeginPublishing: %v", err)
	}

	select {
	case id := <-createdStream:
		if id != 5 {
			t.Fatalf("got stream id %d want 5", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnCreatedStream")
	}

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publisher OnReady")
	}
	if !publisher.IsReady() {
		t.Fatal("expected publisher to report ready")
	}
}

func TestReadLoopSendsAckWhenWindowCrossed(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	sess := NewSession(&pipeSocket{conn: clientConn}, "rtmpcast-test")

	hsErr := make(chan error, 1)
	go func() {
		hs := &rtmp.Handshake{}
		hsErr <- serverHandshake(serverConn, hs)
	}()
	target, err := ParseTarget("rtmp://localhost/live/key", true)
	if err != nil {
		t.Fatalf("ParseTarget: %v", err)
	}
	if err := sess.Connect(target); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := <-hsErr; err != nil {
		t.Fatalf("serverHandshake: %v", err)
	}

	// A tiny ack window so a single filler message crosses it, instead
	// of needing to push DefaultWindowAckSize (2.5MB) of traffic.
	sess.mu.Lock()
	sess.flow.InAckWindow = 32
	sess.mu.Unlock()

	go sess.ReadLoop()

	cw := rtmp.NewChunkWriter()
	filler := bytes.Repeat([]byte{0x00}, 64)
	if err := cw.WriteMessage(serverConn, 4, rtmp.MessageTypeVideo, 0, 1, filler); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	cr := rtmp.NewChunkReader()
	ackCh := make(chan uint32, 1)
	go func() {
		for {
			msg, err := cr.ReadMessage(serverConn)
			if err != nil {
				return
			}
			if msg.Type == rtmp.MessageTypeAck {
				seq, err := rtmp.DecodeAck(msg.Payload)
				if err != nil {
					return
				}
				ackCh <- seq
				return
			}
		}
	}()

	select {
	case seq := <-ackCh:
		if seq == 0 {
			t.Fatal("expected non-zero ack sequence")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Ack message")
	}
}

func TestSessionDisconnectInvalidatesPublisher(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	sess := NewSession(&pipeSocket{conn: clientConn}, "rtmpcast-test")
	publisher := NewPublisher()
	sess.AttachPublisher(publisher)

	if err := sess.Disconnect(false); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if err := publisher.BeginPublishing("key"); err != ErrPublisherInvalidated {
		t.Fatalf("expected ErrPublisherInvalidated after disconnect, got %v", err)
	}
}
