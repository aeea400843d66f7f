package rtmpcast

import (
	"bytes"
	"testing"
)

// recordingSocket is a minimal Socket that just accumulates everything
// written to it, for tests that only care about the framed bytes
// leaving the Publisher, not a real peer.
type recordingSocket struct {
	buf bytes.Buffer
}

func (r *recordingSocket) Read([]byte) (int, error)     { return 0, nil }
func (r *recordingSocket) Write(p []byte) (int, error)  { return r.buf.Write(p) }
func (r *recordingSocket) Abort() error                 { return nil }
func (r *recordingSocket) Flush() error                 { return nil }
func (r *recordingSocket) SendBufferSize() (int, error) { return 1 << 20, nil }
func (r *recordingSocket) SetSendBufferSize(int) error  { return nil }
func (r *recordingSocket) BytesToWrite() int            { return 0 }
func (r *recordingSocket) SetNoDelay(bool) error        { return nil }

func readyPublisher(sock *recordingSocket) (*Session, *Publisher) {
	sess := NewSession(sock, "rtmpcast-test")
	sess.publishStreamID = 5
	sess.publishReady = true
	sess.appConnected = true
	publisher := NewPublisher()
	sess.AttachPublisher(publisher)
	return sess, publisher
}

func TestPublisherWriteVideoFrame(t *testing.T) {
	sock := &recordingSocket{}
	_, publisher := readyPublisher(sock)

	nal := []byte{0, 0, 0, 1, 0x65, 0xAA, 0xBB}
	hdr := []byte{0x17, 0x01, 0, 0, 0}
	if err := publisher.WriteVideoFrame(100, hdr, [][]byte{nal}); err != nil {
		t.Fatalf("WriteVideoFrame: %v", err)
	}
	if sock.buf.Len() == 0 {
		t.Fatal("expected bytes written for a video frame")
	}
}

func TestPublisherWriteAVCConfigRecord(t *testing.T) {
	sock := &recordingSocket{}
	_, publisher := readyPublisher(sock)

	sps := []byte{0, 0, 0, 1, 0x67, 0x64, 0x00, 0x1F}
	pps := []byte{0, 0, 0, 1, 0x68, 0xEB}
	if err := publisher.WriteAVCConfigRecord(sps, pps); err != nil {
		t.Fatalf("WriteAVCConfigRecord: %v", err)
	}
	if sock.buf.Len() == 0 {
		t.Fatal("expected bytes written for the AVC config record")
	}
}

func TestPublisherWriteAACSequenceHeader(t *testing.T) {
	sock := &recordingSocket{}
	_, publisher := readyPublisher(sock)

	if err := publisher.WriteAACSequenceHeader([]byte{0x12, 0x10}); err != nil {
		t.Fatalf("WriteAACSequenceHeader: %v", err)
	}
	if sock.buf.Len() == 0 {
		t.Fatal("expected bytes written for the AAC sequence header")
	}
}

func TestPublisherMethodsFailWhenInvalidated(t *testing.T) {
	sock := &recordingSocket{}
	_, publisher := readyPublisher(sock)
	publisher.invalidate()

	if err := publisher.WriteAudioFrame(0, nil, nil); err != ErrPublisherInvalidated {
		t.Fatalf("expected ErrPublisherInvalidated, got %v", err)
	}
	if _, err := publisher.WillWriteBuffer(); err != ErrPublisherInvalidated {
		t.Fatalf("expected ErrPublisherInvalidated, got %v", err)
	}
}

func TestPublisherBeginEndForceBufferCoalesces(t *testing.T) {
	sock := &recordingSocket{}
	_, publisher := readyPublisher(sock)

	if err := publisher.BeginForceBuffer(); err != nil {
		t.Fatalf("BeginForceBuffer: %v", err)
	}
	if err := publisher.WriteAudioFrame(0, []byte{0xAF, 0x01}, []byte{0x01}); err != nil {
		t.Fatalf("WriteAudioFrame: %v", err)
	}
	if sock.buf.Len() != 0 {
		t.Fatal("expected nothing written to the socket before EndForceBuffer")
	}
	if err := publisher.EndForceBuffer(); err != nil {
		t.Fatalf("EndForceBuffer: %v", err)
	}
	if sock.buf.Len() == 0 {
		t.Fatal("expected the buffered frame to flush on EndForceBuffer")
	}
}

func TestPublisherNotifyReadyFiresOnReadyCallback(t *testing.T) {
	sock := &recordingSocket{}
	_, publisher := readyPublisher(sock)

	fired := false
	publisher.OnReady(func() { fired = true })
	publisher.notifyReady()
	if !fired {
		t.Fatal("expected OnReady callback to fire")
	}
	if !publisher.IsReady() {
		t.Fatal("expected IsReady true after notifyReady")
	}
}
