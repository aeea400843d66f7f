package rtmp

import (
	"bytes"
	"testing"
)

func TestChunkRoundTripSingleChunk(t *testing.T) {
	w := NewChunkWriter()
	r := NewChunkReader()

	var buf bytes.Buffer
	payload := []byte("hello rtmp")
	if err := w.WriteMessage(&buf, 3, MessageTypeCommandAMF0, 0, 0, payload); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	msg, err := r.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload mismatch: got %q want %q", msg.Payload, payload)
	}
	if msg.ChunkStreamID != 3 || msg.Type != MessageTypeCommandAMF0 || msg.MsgStreamID != 0 {
		t.Fatalf("unexpected message header: %+v", msg)
	}
}

func TestChunkRoundTripMultiChunk(t *testing.T) {
	w := NewChunkWriter()
	w.SetChunkSize(16)
	r := NewChunkReader()
	r.SetChunkSize(16)

	payload := bytes.Repeat([]byte{0xAB}, 200)
	var buf bytes.Buffer
	if err := w.WriteMessage(&buf, 4, MessageTypeVideo, 1000, 1, payload); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	msg, err := r.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload mismatch: got %d bytes want %d", len(msg.Payload), len(payload))
	}
	if msg.Timestamp != 1000 {
		t.Fatalf("timestamp mismatch: got %d want 1000", msg.Timestamp)
	}
}

func TestChunkRoundTripFmt3ReusesHeader(t *testing.T) {
	w := NewChunkWriter()
	r := NewChunkReader()
	var buf bytes.Buffer

	first := []byte("frame one payload")
	if err := w.WriteMessage(&buf, 5, MessageTypeVideo, 100, 1, first); err != nil {
		t.Fatalf("WriteMessage first: %v", err)
	}
	second := []byte("frame one payload")
	if err := w.WriteMessage(&buf, 5, MessageTypeVideo, 133, 1, second); err != nil {
		t.Fatalf("WriteMessage second: %v", err)
	}

	msg1, err := r.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage 1: %v", err)
	}
	if msg1.Timestamp != 100 {
		t.Fatalf("msg1 timestamp: got %d want 100", msg1.Timestamp)
	}

	msg2, err := r.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage 2: %v", err)
	}
	if msg2.Timestamp != 133 {
		t.Fatalf("msg2 timestamp: got %d want 133", msg2.Timestamp)
	}
	if !bytes.Equal(msg2.Payload, second) {
		t.Fatalf("msg2 payload mismatch")
	}

	// The second message stored a delta of 33; a third message with the
	// same length, type, stream and delta goes out as a bare fmt 3 header.
	third := []byte("frame one payload")
	if err := w.WriteMessage(&buf, 5, MessageTypeVideo, 166, 1, third); err != nil {
		t.Fatalf("WriteMessage third: %v", err)
	}
	msg3, err := r.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage 3: %v", err)
	}
	if msg3.Timestamp != 166 {
		t.Fatalf("msg3 timestamp: got %d want 166", msg3.Timestamp)
	}
	if !bytes.Equal(msg3.Payload, third) {
		t.Fatalf("msg3 payload mismatch")
	}
}

func TestChunkRoundTripExtendedTimestamp(t *testing.T) {
	w := NewChunkWriter()
	r := NewChunkReader()
	var buf bytes.Buffer

	const bigTS = extendedTimestampMarker + 500
	payload := []byte("needs extended timestamp")
	if err := w.WriteMessage(&buf, 6, MessageTypeAudio, bigTS, 1, payload); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	msg, err := r.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msg.Timestamp != bigTS {
		t.Fatalf("timestamp mismatch: got %d want %d", msg.Timestamp, bigTS)
	}
}

func TestChunkRoundTripInterleaved(t *testing.T) {
	w := NewChunkWriter()
	r := NewChunkReader()
	var buf bytes.Buffer

	if err := w.WriteMessage(&buf, 3, MessageTypeCommandAMF0, 0, 0, []byte("cmd")); err != nil {
		t.Fatalf("WriteMessage cmd: %v", err)
	}
	if err := w.WriteMessage(&buf, 4, MessageTypeVideo, 50, 1, []byte("video")); err != nil {
		t.Fatalf("WriteMessage video: %v", err)
	}

	msg1, err := r.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage 1: %v", err)
	}
	if msg1.ChunkStreamID != 3 {
		t.Fatalf("expected chunk stream 3 first, got %d", msg1.ChunkStreamID)
	}

	msg2, err := r.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage 2: %v", err)
	}
	if msg2.ChunkStreamID != 4 {
		t.Fatalf("expected chunk stream 4 second, got %d", msg2.ChunkStreamID)
	}
}

func TestChunkStreamIDOutOfRange(t *testing.T) {
	w := NewChunkWriter()
	var buf bytes.Buffer
	if err := w.WriteMessage(&buf, 1, MessageTypeCommandAMF0, 0, 0, nil); err != ErrChunkStreamIDOutOfRange {
		t.Fatalf("expected ErrChunkStreamIDOutOfRange, got %v", err)
	}
}

func TestBytesReadAccumulatesAcrossMessages(t *testing.T) {
	w := NewChunkWriter()
	r := NewChunkReader()
	var buf bytes.Buffer

	if err := w.WriteMessage(&buf, 3, MessageTypeCommandAMF0, 0, 0, []byte("one")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	firstLen := buf.Len()
	if err := w.WriteMessage(&buf, 3, MessageTypeCommandAMF0, 0, 0, []byte("two")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	secondLen := buf.Len() - firstLen

	if r.BytesRead() != 0 {
		t.Fatalf("BytesRead before any ReadMessage: got %d want 0", r.BytesRead())
	}
	if _, err := r.ReadMessage(&buf); err != nil {
		t.Fatalf("ReadMessage 1: %v", err)
	}
	if int(r.BytesRead()) != firstLen {
		t.Fatalf("BytesRead after msg 1: got %d want %d", r.BytesRead(), firstLen)
	}
	if _, err := r.ReadMessage(&buf); err != nil {
		t.Fatalf("ReadMessage 2: %v", err)
	}
	if int(r.BytesRead()) != firstLen+secondLen {
		t.Fatalf("BytesRead after msg 2: got %d want %d", r.BytesRead(), firstLen+secondLen)
	}
}

func TestAbortChunkStreamDiscardsReassembly(t *testing.T) {
	w := NewChunkWriter()
	w.SetChunkSize(8)
	r := NewChunkReader()
	r.SetChunkSize(8)
	var buf bytes.Buffer

	// Write a message spanning several chunks, but only feed the reader
	// the first chunk before aborting the chunk stream.
	if err := w.WriteMessage(&buf, 5, MessageTypeVideo, 0, 1, bytes.Repeat([]byte{0x01}, 40)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	partial := bytes.NewReader(buf.Bytes()[:12])

	csID, chunkFmt, err := readBasicHeader(partial)
	if err != nil {
		t.Fatalf("readBasicHeader: %v", err)
	}
	if chunkFmt != ChunkFmt0 {
		t.Fatalf("expected fmt 0 on first chunk, got %d", chunkFmt)
	}
	cs, ok := r.streams.Lookup(csID)
	if ok {
		t.Fatalf("chunk stream %d should not exist before any read", csID)
	}
	cs = r.streams.Get(csID)
	if err := r.readNewHeader(partial, cs, chunkFmt); err != nil {
		t.Fatalf("readNewHeader: %v", err)
	}
	if cs.LenRemaining == 0 {
		t.Fatalf("expected a partial message still pending")
	}

	r.AbortChunkStream(csID)
	if _, ok := r.streams.Lookup(csID); ok {
		t.Fatalf("chunk stream %d should be discarded after AbortChunkStream", csID)
	}
}

func TestBasicHeaderWideChunkStreamID(t *testing.T) {
	w := NewChunkWriter()
	r := NewChunkReader()
	var buf bytes.Buffer

	const wideID = 1000
	if err := w.WriteMessage(&buf, wideID, MessageTypeCommandAMF0, 0, 0, []byte("x")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	msg, err := r.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msg.ChunkStreamID != wideID {
		t.Fatalf("chunk stream id mismatch: got %d want %d", msg.ChunkStreamID, wideID)
	}
}
