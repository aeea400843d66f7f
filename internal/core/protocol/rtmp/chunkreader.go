package rtmp

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrChunkTooLarge is returned when a message header advertises a message
// length larger than what this client is willing to buffer.
var ErrChunkTooLarge = errors.New("rtmp: message length exceeds maximum")

// MaxMessageSize bounds the reassembly buffer a single incoming message
// may grow to, guarding against a hostile or buggy peer claiming an
// enormous message length.
const MaxMessageSize = 16 * 1024 * 1024

// Message is one fully reassembled RTMP message: every chunk belonging
// to it has been read and concatenated into Payload.
type Message struct {
	ChunkStreamID uint32
	Type          MessageType
	Timestamp     uint32
	MsgStreamID   uint32
	Payload       []byte
}

// ChunkReader reconstructs RTMP messages from an interleaved stream of
// chunks, tracking one ChunkStreamState per chunk stream id exactly as
// the peer's ChunkWriter does, mirrored.
type ChunkReader struct {
	streams   *ChunkStreamTable
	chunkSize uint32
	bytesRead uint64
}

// NewChunkReader returns a reader using DefaultChunkSize until a peer
// SetChunkSize message changes it.
func NewChunkReader() *ChunkReader {
	return &ChunkReader{
		streams:   NewChunkStreamTable(),
		chunkSize: DefaultChunkSize,
	}
}

// SetChunkSize changes the payload size expected per chunk, applied the
// instant the peer's SetChunkSize message is processed.
func (cr *ChunkReader) SetChunkSize(size uint32) {
	cr.chunkSize = size
}

// BytesRead returns the cumulative count of basic-header, message-header
// and payload bytes consumed across every ReadMessage call so far, for a
// caller to diff against flow-control accounting.
func (cr *ChunkReader) BytesRead() uint64 {
	return cr.bytesRead
}

// AbortChunkStream discards the in-progress reassembly for csID, per an
// incoming Abort message naming it.
func (cr *ChunkReader) AbortChunkStream(csID uint32) {
	cr.streams.Delete(csID)
}

// ReadMessage blocks until one full message has been reassembled on any
// chunk stream; interleaved chunks are buffered into their own chunk
// stream's reassembly until that stream's message is complete.
func (cr *ChunkReader) ReadMessage(r io.Reader) (*Message, error) {
	counted := &countingReader{r: r}
	for {
		csID, chunkFmt, err := readBasicHeader(counted)
		if err != nil {
			return nil, err
		}
		cs := cr.streams.Get(csID)

		newHeader := chunkFmt != ChunkFmt3 || cs.LenRemaining == 0
		if newHeader {
			if err := cr.readNewHeader(counted, cs, chunkFmt); err != nil {
				return nil, err
			}
		} else if cs.HadExtended {
			if _, err := readExtendedTimestamp(counted); err != nil {
				return nil, err
			}
		}

		want := cs.LenRemaining
		if want > cr.chunkSize {
			want = cr.chunkSize
		}
		start := uint32(len(cs.MsgBuffer)) - cs.LenRemaining
		if _, err := io.ReadFull(counted, cs.MsgBuffer[start:start+want]); err != nil {
			return nil, err
		}
		cs.LenRemaining -= want

		if cs.LenRemaining == 0 {
			payload := cs.MsgBuffer
			cs.MsgBuffer = nil
			cr.bytesRead += counted.n
			return &Message{
				ChunkStreamID: csID,
				Type:          cs.MsgType,
				Timestamp:     cs.Timestamp,
				MsgStreamID:   cs.MsgStreamID,
				Payload:       payload,
			}, nil
		}
	}
}

// countingReader tallies bytes read through it, so ReadMessage can
// report how many header+payload bytes a call consumed without changing
// its own signature.
type countingReader struct {
	r io.Reader
	n uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n)
	return n, err
}

// readNewHeader handles fmt 0/1/2, and fmt 3 when it starts a brand-new
// message reusing the chunk stream's cached header (rather than
// continuing a fragmented one) — applying the cached delta to the
// cached timestamp, per the chunk stream's header-compression history.
func (cr *ChunkReader) readNewHeader(r io.Reader, cs *ChunkStreamState, chunkFmt byte) error {
	var timestampField uint32
	switch chunkFmt {
	case ChunkFmt0:
		var hdr [11]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return err
		}
		timestampField = get24(hdr[0:3])
		cs.MsgLen = get24(hdr[3:6])
		cs.MsgType = MessageType(hdr[6])
		cs.MsgStreamID = binary.LittleEndian.Uint32(hdr[7:11])
		cs.Timestamp = timestampField
		cs.TimestampDelta = 0
	case ChunkFmt1:
		var hdr [7]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return err
		}
		timestampField = get24(hdr[0:3])
		cs.MsgLen = get24(hdr[3:6])
		cs.MsgType = MessageType(hdr[6])
		cs.TimestampDelta = timestampField
	case ChunkFmt2:
		var hdr [3]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return err
		}
		timestampField = get24(hdr[0:3])
		cs.TimestampDelta = timestampField
	default: // ChunkFmt3 reusing cached header for a new message
		timestampField = cs.TimestampDelta
	}

	cs.HadExtended = timestampField == extendedTimestampMarker
	if cs.HadExtended {
		actual, err := readExtendedTimestamp(r)
		if err != nil {
			return err
		}
		if chunkFmt == ChunkFmt0 {
			cs.Timestamp = actual
		} else {
			cs.TimestampDelta = actual
		}
	}
	if chunkFmt != ChunkFmt0 {
		cs.Timestamp += cs.TimestampDelta
	}

	if cs.MsgLen > MaxMessageSize {
		return ErrChunkTooLarge
	}
	cs.MsgBuffer = make([]byte, cs.MsgLen)
	cs.LenRemaining = cs.MsgLen
	cs.HasHistory = true
	return nil
}

// readBasicHeader decodes the 1-3 byte basic header and returns the
// chunk stream id and format selector.
func readBasicHeader(r io.Reader) (csID uint32, chunkFmt byte, err error) {
	var b [1]byte
	if _, err = io.ReadFull(r, b[:]); err != nil {
		return 0, 0, err
	}
	chunkFmt = b[0] >> 6
	low := b[0] & 0x3F
	switch low {
	case 0:
		var ext [1]byte
		if _, err = io.ReadFull(r, ext[:]); err != nil {
			return 0, 0, err
		}
		return 64 + uint32(ext[0]), chunkFmt, nil
	case 1:
		var ext [2]byte
		if _, err = io.ReadFull(r, ext[:]); err != nil {
			return 0, 0, err
		}
		return 64 + uint32(binary.LittleEndian.Uint16(ext[:])), chunkFmt, nil
	default:
		return uint32(low), chunkFmt, nil
	}
}

func readExtendedTimestamp(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func get24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
