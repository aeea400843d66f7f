package rtmp

import (
	"encoding/binary"
	"errors"
	"io"
	"log"
)

// ErrChunkStreamIDOutOfRange is returned when a caller asks to write on a
// chunk stream id outside the valid 2..65599 range (0 and 1 are reserved
// basic-header continuation markers).
var ErrChunkStreamIDOutOfRange = errors.New("rtmp: chunk stream id out of range")

// ChunkWriter splits logical RTMP messages into chunks, choosing the
// smallest header format consistent with each chunk stream's write
// history, and writes them to an io.Writer.
type ChunkWriter struct {
	streams   *ChunkStreamTable
	chunkSize uint32
	Logger    *log.Logger
}

// NewChunkWriter returns a writer using DefaultChunkSize until
// SetChunkSize is called (mirroring what SetChunkSize negotiates on the
// wire).
func NewChunkWriter() *ChunkWriter {
	return &ChunkWriter{
		streams:   NewChunkStreamTable(),
		chunkSize: DefaultChunkSize,
		Logger:    log.Default(),
	}
}

// SetChunkSize changes the payload size used for subsequent chunks.
func (cw *ChunkWriter) SetChunkSize(size uint32) {
	cw.chunkSize = size
}

// WriteMessage frames one logical message — a single AMF0 command, a
// protocol control message, or one audio/video payload — as one or more
// chunks on chunkStreamID, and writes them to w.
func (cw *ChunkWriter) WriteMessage(w io.Writer, chunkStreamID uint32, msgType MessageType, timestamp uint32, msgStreamID uint32, payload []byte) error {
	if chunkStreamID < 2 || chunkStreamID > 65599 {
		return ErrChunkStreamIDOutOfRange
	}

	cs := cw.streams.Get(chunkStreamID)
	fmtSel, delta, backwards := cw.selectFormat(cs, msgType, uint32(len(payload)), msgStreamID, timestamp)
	if backwards {
		cw.Logger.Printf("rtmp: chunk stream %d timestamp went backwards (%d -> %d)", chunkStreamID, cs.Timestamp, timestamp)
	}

	extended := timestamp >= extendedTimestampMarker
	if fmtSel != ChunkFmt0 {
		extended = delta >= extendedTimestampMarker
	}

	offset := uint32(0)
	bodyLen := uint32(len(payload))
	first := true
	for {
		chunkFmt := fmtSel
		if !first {
			chunkFmt = ChunkFmt3
		}
		if err := writeBasicHeader(w, chunkFmt, chunkStreamID); err != nil {
			return err
		}
		if first {
			if err := writeMessageHeader(w, fmtSel, timestamp, delta, bodyLen, msgType, msgStreamID); err != nil {
				return err
			}
		}
		if extended {
			if err := writeExtendedTimestamp(w, timestampFieldFor(fmtSel, timestamp, delta)); err != nil {
				return err
			}
		}

		chunkLen := cw.chunkSize
		if offset+chunkLen > bodyLen {
			chunkLen = bodyLen - offset
		}
		if chunkLen > 0 {
			if _, err := w.Write(payload[offset : offset+chunkLen]); err != nil {
				return err
			}
		}
		offset += chunkLen
		first = false
		if offset >= bodyLen {
			break
		}
	}

	cs.Timestamp = timestamp
	cs.TimestampDelta = delta
	cs.MsgLen = bodyLen
	cs.MsgType = msgType
	cs.MsgStreamID = msgStreamID
	cs.HasHistory = true
	return nil
}

// timestampFieldFor returns the value whose 0xFFFFFF-or-above-ness decided
// the extended timestamp escape, so the same value is repeated in the
// 4-byte extension.
func timestampFieldFor(fmtSel byte, timestamp, delta uint32) uint32 {
	if fmtSel == ChunkFmt0 {
		return timestamp
	}
	return delta
}

// selectFormat implements spec.md §4.3's header-format decision table.
// Returns the chosen format, the timestamp delta to encode (meaningful
// for fmt 1/2), and whether the timestamp regressed (log-only, per §7).
func (cw *ChunkWriter) selectFormat(cs *ChunkStreamState, msgType MessageType, msgLen, msgStreamID, timestamp uint32) (fmtSel byte, delta uint32, backwards bool) {
	if !cs.HasHistory {
		return ChunkFmt0, 0, false
	}
	if msgStreamID != cs.MsgStreamID || timestamp == 0 {
		return ChunkFmt0, 0, false
	}
	if timestamp < cs.Timestamp {
		return ChunkFmt0, 0, true
	}

	delta = timestamp - cs.Timestamp
	if msgLen != cs.MsgLen || msgType != cs.MsgType {
		return ChunkFmt1, delta, false
	}
	if delta != cs.TimestampDelta {
		return ChunkFmt2, delta, false
	}
	return ChunkFmt3, delta, false
}

// writeBasicHeader compresses the chunk stream id into 1, 2 or 3 bytes,
// per the ranges in spec.md §4.3.
func writeBasicHeader(w io.Writer, fmtSel byte, csID uint32) error {
	switch {
	case csID >= 2 && csID <= 63:
		_, err := w.Write([]byte{fmtSel<<6 | byte(csID)})
		return err
	case csID >= 64 && csID <= 319:
		if _, err := w.Write([]byte{fmtSel << 6}); err != nil {
			return err
		}
		_, err := w.Write([]byte{byte(csID - 64)})
		return err
	default: // 320..65599
		if _, err := w.Write([]byte{fmtSel<<6 | 1}); err != nil {
			return err
		}
		var ext [2]byte
		binary.LittleEndian.PutUint16(ext[:], uint16(csID-64))
		_, err := w.Write(ext[:])
		return err
	}
}

func writeMessageHeader(w io.Writer, fmtSel byte, timestamp, delta, msgLen uint32, msgType MessageType, msgStreamID uint32) error {
	switch fmtSel {
	case ChunkFmt0:
		var hdr [11]byte
		put24(hdr[0:3], capTo24(timestamp))
		put24(hdr[3:6], msgLen)
		hdr[6] = byte(msgType)
		binary.LittleEndian.PutUint32(hdr[7:11], msgStreamID)
		_, err := w.Write(hdr[:])
		return err
	case ChunkFmt1:
		var hdr [7]byte
		put24(hdr[0:3], capTo24(delta))
		put24(hdr[3:6], msgLen)
		hdr[6] = byte(msgType)
		_, err := w.Write(hdr[:])
		return err
	case ChunkFmt2:
		var hdr [3]byte
		put24(hdr[0:3], capTo24(delta))
		_, err := w.Write(hdr[:])
		return err
	default: // ChunkFmt3: no header bytes
		return nil
	}
}

func capTo24(v uint32) uint32 {
	if v >= extendedTimestampMarker {
		return extendedTimestampMarker
	}
	return v
}

func put24(dst []byte, v uint32) {
	dst[0] = byte(v >> 16)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v)
}

func writeExtendedTimestamp(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
