package rtmp

import "encoding/binary"

// Protocol control messages (types 1-6) are always exactly one chunk,
// sent on chunk stream 2 / message stream 0 per convention. Each has a
// fixed-size body, so encode/decode here never touch the chunk layer.

// EncodeSetChunkSize builds the 4-byte SetChunkSize body. The top bit
// is always 0 per the protocol; size is masked to its low 31 bits.
func EncodeSetChunkSize(size uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, size&0x7FFFFFFF)
	return buf
}

// DecodeSetChunkSize reads the low 31 bits of the body as the new
// inbound chunk size.
func DecodeSetChunkSize(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, ErrShortControlMessage
	}
	return binary.BigEndian.Uint32(body) & 0x7FFFFFFF, nil
}

// EncodeAbort builds the 4-byte Abort body naming a chunk stream id.
func EncodeAbort(chunkStreamID uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, chunkStreamID)
	return buf
}

// DecodeAbort reads the chunk stream id to abort.
func DecodeAbort(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, ErrShortControlMessage
	}
	return binary.BigEndian.Uint32(body), nil
}

// EncodeAck builds the 4-byte Ack body carrying the cumulative byte
// count acknowledged.
func EncodeAck(sequenceNumber uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, sequenceNumber)
	return buf
}

// DecodeAck reads the acknowledged sequence number. Ack messages are
// accepted and ignored per spec.md §4.5; this exists for completeness
// and tests.
func DecodeAck(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, ErrShortControlMessage
	}
	return binary.BigEndian.Uint32(body), nil
}

// EncodeWindowAckSize builds the 4-byte WindowAckSize body.
func EncodeWindowAckSize(window uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, window)
	return buf
}

// DecodeWindowAckSize reads the advertised window size.
func DecodeWindowAckSize(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, ErrShortControlMessage
	}
	return binary.BigEndian.Uint32(body), nil
}

// EncodeSetPeerBandwidth builds the 5-byte SetPeerBandwidth body.
func EncodeSetPeerBandwidth(window uint32, limitType LimitType) []byte {
	buf := make([]byte, 5)
	binary.BigEndian.PutUint32(buf[0:4], window)
	buf[4] = byte(limitType)
	return buf
}

// DecodeSetPeerBandwidth reads the window and limit type. An
// unrecognized limit-type byte (anything but 0/1/2) decodes as Dynamic
// rather than erroring, matching the tolerant handling carried over
// from the reference client.
func DecodeSetPeerBandwidth(body []byte) (window uint32, limitType LimitType, err error) {
	if len(body) < 5 {
		return 0, 0, ErrShortControlMessage
	}
	window = binary.BigEndian.Uint32(body[0:4])
	switch body[4] {
	case byte(LimitTypeHard):
		limitType = LimitTypeHard
	case byte(LimitTypeSoft):
		limitType = LimitTypeSoft
	default:
		limitType = LimitTypeDynamic
	}
	return window, limitType, nil
}

// UserControlEvent is a decoded UserControl (type 4) message: an event
// subtype plus its raw event data (layout depends on the subtype).
type UserControlEvent struct {
	EventType uint16
	Data      []byte
}

// EncodeUserControl builds a UserControl message body.
func EncodeUserControl(eventType uint16, data []byte) []byte {
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf[0:2], eventType)
	copy(buf[2:], data)
	return buf
}

// EncodePingResponse builds a PingResponse echoing the 4-byte timestamp
// carried in the originating PingRequest.
func EncodePingResponse(timestamp uint32) []byte {
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, timestamp)
	return EncodeUserControl(UserControlPingResponse, data)
}

// DecodeUserControl splits a UserControl message body into its event
// type and event data.
func DecodeUserControl(body []byte) (*UserControlEvent, error) {
	if len(body) < 2 {
		return nil, ErrShortControlMessage
	}
	return &UserControlEvent{
		EventType: binary.BigEndian.Uint16(body[0:2]),
		Data:      body[2:],
	}, nil
}

// PingTimestamp reads the 4-byte timestamp out of a PingRequest's event
// data.
func (e *UserControlEvent) PingTimestamp() (uint32, error) {
	if len(e.Data) < 4 {
		return 0, ErrShortControlMessage
	}
	return binary.BigEndian.Uint32(e.Data[0:4]), nil
}
