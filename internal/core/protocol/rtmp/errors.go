package rtmp

import "errors"

// ErrMalformedCommand is returned when a decoded AMF0 command message
// does not have the minimal shape (a string command name) every RTMP
// command is expected to carry.
var ErrMalformedCommand = errors.New("rtmp: malformed command message")

// ErrShortControlMessage is returned when a protocol control message
// (SetChunkSize, WindowAckSize, SetPeerBandwidth, UserControl) arrives
// with fewer bytes than its fixed layout requires.
var ErrShortControlMessage = errors.New("rtmp: control message payload too short")
