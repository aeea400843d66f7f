package rtmpcast

import (
	"errors"
	"fmt"
)

// ErrPublisherInvalidated is returned by any Publisher method called
// after its Session has disconnected.
var ErrPublisherInvalidated = errors.New("rtmpcast: publisher invalidated by session disconnect")

// Kind classifies the errors a Session surfaces to its caller, per the
// error-handling design table.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectionRefused
	KindRemoteHostClosed
	KindHostNotFound
	KindTimeout
	KindNetwork
	KindSSLHandshakeFailed
	KindUnexpectedResponse
	KindInvalidWrite
	KindRtmpConnectRejected
	KindRtmpCreateStreamError
	KindRtmpPublishRejected
)

func (k Kind) String() string {
	switch k {
	case KindConnectionRefused:
		return "ConnectionRefused"
	case KindRemoteHostClosed:
		return "RemoteHostClosed"
	case KindHostNotFound:
		return "HostNotFound"
	case KindTimeout:
		return "Timeout"
	case KindNetwork:
		return "Network"
	case KindSSLHandshakeFailed:
		return "SslHandshakeFailed"
	case KindUnexpectedResponse:
		return "UnexpectedResponse"
	case KindInvalidWrite:
		return "InvalidWrite"
	case KindRtmpConnectRejected:
		return "RtmpConnectRejected"
	case KindRtmpCreateStreamError:
		return "RtmpCreateStreamError"
	case KindRtmpPublishRejected:
		return "RtmpPublishRejected"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with the Kind a caller should switch
// on, matching the error-kind table in spec.md §7.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rtmpcast: %s", e.Kind)
	}
	return fmt.Sprintf("rtmpcast: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds an *Error, allowing nil causes for kinds that carry
// no underlying error (e.g. a rejected publish with no wire-level
// failure).
func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
