package rtmp

import (
	"fmt"

	"rtmpcast/internal/core/protocol/amf0"
)

// BuildConnect encodes the AMF0 `connect` command body described in
// spec.md §4.5: command name, transaction id, then an object carrying
// app/tcUrl/type/flashVer/swfUrl.
func BuildConnect(txID uint32, app, tcURL, flashVer, swfURL string) ([]byte, error) {
	cmdObj := amf0.NewObject().
		Set("app", app).
		Set("tcUrl", tcURL).
		Set("type", "nonprivate").
		Set("flashVer", flashVer).
		Set("swfUrl", swfURL)
	return amf0.EncodeCommand([]amf0.Value{"connect", float64(txID), cmdObj})
}

// BuildReleaseStream encodes `releaseStream(streamName)`.
func BuildReleaseStream(txID uint32, streamName string) ([]byte, error) {
	return amf0.EncodeCommand([]amf0.Value{"releaseStream", float64(txID), amf0.Null{}, streamName})
}

// BuildFCPublish encodes `FCPublish(streamName)`.
func BuildFCPublish(txID uint32, streamName string) ([]byte, error) {
	return amf0.EncodeCommand([]amf0.Value{"FCPublish", float64(txID), amf0.Null{}, streamName})
}

// BuildCreateStream encodes `createStream()`.
func BuildCreateStream(txID uint32) ([]byte, error) {
	return amf0.EncodeCommand([]amf0.Value{"createStream", float64(txID), amf0.Null{}})
}

// BuildPublish encodes `publish(streamName, "live")`.
func BuildPublish(txID uint32, streamName string) ([]byte, error) {
	return amf0.EncodeCommand([]amf0.Value{"publish", float64(txID), amf0.Null{}, streamName, "live"})
}

// BuildSetDataFrame encodes `@setDataFrame("onMetaData", metadata)`,
// sent as an AMF0 data message rather than a command message.
func BuildSetDataFrame(metadata *amf0.Object) ([]byte, error) {
	return amf0.EncodeCommand([]amf0.Value{"@setDataFrame", "onMetaData", metadata})
}

// BuildFCUnpublish encodes `FCUnpublish(streamName)`.
func BuildFCUnpublish(txID uint32, streamName string) ([]byte, error) {
	return amf0.EncodeCommand([]amf0.Value{"FCUnpublish", float64(txID), amf0.Null{}, streamName})
}

// BuildCloseStream encodes `closeStream()`.
func BuildCloseStream(txID uint32) ([]byte, error) {
	return amf0.EncodeCommand([]amf0.Value{"closeStream", float64(txID), amf0.Null{}})
}

// BuildDeleteStream encodes `deleteStream(streamID)`, sent on message
// stream 0.
func BuildDeleteStream(txID uint32, streamID uint32) ([]byte, error) {
	return amf0.EncodeCommand([]amf0.Value{"deleteStream", float64(txID), amf0.Null{}, float64(streamID)})
}

// Command is a decoded AMF0 command message: a name, a transaction id
// (0 when the command carries none, e.g. onStatus), and the remaining
// arguments in order.
type Command struct {
	Name  string
	TxID  uint32
	Args  []amf0.Value
}

// ParseCommand decodes a command message body into its name, tx id and
// trailing arguments.
func ParseCommand(body []byte) (*Command, error) {
	values, err := amf0.DecodeCommand(body)
	if err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrMalformedCommand)
	}
	name, ok := amf0.AsString(values[0])
	if !ok {
		return nil, fmt.Errorf("%w: command name is not a string", ErrMalformedCommand)
	}
	cmd := &Command{Name: name, Args: values[1:]}
	if len(values) >= 2 {
		if n, ok := values[1].(float64); ok {
			cmd.TxID = uint32(n)
		}
	}
	return cmd, nil
}

// StatusCode extracts the `code` field from an onStatus command's info
// object. Args is [txID, null, info], so the info object is normally
// Args[2]; every argument is scanned and the first object with a `code`
// field wins.
func (c *Command) StatusCode() (string, bool) {
	for _, arg := range c.Args {
		obj, ok := arg.(*amf0.Object)
		if !ok {
			continue
		}
		if v, ok := obj.Get("code"); ok {
			return amf0.AsString(v)
		}
	}
	return "", false
}

// CreatedStreamID extracts the numeric stream id from a createStream
// `_result` reply, the fourth AMF value (after name, tx id, and the null
// command-object placeholder). Only the name is stripped from Args, so
// the stream id is Args[2].
func (c *Command) CreatedStreamID() (uint32, bool) {
	if len(c.Args) < 3 {
		return 0, false
	}
	n, ok := c.Args[2].(float64)
	if !ok {
		return 0, false
	}
	return uint32(n), true
}
