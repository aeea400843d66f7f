package amf0

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encode writes a single AMF0 value to w, choosing String or LongString
// automatically based on byte length.
func Encode(w io.Writer, v Value) error {
	switch val := v.(type) {
	case nil:
		return writeMarker(w, TypeNull)
	case Null:
		return writeMarker(w, TypeNull)
	case Undefined:
		return writeMarker(w, TypeUndefined)
	case float64:
		return encodeNumber(w, val)
	case int:
		return encodeNumber(w, float64(val))
	case bool:
		return encodeBoolean(w, val)
	case string:
		return encodeString(w, val)
	case *Object:
		return encodeObject(w, val)
	case *EcmaArray:
		return encodeEcmaArray(w, val)
	default:
		return fmt.Errorf("amf0: encode: %w: %T", ErrUnsupportedValue, v)
	}
}

func writeMarker(w io.Writer, marker byte) error {
	_, err := w.Write([]byte{marker})
	return err
}

// encodeNumber writes the IEEE-754 double in big-endian byte order. The
// mantissa is byte-swapped explicitly via math.Float64bits rather than
// assumed to already be in network order, so the result is correct on
// both little- and big-endian hosts.
func encodeNumber(w io.Writer, n float64) error {
	if err := writeMarker(w, TypeNumber); err != nil {
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(n))
	_, err := w.Write(buf[:])
	return err
}

func encodeBoolean(w io.Writer, b bool) error {
	if err := writeMarker(w, TypeBoolean); err != nil {
		return err
	}
	v := byte(0)
	if b {
		v = 1
	}
	_, err := w.Write([]byte{v})
	return err
}

// encodeString switches to LongString once the UTF-8 byte length exceeds
// what a u16 length prefix can hold.
func encodeString(w io.Writer, s string) error {
	data := []byte(s)
	if len(data) > 0xFFFF {
		if err := writeMarker(w, TypeLongString); err != nil {
			return err
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		_, err := w.Write(data)
		return err
	}
	if err := writeMarker(w, TypeString); err != nil {
		return err
	}
	return writeShortStringBody(w, data)
}

func writeShortStringBody(w io.Writer, data []byte) error {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func encodeObject(w io.Writer, obj *Object) error {
	if err := writeMarker(w, TypeObject); err != nil {
		return err
	}
	return encodeObjectBody(w, obj)
}

func encodeObjectBody(w io.Writer, obj *Object) error {
	for _, p := range obj.pairs {
		if err := writeShortStringBody(w, []byte(p.Key)); err != nil {
			return err
		}
		if err := Encode(w, p.Value); err != nil {
			return err
		}
	}
	if err := writeShortStringBody(w, nil); err != nil {
		return err
	}
	return writeMarker(w, TypeObjectEnd)
}

func encodeEcmaArray(w io.Writer, arr *EcmaArray) error {
	if err := writeMarker(w, TypeECMAArray); err != nil {
		return err
	}
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], arr.AssociativeCount)
	if _, err := w.Write(countBuf[:]); err != nil {
		return err
	}
	return encodeObjectBody(w, &arr.Object)
}

// EncodeCommand encodes a sequence of top-level AMF0 values back to back,
// the way an RTMP command message is framed on the wire: the values follow
// one another directly, never wrapped in a StrictArray.
func EncodeCommand(values []Value) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range values {
		if err := Encode(&buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
