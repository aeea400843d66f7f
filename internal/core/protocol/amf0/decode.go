package amf0

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrUnknownMarker is returned when a type marker this package does not
	// implement (AMF3, Reference, Date, XMLDocument, StrictArray, ...) is
	// encountered. Decoding consumes zero further bytes in this case.
	ErrUnknownMarker = errors.New("amf0: unknown type marker")
	// ErrMalformed is returned when an Object's end marker is corrupt.
	ErrMalformed = errors.New("amf0: malformed value")
	// ErrUnsupportedValue is returned by Encode for a Go value with no
	// AMF0 representation in this package's supported subset.
	ErrUnsupportedValue = errors.New("amf0: unsupported value")
)

// Decode reads a single AMF0 value from r. On malformed or unrecognized
// input it returns an error; any object partially built while decoding is
// discarded along with it, per the AMF0 codec's all-or-nothing contract.
func Decode(r io.Reader) (Value, error) {
	var marker [1]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return nil, err
	}
	switch marker[0] {
	case TypeNumber:
		return decodeNumber(r)
	case TypeBoolean:
		return decodeBoolean(r)
	case TypeString:
		return decodeShortString(r)
	case TypeLongString:
		return decodeLongString(r)
	case TypeObject:
		return decodeObject(r)
	case TypeECMAArray:
		return decodeEcmaArray(r)
	case TypeNull:
		return Null{}, nil
	case TypeUndefined:
		return Undefined{}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownMarker, marker[0])
	}
}

func decodeNumber(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}

func decodeBoolean(r io.Reader) (bool, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false, err
	}
	return buf[0] != 0, nil
}

func decodeShortString(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	return readStringBody(r, int(binary.BigEndian.Uint16(lenBuf[:])))
}

func decodeLongString(r io.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	return readStringBody(r, int(binary.BigEndian.Uint32(lenBuf[:])))
}

func readStringBody(r io.Reader, length int) (string, error) {
	if length == 0 {
		return "", nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// decodeObjectBody reads key/value pairs until the empty-key end marker.
func decodeObjectBody(r io.Reader) (*Object, error) {
	obj := NewObject()
	for {
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, err
		}
		keyLen := binary.BigEndian.Uint16(lenBuf[:])
		if keyLen == 0 {
			var end [1]byte
			if _, err := io.ReadFull(r, end[:]); err != nil {
				return nil, err
			}
			if end[0] != TypeObjectEnd {
				return nil, ErrMalformed
			}
			return obj, nil
		}
		key, err := readStringBody(r, int(keyLen))
		if err != nil {
			return nil, err
		}
		val, err := Decode(r)
		if err != nil {
			return nil, err
		}
		obj.Set(key, val)
	}
}

func decodeObject(r io.Reader) (*Object, error) {
	return decodeObjectBody(r)
}

func decodeEcmaArray(r io.Reader) (*EcmaArray, error) {
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, err
	}
	body, err := decodeObjectBody(r)
	if err != nil {
		return nil, err
	}
	return &EcmaArray{Object: *body, AssociativeCount: binary.BigEndian.Uint32(countBuf[:])}, nil
}

// DecodeCommand decodes the body of an AMF0 command message: a sequence of
// top-level values (command name, transaction id, command object, further
// arguments) laid out back to back with no wrapping container. Decoding
// stops at end of input or at the first malformed value; in the latter
// case DecodeCommand returns the values decoded so far together with the
// error, since the caller (the session's command dispatcher) treats any
// decode failure as a protocol violation regardless of how much succeeded.
func DecodeCommand(body []byte) ([]Value, error) {
	r := bytes.NewReader(body)
	var values []Value
	for r.Len() > 0 {
		v, err := Decode(r)
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}
