package amf0

import (
	"bytes"
	"errors"
	"testing"
)

// TestRoundTrip checks decode(encode(v)) == v for every value in the
// supported subset, and that decoding consumes exactly as many bytes as
// encoding produced.
func TestRoundTrip(t *testing.T) {
	values := []Value{
		float64(0),
		float64(854),
		float64(-1.5),
		true,
		false,
		"",
		"FMS/3,0,1,123",
		Null{},
		Undefined{},
		NewObject(),
		NewObject().Set("app", "live").Set("type", "nonprivate"),
		NewEcmaArray(0),
		NewEcmaArray(2).Set("width", float64(1280)).Set("height", float64(720)),
	}

	for _, v := range values {
		var buf bytes.Buffer
		if err := Encode(&buf, v); err != nil {
			t.Fatalf("Encode(%#v) failed: %v", v, err)
		}
		encoded := buf.Bytes()

		r := bytes.NewReader(encoded)
		got, err := Decode(r)
		if err != nil {
			t.Fatalf("Decode after Encode(%#v) failed: %v", v, err)
		}
		if r.Len() != 0 {
			t.Fatalf("Decode(%#v) left %d unread bytes, want 0", v, r.Len())
		}
		assertValueEqual(t, v, got)
	}
}

func assertValueEqual(t *testing.T, want, got Value) {
	t.Helper()
	switch w := want.(type) {
	case *Object:
		g, ok := got.(*Object)
		if !ok || !w.Equal(g) {
			t.Fatalf("object mismatch: want %#v, got %#v", want, got)
		}
	case *EcmaArray:
		g, ok := got.(*EcmaArray)
		if !ok || w.AssociativeCount != g.AssociativeCount || !w.Object.Equal(&g.Object) {
			t.Fatalf("ecma array mismatch: want %#v, got %#v", want, got)
		}
	default:
		if want != got {
			t.Fatalf("value mismatch: want %#v, got %#v", want, got)
		}
	}
}

// TestDecodeMalformedObjectEndMarker checks that a bad end marker
// surfaces ErrMalformed rather than silently returning a partial object.
func TestDecodeMalformedObjectEndMarker(t *testing.T) {
	// Object marker, empty key (end-of-object signal), then a bad end byte.
	data := []byte{TypeObject, 0x00, 0x00, 0xFF}
	_, err := Decode(bytes.NewReader(data))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for a corrupt object end marker, got %v", err)
	}
}

// TestDecodeUnknownMarker checks that AMF3 and other unimplemented markers
// fail decode rather than silently skipping.
func TestDecodeUnknownMarker(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{TypeStrictArray, 0, 0, 0, 0}))
	if err == nil {
		t.Fatal("expected ErrUnknownMarker for StrictArray")
	}
}

// TestDecodeCommandSequence checks that a command body decodes as a flat
// sequence of values with no wrapping container.
func TestDecodeCommandSequence(t *testing.T) {
	values := []Value{
		"connect",
		float64(1),
		NewObject().Set("app", "live"),
	}
	body, err := EncodeCommand(values)
	if err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}

	decoded, err := DecodeCommand(body)
	if err != nil {
		t.Fatalf("DecodeCommand failed: %v", err)
	}
	if len(decoded) != len(values) {
		t.Fatalf("got %d values, want %d", len(decoded), len(values))
	}
	name, ok := AsString(decoded[0])
	if !ok || name != "connect" {
		t.Fatalf("got command name %#v, want %q", decoded[0], "connect")
	}
}
