// Package amf0 implements the Action Message Format 0 subset used to
// encode and decode RTMP command arguments: Number, Boolean, String (short
// and long), Object, EcmaArray, Null and Undefined. AMF3, references,
// dates, XML documents and strict arrays are not implemented; decoding one
// of those markers fails with ErrUnknownMarker.
package amf0

// Type markers, per the AMF0 specification.
const (
	TypeNumber      = 0x00
	TypeBoolean     = 0x01
	TypeString      = 0x02
	TypeObject      = 0x03
	TypeNull        = 0x05
	TypeUndefined   = 0x06
	TypeReference   = 0x07
	TypeECMAArray   = 0x08
	TypeObjectEnd   = 0x09
	TypeStrictArray = 0x0A
	TypeDate        = 0x0B
	TypeLongString  = 0x0C
	TypeXMLDocument = 0x0F
	TypeTypedObject = 0x10
)

// Value holds a decoded or to-be-encoded AMF0 value. The concrete type is
// one of float64, bool, string, Null, Undefined, *Object or *EcmaArray.
type Value interface{}

// Null is the AMF0 Null value.
type Null struct{}

// Undefined is the AMF0 Undefined value.
type Undefined struct{}

// Pair is one key/value entry of an Object, in wire order.
type Pair struct {
	Key   string
	Value Value
}

// Object is an AMF0 Object: an ordered mapping from string keys to values.
// Key order is insertion order and is preserved across encode/decode, since
// some reference servers are sensitive to it. An Object owns the Values it
// holds; there is no sharing and no cycles, so Go's garbage collector frees
// a discarded Object and everything under it without any explicit teardown.
type Object struct {
	pairs []Pair
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{}
}

// Set inserts key with val, or overwrites val in place if key already
// exists (overwriting never changes that key's position). Returns o so
// calls can be chained when building a literal command argument.
func (o *Object) Set(key string, val Value) *Object {
	for i := range o.pairs {
		if o.pairs[i].Key == key {
			o.pairs[i].Value = val
			return o
		}
	}
	o.pairs = append(o.pairs, Pair{Key: key, Value: val})
	return o
}

// Get returns the value stored under key, if any.
func (o *Object) Get(key string) (Value, bool) {
	for _, p := range o.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Pairs returns the Object's entries in wire order. Callers must not
// mutate the returned slice's backing array.
func (o *Object) Pairs() []Pair {
	return o.pairs
}

// Len returns the number of entries in the Object.
func (o *Object) Len() int {
	return len(o.pairs)
}

// Equal reports whether o and other hold the same entries in the same
// order. Used by round-trip tests.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if len(o.pairs) != len(other.pairs) {
		return false
	}
	for i, p := range o.pairs {
		op := other.pairs[i]
		if p.Key != op.Key || p.Value != op.Value {
			return false
		}
	}
	return true
}

// EcmaArray is an AMF0 EcmaArray: the same body as Object, plus an
// associative-element count that is advertised on the wire but decorative
// only — it is never validated against the actual number of entries.
type EcmaArray struct {
	Object
	AssociativeCount uint32
}

// NewEcmaArray returns an empty EcmaArray with the given advertised count.
func NewEcmaArray(associativeCount uint32) *EcmaArray {
	return &EcmaArray{AssociativeCount: associativeCount}
}

// AsString returns a value's textual content, true if v decoded from
// either a short or a long AMF0 string; both wire forms produce a Go
// string, so callers never need to distinguish them.
func AsString(v Value) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
