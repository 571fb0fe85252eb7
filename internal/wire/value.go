// Package wire holds the typed value representation used by the Firestore v1 REST API.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies which member of the value union is set.
type Kind int

// Value kinds.
const (
	KindInvalid Kind = iota
	KindNull
	KindBoolean
	KindInteger
	KindDouble
	KindTimestamp
	KindString
	KindBytes
	KindReference
	KindGeoPoint
	KindArray
	KindMap
)

var kindNames = map[Kind]string{
	KindNull:      "nullValue",
	KindBoolean:   "booleanValue",
	KindInteger:   "integerValue",
	KindDouble:    "doubleValue",
	KindTimestamp: "timestampValue",
	KindString:    "stringValue",
	KindBytes:     "bytesValue",
	KindReference: "referenceValue",
	KindGeoPoint:  "geoPointValue",
	KindArray:     "arrayValue",
	KindMap:       "mapValue",
}

// String returns the JSON member name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "invalid"
}

// Fields is a wire-typed field map.
type Fields map[string]Value

// LatLng is a geographic point.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Value is a single typed field value. Exactly one kind is set.
type Value struct {
	kind Kind
	b    bool
	i    int64
	d    float64
	s    string // string and reference
	t    time.Time
	raw  []byte
	geo  LatLng
	arr  []Value
	m    Fields
}

// Null creates a null value.
func Null() Value { return Value{kind: KindNull} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Integer creates an integer value.
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

// Double creates a double value.
func Double(d float64) Value { return Value{kind: KindDouble, d: d} }

// Timestamp creates a timestamp value.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t} }

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes creates a bytes value.
func Bytes(b []byte) Value { return Value{kind: KindBytes, raw: b} }

// Reference creates a document reference value holding a resource name.
func Reference(name string) Value { return Value{kind: KindReference, s: name} }

// GeoPoint creates a geo point value.
func GeoPoint(ll LatLng) Value { return Value{kind: KindGeoPoint, geo: ll} }

// Array creates an array value.
func Array(values ...Value) Value { return Value{kind: KindArray, arr: values} }

// Map creates a map value.
func Map(fields Fields) Value { return Value{kind: KindMap, m: fields} }

// Kind reports which member is set.
func (v Value) Kind() Kind { return v.kind }

// BoolValue returns the boolean member.
func (v Value) BoolValue() bool { return v.b }

// IntegerValue returns the integer member.
func (v Value) IntegerValue() int64 { return v.i }

// DoubleValue returns the double member.
func (v Value) DoubleValue() float64 { return v.d }

// TimestampValue returns the timestamp member.
func (v Value) TimestampValue() time.Time { return v.t }

// StringValue returns the string member.
func (v Value) StringValue() string { return v.s }

// BytesValue returns the bytes member.
func (v Value) BytesValue() []byte { return v.raw }

// ReferenceValue returns the referenced resource name.
func (v Value) ReferenceValue() string { return v.s }

// GeoPointValue returns the geo point member.
func (v Value) GeoPointValue() LatLng { return v.geo }

// ArrayValue returns the array elements.
func (v Value) ArrayValue() []Value { return v.arr }

// MapValue returns the nested fields.
func (v Value) MapValue() Fields { return v.m }

type arrayPayload struct {
	Values []Value `json:"values,omitempty"`
}

type mapPayload struct {
	Fields Fields `json:"fields,omitempty"`
}

// MarshalJSON encodes the value as a single-member object.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindNull:
		payload = "NULL_VALUE"
	case KindBoolean:
		payload = v.b
	case KindInteger:
		payload = strconv.FormatInt(v.i, 10)
	case KindDouble:
		payload = encodeDouble(v.d)
	case KindTimestamp:
		payload = v.t.UTC().Format(time.RFC3339Nano)
	case KindString, KindReference:
		payload = v.s
	case KindBytes:
		payload = v.raw
	case KindGeoPoint:
		payload = v.geo
	case KindArray:
		payload = arrayPayload{Values: v.arr}
	case KindMap:
		payload = mapPayload{Fields: v.m}
	default:
		return nil, errors.New("wire: marshal value without kind")
	}
	out, err := json.Marshal(map[string]any{v.kind.String(): payload})
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %s: %w", v.kind, err)
	}
	return out, nil
}

func encodeDouble(d float64) any {
	switch {
	case math.IsNaN(d):
		return "NaN"
	case math.IsInf(d, 1):
		return "Infinity"
	case math.IsInf(d, -1):
		return "-Infinity"
	default:
		return d
	}
}

// UnmarshalJSON decodes a single-member value object.
func (v *Value) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("wire: value: %w", err)
	}
	if len(members) != 1 {
		return fmt.Errorf("wire: value must have exactly one member, got %d", len(members))
	}
	for name, raw := range members {
		return v.decodeMember(name, raw)
	}
	return nil
}

func (v *Value) decodeMember(name string, raw json.RawMessage) error {
	switch name {
	case "nullValue":
		*v = Null()
	case "booleanValue":
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("wire: %s: %w", name, err)
		}
		*v = Bool(b)
	case "integerValue":
		i, err := decodeInteger(raw)
		if err != nil {
			return fmt.Errorf("wire: %s: %w", name, err)
		}
		*v = Integer(i)
	case "doubleValue":
		d, err := decodeDouble(raw)
		if err != nil {
			return fmt.Errorf("wire: %s: %w", name, err)
		}
		*v = Double(d)
	case "timestampValue":
		var t time.Time
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("wire: %s: %w", name, err)
		}
		*v = Timestamp(t)
	case "stringValue", "referenceValue":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("wire: %s: %w", name, err)
		}
		if name == "stringValue" {
			*v = String(s)
		} else {
			*v = Reference(s)
		}
	case "bytesValue":
		var b []byte
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("wire: %s: %w", name, err)
		}
		*v = Bytes(b)
	case "geoPointValue":
		var ll LatLng
		if err := json.Unmarshal(raw, &ll); err != nil {
			return fmt.Errorf("wire: %s: %w", name, err)
		}
		*v = GeoPoint(ll)
	case "arrayValue":
		var p arrayPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("wire: %s: %w", name, err)
		}
		*v = Array(p.Values...)
	case "mapValue":
		var p mapPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("wire: %s: %w", name, err)
		}
		if p.Fields == nil {
			p.Fields = Fields{}
		}
		*v = Map(p.Fields)
	default:
		return fmt.Errorf("wire: unknown value kind %q", name)
	}
	return nil
}

// decodeInteger accepts the canonical decimal string and a bare JSON number.
func decodeInteger(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse integer: %w", err)
		}
		return i, nil
	}
	var i int64
	if err := json.Unmarshal(raw, &i); err != nil {
		return 0, fmt.Errorf("parse integer: %w", err)
	}
	return i, nil
}

func decodeDouble(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse double: %w", err)
		}
		return d, nil
	}
	var d float64
	if err := json.Unmarshal(raw, &d); err != nil {
		return 0, fmt.Errorf("parse double: %w", err)
	}
	return d, nil
}
