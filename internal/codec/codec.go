// Package codec converts between plain Go values and wire-typed field maps.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/kailas-cloud/firerest/internal/domain"
	"github.com/kailas-cloud/firerest/internal/wire"
)

// Reference is a document resource name stored as a reference value.
type Reference string

// GeoPoint is a latitude/longitude pair.
type GeoPoint = wire.LatLng

var (
	timeType      = reflect.TypeOf(time.Time{})
	bytesType     = reflect.TypeOf([]byte(nil))
	geoPointType  = reflect.TypeOf(GeoPoint{})
	referenceType = reflect.TypeOf(Reference(""))
)

// Encode converts plain data into a wire field map.
func Encode(data map[string]any) (wire.Fields, error) {
	fields := make(wire.Fields, len(data))
	for k, v := range data {
		wv, err := EncodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = wv
	}
	return fields, nil
}

// EncodeValue converts a single Go value into its wire representation.
func EncodeValue(v any) (wire.Value, error) {
	switch x := v.(type) {
	case nil:
		return wire.Null(), nil
	case wire.Value:
		return x, nil
	case bool:
		return wire.Bool(x), nil
	case string:
		return wire.String(x), nil
	case int:
		return wire.Integer(int64(x)), nil
	case int64:
		return wire.Integer(x), nil
	case float64:
		return wire.Double(x), nil
	case json.Number:
		return encodeNumber(x)
	case time.Time:
		return wire.Timestamp(x), nil
	case []byte:
		return wire.Bytes(x), nil
	case Reference:
		return wire.Reference(string(x)), nil
	case GeoPoint:
		return wire.GeoPoint(x), nil
	case map[string]any:
		fields, err := Encode(x)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Map(fields), nil
	case []any:
		return encodeSlice(reflect.ValueOf(x))
	}
	return encodeReflect(reflect.ValueOf(v))
}

func encodeNumber(n json.Number) (wire.Value, error) {
	if i, err := n.Int64(); err == nil {
		return wire.Integer(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return wire.Value{}, fmt.Errorf("number %q: %w", n, domain.ErrUnsupportedValue)
	}
	return wire.Double(f), nil
}

func encodeReflect(rv reflect.Value) (wire.Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return wire.Null(), nil
		}
		return EncodeValue(rv.Elem().Interface())
	case reflect.Bool:
		return wire.Bool(rv.Bool()), nil
	case reflect.String:
		if rv.Type() == referenceType {
			return wire.Reference(rv.String()), nil
		}
		return wire.String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return wire.Integer(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return wire.Value{}, fmt.Errorf("uint %d overflows int64: %w", u, domain.ErrUnsupportedValue)
		}
		return wire.Integer(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return wire.Double(rv.Float()), nil
	case reflect.Slice:
		if rv.IsNil() {
			return wire.Null(), nil
		}
		if rv.Type().ConvertibleTo(bytesType) && rv.Type().Elem().Kind() == reflect.Uint8 {
			return wire.Bytes(rv.Convert(bytesType).Bytes()), nil
		}
		return encodeSlice(rv)
	case reflect.Array:
		return encodeSlice(rv)
	case reflect.Map:
		return encodeMap(rv)
	case reflect.Struct:
		switch rv.Type() {
		case timeType:
			return wire.Timestamp(rv.Interface().(time.Time)), nil //nolint:forcetypeassert // type checked above
		case geoPointType:
			return wire.GeoPoint(rv.Interface().(GeoPoint)), nil //nolint:forcetypeassert // type checked above
		}
	}
	return wire.Value{}, fmt.Errorf("%s: %w", describe(rv), domain.ErrUnsupportedValue)
}

func encodeSlice(rv reflect.Value) (wire.Value, error) {
	values := make([]wire.Value, rv.Len())
	for i := range values {
		v, err := EncodeValue(rv.Index(i).Interface())
		if err != nil {
			return wire.Value{}, fmt.Errorf("index %d: %w", i, err)
		}
		values[i] = v
	}
	return wire.Array(values...), nil
}

func encodeMap(rv reflect.Value) (wire.Value, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return wire.Value{}, fmt.Errorf("map key %s: %w", rv.Type().Key(), domain.ErrUnsupportedValue)
	}
	if rv.IsNil() {
		return wire.Null(), nil
	}
	fields := make(wire.Fields, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		v, err := EncodeValue(iter.Value().Interface())
		if err != nil {
			return wire.Value{}, fmt.Errorf("key %q: %w", k, err)
		}
		fields[k] = v
	}
	return wire.Map(fields), nil
}

func describe(rv reflect.Value) string {
	if !rv.IsValid() {
		return "invalid value"
	}
	return "type " + rv.Type().String()
}

// Decode converts a wire field map into plain data. Decoding is total:
// a value without a kind decodes to nil.
func Decode(fields wire.Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = DecodeValue(v)
	}
	return out
}

// DecodeValue converts a single wire value into a plain Go value:
// nil, bool, int64, float64, time.Time, string, []byte, Reference,
// GeoPoint, []any or map[string]any.
func DecodeValue(v wire.Value) any {
	switch v.Kind() {
	case wire.KindBoolean:
		return v.BoolValue()
	case wire.KindInteger:
		return v.IntegerValue()
	case wire.KindDouble:
		return v.DoubleValue()
	case wire.KindTimestamp:
		return v.TimestampValue()
	case wire.KindString:
		return v.StringValue()
	case wire.KindBytes:
		return v.BytesValue()
	case wire.KindReference:
		return Reference(v.ReferenceValue())
	case wire.KindGeoPoint:
		return v.GeoPointValue()
	case wire.KindArray:
		arr := v.ArrayValue()
		out := make([]any, len(arr))
		for i, e := range arr {
			out[i] = DecodeValue(e)
		}
		return out
	case wire.KindMap:
		return Decode(v.MapValue())
	default:
		return nil
	}
}

// Normalize passes plain data through an encode/decode cycle so values of
// different Go spellings (int vs int64, []string vs []any) compare equal.
func Normalize(data map[string]any) (map[string]any, error) {
	fields, err := Encode(data)
	if err != nil {
		return nil, err
	}
	return Decode(fields), nil
}

// Equal reports whether two decoded values are structurally equal.
// Timestamps compare by instant.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}
