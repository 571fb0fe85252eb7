package predicate

import (
	"cmp"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/firerest/internal/codec"
)

// looseEqual follows abstract (coercive) equality for scalars:
// numbers compare by value across Go types, a number and a numeric string
// compare as numbers, booleans coerce to 1/0. Composite values compare
// structurally.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
		return looseEqual(boolToNumber(ab), b)
	}
	if bb, ok := b.(bool); ok {
		return looseEqual(a, boolToNumber(bb))
	}

	as, aStr := a.(string)
	bs, bStr := b.(string)
	switch {
	case aStr && bStr:
		return as == bs
	case aStr:
		if bn, ok := toNumber(b); ok {
			return numbersEqual(stringToNumber(as), bn)
		}
		return false
	case bStr:
		if an, ok := toNumber(a); ok {
			return numbersEqual(an, stringToNumber(bs))
		}
		return false
	}

	if an, ok := toNumber(a); ok {
		bn, ok := toNumber(b)
		return ok && numbersEqual(an, bn)
	}
	return structuralEqual(a, b)
}

// strictEqual compares without string/boolean coercion; numbers of
// different Go types still compare by value.
func strictEqual(a, b any) bool {
	an, aNum := toNumber(a)
	bn, bNum := toNumber(b)
	if aNum || bNum {
		return aNum && bNum && numbersEqual(an, bn)
	}
	return structuralEqual(a, b)
}

func structuralEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	na, errA := normalizeOperand(a)
	nb, errB := normalizeOperand(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return codec.Equal(na, nb)
}

// normalizeOperand brings a caller literal into decoded form so that
// []string{"x"} equals a decoded []any{"x"}.
func normalizeOperand(v any) (any, error) {
	m, err := codec.Normalize(map[string]any{"v": v})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

// compare orders two values the way relational operators do: strings
// lexicographically, timestamps chronologically, everything else after
// numeric coercion. ok is false when the values are incomparable.
func compare(a, b any) (int, bool) {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), true
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb), true
		}
		return 0, false
	}
	if _, ok := b.(time.Time); ok {
		return 0, false
	}

	an, ok := relationalNumber(a)
	if !ok {
		return 0, false
	}
	bn, ok := relationalNumber(b)
	if !ok {
		return 0, false
	}
	return compareNumbers(an, bn)
}

// relationalNumber coerces a relational operand: null is 0, booleans 1/0,
// strings parse as numbers. NaN results are incomparable.
func relationalNumber(v any) (number, bool) {
	var n number
	switch x := v.(type) {
	case nil:
		n = number{kind: intKind}
	case bool:
		n = boolToNumber(x)
	case string:
		n = stringToNumber(x)
	default:
		var ok bool
		n, ok = toNumber(v)
		if !ok {
			return number{}, false
		}
	}
	if n.kind == floatKind && math.IsNaN(n.f) {
		return number{}, false
	}
	return n, true
}

type numberKind uint8

const (
	intKind numberKind = iota
	uintKind
	floatKind
)

// number keeps integers exact; only mixed integer/float pairs compare as float64.
type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func (n number) float() float64 {
	switch n.kind {
	case intKind:
		return float64(n.i)
	case uintKind:
		return float64(n.u)
	default:
		return n.f
	}
}

// compareNumbers orders two numbers. ok is false when either side is NaN.
func compareNumbers(a, b number) (int, bool) {
	switch {
	case a.kind == intKind && b.kind == intKind:
		return cmp.Compare(a.i, b.i), true
	case a.kind == uintKind && b.kind == uintKind:
		return cmp.Compare(a.u, b.u), true
	case a.kind == intKind && b.kind == uintKind:
		if a.i < 0 {
			return -1, true
		}
		return cmp.Compare(uint64(a.i), b.u), true
	case a.kind == uintKind && b.kind == intKind:
		if b.i < 0 {
			return 1, true
		}
		return cmp.Compare(a.u, uint64(b.i)), true
	}
	af, bf := a.float(), b.float()
	if math.IsNaN(af) || math.IsNaN(bf) {
		return 0, false
	}
	return cmp.Compare(af, bf), true
}

func numbersEqual(a, b number) bool {
	c, ok := compareNumbers(a, b)
	return ok && c == 0
}

func toNumber(v any) (number, bool) {
	if n, ok := v.(number); ok {
		return n, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: intKind, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{kind: uintKind, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return number{kind: floatKind, f: rv.Float()}, true
	default:
		return number{}, false
	}
}

// stringToNumber converts like a numeric coercion: blank is 0, junk is NaN.
// Integer literals stay exact.
func stringToNumber(s string) number {
	s = strings.TrimSpace(s)
	if s == "" {
		return number{kind: intKind}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return number{kind: intKind, i: i}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return number{kind: floatKind, f: math.NaN()}
	}
	return number{kind: floatKind, f: f}
}

func boolToNumber(b bool) number {
	if b {
		return number{kind: intKind, i: 1}
	}
	return number{kind: intKind}
}
