package firerest

import (
	"github.com/kailas-cloud/firerest/internal/codec"
	"github.com/kailas-cloud/firerest/internal/domain/predicate"
)

// Operator is a Where comparison operator.
type Operator = predicate.Operator

// Supported operators.
const (
	GreaterThan    = predicate.GreaterThan
	LessThan       = predicate.LessThan
	GreaterOrEqual = predicate.GreaterOrEqual
	LessOrEqual    = predicate.LessOrEqual
	Equal          = predicate.Equal
	ArrayContains  = predicate.ArrayContains
)

// GeoPoint is a latitude/longitude field value.
type GeoPoint = codec.GeoPoint

// ReferenceValue is a field value holding another document's resource name.
type ReferenceValue = codec.Reference
