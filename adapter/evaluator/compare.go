package evaluator

import (
	"bytes"
	"cmp"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// typeOrder ranks values of different types the way the store does when it
// compares them.
func typeOrder(v any) int {
	switch v.(type) {
	case missing:
		return 0
	case nil:
		return 1
	case int32, int64, float64:
		return 2
	case string:
		return 3
	case bson.D:
		return 4
	case bson.A:
		return 5
	case primitive.Binary:
		return 6
	case bool:
		return 8
	case time.Time:
		return 9
	case primitive.Regex:
		return 11
	default:
		return 12
	}
}

// compare returns -1, 0 or 1 as a is lower than, equal to or greater than b.
func compare(a, b any) int {
	if c := cmp.Compare(typeOrder(a), typeOrder(b)); c != 0 {
		return c
	}
	switch x := a.(type) {
	case int32, int64, float64:
		return compareNumbers(x, b)
	case string:
		return strings.Compare(x, b.(string))
	case bson.D:
		return compareDocuments(x, b.(bson.D))
	case bson.A:
		return compareArrays(x, b.(bson.A))
	case primitive.Binary:
		y := b.(primitive.Binary)
		if c := cmp.Compare(len(x.Data), len(y.Data)); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Subtype, y.Subtype); c != 0 {
			return c
		}
		return bytes.Compare(x.Data, y.Data)
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case time.Time:
		return x.Compare(b.(time.Time))
	case primitive.Regex:
		y := b.(primitive.Regex)
		if c := strings.Compare(x.Pattern, y.Pattern); c != 0 {
			return c
		}
		return strings.Compare(x.Options, y.Options)
	default:
		return 0
	}
}

// compareNumbers compares across numeric types. Integers are compared exactly
// and NaN is lower than every other number.
func compareNumbers(a, b any) int {
	ia, aInt := a.(int64)
	if i32, ok := a.(int32); ok {
		ia, aInt = int64(i32), true
	}
	ib, bInt := b.(int64)
	if i32, ok := b.(int32); ok {
		ib, bInt = int64(i32), true
	}
	if aInt && bInt {
		return cmp.Compare(ia, ib)
	}
	fa, fb := toFloat(a), toFloat(b)
	switch {
	case math.IsNaN(fa) && math.IsNaN(fb):
		return 0
	case math.IsNaN(fa):
		return -1
	case math.IsNaN(fb):
		return 1
	}
	return cmp.Compare(fa, fb)
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v.(float64)
	}
}

// compareDocuments compares field by field: first the value types, then the
// keys, then the values.
func compareDocuments(a, b bson.D) int {
	for n := range min(len(a), len(b)) {
		if c := cmp.Compare(typeOrder(a[n].Value), typeOrder(b[n].Value)); c != 0 {
			return c
		}
		if c := strings.Compare(a[n].Key, b[n].Key); c != 0 {
			return c
		}
		if c := compare(a[n].Value, b[n].Value); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareArrays(a, b bson.A) int {
	for n := range min(len(a), len(b)) {
		if c := compare(a[n], b[n]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}
