package evaluator

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/gemongo/domain"
	"github.com/vinicius-lino-figueiredo/gemongo/pkg/structure"
)

// missing is the value of a path that leads nowhere. It is not null: the
// store tells them apart in comparisons and in $type.
type missing struct{}

var absent = missing{}

// fromRaw converts a BSON document into bson.D, bson.A and the Go values used
// by the rest of the package: nil, bool, int32, int64, float64, string,
// time.Time, primitive.Regex and primitive.Binary.
func fromRaw(raw bson.Raw) (bson.D, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, err
	}
	res := make(bson.D, len(elems))
	for n, elem := range elems {
		value, err := fromRawValue(elem.Value())
		if err != nil {
			return nil, err
		}
		res[n] = bson.E{Key: elem.Key(), Value: value}
	}
	return res, nil
}

func fromRawValue(v bson.RawValue) (any, error) {
	switch v.Type {
	case bson.TypeNull, bson.TypeUndefined:
		return nil, nil
	case bson.TypeBoolean:
		return v.Boolean(), nil
	case bson.TypeInt32:
		return v.Int32(), nil
	case bson.TypeInt64:
		return v.Int64(), nil
	case bson.TypeDouble:
		return v.Double(), nil
	case bson.TypeString:
		return v.StringValue(), nil
	case bson.TypeDateTime:
		return time.UnixMilli(v.DateTime()).UTC(), nil
	case bson.TypeRegex:
		pattern, options := v.Regex()
		return primitive.Regex{Pattern: pattern, Options: options}, nil
	case bson.TypeBinary:
		subtype, data := v.Binary()
		return primitive.Binary{Subtype: subtype, Data: data}, nil
	case bson.TypeEmbeddedDocument:
		return fromRaw(v.Document())
	case bson.TypeArray:
		values, err := v.Array().Values()
		if err != nil {
			return nil, err
		}
		res := make(bson.A, len(values))
		for n, item := range values {
			if res[n], err = fromRawValue(item); err != nil {
				return nil, err
			}
		}
		return res, nil
	default:
		return nil, domain.ErrUnsupportedType{Type: v.Type.String()}
	}
}

// typeName returns the name $type reports for v.
func typeName(v any) string {
	switch v.(type) {
	case missing:
		return "missing"
	case nil:
		return "null"
	case bool:
		return "bool"
	case int32:
		return "int"
	case int64:
		return "long"
	case float64:
		return "double"
	case string:
		return "string"
	case time.Time:
		return "date"
	case primitive.Regex:
		return "regex"
	case primitive.Binary:
		return "binData"
	case bson.A:
		return "array"
	case bson.D:
		return "object"
	default:
		return "unknown"
	}
}

// truthy follows the aggregation rules: false, null, missing and every zero
// number are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case missing, nil:
		return false
	case bool:
		return t
	case int32:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

func nullish(v any) bool {
	switch v.(type) {
	case missing, nil:
		return true
	default:
		return false
	}
}

// asInt64 reads an integral number.
func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int32, int64:
	case float64:
		if t < math.MinInt64 || t >= math.MaxInt64 {
			return 0, false
		}
	default:
		return 0, false
	}
	i, ok := structure.AsInteger(v)
	return int64(i), ok
}

func isMissing(v any) bool {
	_, ok := v.(missing)
	return ok
}
