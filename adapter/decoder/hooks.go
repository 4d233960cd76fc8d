package decoder

import (
	"math/big"
	"reflect"
	"regexp"

	"github.com/mitchellh/mapstructure"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	regexpType = reflect.TypeFor[*regexp.Regexp]()
	bigIntType = reflect.TypeFor[*big.Int]()
)

// decodeHook converts the decoded forms of regular expressions and integers
// into the host types they were most likely encoded from.
var decodeHook = mapstructure.ComposeDecodeHookFunc(
	regexpHook,
	bigIntHook,
)

func regexpHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	re, ok := data.(primitive.Regex)
	if !ok || to != regexpType {
		return data, nil
	}
	pattern := re.Pattern
	if re.Options != "" {
		pattern = "(?" + re.Options + ")" + pattern
	}
	return regexp.Compile(pattern)
}

func bigIntHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	i, ok := data.(int64)
	if !ok || to != bigIntType {
		return data, nil
	}
	return big.NewInt(i), nil
}
