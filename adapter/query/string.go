package query

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// String reads a string node.
type String struct {
	node
}

// Equal matches strings equal to v.
func (s *String) Equal(v string) *Match { return s.compare(Equal, v) }

// NotEqual matches strings different from v.
func (s *String) NotEqual(v string) *Match { return s.compare(NotEqual, v) }

// Length reads the number of code points of the string.
func (s *String) Length() *Length {
	return &Length{node: s.node, operator: "$strLenCP"}
}

// Match matches strings accepted by re. Only the i, m and s options are
// kept; the store rejects the others inside $regexMatch.
func (s *String) Match(re primitive.Regex) *Match {
	s.slot.set(op("$regexMatch", bson.D{
		{Key: "input", Value: s.path},
		{Key: "regex", Value: literal(re.Pattern)},
		{Key: "options", Value: literal(regexOptions(re.Options))},
	}))
	return s.match()
}

// MatchRegexp is like [String.Match] for a compiled expression. Flags must be
// written inline, as in (?i)abc.
func (s *String) MatchRegexp(re *regexp.Regexp) *Match {
	return s.Match(primitive.Regex{Pattern: re.String()})
}

func regexOptions(options string) string {
	var b strings.Builder
	for _, flag := range "ims" {
		if strings.ContainsRune(options, flag) {
			b.WriteRune(flag)
		}
	}
	return b.String()
}
