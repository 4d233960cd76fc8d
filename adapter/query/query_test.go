package query

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/gemongo/domain"
)

type D = bson.D
type A = bson.A

type QueryTestSuite struct {
	suite.Suite
	f *Filter
}

func (s *QueryTestSuite) SetupTest() {
	s.f = New()
}

// expr returns the expression of a match made of a single leaf.
func (s *QueryTestSuite) expr(m *Match) any {
	f := m.Filter()
	s.Require().Len(f, 1)
	s.Require().Equal("$and", f[0].Key)
	and := f[0].Value.(A)
	s.Require().Len(and, 1)
	or := and[0].(D)[0].Value.(A)
	s.Require().Len(or, 1)
	leaf := or[0].(D)
	s.Require().Equal("$expr", leaf[0].Key)
	return leaf[0].Value
}

func lit(v any) D { return D{{Key: "$literal", Value: v}} }

func (s *QueryTestSuite) TestKey() {
	s.Equal(D{{Key: "$and", Value: A{
		D{{Key: "$or", Value: A{
			D{{Key: "$expr", Value: D{{Key: "$eq", Value: A{"$key", lit("k")}}}}},
		}}},
	}}}, s.f.Key().Equal("k").Filter())
}

func (s *QueryTestSuite) TestLeafKinds() {
	testCases := []struct {
		name  string
		match func(v *Value) *Match
		typ   int32
		field string
		op    string
		value any
	}{
		{"truthy", func(v *Value) *Match { return v.Bool().Truthy() }, 1, "$data.bool", "$eq", true},
		{"falsy", func(v *Value) *Match { return v.Bool().Falsy() }, 1, "$data.bool", "$eq", false},
		{"number", func(v *Value) *Match { return v.Number().GreaterThan(1.5) }, 2, "$data.num", "$gt", 1.5},
		{"integer", func(v *Value) *Match { return v.Integer().LessThanEqual(7) }, 3, "$data.big", "$lte", int64(7)},
		{"compare", func(v *Value) *Match { return v.Integer().Compare(NotEqual, 7) }, 3, "$data.big", "$ne", int64(7)},
		{"string", func(v *Value) *Match { return v.String().NotEqual("x") }, 4, "$data.str", "$ne", "x"},
		{"regex", func(v *Value) *Match { return v.Regex().Equal(primitive.Regex{Pattern: "a"}) }, 6, "$data.regex", "$eq", primitive.Regex{Pattern: "a"}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(D{{Key: "$cond", Value: A{
				D{{Key: "$eq", Value: A{"$data.type", tc.typ}}},
				D{{Key: tc.op, Value: A{tc.field, lit(tc.value)}}},
				false,
			}}}, s.expr(tc.match(s.f.Data())))
		})
	}
}

func (s *QueryTestSuite) TestDateLiteralIsTruncated() {
	t := time.Date(2024, 1, 2, 3, 4, 5, 6_789_000, time.FixedZone("x", 3600))
	res := s.expr(s.f.Data().Date().Equal(t)).(D)
	cmp := res[0].Value.(A)[1].(D)
	s.Equal(D{{Key: "$eq", Value: A{"$data.date", lit(time.UnixMilli(t.UnixMilli()).UTC())}}}, cmp)
}

func (s *QueryTestSuite) TestObjGet() {
	s.Equal(D{{Key: "$let", Value: D{
		{Key: "vars", Value: D{{Key: "a", Value: D{{Key: "$cond", Value: A{
			D{{Key: "$eq", Value: A{"$data.type", int32(12)}}},
			D{{Key: "$arrayElemAt", Value: A{"$refs", "$data.ref"}}},
			"$data",
		}}}}}},
		{Key: "in", Value: D{{Key: "$cond", Value: A{
			D{{Key: "$eq", Value: A{"$$a.type", int32(11)}}},
			D{{Key: "$let", Value: D{
				{Key: "vars", Value: D{{Key: "b", Value: "$$a.obj.x"}}},
				{Key: "in", Value: D{{Key: "$cond", Value: A{
					D{{Key: "$eq", Value: A{"$$b.type", int32(2)}}},
					D{{Key: "$eq", Value: A{"$$b.num", lit(1.0)}}},
					false,
				}}}},
			}}},
			false,
		}}}},
	}}}, s.expr(s.f.Data().MustObjGet("x").Number().Equal(1)))
}

func (s *QueryTestSuite) TestMapGet() {
	res := s.expr(s.f.Data().MustMapGet("k").Nullish()).(D)
	in := res[0].Value.(D)[1].Value.(D)
	branch := in[0].Value.(A)
	s.Equal(D{{Key: "$eq", Value: A{"$$a.type", int32(10)}}}, branch[0])
	s.Equal(D{{Key: "vars", Value: D{{Key: "b", Value: "$$a.map.k"}}}}, branch[1].(D)[0].Value.(D)[:1])
}

func (s *QueryTestSuite) TestInvalidKey() {
	for _, key := range []string{"", "$a", "a.b", "a\x00b"} {
		_, err := s.f.Data().ObjGet(key)
		s.ErrorIs(err, domain.ErrInvalidKey{Key: key})
		_, err = s.f.Data().MapGet(key)
		s.ErrorIs(err, domain.ErrInvalidKey{Key: key})
		s.Panics(func() { s.f.Data().MustObjGet(key) })
		s.Panics(func() { s.f.Data().MustMapGet(key) })
	}
	v, err := s.f.Data().ObjGet("a$b")
	s.NoError(err)
	s.NotNil(v)
}

func (s *QueryTestSuite) TestNullish() {
	s.Equal(D{{Key: "$or", Value: A{
		D{{Key: "$eq", Value: A{D{{Key: "$type", Value: "$data"}}, "missing"}}},
		D{{Key: "$eq", Value: A{"$data", nil}}},
		D{{Key: "$eq", Value: A{"$data.type", int32(0)}}},
	}}}, s.expr(s.f.Data().Nullish()))
}

func (s *QueryTestSuite) TestTypeOf() {
	s.Equal(D{{Key: "$eq", Value: A{"$data.type", lit(int32(8))}}},
		s.expr(s.f.Data().TypeOf(domain.KindArray, false)))

	s.Equal(D{{Key: "$cond", Value: A{
		D{{Key: "$or", Value: A{
			D{{Key: "$eq", Value: A{"$data.type", lit(int32(8))}}},
			D{{Key: "$eq", Value: A{"$data.type", int32(12)}}},
		}}},
		D{{Key: "$let", Value: D{
			{Key: "vars", Value: D{{Key: "a", Value: D{{Key: "$cond", Value: A{
				D{{Key: "$eq", Value: A{"$data.type", int32(12)}}},
				D{{Key: "$arrayElemAt", Value: A{"$refs", "$data.ref"}}},
				"$data",
			}}}}}},
			{Key: "in", Value: D{{Key: "$eq", Value: A{"$$a.type", lit(int32(8))}}}},
		}}},
		false,
	}}}, s.expr(s.f.Data().TypeOf(domain.KindArray, true)))
}

func (s *QueryTestSuite) TestArray() {
	res := s.expr(s.f.Data().Array().At(-1).String().Equal("x")).(D)
	in := res[0].Value.(D)[1].Value.(D)
	let := in[0].Value.(A)[1].(D)[0].Value.(D)
	s.Equal(D{{Key: "b", Value: D{{Key: "$arrayElemAt", Value: A{"$$a.arr", lit(-1)}}}}}, let[0].Value)

	res = s.expr(s.f.Data().Set().Length().GreaterThan(2)).(D)
	in = res[0].Value.(D)[1].Value.(D)
	s.Equal(D{{Key: "$gt", Value: A{D{{Key: "$size", Value: "$$a.set"}}, lit(2)}}}, in[0].Value.(A)[1])

	for name, item := range map[string]func(*Array) *Value{
		"$first": (*Array).First,
		"$last":  (*Array).Last,
	} {
		res = s.expr(item(s.f.Data().Array()).Nullish()).(D)
		in = res[0].Value.(D)[1].Value.(D)
		let = in[0].Value.(A)[1].(D)[0].Value.(D)
		s.Equal(D{{Key: "b", Value: D{{Key: name, Value: "$$a.arr"}}}}, let[0].Value)
	}
}

func (s *QueryTestSuite) TestLengths() {
	res := s.expr(s.f.Data().ByteLength().Equal(4)).(D)
	in := res[0].Value.(D)[1].Value.(D)
	s.Equal(D{{Key: "$eq", Value: A{"$$a.type", int32(7)}}}, in[0].Value.(A)[0])
	s.Equal(D{{Key: "$eq", Value: A{D{{Key: "$binarySize", Value: "$$a.buf"}}, lit(4)}}}, in[0].Value.(A)[1])

	res = s.expr(s.f.Data().String().Length().LessThan(3)).(D)
	s.Equal(D{{Key: "$lt", Value: A{D{{Key: "$strLenCP", Value: "$data.str"}}, lit(3)}}}, res[0].Value.(A)[1])
}

func (s *QueryTestSuite) TestStringMatch() {
	res := s.expr(s.f.Key().Match(primitive.Regex{Pattern: "^a", Options: "xsmiu"}))
	s.Equal(D{{Key: "$regexMatch", Value: D{
		{Key: "input", Value: "$key"},
		{Key: "regex", Value: lit("^a")},
		{Key: "options", Value: lit("ims")},
	}}}, res)

	res = s.expr(s.f.Key().MatchRegexp(regexp.MustCompile(`(?i)b+`)))
	s.Equal(lit(`(?i)b+`), res.(D)[0].Value.(D)[1].Value)
}

func (s *QueryTestSuite) TestDate() {
	t := time.UnixMilli(1000).UTC()
	res := s.expr(s.f.Data().Date().Diff(t).GreaterThan(0)).(D)
	let := res[0].Value.(A)[1].(D)[0].Value.(D)
	s.Equal(D{{Key: "a", Value: D{{Key: "$dateDiff", Value: D{
		{Key: "startDate", Value: "$data.date"},
		{Key: "endDate", Value: lit(t)},
		{Key: "unit", Value: "millisecond"},
	}}}}}, let[0].Value)
	s.Equal(D{{Key: "$gt", Value: A{"$$a", lit(0.0)}}}, let[1].Value)

	parts := map[string]func(*Date) *Number{
		"$millisecond": (*Date).Millisecond,
		"$second":      (*Date).Second,
		"$minute":      (*Date).Minute,
		"$hour":        (*Date).Hour,
		"$dayOfMonth":  (*Date).Day,
		"$month":       (*Date).Month,
		"$year":        (*Date).Year,
	}
	for name, part := range parts {
		res = s.expr(part(s.f.Data().Date()).Equal(1)).(D)
		let = res[0].Value.(A)[1].(D)[0].Value.(D)
		s.Equal(D{{Key: "a", Value: D{{Key: name, Value: "$data.date"}}}}, let[0].Value)
	}
}

func (s *QueryTestSuite) TestScopeNamesAreUnique() {
	v := s.f.Data()
	for range 30 {
		v = v.MustObjGet("x")
	}
	names := map[string]int{}
	collectLets(v.tree.filter(), names)
	s.Len(names, 60)
	for name, count := range names {
		s.Equal(1, count, name)
	}
	s.Contains(names, "aa")
	s.Contains(names, "bh")
}

func collectLets(v any, names map[string]int) {
	switch t := v.(type) {
	case D:
		for _, e := range t {
			if e.Key == "$let" {
				vars := e.Value.(D)[0].Value.(D)
				names[vars[0].Key]++
			}
			collectLets(e.Value, names)
		}
	case A:
		for _, e := range t {
			collectLets(e, names)
		}
	}
}

func (s *QueryTestSuite) TestUnfilledSlot() {
	m := newMatch(s.f.Data().tree)
	s.Equal(D{}, s.expr(m))
}

func (s *QueryTestSuite) TestAndOr() {
	leaf := func(k string) *Match { return s.f.Key().Equal(k) }
	filter := func(k string) D { return leaf(k).Filter() }
	expr := func(k string) D {
		return D{{Key: "$expr", Value: D{{Key: "$eq", Value: A{"$key", lit(k)}}}}}
	}

	s.Equal(D{{Key: "$and", Value: A{
		D{{Key: "$or", Value: A{expr("a")}}},
		D{{Key: "$or", Value: A{filter("b"), filter("c")}}},
	}}}, leaf("a").And(leaf("b")).Or(leaf("c")).Filter())

	s.Equal(D{{Key: "$and", Value: A{
		D{{Key: "$or", Value: A{expr("a"), filter("b")}}},
		D{{Key: "$or", Value: A{filter("c")}}},
	}}}, leaf("a").Or(leaf("b")).And(leaf("c")).Filter())

	m := leaf("a")
	s.Same(m, m.And(leaf("b")))
	s.Same(m, m.Or(leaf("c")))
}

func (s *QueryTestSuite) TestSelfReference() {
	m := s.f.Key().Equal("a")
	m.Or(m)
	s.Equal(D{{Key: "$and", Value: A{
		D{{Key: "$or", Value: A{
			D{{Key: "$expr", Value: D{{Key: "$eq", Value: A{"$key", lit("a")}}}}},
			s.f.Key().Equal("a").Filter(),
		}}},
	}}}, m.Filter())
}

func (s *QueryTestSuite) TestValueClone() {
	v := s.f.Data().MustObjGet("x")
	clone := v.Clone()

	first := v.Number().Equal(1)
	second := clone.String().Equal("s")

	s.Contains(fmt.Sprint(first.Filter()), "$$b.num")
	s.NotContains(fmt.Sprint(first.Filter()), "$$b.str")
	s.Contains(fmt.Sprint(second.Filter()), "$$b.str")
	s.NotContains(fmt.Sprint(second.Filter()), "$$b.num")
}

func (s *QueryTestSuite) TestMatchClone() {
	v := s.f.Data()
	m := v.Bool().Truthy()
	clone := m.Clone()
	before := clone.Filter()

	v.Integer().Equal(3)
	s.NotEqual(before, m.Filter())
	s.Equal(before, clone.Filter())

	clone.And(s.f.Key().Equal("k"))
	s.Len(m.groups, 1)
	s.Len(clone.groups, 2)
}

func (s *QueryTestSuite) TestOperatorValid() {
	for _, o := range []Operator{Equal, NotEqual, GreaterThan, GreaterThanEqual, LessThan, LessThanEqual} {
		s.True(o.Valid())
	}
	s.False(Operator("$in").Valid())
}

func (s *QueryTestSuite) TestCompareRejectsOperator() {
	bad := Operator("$function")
	want := ErrInvalidOperator{Operator: bad}
	now := time.Now()

	s.PanicsWithValue(want, func() { s.f.Data().Number().Compare(bad, 1) })
	s.PanicsWithValue(want, func() { s.f.Data().Integer().Compare(bad, 1) })
	s.PanicsWithValue(want, func() { s.f.Data().Date().Compare(bad, now) })
	s.PanicsWithValue(want, func() { s.f.Data().String().Length().Compare(bad, 1) })
	s.PanicsWithValue(want, func() { s.f.Data().Array().Length().Compare(bad, 1) })
	s.EqualError(want, `invalid comparison operator "$function"`)

	s.NotPanics(func() { s.f.Data().Number().Compare(GreaterThan, 1) })
	s.NotPanics(func() { s.f.Key().Length().Compare(LessThanEqual, 3) })
}

func TestQueryTestSuite(t *testing.T) {
	suite.Run(t, new(QueryTestSuite))
}
