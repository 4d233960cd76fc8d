package encoder

import (
	"errors"
	"math"
	"math/big"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/gemongo/domain"
)

type M = domain.M

type keyGeneratorMock struct{ mock.Mock }

// GenerateKey implements [domain.KeyGenerator].
func (k *keyGeneratorMock) GenerateKey() (string, error) {
	call := k.Called()
	return call.String(0), call.Error(1)
}

func null() domain.Node { return domain.Node{Kind: domain.KindNull} }

func num(f float64) domain.Node { return domain.Node{Kind: domain.KindNumber, Num: f} }

func integer(i int64) domain.Node { return domain.Node{Kind: domain.KindInteger64, Big: i} }

func str(s string) domain.Node { return domain.Node{Kind: domain.KindString, Str: s} }

func obj(fields ...domain.Field) domain.Node {
	if fields == nil {
		fields = domain.Fields{}
	}
	return domain.Node{Kind: domain.KindObject, Obj: fields}
}

func arr(nodes ...domain.Node) domain.Node {
	if nodes == nil {
		nodes = []domain.Node{}
	}
	return domain.Node{Kind: domain.KindArray, Arr: nodes}
}

func field(k string, v domain.Node) domain.Field { return domain.Field{Key: k, Value: v} }

type EncoderTestSuite struct {
	suite.Suite
	enc *Encoder
}

func (s *EncoderTestSuite) SetupTest() {
	s.enc = NewEncoder().(*Encoder)
}

func (s *EncoderTestSuite) TestPrimitives() {
	date := time.Date(2024, 2, 29, 10, 30, 15, 123456789, time.FixedZone("X", 3600))
	type myString string
	type myInt int16
	testCases := []struct {
		name     string
		value    any
		expected domain.Node
	}{
		{"nil", nil, null()},
		{"nilPointer", (*int)(nil), null()},
		{"nilMap", map[string]any(nil), null()},
		{"nilSlice", []int(nil), null()},
		{"nilRegexp", (*regexp.Regexp)(nil), null()},
		{"true", true, domain.Node{Kind: domain.KindBool, Bool: true}},
		{"false", false, domain.Node{Kind: domain.KindBool}},
		{"float64", 1.5, num(1.5)},
		{"float32", float32(0.5), num(0.5)},
		{"negativeZero", math.Copysign(0, -1), num(math.Copysign(0, -1))},
		{"int", 42, integer(42)},
		{"int8", int8(-8), integer(-8)},
		{"uint32", uint32(7), integer(7)},
		{"namedInt", myInt(3), integer(3)},
		{"bigInt", big.NewInt(-99), integer(-99)},
		{"string", "hello", str("hello")},
		{"emptyString", "", str("")},
		{"namedString", myString("x"), str("x")},
		{"pointerToString", func() *string { v := "p"; return &v }(), str("p")},
		{"date", date, domain.Node{Kind: domain.KindDate, Date: time.UnixMilli(date.UnixMilli()).UTC()}},
		{"dateTime", primitive.NewDateTimeFromTime(date), domain.Node{Kind: domain.KindDate, Date: time.UnixMilli(date.UnixMilli()).UTC()}},
		{"regex", primitive.Regex{Pattern: "^a", Options: "xsi"}, domain.Node{Kind: domain.KindRegex, Regex: primitive.Regex{Pattern: "^a", Options: "is"}}},
		{"regexp", regexp.MustCompile(`^b+$`), domain.Node{Kind: domain.KindRegex, Regex: primitive.Regex{Pattern: `^b+$`}}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			root, refs, err := s.enc.Generate(tc.value)
			s.NoError(err)
			s.Equal(tc.expected, root)
			s.NotNil(refs)
			s.Empty(refs)
		})
	}
}

func (s *EncoderTestSuite) TestDateIsUTCMilliseconds() {
	date := time.Date(2024, 2, 29, 10, 30, 15, 123456789, time.FixedZone("X", 3600))
	root, _, err := s.enc.Generate(date)
	s.NoError(err)
	s.Equal(time.UTC, root.Date.Location())
	s.Equal(123000000, root.Date.Nanosecond())
	s.Equal(9, root.Date.Hour())
}

func (s *EncoderTestSuite) TestIntegerOverflowWraps() {
	root, _, err := s.enc.Generate(uint64(1 << 63))
	s.NoError(err)
	s.Equal(integer(math.MinInt64), root)

	over := new(big.Int).Add(big.NewInt(math.MaxInt64), big.NewInt(1))
	root, _, err = s.enc.Generate(over)
	s.NoError(err)
	s.Equal(integer(math.MinInt64), root)

	root, _, err = s.enc.Generate(uint64(math.MaxUint64))
	s.NoError(err)
	s.Equal(integer(-1), root)
}

func (s *EncoderTestSuite) TestBytes() {
	root, refs, err := s.enc.Generate([]byte("abc"))
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{{Kind: domain.KindBytes, Buf: []byte("abc")}}, refs)

	root, refs, err = s.enc.Generate([2]byte{1, 2})
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{{Kind: domain.KindBytes, Buf: []byte{1, 2}}}, refs)

	root, refs, err = s.enc.Generate(primitive.Binary{Subtype: 0x80, Data: []byte{9}})
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{{Kind: domain.KindBytes, Buf: []byte{9}}}, refs)
}

func (s *EncoderTestSuite) TestBytesAreCopied() {
	buf := []byte("abc")
	_, refs, err := s.enc.Generate(buf)
	s.NoError(err)
	buf[0] = 'z'
	s.Equal([]byte("abc"), refs[0].Buf)
}

// Covers a nested object with an inner array. Slots follow the order in which
// the composites are first visited.
func (s *EncoderTestSuite) TestNestedSlotOrder() {
	root, refs, err := s.enc.Generate(M{"a": []any{1, "x", M{"b": 2}}})
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{
		obj(field("a", domain.RefTo(1))),
		arr(integer(1), str("x"), domain.RefTo(2)),
		obj(field("b", integer(2))),
	}, refs)
}

func (s *EncoderTestSuite) TestSetAndMap() {
	root, refs, err := s.enc.Generate(domain.Set{1.5, domain.Map{"k": "v"}})
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{
		{Kind: domain.KindSet, Set: []domain.Node{num(1.5), domain.RefTo(1)}},
		{Kind: domain.KindMap, Map: domain.Fields{field("k", str("v"))}},
	}, refs)
}

func (s *EncoderTestSuite) TestEmptyComposites() {
	_, refs, err := s.enc.Generate(M{"a": []int{}, "b": M{}, "c": [0]string{}})
	s.NoError(err)
	s.Equal([]domain.Node{
		obj(field("a", domain.RefTo(1)), field("b", domain.RefTo(2)), field("c", domain.RefTo(3))),
		arr(),
		obj(),
		arr(),
	}, refs)
}

func (s *EncoderTestSuite) TestStruct() {
	type inner struct {
		Value int `gemongo:"value"`
	}
	type outer struct {
		Name    string   `gemongo:"name"`
		Inner   inner    `gemongo:"inner"`
		Ptr     *inner   `gemongo:"ptr,omitempty"`
		Tags    []string `gemongo:"tags"`
		Skip    string   `gemongo:"-"`
		private int
	}
	root, refs, err := s.enc.Generate(&outer{Name: "n", Inner: inner{Value: 1}, Tags: []string{"t"}, Skip: "s", private: 2})
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{
		obj(field("name", str("n")), field("inner", domain.RefTo(1)), field("tags", domain.RefTo(2))),
		obj(field("value", integer(1))),
		arr(str("t")),
	}, refs)
}

func (s *EncoderTestSuite) TestTagName() {
	type doc struct {
		Name string `json:"name"`
	}
	s.enc = NewEncoder(WithTagName("json")).(*Encoder)
	_, refs, err := s.enc.Generate(doc{Name: "x"})
	s.NoError(err)
	s.Equal([]domain.Node{obj(field("name", str("x")))}, refs)
}

func (s *EncoderTestSuite) TestSanitization() {
	_, refs, err := s.enc.Generate(M{"$bad": 1, "a.b": 2, "c\x00": 3, "ok$": 4, "ok": M{"$nested": 5}})
	s.NoError(err)
	s.Equal([]domain.Node{
		obj(field("ok", domain.RefTo(1)), field("ok$", integer(4))),
		obj(),
	}, refs)

	_, refs, err = s.enc.Generate(domain.Map{"$x": 1, "y": 2})
	s.NoError(err)
	s.Equal([]domain.Node{{Kind: domain.KindMap, Map: domain.Fields{field("y", integer(2))}}}, refs)
}

func (s *EncoderTestSuite) TestCycle() {
	a := M{}
	a["self"] = a
	root, refs, err := s.enc.Generate(a)
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{obj(field("self", domain.RefTo(0)))}, refs)

	type node struct {
		Next *node
	}
	n := &node{}
	n.Next = n
	root, refs, err = s.enc.Generate(n)
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{obj(field("Next", domain.RefTo(0)))}, refs)

	list := make([]any, 1)
	list[0] = list
	root, refs, err = s.enc.Generate(list)
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{arr(domain.RefTo(0))}, refs)
}

func (s *EncoderTestSuite) TestArrayPointerCycle() {
	type pair [2]any
	var p pair
	p[0] = &p
	p[1] = "x"

	root, refs, err := s.enc.Generate(&p)
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{arr(domain.RefTo(0), str("x"))}, refs)

	root, refs, err = s.enc.Generate(p)
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{
		arr(domain.RefTo(1), str("x")),
		arr(domain.RefTo(1), str("x")),
	}, refs)
}

func (s *EncoderTestSuite) TestSharedArrayPointer() {
	arrayPtr := &[1]int{7}
	_, refs, err := s.enc.Generate([]any{arrayPtr, arrayPtr})
	s.NoError(err)
	s.Equal([]domain.Node{
		arr(domain.RefTo(1), domain.RefTo(1)),
		arr(integer(7)),
	}, refs)
}

func (s *EncoderTestSuite) TestPointerCycle() {
	var x any
	x = &x
	_, _, err := s.enc.Generate(x)
	s.ErrorIs(err, domain.ErrCyclicPointer{Type: "*interface {}"})
	s.ErrorAs(err, new(domain.ErrEncode))

	var y any
	z := any(&y)
	y = &z
	_, _, err = s.enc.Generate(M{"a": &y})
	s.ErrorAs(err, new(domain.ErrCyclicPointer))

	// the same pointer twice in a row is not a cycle
	v := 5
	root, refs, err := s.enc.Generate([]any{&v, &v})
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{arr(integer(5), integer(5))}, refs)
}

func (s *EncoderTestSuite) TestShared() {
	shared := M{"v": 1}
	root, refs, err := s.enc.Generate([]any{shared, shared})
	s.NoError(err)
	s.Equal(domain.RefTo(0), root)
	s.Equal([]domain.Node{
		arr(domain.RefTo(1), domain.RefTo(1)),
		obj(field("v", integer(1))),
	}, refs)

	list := []int{1, 2, 3}
	_, refs, err = s.enc.Generate(M{"a": list, "b": list, "c": list[:2]})
	s.NoError(err)
	s.Equal([]domain.Node{
		obj(field("a", domain.RefTo(1)), field("b", domain.RefTo(1)), field("c", domain.RefTo(2))),
		arr(integer(1), integer(2), integer(3)),
		arr(integer(1), integer(2)),
	}, refs)
}

// Two equal values are not the same value.
func (s *EncoderTestSuite) TestEqualIsNotShared() {
	_, refs, err := s.enc.Generate([]any{M{"v": 1}, M{"v": 1}})
	s.NoError(err)
	s.Len(refs, 3)

	type point struct{ X int }
	p := point{X: 1}
	_, refs, err = s.enc.Generate([]any{p, p})
	s.NoError(err)
	s.Len(refs, 3)
}

func (s *EncoderTestSuite) TestUnsupported() {
	_, _, err := s.enc.Generate(make(chan int))
	s.ErrorIs(err, domain.ErrUnsupportedType{Type: "chan int"})

	_, _, err = s.enc.Generate(M{"x": []any{1, 2, 3, func() {}}})
	var ee domain.ErrEncode
	s.Require().ErrorAs(err, &ee)
	s.Equal(domain.Path{{Kind: domain.KindObject, Key: "x"}, {Kind: domain.KindArray, Index: 3}}, ee.Path)
	s.EqualError(err, "type 'func()' is not supported at obj 'x' -> arr 3")

	_, _, err = s.enc.Generate(M{"m": map[int]string{1: "a"}})
	s.ErrorIs(err, domain.ErrUnsupportedType{Type: "map[int]string"})

	_, _, err = s.enc.Generate(complex(1, 2))
	s.ErrorIs(err, domain.ErrUnsupportedType{Type: "complex128"})

	_, _, err = s.enc.Generate(domain.Set{domain.Map{"k": make(chan bool)}})
	s.EqualError(err, "type 'chan bool' is not supported at set 0 -> map 'k'")
}

func (s *EncoderTestSuite) TestDocument() {
	kg := new(keyGeneratorMock)
	kg.On("GenerateKey").Return("generated", nil).Once()
	s.enc = NewEncoder(WithKeyGenerator(kg)).(*Encoder)

	doc, err := s.enc.Document("", 1)
	s.NoError(err)
	s.Equal(domain.EncodedDocument{Key: "generated", Data: integer(1), Refs: []domain.Node{}}, doc)

	doc, err = s.enc.Document("given", M{})
	s.NoError(err)
	s.Equal("given", doc.Key)
	s.Equal(domain.RefTo(0), doc.Data)
	kg.AssertExpectations(s.T())
}

func (s *EncoderTestSuite) TestDocumentErrors() {
	errKey := errors.New("no entropy")
	kg := new(keyGeneratorMock)
	kg.On("GenerateKey").Return("", errKey).Once()
	s.enc = NewEncoder(WithKeyGenerator(kg)).(*Encoder)

	_, err := s.enc.Document("", 1)
	s.ErrorIs(err, errKey)

	_, err = s.enc.Document("k", make(chan int))
	s.ErrorAs(err, new(domain.ErrEncode))
}

func (s *EncoderTestSuite) TestDefaultKeyGenerator() {
	doc, err := s.enc.Document("", nil)
	s.NoError(err)
	s.Len(doc.Key, 36)
}

func TestEncoderTestSuite(t *testing.T) {
	suite.Run(t, new(EncoderTestSuite))
}
