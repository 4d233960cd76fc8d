package evaluator

import (
	"maps"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// eval evaluates an aggregation expression. Strings starting with $ are field
// paths, strings starting with $$ read variables and documents with a single
// $-prefixed key are operators.
func (ev *evaluation) eval(expr any, vars map[string]any) (any, error) {
	switch t := expr.(type) {
	case string:
		if strings.HasPrefix(t, "$") {
			return ev.path(t, vars)
		}
		return t, nil
	case bson.A:
		res := make(bson.A, len(t))
		for n, item := range t {
			v, err := ev.eval(item, vars)
			if err != nil {
				return nil, err
			}
			// missing items become null inside arrays
			if _, ok := v.(missing); ok {
				v = nil
			}
			res[n] = v
		}
		return res, nil
	case bson.D:
		if len(t) == 1 && strings.HasPrefix(t[0].Key, "$") {
			return ev.operator(t[0].Key, t[0].Value, vars)
		}
		res := make(bson.D, 0, len(t))
		for _, e := range t {
			v, err := ev.eval(e.Value, vars)
			if err != nil {
				return nil, err
			}
			if _, ok := v.(missing); ok {
				continue
			}
			res = append(res, bson.E{Key: e.Key, Value: v})
		}
		return res, nil
	default:
		return t, nil
	}
}

func (ev *evaluation) path(expr string, vars map[string]any) (any, error) {
	var base any
	var rest string
	if name, ok := strings.CutPrefix(expr, "$$"); ok {
		name, rest, _ = strings.Cut(name, ".")
		switch name {
		case "ROOT", "CURRENT":
			base = ev.root
		default:
			v, ok := vars[name]
			if !ok {
				return nil, ErrUnknownVariable{Name: name}
			}
			base = v
		}
	} else {
		base, rest = ev.root, expr[1:]
	}
	if rest == "" {
		return base, nil
	}
	return lookup(base, strings.Split(rest, ".")), nil
}

// lookup walks a dotted path. Arrays along the way are traversed element by
// element, keeping only the elements where the rest of the path exists.
func lookup(v any, parts []string) any {
	if len(parts) == 0 {
		return v
	}
	switch t := v.(type) {
	case bson.D:
		for _, e := range t {
			if e.Key == parts[0] {
				return lookup(e.Value, parts[1:])
			}
		}
		return absent
	case bson.A:
		res := bson.A{}
		for _, item := range t {
			if found := lookup(item, parts); !isMissing(found) {
				res = append(res, found)
			}
		}
		return res
	default:
		return absent
	}
}

func (ev *evaluation) operator(op string, arg any, vars map[string]any) (any, error) {
	switch op {
	case "$literal":
		return arg, nil
	case "$eq", "$ne", "$gt", "$gte", "$lt", "$lte":
		args, err := ev.args(op, arg, 2, vars)
		if err != nil {
			return nil, err
		}
		return comparison(op, compare(args[0], args[1])), nil
	case "$and", "$or":
		return ev.logicalExpr(op, arg, vars)
	case "$not":
		args, err := ev.args(op, arg, 1, vars)
		if err != nil {
			return nil, err
		}
		return !truthy(args[0]), nil
	case "$cond":
		return ev.cond(arg, vars)
	case "$let":
		return ev.let(arg, vars)
	case "$type":
		args, err := ev.args(op, arg, 1, vars)
		if err != nil {
			return nil, err
		}
		return typeName(args[0]), nil
	case "$arrayElemAt":
		return ev.arrayElemAt(arg, vars)
	case "$first", "$last":
		return ev.edge(op, arg, vars)
	case "$size":
		args, err := ev.args(op, arg, 1, vars)
		if err != nil {
			return nil, err
		}
		arr, ok := args[0].(bson.A)
		if !ok {
			return nil, ErrArgType{Op: op, Want: "array", Actual: typeName(args[0])}
		}
		return int32(len(arr)), nil
	case "$binarySize":
		args, err := ev.args(op, arg, 1, vars)
		if err != nil {
			return nil, err
		}
		switch t := args[0].(type) {
		case missing, nil:
			return nil, nil
		case string:
			return int32(len(t)), nil
		case primitive.Binary:
			return int32(len(t.Data)), nil
		default:
			return nil, ErrArgType{Op: op, Want: "string or binData", Actual: typeName(t)}
		}
	case "$strLenCP":
		args, err := ev.args(op, arg, 1, vars)
		if err != nil {
			return nil, err
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, ErrArgType{Op: op, Want: "string", Actual: typeName(args[0])}
		}
		return int32(utf8.RuneCountInString(s)), nil
	case "$regexMatch":
		return ev.regexMatch(arg, vars)
	case "$dateDiff":
		return ev.dateDiff(arg, vars)
	case "$millisecond", "$second", "$minute", "$hour", "$dayOfMonth", "$month", "$year":
		return ev.datePart(op, arg, vars)
	default:
		return nil, ErrUnknownOperator{Operator: op}
	}
}

// args evaluates the arguments of an operator. A single argument may be given
// without the enclosing array.
func (ev *evaluation) args(op string, arg any, want int, vars map[string]any) ([]any, error) {
	list, ok := arg.(bson.A)
	if !ok {
		list = bson.A{arg}
	}
	if len(list) != want {
		return nil, ErrArgCount{Op: op, Want: want, Got: len(list)}
	}
	res := make([]any, len(list))
	for n, item := range list {
		v, err := ev.eval(item, vars)
		if err != nil {
			return nil, err
		}
		res[n] = v
	}
	return res, nil
}

// named reads the arguments of operators that take a document.
func named(op string, arg any) (map[string]any, error) {
	d, ok := arg.(bson.D)
	if !ok {
		return nil, ErrArgType{Op: op, Want: "object", Actual: typeName(arg)}
	}
	res := make(map[string]any, len(d))
	for _, e := range d {
		res[e.Key] = e.Value
	}
	return res, nil
}

func comparison(op string, c int) bool {
	switch op {
	case "$eq":
		return c == 0
	case "$ne":
		return c != 0
	case "$gt":
		return c > 0
	case "$gte":
		return c >= 0
	case "$lt":
		return c < 0
	default:
		return c <= 0
	}
}

// logicalExpr evaluates the $and and $or expression operators.
func (ev *evaluation) logicalExpr(op string, arg any, vars map[string]any) (any, error) {
	list, ok := arg.(bson.A)
	if !ok {
		list = bson.A{arg}
	}
	for _, item := range list {
		v, err := ev.eval(item, vars)
		if err != nil {
			return nil, err
		}
		if op == "$or" && truthy(v) {
			return true, nil
		}
		if op == "$and" && !truthy(v) {
			return false, nil
		}
	}
	return op == "$and", nil
}

func (ev *evaluation) cond(arg any, vars map[string]any) (any, error) {
	var test, then, otherwise any
	switch t := arg.(type) {
	case bson.A:
		if len(t) != 3 {
			return nil, ErrArgCount{Op: "$cond", Want: 3, Got: len(t)}
		}
		test, then, otherwise = t[0], t[1], t[2]
	default:
		args, err := named("$cond", arg)
		if err != nil {
			return nil, err
		}
		test, then, otherwise = args["if"], args["then"], args["else"]
	}
	v, err := ev.eval(test, vars)
	if err != nil {
		return nil, err
	}
	if truthy(v) {
		return ev.eval(then, vars)
	}
	return ev.eval(otherwise, vars)
}

func (ev *evaluation) let(arg any, vars map[string]any) (any, error) {
	args, err := named("$let", arg)
	if err != nil {
		return nil, err
	}
	bindings, ok := args["vars"].(bson.D)
	if !ok {
		return nil, ErrArgType{Op: "$let", Want: "object", Actual: typeName(args["vars"])}
	}
	scope := maps.Clone(vars)
	if scope == nil {
		scope = make(map[string]any, len(bindings))
	}
	for _, b := range bindings {
		// bindings are evaluated in the enclosing scope
		v, err := ev.eval(b.Value, vars)
		if err != nil {
			return nil, err
		}
		scope[b.Key] = v
	}
	return ev.eval(args["in"], scope)
}

func (ev *evaluation) arrayElemAt(arg any, vars map[string]any) (any, error) {
	args, err := ev.args("$arrayElemAt", arg, 2, vars)
	if err != nil {
		return nil, err
	}
	if nullish(args[0]) || nullish(args[1]) {
		return nil, nil
	}
	arr, ok := args[0].(bson.A)
	if !ok {
		return nil, ErrArgType{Op: "$arrayElemAt", Want: "array", Actual: typeName(args[0])}
	}
	i, ok := asInt64(args[1])
	if !ok {
		return nil, ErrArgType{Op: "$arrayElemAt", Want: "integral number", Actual: typeName(args[1])}
	}
	if i < 0 {
		i += int64(len(arr))
	}
	if i < 0 || i >= int64(len(arr)) {
		return absent, nil
	}
	return arr[i], nil
}

func (ev *evaluation) edge(op string, arg any, vars map[string]any) (any, error) {
	args, err := ev.args(op, arg, 1, vars)
	if err != nil {
		return nil, err
	}
	if nullish(args[0]) {
		return nil, nil
	}
	arr, ok := args[0].(bson.A)
	if !ok {
		return nil, ErrArgType{Op: op, Want: "array", Actual: typeName(args[0])}
	}
	if len(arr) == 0 {
		return absent, nil
	}
	if op == "$first" {
		return arr[0], nil
	}
	return arr[len(arr)-1], nil
}

func (ev *evaluation) regexMatch(arg any, vars map[string]any) (any, error) {
	args, err := named("$regexMatch", arg)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, 3)
	for _, name := range []string{"input", "regex", "options"} {
		v, err := ev.eval(args[name], vars)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	if nullish(values["input"]) {
		return false, nil
	}
	input, ok := values["input"].(string)
	if !ok {
		return nil, ErrArgType{Op: "$regexMatch", Want: "string", Actual: typeName(values["input"])}
	}

	var pattern, options string
	switch t := values["regex"].(type) {
	case string:
		pattern = t
	case primitive.Regex:
		pattern, options = t.Pattern, t.Options
	default:
		return nil, ErrArgType{Op: "$regexMatch", Want: "string or regex", Actual: typeName(t)}
	}
	if opts, ok := values["options"].(string); ok {
		options += opts
	}

	re, err := compileRegex(pattern, options)
	if err != nil {
		return nil, err
	}
	return re.MatchString(input), nil
}

// compileRegex translates the i, m and s options into inline flags. Other
// options have no counterpart and are ignored.
func compileRegex(pattern, options string) (*regexp.Regexp, error) {
	var flags strings.Builder
	for _, flag := range "ims" {
		if strings.ContainsRune(options, flag) {
			flags.WriteRune(flag)
		}
	}
	if flags.Len() > 0 {
		pattern = "(?" + flags.String() + ")" + pattern
	}
	return regexp.Compile(pattern)
}

var dateUnits = map[string]int64{
	"millisecond": 1,
	"second":      1000,
	"minute":      60 * 1000,
	"hour":        60 * 60 * 1000,
	"day":         24 * 60 * 60 * 1000,
}

// dateDiff counts the unit boundaries crossed between the two dates, in UTC.
func (ev *evaluation) dateDiff(arg any, vars map[string]any) (any, error) {
	args, err := named("$dateDiff", arg)
	if err != nil {
		return nil, err
	}
	var dates [2]time.Time
	for n, name := range []string{"startDate", "endDate"} {
		v, err := ev.eval(args[name], vars)
		if err != nil {
			return nil, err
		}
		if nullish(v) {
			return nil, nil
		}
		t, ok := v.(time.Time)
		if !ok {
			return nil, ErrArgType{Op: "$dateDiff", Want: "date", Actual: typeName(v)}
		}
		dates[n] = t
	}
	unit, err := ev.eval(args["unit"], vars)
	if err != nil {
		return nil, err
	}
	name, _ := unit.(string)
	size, ok := dateUnits[name]
	if !ok {
		return nil, ErrArgType{Op: "$dateDiff", Want: "time unit", Actual: typeName(unit)}
	}
	return floorDiv(dates[1].UnixMilli(), size) - floorDiv(dates[0].UnixMilli(), size), nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

func (ev *evaluation) datePart(op string, arg any, vars map[string]any) (any, error) {
	if d, ok := arg.(bson.D); ok && len(d) > 0 && d[0].Key == "date" {
		arg = d[0].Value
	}
	args, err := ev.args(op, arg, 1, vars)
	if err != nil {
		return nil, err
	}
	if nullish(args[0]) {
		return nil, nil
	}
	t, ok := args[0].(time.Time)
	if !ok {
		return nil, ErrArgType{Op: op, Want: "date", Actual: typeName(args[0])}
	}
	t = t.UTC()
	switch op {
	case "$millisecond":
		return int32(t.Nanosecond() / int(time.Millisecond)), nil
	case "$second":
		return int32(t.Second()), nil
	case "$minute":
		return int32(t.Minute()), nil
	case "$hour":
		return int32(t.Hour()), nil
	case "$dayOfMonth":
		return int32(t.Day()), nil
	case "$month":
		return int32(t.Month()), nil
	default:
		return int32(t.Year()), nil
	}
}
