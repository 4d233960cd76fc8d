package query

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/gemongo/pkg/scope"
)

// Date reads a date node. Dates are stored with millisecond precision in
// UTC, so every part is read in UTC.
type Date struct {
	node
	namer *scope.Namer
}

// Compare matches the node against v with the given operator. It panics
// with [ErrInvalidOperator] if o is not a comparison operator.
func (d *Date) Compare(o Operator, v time.Time) *Match {
	return d.compare(o, millis(v))
}

// Equal matches dates equal to v.
func (d *Date) Equal(v time.Time) *Match { return d.Compare(Equal, v) }

// NotEqual matches dates different from v.
func (d *Date) NotEqual(v time.Time) *Match { return d.Compare(NotEqual, v) }

// GreaterThan matches dates after v.
func (d *Date) GreaterThan(v time.Time) *Match { return d.Compare(GreaterThan, v) }

// GreaterThanEqual matches dates at or after v.
func (d *Date) GreaterThanEqual(v time.Time) *Match { return d.Compare(GreaterThanEqual, v) }

// LessThan matches dates before v.
func (d *Date) LessThan(v time.Time) *Match { return d.Compare(LessThan, v) }

// LessThanEqual matches dates at or before v.
func (d *Date) LessThanEqual(v time.Time) *Match { return d.Compare(LessThanEqual, v) }

// Diff reads the milliseconds from the stored date to v.
func (d *Date) Diff(v time.Time) *Number {
	return &Number{node: d.bind(d.namer, op("$dateDiff", bson.D{
		{Key: "startDate", Value: d.path},
		{Key: "endDate", Value: literal(millis(v))},
		{Key: "unit", Value: "millisecond"},
	}))}
}

// Millisecond reads the millisecond of the second in UTC.
func (d *Date) Millisecond() *Number { return d.part("$millisecond") }

// Second reads the second of the minute in UTC.
func (d *Date) Second() *Number { return d.part("$second") }

// Minute reads the minute of the hour in UTC.
func (d *Date) Minute() *Number { return d.part("$minute") }

// Hour reads the hour of the day in UTC.
func (d *Date) Hour() *Number { return d.part("$hour") }

// Day reads the day of the month in UTC.
func (d *Date) Day() *Number { return d.part("$dayOfMonth") }

// Month reads the month in UTC, from 1 to 12.
func (d *Date) Month() *Number { return d.part("$month") }

// Year reads the year in UTC.
func (d *Date) Year() *Number { return d.part("$year") }

func (d *Date) part(operator string) *Number {
	return &Number{node: d.bind(d.namer, op(operator, d.path))}
}

func millis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
