// Package date implements a day-granular Date used to key every time series.
//
// All series coming from upstream providers are stamped with instants (Unix
// seconds), monthly or daily keys. They are joined by Date, never by instant, so
// the conversion from an instant to a Date must go through FromUnix or FromTime
// which truncate to the UTC day.
package date

import (
	"encoding/json"
	"fmt"
	"time"
)

const readDateFormat = "2006-1-2" // Permissive read date format (allows single-digit month/day).

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02" // write date format

const Day = 24 * time.Hour

// Date represents a date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// time returns a time.Time that is a canonical representation of that day (at midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// FromTime returns the UTC calendar day of t.
func FromTime(t time.Time) Date { return New(t.UTC().Date()) }

// FromUnix returns the UTC calendar day of a Unix timestamp in seconds.
//
// This is the single place where upstream timestamps become lookup keys.
func FromUnix(sec int64) Date { return FromTime(time.Unix(sec, 0)) }

// Today returns the current date.
func Today() Date { return FromTime(time.Now()) }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Year returns current year.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// Day returns current day of the month.
func (d Date) Day() int { return d.d }

// Weekday returns the day of the week for the date.
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// IsWeekday reports whether d falls on Monday to Friday.
func (d Date) IsWeekday() bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// StartOfMonth returns the first day of the month of d.
func (d Date) StartOfMonth() Date { return New(d.y, d.m, 1) }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Add returns a new Date with the given number of days added.
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

// AddMonths returns a new Date with the given number of months added.
func (d Date) AddMonths(i int) Date { return New(d.y, d.m+time.Month(i), d.d) }

// Sub returns the number of days between x and d (d - x).
func (d Date) Sub(x Date) int { return int(d.time().Sub(x.time()) / Day) }

// Unix returns the Unix timestamp of midnight UTC on d.
func (d Date) Unix() int64 { return d.time().Unix() }

// Format formats the date using a time layout.
func (d Date) Format(layout string) string { return d.time().Format(layout) }

// String format the date in its standard format.
func (d Date) String() string { return d.time().Format(DateFormat) }

// Parse parses a Date from a string. It is lenient and accepts formats like "2025-7-1".
func Parse(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, str)
	// We use a slightly more permisive format for read, to support 2025-7-1 instead of 2025-07-01
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, readDateFormat, err)
	}
	return New(on.Date()), nil
}

// ParseLayout parses a Date with an explicit layout, e.g. "02/01/2006" for BCB dates.
func ParseLayout(layout, str string) (Date, error) {
	on, err := time.Parse(layout, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, layout, err)
	}
	return New(on.Date()), nil
}

// UnmarshalJSON implements the json specific way to unmarshall a date from a json string.
func (j *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	d, err := Parse(str)
	if err != nil {
		return err
	}
	*j = d
	return nil
}

func (j Date) MarshalJSON() ([]byte, error) {
	str := j.String()
	return json.Marshal(&str)
}

// check that a Date pointer is a valid json marshall/unmarshaller type.
var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)
