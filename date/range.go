package date

import "fmt"

// Range represents a range of dates.
type Range struct{ From, To Date }

// NewRange returns the range [from, to].
func NewRange(from, to Date) Range { return Range{From: from, To: to} }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return (!date.Before(r.From) && !date.After(r.To)) }

// Identifier compute a unique identifier for the Range.
func (r Range) Identifier() string { return fmt.Sprintf("%s_%s", r.From, r.To) }

func (r Range) String() string { return fmt.Sprintf("[%s, %s]", r.From, r.To) }
