package binding

import "time"

// DefaultTimeLayout is the TEXT layout used for time.Time values unless a
// connection is configured otherwise. Millisecond precision, no zone: the
// zone is fixed by the format's location.
const DefaultTimeLayout = "2006-01-02T15:04:05.000"

// DefaultTimeFormat formats with DefaultTimeLayout in UTC.
var DefaultTimeFormat TimeFormat = LayoutFormat{Layout: DefaultTimeLayout, Location: time.UTC}

// TimeFormat converts between time.Time and its stored TEXT form.
type TimeFormat interface {
	Format(t time.Time) string
	Parse(s string) (time.Time, error)
}

// LayoutFormat is a TimeFormat backed by a time package layout.
type LayoutFormat struct {
	Layout string
	// Location is the zone times are rendered in and parsed as. Nil means
	// UTC.
	Location *time.Location
}

func (f LayoutFormat) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

func (f LayoutFormat) Format(t time.Time) string {
	return t.In(f.location()).Format(f.Layout)
}

func (f LayoutFormat) Parse(s string) (time.Time, error) {
	return time.ParseInLocation(f.Layout, s, f.location())
}
