package timing

import "fmt"

// A Tag is a point in superdense time. Tags sharing the same Time are ordered
// by their Microstep.
type Tag struct {
	Time      VTime
	Microstep uint64
}

// MakeTag creates a tag.
func MakeTag(t VTime, microstep uint64) Tag {
	return Tag{Time: t, Microstep: microstep}
}

// Compare returns -1, 0 or 1 if the tag is earlier than, equal to, or later
// than o.
func (g Tag) Compare(o Tag) int {
	if c := g.Time.Compare(o.Time); c != 0 {
		return c
	}

	switch {
	case g.Microstep < o.Microstep:
		return -1
	case g.Microstep > o.Microstep:
		return 1
	default:
		return 0
	}
}

// Before tells if the tag is strictly earlier than o.
func (g Tag) Before(o Tag) bool {
	return g.Compare(o) < 0
}

// After tells if the tag is strictly later than o.
func (g Tag) After(o Tag) bool {
	return g.Compare(o) > 0
}

// Equal tells if both tags name the same instant.
func (g Tag) Equal(o Tag) bool {
	return g == o
}

// NextMicrostep returns the tag one microstep later at the same time.
func (g Tag) NextMicrostep() Tag {
	return Tag{Time: g.Time, Microstep: g.Microstep + 1}
}

func (g Tag) String() string {
	return fmt.Sprintf("(%s, %d)", g.Time, g.Microstep)
}
