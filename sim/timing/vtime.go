// Package timing defines simulated time for the discrete-event kernel.
//
// Time is kept as an integer number of ticks rather than floating-point
// seconds, so that repeatedly adding the same increment never drifts away from
// a single large addition. A Tag extends a time with a microstep, giving the
// superdense time model used by the director.
package timing

import (
	"math"
	"strconv"
)

// TicksPerSecond is the number of ticks in one simulated second. One tick is
// the time resolution of the kernel.
const TicksPerSecond = 10_000_000_000

// VTime is a point in (or a span of) simulated time, counted in ticks.
type VTime int64

const (
	// PositiveInfinity is a time that is never reached.
	PositiveInfinity VTime = math.MaxInt64

	// NegativeInfinity is a time that has always already elapsed.
	NegativeInfinity VTime = math.MinInt64

	// Zero is the start of every simulation.
	Zero VTime = 0

	// Tick is the smallest representable time increment.
	Tick VTime = 1
)

// FromSeconds converts seconds into a VTime, rounding to the nearest tick.
// Values beyond the representable range saturate at the infinities.
func FromSeconds(sec float64) VTime {
	if math.IsNaN(sec) {
		panic("timing: NaN is not a valid time")
	}

	ticks := math.Round(sec * TicksPerSecond)
	if ticks >= math.MaxInt64 {
		return PositiveInfinity
	}

	if ticks <= math.MinInt64 {
		return NegativeInfinity
	}

	return VTime(ticks)
}

// Seconds returns a VTime that lasts n whole seconds.
func Seconds(n int64) VTime {
	return VTime(0).Add(scale(n, TicksPerSecond))
}

// Milliseconds returns a VTime that lasts n milliseconds.
func Milliseconds(n int64) VTime {
	return VTime(0).Add(scale(n, TicksPerSecond/1000))
}

func scale(n, factor int64) VTime {
	if n > math.MaxInt64/factor {
		return PositiveInfinity
	}

	if n < math.MinInt64/factor {
		return NegativeInfinity
	}

	return VTime(n * factor)
}

// InSec converts the time into floating-point seconds.
func (t VTime) InSec() float64 {
	switch t {
	case PositiveInfinity:
		return math.Inf(1)
	case NegativeInfinity:
		return math.Inf(-1)
	}

	return float64(t) / TicksPerSecond
}

// IsInfinite tells if the time is one of the two sentinel values.
func (t VTime) IsInfinite() bool {
	return t == PositiveInfinity || t == NegativeInfinity
}

// Add returns t+d. The result saturates at PositiveInfinity and
// NegativeInfinity instead of wrapping around. An infinite t absorbs any d.
func (t VTime) Add(d VTime) VTime {
	if t.IsInfinite() {
		return t
	}

	if d.IsInfinite() {
		return d
	}

	sum := t + d

	if d > 0 && sum < t {
		return PositiveInfinity
	}

	if d < 0 && sum > t {
		return NegativeInfinity
	}

	return sum
}

// Sub returns t-d with the same saturation rules as Add.
func (t VTime) Sub(d VTime) VTime {
	switch d {
	case PositiveInfinity:
		return t.Add(NegativeInfinity)
	case NegativeInfinity:
		return t.Add(PositiveInfinity)
	}

	return t.Add(-d)
}

// Compare returns -1 if t is earlier than o, 0 if they are equal, and 1 if t is
// later than o.
func (t VTime) Compare(o VTime) int {
	switch {
	case t < o:
		return -1
	case t > o:
		return 1
	default:
		return 0
	}
}

// Before tells if t is strictly earlier than o.
func (t VTime) Before(o VTime) bool {
	return t < o
}

// After tells if t is strictly later than o.
func (t VTime) After(o VTime) bool {
	return t > o
}

// String formats the time in seconds.
func (t VTime) String() string {
	switch t {
	case PositiveInfinity:
		return "+Inf"
	case NegativeInfinity:
		return "-Inf"
	}

	return strconv.FormatFloat(t.InSec(), 'f', -1, 64) + "s"
}
