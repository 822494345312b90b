package partition

import (
	"fmt"
	"math/bits"
)

// Range is a closed interval [Lower, Upper] of a scan domain.
// Empty ranges don't contain any value; Lower and Upper are meaningless for them.
type Range struct {
	Lower int64
	Upper int64
	empty bool
}

func NewRange(lower, upper int64) Range {
	return Range{Lower: lower, Upper: upper}
}

// EmptyRange returns a range which contains no values, anchored at the given point.
func EmptyRange(at int64) Range {
	return Range{Lower: at, Upper: at, empty: true}
}

func (r Range) Empty() bool {
	return r.empty
}

func (r Range) Contains(value int64) bool {
	return !r.empty && r.Lower <= value && value <= r.Upper
}

// Len returns the number of values in the range.
// The full int64 domain has 2^64 values, which doesn't fit, so ok is false for it.
func (r Range) Len() (n uint64, ok bool) {
	if r.empty {
		return 0, true
	}
	distance := uint64(r.Upper) - uint64(r.Lower)
	if distance == ^uint64(0) {
		return 0, false
	}
	return distance + 1, true
}

func (r Range) String() string {
	if r.empty {
		return "[]"
	}
	return fmt.Sprintf("[%d, %d]", r.Lower, r.Upper)
}

// InvalidRangeError is returned for malformed partition bounds.
type InvalidRangeError struct {
	Lower, Upper int64
	Count        int
	Reason       string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid partition range [%d, %d] with %d partitions: %s", e.Lower, e.Upper, e.Count, e.Reason)
}

// Plan splits [lower, upper] into count contiguous, non-overlapping ranges.
// Widths differ by at most one, with the remainder going to the first ranges.
// If there are more partitions than values, the trailing ranges are empty.
// The result only depends on the arguments, so replanning reproduces it exactly.
func Plan(lower, upper int64, count int) ([]Range, error) {
	if count < 1 {
		return nil, &InvalidRangeError{Lower: lower, Upper: upper, Count: count, Reason: "partition count must be at least 1"}
	}
	if upper < lower {
		return nil, &InvalidRangeError{Lower: lower, Upper: upper, Count: count, Reason: "upper bound is lower than lower bound"}
	}
	if count == 1 {
		return []Range{NewRange(lower, upper)}, nil
	}

	// The span has upper-lower+1 values, which is 2^64 for the full domain, so we use 128 bits.
	hi, lo := bits.Add64(uint64(upper)-uint64(lower), 1, 0)
	// hi <= 1 < count, so the quotient fits in 64 bits.
	width, remainder := bits.Div64(hi, lo, uint64(count))

	out := make([]Range, count)
	next := uint64(lower)
	for i := range out {
		size := width
		if uint64(i) < remainder {
			size++
		}
		if size == 0 {
			out[i] = EmptyRange(upper)
			continue
		}
		out[i] = NewRange(int64(next), int64(next+size-1))
		next += size
	}

	return out, nil
}
