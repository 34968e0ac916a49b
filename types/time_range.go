package types

import (
	"encoding/json"
	"fmt"

	"github.com/juju/errors"
)

// TimeRange is the half-open interval [in, out). It is immutable; every
// operation returns a new value.
type TimeRange struct {
	in  Rational
	out Rational
}

// NewTimeRange swaps the bounds if in > out.
func NewTimeRange(in, out Rational) TimeRange {
	in, out = in.norm(), out.norm()
	if out.Less(in) {
		in, out = out, in
	}
	return TimeRange{in: in, out: out}
}

func (r TimeRange) In() Rational {
	return r.in.norm()
}

func (r TimeRange) Out() Rational {
	return r.out.norm()
}

func (r TimeRange) Length() Rational {
	return r.Out().Sub(r.In())
}

func (r TimeRange) Contains(t Rational) bool {
	return !t.Less(r.In()) && t.Less(r.Out())
}

func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.In().Less(o.Out()) && o.In().Less(r.Out())
}

// Intersect returns the overlapping part of both ranges. The bool is false
// when they do not overlap.
func (r TimeRange) Intersect(o TimeRange) (TimeRange, bool) {
	if !r.Overlaps(o) {
		return TimeRange{}, false
	}
	return NewTimeRange(MaxRational(r.In(), o.In()), MinRational(r.Out(), o.Out())), true
}

func (r TimeRange) Shift(offset Rational) TimeRange {
	return NewTimeRange(r.In().Add(offset), r.Out().Add(offset))
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.In(), r.Out())
}

type timeRangeJSON struct {
	In  Rational `json:"in"`
	Out Rational `json:"out"`
}

func (r TimeRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeRangeJSON{r.In(), r.Out()})
}

func (r *TimeRange) UnmarshalJSON(b []byte) error {
	var v timeRangeJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return errors.Trace(err)
	}
	*r = NewTimeRange(v.In, v.Out)
	return nil
}
