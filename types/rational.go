package types

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cast"
)

// Rational is an exact fraction. It is always kept normalized
// (positive denominator, reduced by gcd) so two equal values compare
// equal with == and can be used as map keys.
//
// Intermediate products may exceed int64, arithmetic then continues in
// math/big. A result whose reduced numerator or denominator does not fit
// in int64 panics with ErrRationalOverflow.
type Rational struct {
	Num int64
	Den int64
}

var (
	Zero = Rational{0, 1}
	One  = Rational{1, 1}
)

var ErrRationalOverflow = errors.New("rational: int64 overflow")

func NewRational(num, den int64) Rational {
	if den == 0 {
		panic("rational: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	if g := gcd(abs(num), den); g > 1 {
		num, den = num/g, den/g
	}
	if num == 0 {
		den = 1
	}
	return Rational{num, den}
}

func FromInt(n int64) Rational {
	return Rational{n, 1}
}

func (r Rational) norm() Rational {
	if r.Den == 0 {
		// zero value
		return Zero
	}
	return NewRational(r.Num, r.Den)
}

func (r Rational) Add(o Rational) Rational {
	r, o = r.norm(), o.norm()
	g := gcd(r.Den, o.Den)
	a, ok1 := mul64(r.Num, o.Den/g)
	b, ok2 := mul64(o.Num, r.Den/g)
	num, ok3 := add64(a, b)
	den, ok4 := mul64(r.Den/g, o.Den)
	if ok1 && ok2 && ok3 && ok4 {
		return NewRational(num, den)
	}
	return fromBig(new(big.Rat).Add(r.big(), o.big()))
}

func (r Rational) Sub(o Rational) Rational {
	o = o.norm()
	if o.Num == math.MinInt64 {
		return fromBig(new(big.Rat).Sub(r.norm().big(), o.big()))
	}
	return r.Add(Rational{-o.Num, o.Den})
}

func (r Rational) Mul(o Rational) Rational {
	r, o = r.norm(), o.norm()
	// cross reduce first so the products stay small
	g1, g2 := gcd(abs(r.Num), o.Den), gcd(abs(o.Num), r.Den)
	num, ok1 := mul64(r.Num/g1, o.Num/g2)
	den, ok2 := mul64(r.Den/g2, o.Den/g1)
	if ok1 && ok2 {
		return NewRational(num, den)
	}
	return fromBig(new(big.Rat).Mul(r.big(), o.big()))
}

func (r Rational) Div(o Rational) Rational {
	o = o.norm()
	if o.Num == 0 {
		panic("rational: division by zero")
	}
	if o.Num == math.MinInt64 {
		return fromBig(new(big.Rat).Quo(r.norm().big(), o.big()))
	}
	inv := Rational{o.Den, o.Num}
	if inv.Den < 0 {
		inv = Rational{-inv.Num, -inv.Den}
	}
	return r.Mul(inv)
}

// Cmp returns -1, 0 or 1.
func (r Rational) Cmp(o Rational) int {
	r, o = r.norm(), o.norm()
	a, ok1 := mul64(r.Num, o.Den)
	b, ok2 := mul64(o.Num, r.Den)
	if !ok1 || !ok2 {
		return r.big().Cmp(o.big())
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (r Rational) Less(o Rational) bool {
	return r.Cmp(o) < 0
}

func (r Rational) Equal(o Rational) bool {
	return r.Cmp(o) == 0
}

func (r Rational) IsZero() bool {
	return r.Num == 0
}

func (r Rational) Float64() float64 {
	r = r.norm()
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	r = r.norm()
	if r.Den == 1 {
		return strconv.FormatInt(r.Num, 10)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParseRational accepts "n/d", "n" or a decimal such as "1.25".
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, errors.NotValidf("empty rational")
	}
	if num, den, found := strings.Cut(s, "/"); found {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Zero, errors.NotValidf("rational numerator %q", num)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err != nil || d == 0 {
			return Zero, errors.NotValidf("rational denominator %q", den)
		}
		return NewRational(n, d), nil
	}
	if whole, frac, found := strings.Cut(s, "."); found {
		if len(frac) > 18 {
			return Zero, errors.NotValidf("rational %q", s)
		}
		den := int64(1)
		for range frac {
			den *= 10
		}
		n, err := strconv.ParseInt(whole+frac, 10, 64)
		if err != nil {
			return Zero, errors.NotValidf("rational %q", s)
		}
		return NewRational(n, den), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Zero, errors.NotValidf("rational %q", s)
	}
	return FromInt(n), nil
}

func (r Rational) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rational) UnmarshalText(b []byte) error {
	v, err := ParseRational(string(b))
	if err != nil {
		return errors.Trace(err)
	}
	*r = v
	return nil
}

func (r Rational) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rational) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Trace(err)
	}
	return r.UnmarshalText([]byte(s))
}

// ToRational converts literal input values. Floats go through their
// decimal text, so 0.1 becomes exactly 1/10.
func ToRational(v any) (Rational, error) {
	switch x := v.(type) {
	case nil:
		return Zero, nil
	case Rational:
		return x.norm(), nil
	case *Rational:
		if x == nil {
			return Zero, nil
		}
		return x.norm(), nil
	case string:
		return ParseRational(x)
	case float32, float64:
		return ParseRational(strconv.FormatFloat(cast.ToFloat64(x), 'f', -1, 64))
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return Zero, errors.NotValidf("rational %v", v)
	}
	return FromInt(n), nil
}

func MinRational(a, b Rational) Rational {
	if b.Less(a) {
		return b
	}
	return a
}

func MaxRational(a, b Rational) Rational {
	if a.Less(b) {
		return b
	}
	return a
}

func (r Rational) big() *big.Rat {
	return new(big.Rat).SetFrac(big.NewInt(r.Num), big.NewInt(r.Den))
}

func fromBig(v *big.Rat) Rational {
	num, den := v.Num(), v.Denom()
	if !num.IsInt64() || !den.IsInt64() {
		panic(ErrRationalOverflow)
	}
	return Rational{num.Int64(), den.Int64()}
}

func mul64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || c/b != a {
		return 0, false
	}
	return c, true
}

func add64(a, b int64) (int64, bool) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, false
	}
	return c, true
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}
