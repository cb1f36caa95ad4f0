package pretzel

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Arithmetic faults. Both indicate a caller bug (a bad seed or modulus), not a
// condition a run can recover from.
var (
	ErrZeroDenominator = errors.New("pretzel: zero denominator")
	ErrDivisionByZero  = errors.New("pretzel: division by rational with zero numerator")
)

var (
	bigZero = big.NewInt(0)
	bigOne  = big.NewInt(1)
	bigTwo  = big.NewInt(2)
)

// Rational is an exact numerator/denominator pair that is never reduced to
// lowest terms. 4/2 stays 4/2 through every operation: denominator growth is a
// signal the engine reports, so a common factor is never cancelled.
//
// Values are immutable. Every operation allocates fresh integers, so copying a
// Rational (or a State holding Rationals) yields an independent snapshot.
// The zero value is 0/1.
type Rational struct {
	num *big.Int // nil reads as 0
	den *big.Int // nil reads as 1, otherwise > 0
}

// NewRational builds num/den from machine integers.
func NewRational(num int64, den uint64) (Rational, error) {
	if den == 0 {
		return Rational{}, fmt.Errorf("%d/0: %w", num, ErrZeroDenominator)
	}
	return Rational{num: big.NewInt(num), den: new(big.Int).SetUint64(den)}, nil
}

// MustRational is NewRational for literals known to be valid. It panics on a
// zero denominator.
func MustRational(num int64, den uint64) Rational {
	r, err := NewRational(num, den)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRationalBig builds num/den from arbitrary-precision integers. The inputs
// are copied. A negative denominator moves its sign onto the numerator.
func NewRationalBig(num, den *big.Int) (Rational, error) {
	if den == nil || den.Sign() == 0 {
		return Rational{}, ErrZeroDenominator
	}
	n := new(big.Int)
	if num != nil {
		n.Set(num)
	}
	d := new(big.Int).Set(den)
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	return Rational{num: n, den: d}, nil
}

// ParseRational reads "num/den" or a bare integer "num" (den 1). Both parts are
// decimal and may be arbitrarily long.
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	numStr, denStr, hasDen := strings.Cut(s, "/")
	if !hasDen {
		denStr = "1"
	}
	num, ok := new(big.Int).SetString(strings.TrimSpace(numStr), 10)
	if !ok {
		return Rational{}, fmt.Errorf("parse rational %q: bad numerator", s)
	}
	den, ok := new(big.Int).SetString(strings.TrimSpace(denStr), 10)
	if !ok {
		return Rational{}, fmt.Errorf("parse rational %q: bad denominator", s)
	}
	r, err := NewRationalBig(num, den)
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
	}
	return r, nil
}

// fraction wraps already-owned integers without copying. den must be nonzero.
func fraction(num, den *big.Int) Rational {
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}
	return Rational{num: num, den: den}
}

func (r Rational) n() *big.Int {
	if r.num == nil {
		return bigZero
	}
	return r.num
}

func (r Rational) d() *big.Int {
	if r.den == nil {
		return bigOne
	}
	return r.den
}

// Num returns a copy of the numerator.
func (r Rational) Num() *big.Int { return new(big.Int).Set(r.n()) }

// Den returns a copy of the denominator.
func (r Rational) Den() *big.Int { return new(big.Int).Set(r.d()) }

// String renders the literal pair, e.g. "8/2".
func (r Rational) String() string {
	return r.n().String() + "/" + r.d().String()
}

// Add returns (a.num*b.den + b.num*a.den) / (a.den*b.den).
func (r Rational) Add(o Rational) Rational {
	num := new(big.Int).Mul(r.n(), o.d())
	num.Add(num, new(big.Int).Mul(o.n(), r.d()))
	return Rational{num: num, den: new(big.Int).Mul(r.d(), o.d())}
}

// Sub returns (a.num*b.den - b.num*a.den) / (a.den*b.den).
func (r Rational) Sub(o Rational) Rational {
	num := new(big.Int).Mul(r.n(), o.d())
	num.Sub(num, new(big.Int).Mul(o.n(), r.d()))
	return Rational{num: num, den: new(big.Int).Mul(r.d(), o.d())}
}

// Delta is r - prev, the signed change from a previous value.
func (r Rational) Delta(prev Rational) Rational { return r.Sub(prev) }

// Mul returns (a.num*b.num) / (a.den*b.den).
func (r Rational) Mul(o Rational) Rational {
	return Rational{
		num: new(big.Int).Mul(r.n(), o.n()),
		den: new(big.Int).Mul(r.d(), o.d()),
	}
}

// Div returns (a.num*b.den) / (a.den*b.num). Dividing by a value whose
// numerator is zero is undefined and reported as ErrDivisionByZero.
func (r Rational) Div(o Rational) (Rational, error) {
	if o.n().Sign() == 0 {
		return Rational{}, fmt.Errorf("%s / %s: %w", r, o, ErrDivisionByZero)
	}
	return r.quo(o), nil
}

// quo is Div for callers that have already ruled out a zero divisor. A zero
// divisor here is an engine bug and aborts the run.
func (r Rational) quo(o Rational) Rational {
	if o.n().Sign() == 0 {
		panic(&fatalError{err: fmt.Errorf("%s / %s: %w", r, o, ErrDivisionByZero)})
	}
	return fraction(
		new(big.Int).Mul(r.n(), o.d()),
		new(big.Int).Mul(r.d(), o.n()),
	)
}

// Neg flips the numerator's sign.
func (r Rational) Neg() Rational {
	return Rational{num: new(big.Int).Neg(r.n()), den: new(big.Int).Set(r.d())}
}

// AbsNum returns |num|/den.
func (r Rational) AbsNum() Rational {
	return Rational{num: new(big.Int).Abs(r.n()), den: new(big.Int).Set(r.d())}
}

// Mod returns the fractional part of r/m, that is r/m - trunc(r/m), as an
// unreduced rational over the scaled denominator. The quotient is taken by
// truncating integer division, never through floating point. A modulus with a
// zero numerator leaves r unchanged.
func (r Rational) Mod(m Rational) Rational {
	if m.n().Sign() == 0 {
		return r
	}
	q := r.quo(m)
	whole := new(big.Int).Quo(q.num, q.den)
	rem := new(big.Int).Mul(whole, q.den)
	rem.Sub(q.num, rem)
	return Rational{num: rem, den: q.den}
}

// IsZero reports whether the numerator is zero.
func (r Rational) IsZero() bool { return r.n().Sign() == 0 }

// Sign returns -1, 0 or +1.
func (r Rational) Sign() int { return r.n().Sign() }

// Cmp compares values exactly by cross-multiplication: -1 if r < o, 0 if
// equal in value, +1 if r > o. 4/2 and 2/1 compare equal.
func (r Rational) Cmp(o Rational) int {
	left := new(big.Int).Mul(r.n(), o.d())
	right := new(big.Int).Mul(o.n(), r.d())
	return left.Cmp(right)
}

// Identical reports whether both numerator and denominator match literally.
// 4/2 and 2/1 are not identical.
func (r Rational) Identical(o Rational) bool {
	return r.n().Cmp(o.n()) == 0 && r.d().Cmp(o.d()) == 0
}

// absExceeds reports |r| > limit without leaving integer arithmetic.
func (r Rational) absExceeds(limit *big.Int) bool {
	scaled := new(big.Int).Mul(limit, r.d())
	return new(big.Int).Abs(r.n()).Cmp(scaled) > 0
}

// absAtLeast reports |r| >= limit exactly.
func absAtLeast(r Rational, limit *big.Int) bool {
	scaled := new(big.Int).Mul(limit, r.d())
	return new(big.Int).Abs(r.n()).Cmp(scaled) >= 0
}

// Float64 is a lossy snapshot for statistics and display. It must never be
// fed back into a run.
func (r Rational) Float64() float64 {
	n := new(big.Float).SetPrec(snapshotPrec).SetInt(r.n())
	d := new(big.Float).SetPrec(snapshotPrec).SetInt(r.d())
	f, _ := n.Quo(n, d).Float64()
	return f
}

// snapshotPrec is the mantissa precision of Float64 operands.
const snapshotPrec = 64

// fatalError carries an arithmetic fault out of the engine to Run.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }
