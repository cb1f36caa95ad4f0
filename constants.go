package pretzel

import "math"

// KnownConstant is a named irrational the analysis compares ratio
// trajectories against.
type KnownConstant struct {
	Name  string
	Value float64
}

// KnownConstants lists the attractors a convergent run is named after.
// Order matters on ties: the first closest constant wins.
var KnownConstants = []KnownConstant{
	{"phi", 1.6180339887498948482},        // golden ratio
	{"rho", 1.3247179572447458000},        // plastic number, under its engine name
	{"delta_s", 1.4655712318767680267},    // supergolden ratio
	{"tribonacci", 1.8392867552141611326}, // x³ = x² + x + 1
	{"plastic", 1.3247179572447458000},
	{"sqrt2", 1.4142135623730950488},
	{"silver", 2.4142135623730950488}, // 1 + √2
}

// LookupConstant returns the named constant.
func LookupConstant(name string) (KnownConstant, bool) {
	for _, c := range KnownConstants {
		if c.Name == name {
			return c, true
		}
	}
	return KnownConstant{}, false
}

// ClosestConstant returns the constant nearest to x and the absolute gap.
// NaN and infinities have no closest constant.
func ClosestConstant(x float64) (KnownConstant, float64, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return KnownConstant{}, math.Inf(1), false
	}
	best, bestDelta := KnownConstants[0], math.Abs(x-KnownConstants[0].Value)
	for _, c := range KnownConstants[1:] {
		if d := math.Abs(x - c.Value); d < bestDelta {
			best, bestDelta = c, d
		}
	}
	return best, bestDelta, true
}

// RatioWindow is an open interval on υ/β.
type RatioWindow struct {
	Lower Rational
	Upper Rational
}

// Built-in ψ trigger windows. These are fixed rational brackets around each
// constant and are deliberately coarse; they are not derived from
// KnownConstants.
var (
	goldenWindow  = RatioWindow{MustRational(3, 2), MustRational(17, 10)}
	sqrt2Window   = RatioWindow{MustRational(13, 10), MustRational(3, 2)}
	plasticWindow = RatioWindow{MustRational(6, 5), MustRational(7, 5)}
)

// WindowFor returns the built-in window of mode. ok is false for RatioNone
// and RatioCustom.
func WindowFor(mode RatioTriggerMode) (RatioWindow, bool) {
	switch mode {
	case RatioGolden:
		return goldenWindow, true
	case RatioSqrt2:
		return sqrt2Window, true
	case RatioPlastic:
		return plasticWindow, true
	}
	return RatioWindow{}, false
}
