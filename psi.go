package pretzel

// fibonacciTicks are the ticks on which the rho-gated ψ policies may fire.
var fibonacciTicks = map[int]bool{
	5: true, 13: true, 89: true, 233: true, 1597: true, 28657: true, 514229: true,
}

// IsFibonacciTick reports whether tick is in the ψ firing table.
func IsFibonacciTick(tick int) bool { return fibonacciTicks[tick] }

// PsiTransform applies one ψ remap, built from snapshotted components so no
// division (and no implicit reduction) takes place:
//
//	standard: (υ, β)    ← (β.den/υ.num, υ.den/β.num)
//	triple:   (υ, β, ϙ) ← (β.den/υ.num, ϙ.den/β.num, υ.den/ϙ.num)
//
// It fails, leaving s untouched, when an operand it inverts is zero. On
// success φ holds the pre-transform υ and PsiRecent is set.
func PsiTransform(s *State, triple bool) bool {
	u, b, k := s.Upsilon, s.Beta, s.Koppa
	if u.IsZero() || b.IsZero() {
		return false
	}
	if triple {
		if k.IsZero() {
			return false
		}
		s.Upsilon = fraction(b.Den(), u.Num())
		s.Beta = fraction(k.Den(), b.Num())
		s.Koppa = fraction(u.Den(), k.Num())
	} else {
		s.Upsilon = fraction(b.Den(), u.Num())
		s.Beta = fraction(u.Den(), b.Num())
	}
	s.Phi = u
	s.PsiRecent = true
	return true
}

// PsiPermitted applies the firing policy for a memory microtick of tick.
func PsiPermitted(cfg *Config, s *State, tick int) bool {
	switch cfg.Psi {
	case PsiMStep:
		return true
	case PsiRhoOnly, PsiMStepRho:
		return s.RhoPending && IsFibonacciTick(tick)
	case PsiInhibitRho:
		return s.RhoPending
	}
	return false
}

// ApplyPsi fires ψ once, or, with the strength feature enabled and a rho
// pending, once per prime numerator among υ, β, ϙ (at least once). A
// repetition runs in triple form when triple ψ is configured, when
// conditional triple ψ is on and all three numerators are prime, or when it
// is the third-to-last of three or more. The loop stops at the first failed
// repetition. It returns how many repetitions succeeded.
func ApplyPsi(cfg *Config, s *State) int {
	reps := 1
	strength := cfg.PsiStrength && s.RhoPending
	if strength {
		reps = max(1, primeNumerators(s))
	}

	fired := 0
	for i := 0; i < reps; i++ {
		triple := cfg.TriplePsi ||
			(cfg.ConditionalTriplePsi && primeNumerators(s) == 3) ||
			(reps >= 3 && i == reps-3)
		if !PsiTransform(s, triple) {
			break
		}
		fired++
		if fired == 1 {
			s.RhoPending = false
		}
		if triple {
			s.PsiTripleRecent = true
		}
	}
	if strength && fired > 0 {
		s.PsiStrengthApplied = true
	}
	return fired
}

func primeNumerators(s *State) int {
	count := 0
	for _, v := range [...]Rational{s.Upsilon, s.Beta, s.Koppa} {
		if IsPrime(v.n()) {
			count++
		}
	}
	return count
}
