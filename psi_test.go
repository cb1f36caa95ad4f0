package pretzel

import "testing"

func TestPsiTransform_Standard(t *testing.T) {
	s := engineState(MustRational(3, 5), MustRational(5, 7), MustRational(0, 1))

	if !PsiTransform(s, false) {
		t.Fatalf("❌ Standard ψ failed")
	}
	AssertUnreduced(t, s.Upsilon, 7, 3)
	AssertUnreduced(t, s.Beta, 5, 5)
	AssertUnreduced(t, s.Phi, 3, 5)
	if !s.PsiRecent {
		t.Errorf("❌ ψ should mark psi-recent")
	}
	t.Logf("✓ ψ(3/5, 5/7) = (%s, %s)", s.Upsilon, s.Beta)
}

func TestPsiTransform_Triple(t *testing.T) {
	s := engineState(MustRational(2, 1), MustRational(3, 1), MustRational(5, 1))

	if !PsiTransform(s, true) {
		t.Fatalf("❌ Triple ψ failed")
	}
	AssertUnreduced(t, s.Upsilon, 1, 2)
	AssertUnreduced(t, s.Beta, 1, 3)
	AssertUnreduced(t, s.Koppa, 1, 5)
}

func TestPsiTransform_NegativeNumerator(t *testing.T) {
	s := engineState(MustRational(-3, 5), MustRational(5, 7), MustRational(0, 1))

	PsiTransform(s, false)
	AssertUnreduced(t, s.Upsilon, -7, 3)
	AssertUnreduced(t, s.Beta, 5, 5)
}

func TestPsiTransform_ZeroOperand(t *testing.T) {
	s := engineState(MustRational(0, 5), MustRational(5, 7), MustRational(1, 1))
	if PsiTransform(s, false) {
		t.Errorf("❌ ψ must fail on υ = 0")
	}
	AssertUnreduced(t, s.Upsilon, 0, 5)
	if s.PsiRecent {
		t.Errorf("❌ Failed ψ must not mark psi-recent")
	}

	s = engineState(MustRational(2, 1), MustRational(3, 1), MustRational(0, 1))
	if PsiTransform(s, true) {
		t.Errorf("❌ Triple ψ must fail on ϙ = 0")
	}
	AssertUnreduced(t, s.Upsilon, 2, 1)
}

func TestPsiPermitted(t *testing.T) {
	cfg := DefaultConfig()
	s := engineState(MustRational(1, 1), MustRational(1, 1), MustRational(0, 1))

	cases := []struct {
		mode    PsiMode
		rho     bool
		tick    int
		allowed bool
	}{
		{PsiMStep, false, 1, true},
		{PsiRhoOnly, true, 5, true},
		{PsiRhoOnly, true, 6, false},
		{PsiRhoOnly, false, 5, false},
		{PsiMStepRho, true, 13, true},
		{PsiInhibitRho, true, 6, true},
		{PsiInhibitRho, false, 6, false},
	}
	for _, tc := range cases {
		cfg.Psi = tc.mode
		s.RhoPending = tc.rho
		if got := PsiPermitted(&cfg, s, tc.tick); got != tc.allowed {
			t.Errorf("❌ %s rho=%v tick=%d: permitted=%v, want %v", tc.mode, tc.rho, tc.tick, got, tc.allowed)
		}
	}
}

// TestApplyPsi_Strength runs one repetition per prime numerator; with three
// primes the first repetition is the triple form.
func TestApplyPsi_Strength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PsiStrength = true
	s := engineState(MustRational(2, 1), MustRational(3, 1), MustRational(5, 1))
	s.RhoPending = true

	fired := ApplyPsi(&cfg, s)
	if fired != 3 {
		t.Fatalf("❌ Fired %d repetitions, want 3", fired)
	}
	// triple → (1/2, 1/3, 1/5), standard → (3/1, 2/1), standard → (1/3, 1/2)
	AssertUnreduced(t, s.Upsilon, 1, 3)
	AssertUnreduced(t, s.Beta, 1, 2)
	AssertUnreduced(t, s.Koppa, 1, 5)

	if s.RhoPending {
		t.Errorf("❌ Rho should be consumed")
	}
	if !s.PsiTripleRecent || !s.PsiStrengthApplied {
		t.Errorf("❌ triple=%v strength=%v, want both set", s.PsiTripleRecent, s.PsiStrengthApplied)
	}
	t.Logf("✓ Strength ψ: %d repetitions, υ=%s β=%s ϙ=%s", fired, s.Upsilon, s.Beta, s.Koppa)
}

func TestApplyPsi_StrengthNeedsRho(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PsiStrength = true
	s := engineState(MustRational(2, 1), MustRational(3, 1), MustRational(5, 1))

	if fired := ApplyPsi(&cfg, s); fired != 1 {
		t.Errorf("❌ Without rho, fired %d, want 1", fired)
	}
	if s.PsiStrengthApplied {
		t.Errorf("❌ Strength should not apply without rho")
	}
}

func TestApplyPsi_StrengthWithoutPrimes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PsiStrength = true
	s := engineState(MustRational(4, 1), MustRational(6, 1), MustRational(8, 1))
	s.RhoPending = true

	if fired := ApplyPsi(&cfg, s); fired != 1 {
		t.Errorf("❌ No prime numerators: fired %d, want 1", fired)
	}
}

// TestApplyPsi_StopsOnFailure verifies a failing first repetition leaves
// rho pending.
func TestApplyPsi_StopsOnFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PsiStrength = true
	cfg.TriplePsi = true
	s := engineState(MustRational(2, 1), MustRational(3, 1), MustRational(0, 1))
	s.RhoPending = true

	if fired := ApplyPsi(&cfg, s); fired != 0 {
		t.Errorf("❌ Fired %d, want 0", fired)
	}
	if !s.RhoPending {
		t.Errorf("❌ Rho should stay pending when nothing fired")
	}
}

func TestApplyPsi_ConditionalTriple(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConditionalTriplePsi = true

	s := engineState(MustRational(2, 1), MustRational(3, 1), MustRational(5, 1))
	ApplyPsi(&cfg, s)
	AssertUnreduced(t, s.Koppa, 1, 5)
	if !s.PsiTripleRecent {
		t.Errorf("❌ All-prime numerators should select triple ψ")
	}

	s = engineState(MustRational(2, 1), MustRational(3, 1), MustRational(4, 1))
	ApplyPsi(&cfg, s)
	AssertUnreduced(t, s.Koppa, 4, 1)
	if s.PsiTripleRecent {
		t.Errorf("❌ Composite ϙ numerator should keep standard ψ")
	}
}
