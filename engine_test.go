package pretzel

import "testing"

func engineState(u, b, k Rational) *State {
	cfg := DefaultConfig()
	cfg.UpsilonSeed, cfg.BetaSeed, cfg.KoppaSeed = u, b, k
	return NewState(&cfg)
}

// TestEngineStep_AddUnreduced checks the single-track add step and its
// bookkeeping.
func TestEngineStep_AddUnreduced(t *testing.T) {
	cfg := DefaultConfig()
	s := engineState(MustRational(4, 2), MustRational(2, 1), MustRational(0, 1))

	if !EngineStep(&cfg, s, 1) {
		t.Fatalf("❌ Add step failed")
	}
	AssertUnreduced(t, s.Upsilon, 8, 2)
	AssertUnreduced(t, s.Beta, 2, 1)
	AssertUnreduced(t, s.PreviousUpsilon, 4, 2)
	AssertUnreduced(t, s.DeltaUpsilon, 8, 4)
	if s.DualEngineActive {
		t.Errorf("❌ Single-track step reported dual engine")
	}
	t.Logf("✓ υ = %s, Δυ = %s", s.Upsilon, s.DeltaUpsilon)
}

func TestEngineStep_Multiply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine = EngineMultiply
	s := engineState(MustRational(2, 1), MustRational(3, 1), MustRational(1, 1))

	EngineStep(&cfg, s, 1)
	AssertUnreduced(t, s.Upsilon, 8, 1)
}

func TestEngineStep_Slide(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine = EngineSlide
	s := engineState(MustRational(1, 1), MustRational(1, 1), MustRational(2, 1))

	if !EngineStep(&cfg, s, 1) {
		t.Fatalf("❌ Slide with nonzero ϙ failed")
	}
	AssertUnreduced(t, s.Upsilon, 2, 2)
}

// TestEngineStep_SlideZeroKoppa verifies a failed step leaves the state
// exactly as it was.
func TestEngineStep_SlideZeroKoppa(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine = EngineSlide
	s := engineState(MustRational(3, 5), MustRational(5, 7), MustRational(0, 1))
	before := *s

	if EngineStep(&cfg, s, 1) {
		t.Fatalf("❌ Slide on ϙ = 0 should fail")
	}
	for _, pair := range []struct {
		name      string
		got, want Rational
	}{
		{"υ", s.Upsilon, before.Upsilon},
		{"β", s.Beta, before.Beta},
		{"prev υ", s.PreviousUpsilon, before.PreviousUpsilon},
		{"Δυ", s.DeltaUpsilon, before.DeltaUpsilon},
	} {
		if !pair.got.Identical(pair.want) {
			t.Errorf("❌ %s changed: %s -> %s", pair.name, pair.want, pair.got)
		}
	}
	t.Logf("✓ State untouched after failed slide")
}

func TestEngineStep_DualTrack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DualTrack = true
	cfg.UpsilonTrack = TrackAdd
	cfg.BetaTrack = TrackMultiply
	s := engineState(MustRational(1, 1), MustRational(2, 1), MustRational(1, 1))

	EngineStep(&cfg, s, 1)
	AssertUnreduced(t, s.Upsilon, 4, 1)
	AssertUnreduced(t, s.Beta, 4, 1)
	if !s.DualEngineActive {
		t.Errorf("❌ Dual-track step should report dual engine")
	}
}

func TestEngineStep_DeltaAdd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine = EngineDeltaAdd
	s := engineState(MustRational(3, 1), MustRational(2, 1), MustRational(0, 1))
	s.PreviousUpsilon = MustRational(1, 1)

	EngineStep(&cfg, s, 1)
	AssertUnreduced(t, s.Upsilon, 5, 1)
	AssertUnreduced(t, s.Beta, 2, 1)
}

func TestEngineStep_AsymmetricCascade(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AsymmetricCascade = true

	s := engineState(MustRational(2, 1), MustRational(3, 1), MustRational(0, 1))
	EngineStep(&cfg, s, 1)
	AssertUnreduced(t, s.Upsilon, 6, 1) // multiply at microtick 1

	s = engineState(MustRational(2, 1), MustRational(3, 1), MustRational(0, 1))
	if EngineStep(&cfg, s, 7) {
		t.Errorf("❌ Microtick 7 slides and must fail on ϙ = 0")
	}
}

// TestEngineStep_CascadeOverridesDelta verifies an override replaces the
// DeltaAdd base mode.
func TestEngineStep_CascadeOverridesDelta(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine = EngineDeltaAdd
	cfg.AsymmetricCascade = true
	s := engineState(MustRational(1, 1), MustRational(1, 1), MustRational(0, 1))

	EngineStep(&cfg, s, 10)
	AssertUnreduced(t, s.Upsilon, 2, 1)
}

func TestEngineStep_StackDepthModes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StackDepthModes = true
	s := engineState(MustRational(1, 1), MustRational(1, 1), MustRational(0, 1))
	s.KoppaStackSize = StackSlots

	if EngineStep(&cfg, s, 1) {
		t.Errorf("❌ Full stack selects slide and must fail on ϙ = 0")
	}

	s.KoppaStackSize = 2
	cfg.Engine = EngineSlide
	if !EngineStep(&cfg, s, 1) {
		t.Fatalf("❌ Stack depth 2 selects multiply")
	}
	AssertUnreduced(t, s.Upsilon, 1, 1)
}

func TestEngineStep_KoppaGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KoppaGatedEngine = true

	cases := []struct {
		koppa    int64
		num, den int64
	}{
		{5, 2, 5},    // slide below 10
		{50, 51, 1},  // multiply below 100
		{100, 102, 1}, // add from 100 up
	}
	for _, tc := range cases {
		s := engineState(MustRational(1, 1), MustRational(1, 1), MustRational(tc.koppa, 1))
		EngineStep(&cfg, s, 1)
		AssertUnreduced(t, s.Upsilon, tc.num, tc.den)
	}
}

func TestEngineStep_SignFlip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SignFlip = SignFlipAlways
	s := engineState(MustRational(1, 1), MustRational(1, 1), MustRational(0, 1))

	EngineStep(&cfg, s, 1)
	AssertUnreduced(t, s.Upsilon, -2, 1)
	AssertUnreduced(t, s.Beta, -1, 1)
	if !s.SignFlipPolarity {
		t.Errorf("❌ Always flip should set polarity")
	}

	cfg.SignFlip = SignFlipAlternate
	s = engineState(MustRational(1, 1), MustRational(1, 1), MustRational(0, 1))
	EngineStep(&cfg, s, 1)
	AssertUnreduced(t, s.Upsilon, -2, 1)
	EngineStep(&cfg, s, 4)
	AssertUnreduced(t, s.Upsilon, -3, 1) // -2 + -1 + 0, not negated
	if s.SignFlipPolarity {
		t.Errorf("❌ Alternate flip should clear polarity on the second step")
	}
}

func TestEngineStep_DeltaCrossPropagation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeltaCrossPropagation = true
	s := engineState(MustRational(1, 1), MustRational(1, 1), MustRational(0, 1))
	s.DeltaUpsilon = MustRational(2, 1)
	s.DeltaBeta = MustRational(1, 1)

	EngineStep(&cfg, s, 1)
	AssertUnreduced(t, s.Upsilon, 3, 1)
	AssertUnreduced(t, s.Beta, 3, 1)
}

func TestEngineStep_Triangle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpsilonPhiTriangle = true
	s := engineState(MustRational(2, 1), MustRational(1, 1), MustRational(0, 1))
	s.Phi = MustRational(4, 1)

	EngineStep(&cfg, s, 1)
	AssertUnreduced(t, s.TrianglePhiOverEpsilon, 4, 2)
	AssertUnreduced(t, s.TrianglePrevOverPhi, 2, 4)
	AssertUnreduced(t, s.TriangleEpsilonOverPrevious, 2, 2)

	s.Phi = Rational{}
	EngineStep(&cfg, s, 4)
	AssertUnreduced(t, s.TrianglePrevOverPhi, 0, 1)
}

func TestEngineStep_ModularWrap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModularWrap = true
	cfg.KoppaWrapThreshold = 3
	s := engineState(MustRational(1, 1), MustRational(2, 1), MustRational(7, 1))

	EngineStep(&cfg, s, 1)
	AssertUnreduced(t, s.Upsilon, 10, 1)
	AssertUnreduced(t, s.Koppa, 1, 2)

	cfg.KoppaWrapThreshold = 10
	s = engineState(MustRational(1, 1), MustRational(2, 1), MustRational(7, 1))
	EngineStep(&cfg, s, 1)
	AssertUnreduced(t, s.Koppa, 7, 1)
}
