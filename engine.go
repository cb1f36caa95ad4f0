package pretzel

import "math/big"

// cascadeModes is the asymmetric-cascade override, keyed by emission microtick.
var cascadeModes = map[int][2]TrackMode{
	1:  {TrackMultiply, TrackAdd},
	4:  {TrackAdd, TrackSlide},
	7:  {TrackSlide, TrackMultiply},
	10: {TrackAdd, TrackAdd},
}

var (
	gateSlideBelow    = big.NewInt(10)
	gateMultiplyBelow = big.NewInt(100)
)

// stepPlan is the resolved transform for one emission.
type stepPlan struct {
	upsilon TrackMode
	beta    TrackMode
	delta   bool // DeltaAdd on both tracks; cleared by any override
}

// resolvePlan layers the mode sources in order: base mode, asymmetric
// cascade, stack depth, then the ϙ magnitude gate. Later layers win.
func resolvePlan(cfg *Config, s *State, microtick int) stepPlan {
	var p stepPlan
	if cfg.DualTrack {
		p.upsilon, p.beta = cfg.UpsilonTrack, cfg.BetaTrack
	} else {
		switch cfg.Engine {
		case EngineAdd:
			p.upsilon = TrackAdd
		case EngineMultiply:
			p.upsilon = TrackMultiply
		case EngineSlide:
			p.upsilon = TrackSlide
		case EngineDeltaAdd:
			p.delta = true
		}
		p.beta = p.upsilon
	}

	override := func(u, b TrackMode) {
		p.upsilon, p.beta, p.delta = u, b, false
	}

	if cfg.AsymmetricCascade {
		if modes, ok := cascadeModes[microtick]; ok {
			override(modes[0], modes[1])
		}
	}

	if cfg.StackDepthModes {
		m := stackDepthMode(s.KoppaStackSize)
		override(m, m)
	}

	if cfg.KoppaGatedEngine {
		var m TrackMode
		switch {
		case !absAtLeast(s.Koppa, gateSlideBelow):
			m = TrackSlide
		case !absAtLeast(s.Koppa, gateMultiplyBelow):
			m = TrackMultiply
		default:
			m = TrackAdd
		}
		override(m, m)
	}
	return p
}

func stackDepthMode(size int) TrackMode {
	switch size {
	case 0, 1:
		return TrackAdd
	case 2, 3:
		return TrackMultiply
	case 4:
		return TrackSlide
	}
	return TrackAdd
}

// applyTrack advances current against counterpart. Slide needs a nonzero ϙ.
func applyTrack(mode TrackMode, current, counterpart, koppa Rational) (Rational, bool) {
	switch mode {
	case TrackAdd:
		return current.Add(counterpart).Add(koppa), true
	case TrackMultiply:
		return current.Mul(counterpart.Add(koppa)), true
	case TrackSlide:
		if koppa.IsZero() {
			return Rational{}, false
		}
		return current.Add(counterpart).quo(koppa), true
	}
	return Rational{}, false
}

// EngineStep runs one emission transform. It reports false, leaving s
// untouched, when the resolved mode cannot be applied (Slide with ϙ = 0).
//
// υ always advances. β advances in dual-track mode (against υ with its own
// track mode) and under DeltaAdd; otherwise it is carried into the
// post-processing stages unchanged.
func EngineStep(cfg *Config, s *State, microtick int) bool {
	plan := resolvePlan(cfg, s, microtick)
	oldU, oldB, k := s.Upsilon, s.Beta, s.Koppa

	var newU, newB Rational
	if plan.delta {
		newU = oldU.Add(oldU.Delta(s.PreviousUpsilon))
		newB = oldB.Add(oldB.Delta(s.PreviousBeta))
	} else {
		var ok bool
		if newU, ok = applyTrack(plan.upsilon, oldU, oldB, k); !ok {
			return false
		}
		newB = oldB
		if cfg.DualTrack {
			if newB, ok = applyTrack(plan.beta, oldB, oldU, k); !ok {
				return false
			}
		}
	}

	if cfg.DeltaCrossPropagation {
		newU = newU.Add(s.DeltaBeta)
		newB = newB.Add(s.DeltaUpsilon)
		if cfg.DeltaKoppaOffset {
			newU = newU.Add(k)
			newB = newB.Add(k)
		}
	}

	polarity := s.SignFlipPolarity
	switch cfg.SignFlip {
	case SignFlipAlways:
		polarity = true
		newU, newB = newU.Neg(), newB.Neg()
	case SignFlipAlternate:
		polarity = !polarity
		if polarity {
			newU, newB = newU.Neg(), newB.Neg()
		}
	case SignFlipNone:
	}

	// Commit.
	s.SignFlipPolarity = polarity
	s.DeltaUpsilon = newU.Delta(oldU)
	s.DeltaBeta = newB.Delta(oldB)
	s.PreviousUpsilon = oldU
	s.PreviousBeta = oldB
	s.Upsilon = newU
	s.Beta = newB
	s.DualEngineActive = cfg.DualTrack

	if cfg.EpsilonPhiTriangle {
		s.TrianglePhiOverEpsilon = ratioOrZero(s.Phi, s.Epsilon)
		s.TrianglePrevOverPhi = ratioOrZero(s.PreviousUpsilon, s.Phi)
		s.TriangleEpsilonOverPrevious = ratioOrZero(s.Epsilon, s.PreviousUpsilon)
	}

	if cfg.ModularWrap {
		limit := new(big.Int).SetUint64(cfg.KoppaWrapThreshold)
		if s.Koppa.absExceeds(limit) {
			s.Koppa = s.Koppa.Mod(s.Beta)
		}
	}
	return true
}

// ratioOrZero is a/b, or 0/1 when b is zero.
func ratioOrZero(a, b Rational) Rational {
	if b.IsZero() {
		return Rational{}
	}
	return a.quo(b)
}
