package pretzel

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// EngineMode selects how the emission step advances υ.
type EngineMode int

const (
	EngineAdd EngineMode = iota
	EngineMultiply
	EngineSlide
	EngineDeltaAdd
)

func (m EngineMode) String() string {
	switch m {
	case EngineAdd:
		return "add"
	case EngineMultiply:
		return "multi"
	case EngineSlide:
		return "slide"
	case EngineDeltaAdd:
		return "delta"
	}
	return fmt.Sprintf("EngineMode(%d)", int(m))
}

func (m EngineMode) valid() bool { return m >= EngineAdd && m <= EngineDeltaAdd }

// TrackMode is the per-track transform used in dual-track mode and by the
// mode overrides.
type TrackMode int

const (
	TrackAdd TrackMode = iota
	TrackMultiply
	TrackSlide
)

func (m TrackMode) String() string {
	switch m {
	case TrackAdd:
		return "add"
	case TrackMultiply:
		return "multi"
	case TrackSlide:
		return "slide"
	}
	return fmt.Sprintf("TrackMode(%d)", int(m))
}

func (m TrackMode) valid() bool { return m >= TrackAdd && m <= TrackSlide }

// PsiMode is the ψ firing policy on memory microticks.
type PsiMode int

const (
	PsiMStep PsiMode = iota
	PsiRhoOnly
	PsiMStepRho
	PsiInhibitRho
)

func (m PsiMode) String() string {
	switch m {
	case PsiMStep:
		return "mstep"
	case PsiRhoOnly:
		return "rho_only"
	case PsiMStepRho:
		return "mstep_rho"
	case PsiInhibitRho:
		return "inhibit_rho"
	}
	return fmt.Sprintf("PsiMode(%d)", int(m))
}

func (m PsiMode) valid() bool { return m >= PsiMStep && m <= PsiInhibitRho }

// KoppaMode is what a triggered accrual does to ϙ before adding υ+β.
type KoppaMode int

const (
	KoppaDump KoppaMode = iota
	KoppaPop
	KoppaAccumulate
)

func (m KoppaMode) String() string {
	switch m {
	case KoppaDump:
		return "dump"
	case KoppaPop:
		return "pop"
	case KoppaAccumulate:
		return "accumulate"
	}
	return fmt.Sprintf("KoppaMode(%d)", int(m))
}

func (m KoppaMode) valid() bool { return m >= KoppaDump && m <= KoppaAccumulate }

// KoppaTrigger decides which microticks run a ϙ accrual.
type KoppaTrigger int

const (
	KoppaOnPsi KoppaTrigger = iota
	KoppaOnMuAfterPsi
	KoppaOnAllMu
)

func (t KoppaTrigger) String() string {
	switch t {
	case KoppaOnPsi:
		return "on_psi"
	case KoppaOnMuAfterPsi:
		return "on_mu_after_psi"
	case KoppaOnAllMu:
		return "on_all_mu"
	}
	return fmt.Sprintf("KoppaTrigger(%d)", int(t))
}

func (t KoppaTrigger) valid() bool { return t >= KoppaOnPsi && t <= KoppaOnAllMu }

// PrimeTarget is the value the pattern detector inspects after an emission.
type PrimeTarget int

const (
	PrimeOnMemory      PrimeTarget = iota // ε, the pre-step υ
	PrimeOnNewUpsilon                     // υ after the step
)

func (p PrimeTarget) String() string {
	switch p {
	case PrimeOnMemory:
		return "memory"
	case PrimeOnNewUpsilon:
		return "new_upsilon"
	}
	return fmt.Sprintf("PrimeTarget(%d)", int(p))
}

func (p PrimeTarget) valid() bool { return p >= PrimeOnMemory && p <= PrimeOnNewUpsilon }

// Mt10Behavior controls what microtick 10 forces.
type Mt10Behavior int

const (
	Mt10ForcedEmissionOnly Mt10Behavior = iota
	Mt10ForcedPsi
)

func (b Mt10Behavior) String() string {
	switch b {
	case Mt10ForcedEmissionOnly:
		return "forced_emission_only"
	case Mt10ForcedPsi:
		return "forced_psi"
	}
	return fmt.Sprintf("Mt10Behavior(%d)", int(b))
}

func (b Mt10Behavior) valid() bool { return b >= Mt10ForcedEmissionOnly && b <= Mt10ForcedPsi }

// RatioTriggerMode selects the υ/β window that forces ψ.
type RatioTriggerMode int

const (
	RatioNone RatioTriggerMode = iota
	RatioGolden
	RatioSqrt2
	RatioPlastic
	RatioCustom
)

func (m RatioTriggerMode) String() string {
	switch m {
	case RatioNone:
		return "none"
	case RatioGolden:
		return "golden"
	case RatioSqrt2:
		return "sqrt2"
	case RatioPlastic:
		return "plastic"
	case RatioCustom:
		return "custom"
	}
	return fmt.Sprintf("RatioTriggerMode(%d)", int(m))
}

func (m RatioTriggerMode) valid() bool { return m >= RatioNone && m <= RatioCustom }

// SignFlipMode negates the freshly computed υ and β after an engine step.
type SignFlipMode int

const (
	SignFlipNone SignFlipMode = iota
	SignFlipAlways
	SignFlipAlternate
)

func (m SignFlipMode) String() string {
	switch m {
	case SignFlipNone:
		return "none"
	case SignFlipAlways:
		return "always"
	case SignFlipAlternate:
		return "alternate"
	}
	return fmt.Sprintf("SignFlipMode(%d)", int(m))
}

func (m SignFlipMode) valid() bool { return m >= SignFlipNone && m <= SignFlipAlternate }

// Config is one run's full parameter set. The engine treats it as read-only.
type Config struct {
	Engine       EngineMode
	DualTrack    bool      // advance β with its own track mode
	UpsilonTrack TrackMode // dual-track only
	BetaTrack    TrackMode // dual-track only

	Psi          PsiMode
	Koppa        KoppaMode
	KoppaTrigger KoppaTrigger
	PrimeTarget  PrimeTarget
	Mt10         Mt10Behavior
	SignFlip     SignFlipMode

	RatioTrigger RatioTriggerMode
	RatioLower   Rational // RatioCustom only, exclusive
	RatioUpper   Rational // RatioCustom only, exclusive

	TriplePsi            bool
	ConditionalTriplePsi bool // triple ψ when all three numerators are prime
	PsiStrength          bool // repeat ψ once per prime numerator
	RatioThresholdPsi    bool // fire when |υ/β| < 1/2 or > 2

	MultiLevelKoppa       bool // keep the 4-slot ϙ history
	AsymmetricCascade     bool
	StackDepthModes       bool
	KoppaGatedEngine      bool
	DeltaCrossPropagation bool
	DeltaKoppaOffset      bool
	EpsilonPhiTriangle    bool
	ModularWrap           bool
	KoppaWrapThreshold    uint64

	TwinPrimeTrigger    bool
	FibonacciTrigger    bool
	PerfectPowerTrigger bool

	Ticks int

	UpsilonSeed Rational
	BetaSeed    Rational
	KoppaSeed   Rational
}

// DefaultConfig mirrors the explorer front end's starting configuration:
// υ=3/5, β=5/7, ϙ=0/1 over three ticks.
func DefaultConfig() Config {
	return Config{
		Engine:       EngineAdd,
		UpsilonTrack: TrackAdd,
		BetaTrack:    TrackAdd,
		Psi:          PsiInhibitRho,
		Koppa:        KoppaPop,
		KoppaTrigger: KoppaOnAllMu,
		PrimeTarget:  PrimeOnNewUpsilon,
		Mt10:         Mt10ForcedPsi,
		SignFlip:     SignFlipNone,
		RatioTrigger: RatioNone,
		Ticks:        3,
		UpsilonSeed:  MustRational(3, 5),
		BetaSeed:     MustRational(5, 7),
		KoppaSeed:    MustRational(0, 1),
	}
}

// Validate checks every enum is in range and the tick count is usable.
// Seeds cannot carry a zero denominator once constructed, so they are not
// re-checked here.
func (c *Config) Validate() error {
	checks := []struct {
		field string
		ok    bool
		value any
	}{
		{"engine_mode", c.Engine.valid(), int(c.Engine)},
		{"upsilon_track", c.UpsilonTrack.valid(), int(c.UpsilonTrack)},
		{"beta_track", c.BetaTrack.valid(), int(c.BetaTrack)},
		{"psi_mode", c.Psi.valid(), int(c.Psi)},
		{"koppa_mode", c.Koppa.valid(), int(c.Koppa)},
		{"koppa_trigger", c.KoppaTrigger.valid(), int(c.KoppaTrigger)},
		{"prime_target", c.PrimeTarget.valid(), int(c.PrimeTarget)},
		{"mt10_behavior", c.Mt10.valid(), int(c.Mt10)},
		{"sign_flip_mode", c.SignFlip.valid(), int(c.SignFlip)},
		{"ratio_trigger_mode", c.RatioTrigger.valid(), int(c.RatioTrigger)},
		{"tick_count", c.Ticks >= 0, c.Ticks},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s out of range: %v", ErrInvalidConfig, chk.field, chk.value)
		}
	}
	return nil
}

// window returns the open interval for the configured ratio trigger.
// ok is false for RatioNone.
func (c *Config) window() (lower, upper Rational, ok bool) {
	if c.RatioTrigger == RatioCustom {
		return c.RatioLower, c.RatioUpper, true
	}
	w, ok := WindowFor(c.RatioTrigger)
	return w.Lower, w.Upper, ok
}
