package pretzel

import (
	"errors"
	"fmt"
)

// MicroticksPerTick is the length of one scheduler cycle.
const MicroticksPerTick = 11

// Phase is the role a microtick plays in the cycle.
type Phase byte

const (
	PhaseEmission Phase = 'E'
	PhaseMemory   Phase = 'M'
	PhaseReset    Phase = 'R'
)

func (p Phase) String() string { return string(rune(p)) }

// PhaseFor maps microtick 1..11 to its phase: 1,4,7,10 emit, 2,5,8,11 are
// memory and 3,6,9 reset.
func PhaseFor(microtick int) Phase {
	switch microtick {
	case 1, 4, 7, 10:
		return PhaseEmission
	case 2, 5, 8, 11:
		return PhaseMemory
	}
	return PhaseReset
}

// Events are the flags reported for one microtick.
type Events struct {
	RhoEvent           bool
	PsiFired           bool
	MuZero             bool
	ForcedEmission     bool
	RatioTriggered     bool
	TriplePsi          bool
	DualEngine         bool
	KoppaSampleIndex   int
	RatioThreshold     bool
	PsiStrengthApplied bool
	SignFlipPolarity   bool
	PsiRepetitions     int
}

// Step is everything emitted after one microtick. State is a copy taken after
// dispatch; it stays valid after Record returns.
type Step struct {
	Tick      int
	Microtick int
	Phase     Phase
	Events    Events
	State     State
}

// Sink receives every microtick of a run in order. A Record error aborts the
// run.
type Sink interface {
	Record(step *Step) error
}

// ObserverFunc adapts a plain callback to Sink. It is invoked synchronously on
// the scheduler's goroutine.
type ObserverFunc func(step *Step)

// Record calls f.
func (f ObserverFunc) Record(step *Step) error {
	f(step)
	return nil
}

// Run executes cfg.Ticks full cycles and hands each microtick to sink.
// Step failures (Slide on ϙ = 0, ψ on a zero operand) are reported as "did
// not fire" and the run continues. An arithmetic fault or a sink error ends
// the run with an error.
func Run(cfg *Config, sink Sink) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			fe, ok := r.(*fatalError)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("run aborted: %w", fe)
		}
	}()

	s := NewState(cfg)
	for tick := 1; tick <= cfg.Ticks; tick++ {
		for mt := 1; mt <= MicroticksPerTick; mt++ {
			step := Step{Tick: tick, Microtick: mt, Phase: PhaseFor(mt)}
			s.beginMicrotick()

			switch step.Phase {
			case PhaseEmission:
				emission(cfg, s, mt, &step.Events)
			case PhaseMemory:
				memory(cfg, s, tick, mt, &step.Events)
			case PhaseReset:
				AccrueKoppa(cfg, s, false, false, mt)
				s.PsiRecent = false
				s.RhoLatched = false
			}

			step.Events.TriplePsi = s.PsiTripleRecent
			step.Events.DualEngine = s.DualEngineActive
			step.Events.KoppaSampleIndex = s.KoppaSampleIndex
			step.Events.RatioThreshold = s.RatioThresholdRecent
			step.Events.RatioTriggered = s.RatioTriggeredRecent
			step.Events.PsiStrengthApplied = s.PsiStrengthApplied
			step.Events.SignFlipPolarity = s.SignFlipPolarity
			step.State = *s

			if err := sink.Record(&step); err != nil {
				return fmt.Errorf("record tick %d mt %d: %w", tick, mt, err)
			}
		}
	}
	return nil
}

func emission(cfg *Config, s *State, mt int, ev *Events) {
	s.Epsilon = s.Upsilon
	EngineStep(cfg, s, mt)

	target := s.Upsilon
	if cfg.PrimeTarget == PrimeOnMemory {
		target = s.Epsilon
	}
	if HasPattern(cfg, target) {
		s.RhoPending = true
		s.RhoLatched = true
		ev.RhoEvent = true
	} else {
		s.RhoPending = false
		s.RhoLatched = false
	}

	if mt == 10 {
		ev.ForcedEmission = true
		if cfg.Mt10 == Mt10ForcedPsi || ev.RhoEvent {
			s.RhoPending = true
		}
	}
}

func memory(cfg *Config, s *State, tick, mt int, ev *Events) {
	ev.MuZero = s.Beta.IsZero()

	ratio := ratioWindowHit(cfg, s)
	threshold := cfg.RatioThresholdPsi && ratioOutsideBand(s)
	fire := PsiPermitted(cfg, s, tick) || ratio || threshold
	if cfg.StackDepthModes && s.KoppaStackSize != 2 && s.KoppaStackSize != 4 {
		fire = false
	}

	if fire {
		ev.PsiRepetitions = ApplyPsi(cfg, s)
		ev.PsiFired = ev.PsiRepetitions > 0
		s.RatioTriggeredRecent = ratio && ev.PsiFired
		s.RatioThresholdRecent = threshold && ev.PsiFired
	} else {
		s.PsiRecent = false
	}

	AccrueKoppa(cfg, s, ev.PsiFired, true, mt)
	s.RhoLatched = false
}

// ratioWindowHit reports lower < υ/β < upper for a positive β, compared by
// cross-multiplication. An empty custom window never matches.
func ratioWindowHit(cfg *Config, s *State) bool {
	lower, upper, ok := cfg.window()
	if !ok || s.Beta.Sign() <= 0 {
		return false
	}
	if lower.Cmp(upper) >= 0 {
		return false
	}
	return s.Upsilon.Cmp(lower.Mul(s.Beta)) > 0 && s.Upsilon.Cmp(upper.Mul(s.Beta)) < 0
}

// ratioOutsideBand reports |υ/β| < 1/2 or |υ/β| > 2 for a nonzero β.
func ratioOutsideBand(s *State) bool {
	if s.Beta.IsZero() {
		return false
	}
	two := MustRational(2, 1)
	u, b := s.Upsilon.AbsNum(), s.Beta.AbsNum()
	return u.Mul(two).Cmp(b) < 0 || u.Cmp(b.Mul(two)) > 0
}

// Simulate runs cfg in batch mode, writing events.csv and values.csv into dir.
// The files are closed on every path; nothing is created for an invalid config
// or if they cannot both be opened.
func Simulate(cfg *Config, dir string) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}
	sink, err := OpenFileSink(dir)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, sink.Close())
	}()
	return Run(cfg, sink)
}

// SimulateStream runs cfg and calls observe once per microtick.
func SimulateStream(cfg *Config, observe func(step *Step)) error {
	return Run(cfg, ObserverFunc(observe))
}
