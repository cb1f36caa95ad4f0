package pretzel

// StackSlots is the depth of the ϙ history stack.
const StackSlots = 4

// State is the mutable register file of one run. It is owned by the scheduler
// for the duration of Run; observers receive a copy, which is safe to read
// because Rational values are never mutated in place.
type State struct {
	Upsilon Rational
	Beta    Rational
	Koppa   Rational

	Epsilon Rational // υ at the start of the current emission
	Phi     Rational // υ just before the last ψ

	PreviousUpsilon Rational
	PreviousBeta    Rational
	DeltaUpsilon    Rational
	DeltaBeta       Rational

	KoppaStack       [StackSlots]Rational
	KoppaStackSize   int
	KoppaSample      Rational
	KoppaSampleIndex int // stack slot sampled this microtick, -1 for live ϙ

	// ε/φ triangle: φ/ε, previous υ/φ, ε/previous υ.
	TrianglePhiOverEpsilon      Rational
	TrianglePrevOverPhi         Rational
	TriangleEpsilonOverPrevious Rational

	RhoPending           bool
	RhoLatched           bool
	PsiRecent            bool
	PsiTripleRecent      bool
	PsiStrengthApplied   bool
	RatioTriggeredRecent bool
	RatioThresholdRecent bool
	DualEngineActive     bool
	SignFlipPolarity     bool
}

// NewState returns a state reset from cfg's seeds.
func NewState(cfg *Config) *State {
	s := &State{}
	s.Reset(cfg)
	return s
}

// Reset loads the seeds: ε starts at υ, φ at β, the previous values at the
// seeds themselves, the stack is emptied and the sample shows live ϙ.
func (s *State) Reset(cfg *Config) {
	*s = State{
		Upsilon:          cfg.UpsilonSeed,
		Beta:             cfg.BetaSeed,
		Koppa:            cfg.KoppaSeed,
		Epsilon:          cfg.UpsilonSeed,
		Phi:              cfg.BetaSeed,
		PreviousUpsilon:  cfg.UpsilonSeed,
		PreviousBeta:     cfg.BetaSeed,
		KoppaSample:      cfg.KoppaSeed,
		KoppaSampleIndex: -1,
	}
}

// pushKoppa appends v to the history, evicting slot 0 when full.
func (s *State) pushKoppa(v Rational) {
	if s.KoppaStackSize == StackSlots {
		copy(s.KoppaStack[:], s.KoppaStack[1:])
		s.KoppaStack[StackSlots-1] = v
		return
	}
	s.KoppaStack[s.KoppaStackSize] = v
	s.KoppaStackSize++
}

// beginMicrotick clears the per-microtick report flags and points the sample
// back at live ϙ. Rho, ψ-recent and polarity state carry across microticks.
func (s *State) beginMicrotick() {
	s.PsiTripleRecent = false
	s.PsiStrengthApplied = false
	s.RatioTriggeredRecent = false
	s.RatioThresholdRecent = false
	s.DualEngineActive = false
	s.KoppaSample = s.Koppa
	s.KoppaSampleIndex = -1
}
