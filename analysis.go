package pretzel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"strconv"
	"strings"
)

// Classification thresholds, applied to float snapshots of υ/β.
const (
	divergentRange       = 1.0e6
	fixedPointRange      = 1.0e-9
	fixedPointStep       = 1.0e-12
	oscillatingRange     = 100.0
	convergentDelta      = 1.0e-4
	convergenceTickDelta = 1.0e-5
)

// divergentMagnitude is the numerator/denominator size past which a run is
// called divergent regardless of its ratio.
var divergentMagnitude = big.NewInt(1_000_000_000)

// StackHistogramBuckets is the number of ϙ-stack depth buckets; deeper
// samples land in the last one.
const StackHistogramBuckets = 8

// RunSummary is the post-run digest of one trajectory. All float fields are
// snapshots for reporting.
type RunSummary struct {
	FinalRatio         Rational // last defined υ/β, unreduced
	RatioDefined       bool
	FinalRatioSnapshot float64
	ClosestConstant    string // "None" when the ratio was never defined
	ClosestDelta       float64
	ConvergenceTick    int // first tick within 1e-5 of any constant, 0 if never
	Pattern            string
	Classification     string
	StackSummary       string

	TotalSamples int
	TotalTicks   int

	PsiEvents        int
	RhoEvents        int
	MuZeroEvents     int
	PsiSpacingMean   float64
	PsiSpacingStddev float64

	RatioMean     float64
	RatioVariance float64 // sample variance
	RatioStddev   float64
	RatioRange    float64

	StackHistogram    [StackHistogramBuckets]int
	AverageStackDepth float64

	MaxNumerator   *big.Int // largest |num| of υ or β seen
	MaxDenominator *big.Int // largest den of υ or β seen

	// Period of the end-of-tick ratio trajectory (1, 2, 4, ...), -1 if none
	// was found or there was too little data.
	Period    int
	Amplitude float64
}

// PeriodConfig controls period detection on the end-of-tick ratio series.
type PeriodConfig struct {
	Tolerance float64 // Values closer than this count as equal
	MaxPeriod int     // Largest power-of-two period tried; shorter series cap it lower
}

// DefaultPeriodConfig returns conservative defaults.
func DefaultPeriodConfig() PeriodConfig {
	return PeriodConfig{
		Tolerance: 1e-9,
		MaxPeriod: 8,
	}
}

// DetectPeriod returns the smallest power-of-two p ≤ MaxPeriod such that,
// after a p-sample transient, every sample equals the one p before it. A
// period is only tried when the series holds more than two of its blocks.
// -1 means no period was found.
func DetectPeriod(trajectory []float64, cfg PeriodConfig) int {
	for p := 1; p <= cfg.MaxPeriod && 2*p < len(trajectory); p *= 2 {
		if repeatsEvery(trajectory, p, cfg.Tolerance) {
			return p
		}
	}
	return -1
}

func repeatsEvery(series []float64, p int, tol float64) bool {
	for i := 2 * p; i < len(series); i++ {
		if math.Abs(series[i]-series[i-p]) > tol {
			return false
		}
	}
	return true
}

// CalculateAmplitude returns max - min of trajectory.
func CalculateAmplitude(trajectory []float64) float64 {
	if len(trajectory) == 0 {
		return 0.0
	}
	lo, hi := trajectory[0], trajectory[0]
	for _, x := range trajectory {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return hi - lo
}

// welford is a running mean and sum of squared deviations.
type welford struct {
	count int
	mean  float64
	m2    float64
}

func (w *welford) add(x float64) {
	w.count++
	d := x - w.mean
	w.mean += d / float64(w.count)
	w.m2 += d * (x - w.mean)
}

func (w *welford) variance() float64 {
	if w.count < 2 {
		return 0
	}
	return w.m2 / float64(w.count-1)
}

// Analyzer is a Sink that digests a run as it happens. It can also be fed
// from the CSV streams of a batch run (see AnalyzeFiles).
type Analyzer struct {
	period PeriodConfig

	summary    RunSummary
	ratio      welford
	ratioMin   float64
	ratioMax   float64
	prevRatio  float64
	havePrev   bool
	maxStep    float64
	signFlips  int
	bestDelta  float64
	bestName   string
	stackSum   int
	endOfTick  []float64
	spacing    welford
	lastPsiIdx int
	havePsi    bool
}

// NewAnalyzer returns an empty analyzer.
func NewAnalyzer(cfg PeriodConfig) *Analyzer {
	return &Analyzer{
		period:    cfg,
		bestDelta: math.Inf(1),
		summary: RunSummary{
			MaxNumerator:   new(big.Int),
			MaxDenominator: new(big.Int),
		},
	}
}

// Record implements Sink.
func (a *Analyzer) Record(step *Step) error {
	ev := step.Events
	a.observeValues(step.Tick, step.Microtick, step.State.Upsilon, step.State.Beta, step.State.KoppaStackSize)
	a.observeEvents(step.Tick, step.Microtick, ev.RhoEvent, ev.PsiFired, ev.MuZero)
	return nil
}

func (a *Analyzer) observeValues(tick, mt int, u, b Rational, stackSize int) {
	s := &a.summary
	s.TotalTicks = tick
	s.TotalSamples++

	depth := min(max(stackSize, 0), StackHistogramBuckets-1)
	s.StackHistogram[depth]++
	a.stackSum += depth

	for _, v := range [...]Rational{u, b} {
		if n := new(big.Int).Abs(v.n()); n.Cmp(s.MaxNumerator) > 0 {
			s.MaxNumerator = n
		}
		if d := v.d(); d.Cmp(s.MaxDenominator) > 0 {
			s.MaxDenominator = new(big.Int).Set(d)
		}
	}

	if b.IsZero() {
		return
	}
	ratio := u.quo(b)
	snap := ratio.Float64()
	s.RatioDefined = true
	s.FinalRatio = ratio
	s.FinalRatioSnapshot = snap

	a.ratio.add(snap)
	if a.ratio.count == 1 {
		a.ratioMin, a.ratioMax = snap, snap
	} else {
		a.ratioMin = min(a.ratioMin, snap)
		a.ratioMax = max(a.ratioMax, snap)
	}
	if a.havePrev {
		a.maxStep = max(a.maxStep, math.Abs(snap-a.prevRatio))
		if (snap > 0 && a.prevRatio < 0) || (snap < 0 && a.prevRatio > 0) {
			a.signFlips++
		}
	}
	a.prevRatio, a.havePrev = snap, true

	for _, c := range KnownConstants {
		d := math.Abs(snap - c.Value)
		if d < a.bestDelta {
			a.bestDelta, a.bestName = d, c.Name
		}
		if d < convergenceTickDelta && s.ConvergenceTick == 0 {
			s.ConvergenceTick = tick
		}
	}

	if mt == MicroticksPerTick {
		a.endOfTick = append(a.endOfTick, snap)
	}
}

func (a *Analyzer) observeEvents(tick, mt int, rho, psi, mu bool) {
	s := &a.summary
	if rho {
		s.RhoEvents++
	}
	if mu {
		s.MuZeroEvents++
	}
	if !psi {
		return
	}
	s.PsiEvents++
	idx := (tick-1)*MicroticksPerTick + mt
	if a.havePsi {
		a.spacing.add(float64(idx - a.lastPsiIdx))
	}
	a.lastPsiIdx, a.havePsi = idx, true
}

// Summary finalises and returns the digest. The analyzer can keep recording
// afterwards; a later Summary reflects the extra steps.
func (a *Analyzer) Summary() RunSummary {
	s := a.summary
	s.MaxNumerator = new(big.Int).Set(a.summary.MaxNumerator)
	s.MaxDenominator = new(big.Int).Set(a.summary.MaxDenominator)

	s.RatioMean = a.ratio.mean
	s.RatioVariance = a.ratio.variance()
	s.RatioStddev = math.Sqrt(s.RatioVariance)
	if a.ratio.count > 0 {
		s.RatioRange = a.ratioMax - a.ratioMin
	}

	if a.spacing.count > 0 {
		s.PsiSpacingMean = a.spacing.mean
		s.PsiSpacingStddev = math.Sqrt(a.spacing.variance())
	}

	if a.bestName != "" {
		s.ClosestConstant, s.ClosestDelta = a.bestName, a.bestDelta
	} else {
		s.ClosestConstant, s.ClosestDelta = "None", math.Inf(1)
	}

	s.StackSummary = a.stackSummary(&s)
	s.Pattern, s.Classification = a.classify(&s)

	s.Period = DetectPeriod(a.endOfTick, a.period)
	s.Amplitude = CalculateAmplitude(a.endOfTick)
	return s
}

func (a *Analyzer) stackSummary(s *RunSummary) string {
	if s.TotalSamples == 0 {
		return "avg=0.00 []"
	}
	s.AverageStackDepth = float64(a.stackSum) / float64(s.TotalSamples)
	var b strings.Builder
	fmt.Fprintf(&b, "avg=%.2f [", s.AverageStackDepth)
	for depth, n := range s.StackHistogram {
		if depth > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d:%d", depth, n)
	}
	b.WriteByte(']')
	return b.String()
}

// classify returns the pattern label and the classification.
func (a *Analyzer) classify(s *RunSummary) (string, string) {
	if !s.RatioDefined {
		return "null", "Null"
	}
	divergent := s.RatioRange > divergentRange ||
		s.MaxNumerator.Cmp(divergentMagnitude) > 0 ||
		s.MaxDenominator.Cmp(divergentMagnitude) > 0
	if divergent {
		return "divergent", "Chaotic"
	}
	if s.RatioRange < fixedPointRange && a.maxStep < fixedPointStep {
		return "fixed point", "FixedPoint"
	}
	if s.RatioRange < oscillatingRange && a.signFlips > a.ratio.count/3 {
		return "oscillating", "Oscillating"
	}
	if s.ClosestDelta < convergentDelta {
		return "stable", "Convergent(" + s.ClosestConstant + ")"
	}
	return "stable", "Stable"
}

// Divergent reports whether the summary was classified as divergent.
func (s RunSummary) Divergent() bool { return s.Pattern == "divergent" }

// Oscillating reports whether the summary was classified as oscillating.
func (s RunSummary) Oscillating() bool { return s.Pattern == "oscillating" }

// SimulateAndAnalyze runs cfg in memory and returns its digest.
func SimulateAndAnalyze(cfg *Config) (RunSummary, error) {
	a := NewAnalyzer(DefaultPeriodConfig())
	if err := Run(cfg, a); err != nil {
		return RunSummary{}, err
	}
	return a.Summary(), nil
}

// AnalyzeFiles replays the values and events streams of a batch run.
func AnalyzeFiles(eventsPath, valuesPath string) (RunSummary, error) {
	a := NewAnalyzer(DefaultPeriodConfig())
	if err := replayCSV(valuesPath, len(ValuesHeader), a.replayValues); err != nil {
		return RunSummary{}, fmt.Errorf("values stream: %w", err)
	}
	if err := replayCSV(eventsPath, len(EventsHeader), a.replayEvents); err != nil {
		return RunSummary{}, fmt.Errorf("events stream: %w", err)
	}
	return a.Summary(), nil
}

// Column offsets into the values stream.
const (
	colUpsilonNum = 2
	colBetaNum    = 4
	colStackSize  = 22
)

func (a *Analyzer) replayValues(row []string) error {
	tick, mt, err := tickColumns(row)
	if err != nil {
		return err
	}
	u, err := ratColumns(row, colUpsilonNum)
	if err != nil {
		return err
	}
	b, err := ratColumns(row, colBetaNum)
	if err != nil {
		return err
	}
	size, err := strconv.Atoi(row[colStackSize])
	if err != nil {
		return fmt.Errorf("stack size: %w", err)
	}
	a.observeValues(tick, mt, u, b, size)
	return nil
}

func (a *Analyzer) replayEvents(row []string) error {
	tick, mt, err := tickColumns(row)
	if err != nil {
		return err
	}
	a.observeEvents(tick, mt, row[3] != "0", row[4] != "0", row[5] != "0")
	return nil
}

func tickColumns(row []string) (int, int, error) {
	tick, err := strconv.Atoi(row[0])
	if err != nil {
		return 0, 0, fmt.Errorf("tick: %w", err)
	}
	mt, err := strconv.Atoi(row[1])
	if err != nil {
		return 0, 0, fmt.Errorf("microtick: %w", err)
	}
	return tick, mt, nil
}

func ratColumns(row []string, at int) (Rational, error) {
	num, ok := new(big.Int).SetString(row[at], 10)
	if !ok {
		return Rational{}, fmt.Errorf("column %d: bad integer %q", at, row[at])
	}
	den, ok := new(big.Int).SetString(row[at+1], 10)
	if !ok {
		return Rational{}, fmt.Errorf("column %d: bad integer %q", at+1, row[at+1])
	}
	return NewRationalBig(num, den)
}

// replayCSV feeds every data row of path to fn, skipping the header.
func replayCSV(path string, width int, fn func(row []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = width
	r.ReuseRecord = true
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("missing header")
		}
		return err
	}
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}
