package pretzel

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Scan axes, in enumeration order.
var (
	scanEngineModes = []EngineMode{EngineAdd, EngineMultiply, EngineSlide, EngineDeltaAdd}
	scanPsiModes    = []PsiMode{PsiInhibitRho, PsiMStep, PsiRhoOnly, PsiMStepRho}
	scanKoppaModes  = []KoppaMode{KoppaDump, KoppaPop, KoppaAccumulate}
	scanTripleModes = []bool{false, true}
)

// DefaultSeeds is the seed list used when none is given: ratios of
// consecutive Fibonacci numbers plus 7/5.
func DefaultSeeds() []Rational {
	return []Rational{
		MustRational(1, 1), MustRational(3, 2), MustRational(5, 3),
		MustRational(8, 5), MustRational(7, 5), MustRational(13, 8),
	}
}

// ScanConfig controls a phase-space scan.
type ScanConfig struct {
	Base    Config       // Template run; the scanned axes are overwritten
	Seeds   []Rational   // Used for both υ and β
	Limit   int          // Stop after this many runs (0 = all)
	Workers int          // Concurrent runs (0 = GOMAXPROCS)
	Logger  *slog.Logger // nil = slog.Default()
}

// DefaultScanConfig returns the standard scan: 2 ticks per run, ϙ seeded at
// 1/1, accrual on every memory microtick, rho tested on ε and microtick 10
// forcing ψ.
func DefaultScanConfig() ScanConfig {
	base := DefaultConfig()
	base.Ticks = 2
	base.KoppaSeed = MustRational(1, 1)
	base.KoppaTrigger = KoppaOnAllMu
	base.PrimeTarget = PrimeOnMemory
	base.Mt10 = Mt10ForcedPsi
	return ScanConfig{
		Base:  base,
		Seeds: DefaultSeeds(),
	}
}

// PhaseRecord is one row of a phase map.
type PhaseRecord struct {
	Engine          string `json:"engine"`
	Psi             string `json:"psi"`
	Koppa           string `json:"koppa"`
	PsiType         string `json:"psi_type"`
	UpsilonSeed     string `json:"upsilon_seed"`
	BetaSeed        string `json:"beta_seed"`
	FinalRatio      string `json:"final_ratio"`
	ClosestConstant string `json:"closest_constant"`
	Delta           Float  `json:"delta"`
	ConvergenceTick int    `json:"convergence_tick"`
	Pattern         string `json:"pattern"`
	Classification  string `json:"classification"`
	StackSummary    string `json:"stack_summary"`

	FinalRatioSnapshot Float `json:"final_ratio_snapshot"`
	PsiEvents          int   `json:"psi_events"`
	RhoEvents          int   `json:"rho_events"`
	MuZeroEvents       int   `json:"mu_zero_events"`
	PsiSpacingMean     Float `json:"psi_spacing_mean"`
	PsiSpacingStddev   Float `json:"psi_spacing_stddev"`
	RatioVariance      Float `json:"ratio_variance"`
	RatioRange         Float `json:"ratio_range"`
	RatioStddev        Float `json:"ratio_stddev"`
	AverageStackDepth  Float `json:"average_stack_depth"`
}

// Float is a report value that encodes non-finite numbers as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', 12, 64), nil
}

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', 12, 64) }

// PsiTypeLabel names the ψ form a config uses.
func PsiTypeLabel(cfg *Config) string {
	if cfg.TriplePsi {
		return "3-way"
	}
	return "2-way"
}

func newPhaseRecord(cfg *Config, s RunSummary) PhaseRecord {
	finalRatio := ""
	if s.RatioDefined {
		finalRatio = s.FinalRatio.String()
	}
	return PhaseRecord{
		Engine:             cfg.Engine.String(),
		Psi:                cfg.Psi.String(),
		Koppa:              cfg.Koppa.String(),
		PsiType:            PsiTypeLabel(cfg),
		UpsilonSeed:        cfg.UpsilonSeed.String(),
		BetaSeed:           cfg.BetaSeed.String(),
		FinalRatio:         finalRatio,
		ClosestConstant:    s.ClosestConstant,
		Delta:              Float(s.ClosestDelta),
		ConvergenceTick:    s.ConvergenceTick,
		Pattern:            s.Pattern,
		Classification:     s.Classification,
		StackSummary:       s.StackSummary,
		FinalRatioSnapshot: Float(s.FinalRatioSnapshot),
		PsiEvents:          s.PsiEvents,
		RhoEvents:          s.RhoEvents,
		MuZeroEvents:       s.MuZeroEvents,
		PsiSpacingMean:     Float(s.PsiSpacingMean),
		PsiSpacingStddev:   Float(s.PsiSpacingStddev),
		RatioVariance:      Float(s.RatioVariance),
		RatioRange:         Float(s.RatioRange),
		RatioStddev:        Float(s.RatioStddev),
		AverageStackDepth:  Float(s.AverageStackDepth),
	}
}

// trackFor is the track mode matching a single-track engine mode.
func trackFor(m EngineMode) TrackMode {
	switch m {
	case EngineMultiply:
		return TrackMultiply
	case EngineSlide:
		return TrackSlide
	}
	return TrackAdd
}

// ScanConfigs enumerates engine × ψ × ϙ × ψ form × υ seed × β seed over
// base, truncated to limit when limit > 0.
func ScanConfigs(base Config, seeds []Rational, limit int) []Config {
	var out []Config
	for _, engine := range scanEngineModes {
		for _, psi := range scanPsiModes {
			for _, koppa := range scanKoppaModes {
				for _, triple := range scanTripleModes {
					for _, u := range seeds {
						for _, b := range seeds {
							if limit > 0 && len(out) >= limit {
								return out
							}
							cfg := base
							cfg.Engine = engine
							cfg.UpsilonTrack = trackFor(engine)
							cfg.BetaTrack = trackFor(engine)
							cfg.Psi = psi
							cfg.Koppa = koppa
							cfg.TriplePsi = triple
							cfg.UpsilonSeed = u
							cfg.BetaSeed = b
							out = append(out, cfg)
						}
					}
				}
			}
		}
	}
	return out
}

// Scan runs every configuration of the phase space in parallel and returns
// one record per run in enumeration order. Each run owns its own state, so
// runs share nothing but the read-only seed list. A failing run aborts the
// scan.
func Scan(ctx context.Context, cfg ScanConfig) ([]PhaseRecord, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Seeds) == 0 {
		cfg.Seeds = DefaultSeeds()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	configs := ScanConfigs(cfg.Base, cfg.Seeds, cfg.Limit)
	records := make([]PhaseRecord, len(configs))
	logger.Info("phase scan starting", "runs", len(configs), "workers", workers, "ticks", cfg.Base.Ticks)

	var done atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range configs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			run := &configs[i]
			summary, err := SimulateAndAnalyze(run)
			if err != nil {
				return fmt.Errorf("run %d (%s/%s/%s %s υ=%s β=%s): %w", i,
					run.Engine, run.Psi, run.Koppa, PsiTypeLabel(run), run.UpsilonSeed, run.BetaSeed, err)
			}
			records[i] = newPhaseRecord(run, summary)
			logger.Debug("phase run",
				"engine", records[i].Engine,
				"psi", records[i].Psi,
				"koppa", records[i].Koppa,
				"psi_type", records[i].PsiType,
				"classification", records[i].Classification,
				"done", done.Add(1))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("phase scan finished", "runs", len(records))
	return records, nil
}

// ParseSeedGrid reads either a range "a/b:c/d" (numerators a..c crossed with
// denominators b..d) or a comma-separated list "n/d,n/d,...".
func ParseSeedGrid(text string) ([]Rational, error) {
	if lo, hi, ok := strings.Cut(text, ":"); ok {
		lower, err := parseSmallFraction(lo)
		if err != nil {
			return nil, fmt.Errorf("grid lower bound: %w", err)
		}
		upper, err := parseSmallFraction(hi)
		if err != nil {
			return nil, fmt.Errorf("grid upper bound: %w", err)
		}
		var seeds []Rational
		for num := lower[0]; num <= upper[0]; num++ {
			for den := lower[1]; den <= upper[1]; den++ {
				seeds = append(seeds, MustRational(num, uint64(den)))
			}
		}
		if len(seeds) == 0 {
			return nil, fmt.Errorf("grid %q is empty", text)
		}
		return seeds, nil
	}

	var seeds []Rational
	for _, tok := range strings.Split(text, ",") {
		r, err := ParseRational(tok)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, r)
	}
	return seeds, nil
}

func parseSmallFraction(s string) ([2]int64, error) {
	numStr, denStr, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return [2]int64{}, fmt.Errorf("%q: want num/den", s)
	}
	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return [2]int64{}, fmt.Errorf("%q: %w", s, err)
	}
	den, err := strconv.ParseInt(denStr, 10, 64)
	if err != nil {
		return [2]int64{}, fmt.Errorf("%q: %w", s, err)
	}
	if den <= 0 {
		return [2]int64{}, fmt.Errorf("%q: %w", s, ErrZeroDenominator)
	}
	return [2]int64{num, den}, nil
}

// PhaseMapHeader is the CSV column layout of a phase map.
var PhaseMapHeader = []string{
	"engine", "psi", "koppa", "psi_type", "u_seed", "b_seed", "final_ratio",
	"closest_constant", "delta", "convergence_tick", "pattern", "classification",
	"stack_summary", "final_ratio_snapshot", "psi_events", "rho_events", "mu_zero",
	"psi_spacing_mean", "psi_spacing_stddev", "ratio_variance", "ratio_range",
	"ratio_stddev", "average_stack_depth",
}

// WritePhaseMapCSV writes records as CSV with a header row.
func WritePhaseMapCSV(w io.Writer, records []PhaseRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PhaseMapHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Engine, r.Psi, r.Koppa, r.PsiType, r.UpsilonSeed, r.BetaSeed, r.FinalRatio,
			r.ClosestConstant, r.Delta.String(), strconv.Itoa(r.ConvergenceTick), r.Pattern,
			r.Classification, r.StackSummary, r.FinalRatioSnapshot.String(),
			strconv.Itoa(r.PsiEvents), strconv.Itoa(r.RhoEvents), strconv.Itoa(r.MuZeroEvents),
			r.PsiSpacingMean.String(), r.PsiSpacingStddev.String(), r.RatioVariance.String(),
			r.RatioRange.String(), r.RatioStddev.String(), r.AverageStackDepth.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePhaseMapJSON writes records as an indented JSON array.
func WritePhaseMapJSON(w io.Writer, records []PhaseRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
