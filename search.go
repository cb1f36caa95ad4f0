package pretzel

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Strategy selects the search's scoring function.
type Strategy string

const (
	StrategyHillClimb         Strategy = "hill-climb"
	StrategyTargetConvergence Strategy = "target-convergence"
	StrategyChaosSeeker       Strategy = "chaos-seeker"
)

// SearchConfig controls an evolutionary configuration search.
type SearchConfig struct {
	Generations int
	Population  int
	Elite       int      // Survivors copied unchanged into the next generation
	Strategy    Strategy // Scoring function
	Target      string   // KnownConstants name the convergence strategies aim at
	MinTicks    int      // Shortest run drawn for a fresh candidate
	MaxTicks    int      // Longest run drawn for a fresh candidate
	Seed        uint64   // RNG seed; 0 picks a random one
	Workers     int      // Concurrent evaluations (0 = GOMAXPROCS)
	Logger      *slog.Logger
}

// DefaultSearchConfig returns a small hill-climb toward rho.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Generations: 10,
		Population:  8,
		Elite:       2,
		Strategy:    StrategyHillClimb,
		Target:      "rho",
		MinTicks:    2,
		MaxTicks:    3,
	}
}

// Candidate is one configuration under evaluation.
type Candidate struct {
	Config    Config
	Summary   RunSummary
	Score     float64
	evaluated bool
}

// GenerationReport is the best candidate of one generation.
type GenerationReport struct {
	Generation int
	Best       Candidate
}

// SearchResult is the outcome of Evolve.
type SearchResult struct {
	Best        Candidate
	Generations []GenerationReport
	Seed        uint64
}

// searchBase is the fixed part of every candidate.
func searchBase() Config {
	cfg := DefaultConfig()
	cfg.Ticks = 2
	cfg.KoppaSeed = MustRational(1, 1)
	cfg.KoppaTrigger = KoppaOnAllMu
	cfg.PrimeTarget = PrimeOnMemory
	cfg.Mt10 = Mt10ForcedPsi
	return cfg
}

var searchPsiModes = []PsiMode{PsiMStep, PsiRhoOnly, PsiMStepRho, PsiInhibitRho}

func randomSeed(rng *rand.Rand) Rational {
	return MustRational(1+rng.Int64N(8), uint64(1+rng.IntN(8)))
}

// randomCandidate draws modes, ψ form, stack, a tick count in
// [minTicks, maxTicks] and seeds with numerator and denominator in 1..8.
func randomCandidate(rng *rand.Rand, minTicks, maxTicks int) Candidate {
	cfg := searchBase()
	cfg.Engine = scanEngineModes[rng.IntN(len(scanEngineModes))]
	cfg.UpsilonTrack = trackFor(cfg.Engine)
	cfg.BetaTrack = trackFor(cfg.Engine)
	cfg.Psi = searchPsiModes[rng.IntN(len(searchPsiModes))]
	cfg.Koppa = scanKoppaModes[rng.IntN(len(scanKoppaModes))]
	cfg.TriplePsi = rng.IntN(2) == 1
	cfg.MultiLevelKoppa = rng.IntN(2) == 1
	cfg.Ticks = minTicks + rng.IntN(maxTicks-minTicks+1)
	cfg.UpsilonSeed = randomSeed(rng)
	cfg.BetaSeed = randomSeed(rng)
	return Candidate{Config: cfg}
}

// mutateSeed nudges one component: numerator ±1, denominator -1 (kept ≥ 1)
// or denominator +1.
func mutateSeed(r Rational, rng *rand.Rand) Rational {
	num, den := r.Num(), r.Den()
	switch rng.IntN(4) {
	case 0:
		num.Add(num, bigOne)
	case 1:
		num.Sub(num, bigOne)
	case 2:
		if den.Cmp(bigOne) > 0 {
			den.Sub(den, bigOne)
		}
	default:
		den.Add(den, bigOne)
	}
	return fraction(num, den)
}

// mutate applies one to three random edits to cfg.
func mutate(cfg *Config, rng *rand.Rand) {
	for range 1 + rng.IntN(3) {
		switch rng.IntN(6) {
		case 0:
			cfg.Engine = scanEngineModes[rng.IntN(len(scanEngineModes))]
			cfg.UpsilonTrack = trackFor(cfg.Engine)
			cfg.BetaTrack = trackFor(cfg.Engine)
		case 1:
			cfg.Psi = searchPsiModes[rng.IntN(len(searchPsiModes))]
		case 2:
			cfg.Koppa = scanKoppaModes[rng.IntN(len(scanKoppaModes))]
		case 3:
			cfg.TriplePsi = !cfg.TriplePsi
		case 4:
			cfg.UpsilonSeed = mutateSeed(cfg.UpsilonSeed, rng)
		default:
			cfg.BetaSeed = mutateSeed(cfg.BetaSeed, rng)
		}
	}
}

// Score rates a summary under strategy. target is the constant the
// convergence strategies measure the final ratio against; a missing target
// makes hill-climb fall back to the closest constant.
func Score(s RunSummary, strategy Strategy, target string) float64 {
	targetConst, hasTarget := LookupConstant(target)

	switch {
	case strategy == StrategyTargetConvergence && hasTarget:
		if !s.RatioDefined {
			return -1e6
		}
		delta := math.Abs(s.FinalRatioSnapshot - targetConst.Value)
		score := 1000.0 / (delta + 1e-9)
		if s.ConvergenceTick > 0 {
			score += 200.0 / float64(s.ConvergenceTick)
		}
		score += 25.0 / (s.PsiSpacingStddev + 1.0)
		return score - s.RatioVariance*10.0

	case strategy == StrategyChaosSeeker:
		if s.Divergent() {
			return -1000.0
		}
		score := s.RatioVariance*200.0 + float64(s.PsiEvents)*5.0
		if s.Oscillating() {
			score += 250.0
		}
		return score
	}

	if !s.RatioDefined {
		return -1e5
	}
	delta := s.ClosestDelta
	if hasTarget {
		delta = math.Abs(s.FinalRatioSnapshot - targetConst.Value)
	}
	score := 500.0 / (delta + 1e-8)
	if s.ConvergenceTick > 0 {
		score += 150.0 / float64(s.ConvergenceTick)
	}
	score += float64(s.PsiEvents) * 2.0
	return score - s.RatioVariance*5.0
}

// Evolve runs an elitist evolutionary search over engine, ψ and ϙ modes, the
// ψ form and the υ/β seeds. Each generation evaluates its new candidates in
// parallel, ranks everyone by score, keeps the elite and refills the
// population with mutated copies of random elites. For a fixed Seed the
// result is reproducible.
func Evolve(ctx context.Context, cfg SearchConfig) (SearchResult, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Population <= 0 {
		return SearchResult{}, fmt.Errorf("%w: population must be positive", ErrInvalidConfig)
	}
	if cfg.Elite <= 0 || cfg.Elite > cfg.Population {
		cfg.Elite = 1
	}
	if cfg.MinTicks <= 0 {
		cfg.MinTicks = 1
	}
	if cfg.MaxTicks < cfg.MinTicks {
		cfg.MaxTicks = cfg.MinTicks
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyHillClimb
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	population := make([]Candidate, cfg.Population)
	for i := range population {
		population[i] = randomCandidate(rng, cfg.MinTicks, cfg.MaxTicks)
	}

	result := SearchResult{Seed: seed}
	for gen := 0; gen < cfg.Generations; gen++ {
		if err := evaluate(ctx, population, cfg, workers); err != nil {
			return result, fmt.Errorf("generation %d: %w", gen, err)
		}
		slices.SortStableFunc(population, func(a, b Candidate) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return 0
		})

		best := population[0]
		result.Generations = append(result.Generations, GenerationReport{Generation: gen, Best: best})
		if gen == 0 || best.Score > result.Best.Score {
			result.Best = best
		}
		logger.Info("generation",
			"gen", gen,
			"score", best.Score,
			"pattern", best.Summary.Pattern,
			"class", best.Summary.Classification,
			"ratio", best.Summary.FinalRatio.String(),
			"delta", best.Summary.ClosestDelta,
			"psi", best.Summary.PsiEvents,
			"stack", best.Summary.StackSummary)

		next := make([]Candidate, cfg.Population)
		copy(next, population[:cfg.Elite])
		for i := cfg.Elite; i < cfg.Population; i++ {
			parent := population[rng.IntN(cfg.Elite)]
			child := Candidate{Config: parent.Config}
			mutate(&child.Config, rng)
			next[i] = child
		}
		population = next
	}
	return result, nil
}

// evaluate simulates every candidate not yet scored.
func evaluate(ctx context.Context, population []Candidate, cfg SearchConfig, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range population {
		c := &population[i]
		if c.evaluated {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary, err := SimulateAndAnalyze(&c.Config)
			if err != nil {
				// A fatal arithmetic fault ranks last rather than
				// ending the search.
				c.Score, c.evaluated = math.Inf(-1), true
				return nil
			}
			c.Summary = summary
			c.Score = Score(summary, cfg.Strategy, cfg.Target)
			c.evaluated = true
			return nil
		})
	}
	return g.Wait()
}
