// Command pretzel runs, streams, analyzes, scans and searches TRTS engine
// configurations.
//
//	pretzel [-v] run     -config run.json -out ./out
//	pretzel [-v] stream  -config run.json -ticks 3
//	pretzel [-v] analyze -events out/events.csv -values out/values.csv
//	pretzel [-v] scan    -ticks 4 -seeds 1/1:3/3 -format json -out phase.json
//	pretzel [-v] evolve  -generations 10 -strategy target-convergence -target phi
//	pretzel [-v] view    -config run.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	pretzel "github.com/rigbyspace/operation-pretzel"
)

const usage = `usage: pretzel [-v] <command> [flags]

commands:
  run      write events.csv and values.csv for one configuration
  stream   print every microtick of a run
  analyze  classify a run, live or from its CSV streams
  scan     sweep engine, ψ and ϙ modes over a seed grid
  evolve   search for configurations by score
  view     watch a run in the terminal
`

var errUsage = errors.New("bad usage")

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
			NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		}),
	))
}

func main() {
	global := flag.NewFlagSet("pretzel", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	verbose := global.Bool("v", false, "debug logging")
	if err := global.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	setupLogger(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, global.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(os.Stderr, usage)
			stop()
			os.Exit(2)
		}
		slog.Error("pretzel failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "run":
		return runCmd(rest, stdout)
	case "stream":
		return streamCmd(rest, stdout)
	case "analyze":
		return analyzeCmd(rest, stdout)
	case "scan":
		return scanCmd(ctx, rest, stdout)
	case "evolve":
		return evolveCmd(ctx, rest, stdout)
	case "view":
		return viewCmd(ctx, rest)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// configFlags are shared by the commands that take one configuration.
type configFlags struct {
	path  string
	ticks int
}

func (c *configFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.path, "config", "", "JSON configuration file (default: built-in defaults)")
	fs.IntVar(&c.ticks, "ticks", 0, "override the tick count")
}

func (c *configFlags) load() (pretzel.Config, error) {
	cfg := pretzel.DefaultConfig()
	if c.path != "" {
		loaded, err := pretzel.LoadConfig(c.path)
		if err != nil {
			return pretzel.Config{}, err
		}
		cfg = loaded
	}
	if c.ticks > 0 {
		cfg.Ticks = c.ticks
	}
	return cfg, cfg.Validate()
}

func runCmd(args []string, stdout io.Writer) (err error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var cf configFlags
	cf.register(fs)
	out := fs.String("out", ".", "directory for events.csv and values.csv")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := cf.load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	files, err := pretzel.OpenFileSink(*out)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, files.Close())
	}()
	analyzer := pretzel.NewAnalyzer(pretzel.DefaultPeriodConfig())

	start := time.Now()
	if err := pretzel.Run(&cfg, pretzel.MultiSink{files, analyzer}); err != nil {
		return err
	}
	slog.Info("run complete",
		"ticks", cfg.Ticks,
		"rows", cfg.Ticks*pretzel.MicroticksPerTick,
		"dir", *out,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return writeSummary(stdout, analyzer.Summary())
}

func streamCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)
	var cf configFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := cf.load()
	if err != nil {
		return err
	}
	sink := newLineSink(stdout, cfg.Psi)
	if err := pretzel.Run(&cfg, sink); err != nil {
		return err
	}
	return sink.Flush()
}

func analyzeCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	var cf configFlags
	cf.register(fs)
	events := fs.String("events", "", "events.csv of a batch run")
	values := fs.String("values", "", "values.csv of a batch run")
	dir := fs.String("dir", "", "shorthand for -events DIR/events.csv -values DIR/values.csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir != "" {
		*events = filepath.Join(*dir, pretzel.EventsFile)
		*values = filepath.Join(*dir, pretzel.ValuesFile)
	}
	if (*events == "") != (*values == "") {
		return fmt.Errorf("%w: -events and -values go together", errUsage)
	}

	var (
		summary pretzel.RunSummary
		err     error
	)
	if *events != "" {
		summary, err = pretzel.AnalyzeFiles(*events, *values)
	} else {
		var cfg pretzel.Config
		if cfg, err = cf.load(); err != nil {
			return err
		}
		summary, err = pretzel.SimulateAndAnalyze(&cfg)
	}
	if err != nil {
		return err
	}
	return writeSummary(stdout, summary)
}

func writeSummary(w io.Writer, s pretzel.RunSummary) error {
	ratio := "undefined"
	if s.RatioDefined {
		ratio = fmt.Sprintf("%s (≈ %.12g)", s.FinalRatio, s.FinalRatioSnapshot)
	}
	lines := []string{
		fmt.Sprintf("classification   %s", s.Classification),
		fmt.Sprintf("pattern          %s", s.Pattern),
		fmt.Sprintf("final ratio      %s", ratio),
		fmt.Sprintf("closest          %s (Δ=%.3g)", s.ClosestConstant, s.ClosestDelta),
		fmt.Sprintf("convergence tick %d", s.ConvergenceTick),
		fmt.Sprintf("samples          %d over %d ticks", s.TotalSamples, s.TotalTicks),
		fmt.Sprintf("ψ events         %d (spacing %.2f ± %.2f)", s.PsiEvents, s.PsiSpacingMean, s.PsiSpacingStddev),
		fmt.Sprintf("ρ events         %d", s.RhoEvents),
		fmt.Sprintf("μ zero           %d", s.MuZeroEvents),
		fmt.Sprintf("ratio variance   %.6g (range %.6g)", s.RatioVariance, s.RatioRange),
		fmt.Sprintf("period           %d (amplitude %.6g)", s.Period, s.Amplitude),
		fmt.Sprintf("stack            %s", s.StackSummary),
		fmt.Sprintf("max |num|        %d bits", s.MaxNumerator.BitLen()),
		fmt.Sprintf("max den          %d bits", s.MaxDenominator.BitLen()),
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func scanCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	sc := pretzel.DefaultScanConfig()
	fs.IntVar(&sc.Base.Ticks, "ticks", sc.Base.Ticks, "ticks per run")
	fs.IntVar(&sc.Limit, "limit", 0, "stop after this many runs (0 = all)")
	fs.IntVar(&sc.Workers, "workers", 0, "concurrent runs (0 = GOMAXPROCS)")
	seeds := fs.String("seeds", "", `seed grid "a/b:c/d" or list "n/d,n/d" (default: Fibonacci ratios)`)
	format := fs.String("format", "csv", "output format: csv or json")
	out := fs.String("out", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *seeds != "" {
		grid, err := pretzel.ParseSeedGrid(*seeds)
		if err != nil {
			return err
		}
		sc.Seeds = grid
	}
	write := pretzel.WritePhaseMapCSV
	switch *format {
	case "csv":
	case "json":
		write = pretzel.WritePhaseMapJSON
	default:
		return fmt.Errorf("%w: unknown format %q", errUsage, *format)
	}

	records, err := pretzel.Scan(ctx, sc)
	if err != nil {
		return err
	}
	return writeTo(*out, stdout, func(w io.Writer) error { return write(w, records) })
}

func evolveCmd(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("evolve", flag.ContinueOnError)
	sc := pretzel.DefaultSearchConfig()
	fs.IntVar(&sc.Generations, "generations", sc.Generations, "generations to run")
	fs.IntVar(&sc.Population, "population", sc.Population, "candidates per generation")
	fs.IntVar(&sc.Elite, "elite", sc.Elite, "survivors per generation")
	fs.IntVar(&sc.MinTicks, "min-ticks", sc.MinTicks, "shortest run drawn for a fresh candidate")
	fs.IntVar(&sc.MaxTicks, "max-ticks", sc.MaxTicks, "longest run drawn for a fresh candidate")
	fs.IntVar(&sc.Workers, "workers", 0, "concurrent evaluations (0 = GOMAXPROCS)")
	fs.Uint64Var(&sc.Seed, "seed", 0, "RNG seed (0 = random)")
	fs.StringVar(&sc.Target, "target", sc.Target, "constant to aim for: phi, rho, delta_s, tribonacci, plastic, sqrt2, silver")
	strategy := fs.String("strategy", string(sc.Strategy), "hill-climb, target-convergence or chaos-seeker")
	save := fs.String("save", "", "write the best configuration as JSON to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sc.Strategy = pretzel.Strategy(*strategy)
	switch sc.Strategy {
	case pretzel.StrategyHillClimb, pretzel.StrategyTargetConvergence, pretzel.StrategyChaosSeeker:
	default:
		return fmt.Errorf("%w: unknown strategy %q", errUsage, *strategy)
	}

	res, err := pretzel.Evolve(ctx, sc)
	if err != nil {
		return err
	}
	best := res.Best
	fmt.Fprintf(stdout, "seed %d, best score %.6g: %s/%s/%s %s υ=%s β=%s ticks=%d\n",
		res.Seed, best.Score,
		best.Config.Engine, best.Config.Psi, best.Config.Koppa, pretzel.PsiTypeLabel(&best.Config),
		best.Config.UpsilonSeed, best.Config.BetaSeed, best.Config.Ticks)
	if err := writeSummary(stdout, best.Summary); err != nil {
		return err
	}
	if *save != "" {
		if err := pretzel.SaveConfig(*save, &best.Config); err != nil {
			return err
		}
		slog.Info("best configuration saved", "path", *save)
	}
	return nil
}

// writeTo runs fn against path, or against stdout when path is empty.
func writeTo(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("output written", "path", path)
	return nil
}
