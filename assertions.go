package pretzel

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

// AssertDeterministic runs cfg twice into separate directories and verifies
// that both events.csv and values.csv come out byte-identical.
//
// Determinism is the property every downstream tool relies on: a phase map or
// a search result is only meaningful if re-running the same configuration
// reproduces the same trajectory bit for bit.
func AssertDeterministic(t *testing.T, cfg Config) {
	t.Helper()

	first, second := t.TempDir(), t.TempDir()
	if err := Simulate(&cfg, first); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if err := Simulate(&cfg, second); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	for _, name := range []string{EventsFile, ValuesFile} {
		a, err := os.ReadFile(filepath.Join(first, name))
		if err != nil {
			t.Fatalf("Read %s: %v", name, err)
		}
		b, err := os.ReadFile(filepath.Join(second, name))
		if err != nil {
			t.Fatalf("Read %s: %v", name, err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("%s differs between identical runs (%d vs %d bytes)", name, len(a), len(b))
			continue
		}
		t.Logf("✓ %s identical across runs (%d bytes)", name, len(a))
	}
}

// AssertPhaseMapping verifies every recorded step carries the phase its
// microtick dictates: E on 1,4,7,10, M on 2,5,8,11 and R on 3,6,9.
func AssertPhaseMapping(t *testing.T, steps []Step) {
	t.Helper()

	want := map[int]Phase{
		1: PhaseEmission, 4: PhaseEmission, 7: PhaseEmission, 10: PhaseEmission,
		2: PhaseMemory, 5: PhaseMemory, 8: PhaseMemory, 11: PhaseMemory,
		3: PhaseReset, 6: PhaseReset, 9: PhaseReset,
	}
	for _, st := range steps {
		if got := st.Phase; got != want[st.Microtick] {
			t.Errorf("tick %d mt %d: phase %s, want %s", st.Tick, st.Microtick, got, want[st.Microtick])
		}
	}
}

// AssertRowCount verifies a run of ticks produced exactly 11 rows per tick,
// in tick/microtick order.
func AssertRowCount(t *testing.T, steps []Step, ticks int) {
	t.Helper()

	if len(steps) != ticks*MicroticksPerTick {
		t.Fatalf("Recorded %d steps, want %d (%d ticks × %d)",
			len(steps), ticks*MicroticksPerTick, ticks, MicroticksPerTick)
	}
	for i, st := range steps {
		wantTick, wantMt := i/MicroticksPerTick+1, i%MicroticksPerTick+1
		if st.Tick != wantTick || st.Microtick != wantMt {
			t.Fatalf("Step %d is tick %d mt %d, want tick %d mt %d",
				i, st.Tick, st.Microtick, wantTick, wantMt)
		}
	}
}

// AssertUnreduced verifies r carries exactly the literal pair num/den, so
// that 8/2 is not accepted in place of 4/1.
func AssertUnreduced(t *testing.T, r Rational, num, den int64) {
	t.Helper()

	if r.n().Cmp(big.NewInt(num)) != 0 || r.d().Cmp(big.NewInt(den)) != 0 {
		t.Errorf("Got %s, want literal %d/%d", r, num, den)
	}
}

// RecordRun collects every step of a run in memory.
func RecordRun(t *testing.T, cfg Config) []Step {
	t.Helper()

	var steps []Step
	if err := SimulateStream(&cfg, func(st *Step) {
		steps = append(steps, *st)
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return steps
}
