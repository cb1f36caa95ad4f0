package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pretzel "github.com/rigbyspace/operation-pretzel"
)

func TestStreamLine(t *testing.T) {
	st := pretzel.Step{
		Tick:      1,
		Microtick: 11,
		Phase:     pretzel.PhaseMemory,
		Events: pretzel.Events{
			PsiFired:           true,
			PsiRepetitions:     3,
			TriplePsi:          true,
			PsiStrengthApplied: true,
			KoppaSampleIndex:   0,
		},
		State: pretzel.State{
			Upsilon:        pretzel.MustRational(1, 3),
			Beta:           pretzel.MustRational(1, 2),
			Koppa:          pretzel.MustRational(1, 5),
			KoppaStackSize: 2,
		},
	}

	want := "1;11;1/3;1/2;1/5;PSI_FIRE_TRIPLE;RHO_IDLE;2;M|psi_strength|sample=0;inhibit_rho;#ff006e"
	if got := streamLine(&st, pretzel.PsiInhibitRho); got != want {
		t.Errorf("❌ streamLine:\n  got  %q\n  want %q", got, want)
	}
}

func TestStreamLine_Idle(t *testing.T) {
	st := pretzel.Step{
		Tick:      2,
		Microtick: 3,
		Phase:     pretzel.PhaseReset,
		Events:    pretzel.Events{KoppaSampleIndex: -1},
		State:     pretzel.State{RhoPending: true},
	}
	want := "2;3;0/1;0/1;0/1;PSI_IDLE;RHO_PENDING;0;R;mstep;#3a86ff"
	if got := streamLine(&st, pretzel.PsiMStep); got != want {
		t.Errorf("❌ streamLine = %q, want %q", got, want)
	}
}

func TestStepColour_Priority(t *testing.T) {
	cases := []struct {
		ev   pretzel.Events
		want string
	}{
		{pretzel.Events{PsiFired: true, TriplePsi: true, RatioTriggered: true}, colourTriple},
		{pretzel.Events{PsiFired: true, RatioTriggered: true, RatioThreshold: true}, colourRatio},
		{pretzel.Events{PsiFired: true, RatioThreshold: true}, colourThreshold},
		{pretzel.Events{PsiFired: true}, colourPsi},
		{pretzel.Events{}, colourIdle},
	}
	for _, tc := range cases {
		st := pretzel.Step{Events: tc.ev}
		if got := stepColour(&st); got != tc.want {
			t.Errorf("❌ %+v: colour %s, want %s", tc.ev, got, tc.want)
		}
	}
}

func TestStreamCommand(t *testing.T) {
	var out bytes.Buffer
	if err := execute(context.Background(), []string{"stream", "-ticks", "1"}, &out); err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != pretzel.MicroticksPerTick {
		t.Fatalf("❌ %d lines, want %d", len(lines), pretzel.MicroticksPerTick)
	}
	if !strings.HasPrefix(lines[0], "1;1;46/35;5/7;0/1;PSI_IDLE;RHO_IDLE;0;E;inhibit_rho;") {
		t.Errorf("❌ First line %q", lines[0])
	}
	if !strings.Contains(lines[9], "|forced") {
		t.Errorf("❌ Microtick 10 not marked forced: %q", lines[9])
	}
	if !strings.Contains(lines[10], ";PSI_FIRE;") {
		t.Errorf("❌ Microtick 11 should fire ψ: %q", lines[10])
	}
	t.Logf("✓ %d stream lines", len(lines))
}

func TestRunThenAnalyze(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.json")
	cfg := pretzel.DefaultConfig()
	cfg.Ticks = 1
	if err := pretzel.SaveConfig(cfgPath, &cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	var runOut bytes.Buffer
	if err := execute(context.Background(), []string{"run", "-config", cfgPath, "-out", outDir}, &runOut); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, pretzel.EventsFile)); err != nil {
		t.Fatalf("❌ events stream missing: %v", err)
	}

	var out bytes.Buffer
	args := []string{"analyze",
		"-events", filepath.Join(outDir, pretzel.EventsFile),
		"-values", filepath.Join(outDir, pretzel.ValuesFile)}
	if err := execute(context.Background(), args, &out); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(out.String(), "samples          11 over 1 ticks") {
		t.Errorf("❌ Unexpected summary:\n%s", out.String())
	}
	if out.String() != runOut.String() {
		t.Errorf("❌ Replayed summary differs from the live one:\n%s\nvs\n%s", out.String(), runOut.String())
	}
}

func TestExecute_Usage(t *testing.T) {
	if err := execute(context.Background(), nil, &bytes.Buffer{}); err == nil {
		t.Errorf("❌ Missing command should fail")
	}
	if err := execute(context.Background(), []string{"bogus"}, &bytes.Buffer{}); err == nil {
		t.Errorf("❌ Unknown command should fail")
	}
	if err := execute(context.Background(), []string{"scan", "-format", "xml", "-limit", "1"}, &bytes.Buffer{}); err == nil {
		t.Errorf("❌ Unknown format should fail")
	}
	if err := execute(context.Background(), []string{"analyze", "-events", "x.csv"}, &bytes.Buffer{}); err == nil {
		t.Errorf("❌ analyze with only one stream should fail")
	}
}
