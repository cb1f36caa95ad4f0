package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/term"

	pretzel "github.com/rigbyspace/operation-pretzel"
)

const (
	defaultIntervalMs = 150
	minInterval       = 10 * time.Millisecond
	toneHz            = 660
	tripleToneHz      = 990
	toneDuration      = 40 * time.Millisecond
)

var sampleRate = beep.SampleRate(44100)

// Ends of the divergence ramp, and the denominator size that saturates it.
var (
	rampCold, _ = colorful.Hex(colourIdle)
	rampHot, _  = colorful.Hex(colourTriple)
)

const rampBits = 4096

// viewer draws one microtick per interval: the registers, the ϙ stack, the
// event flags and a strip of recent microticks shaded by how far υ has grown.
type viewer struct {
	screen   tcell.Screen
	cfg      *pretzel.Config
	interval time.Duration
	steps    <-chan pretzel.Step
	runErr   <-chan error

	history  []pretzel.Step
	current  *pretzel.Step
	paused   bool
	finished bool
	status   string

	audio bool
}

// pacedSink hands steps to the viewer and stops the run once the viewer goes
// away.
type pacedSink struct {
	ctx context.Context
	out chan<- pretzel.Step
}

func (p pacedSink) Record(step *pretzel.Step) error {
	select {
	case p.out <- *step:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

func viewCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	var cf configFlags
	cf.register(fs)
	intervalMs := fs.Int("interval", defaultIntervalMs, "milliseconds per microtick")
	withAudio := fs.Bool("audio", false, "play a tone on every ψ fire")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("view needs a terminal on stdout")
	}

	cfg, err := cf.load()
	if err != nil {
		return err
	}

	audio := false
	if *withAudio {
		if err := initAudio(); err != nil {
			// Non-fatal, the viewer runs silent.
			slog.Warn("audio unavailable", "err", err)
		} else {
			audio = true
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	steps := make(chan pretzel.Step)
	runErr := make(chan error, 1)
	go func() {
		runErr <- pretzel.Run(&cfg, pacedSink{ctx: ctx, out: steps})
		close(steps)
	}()

	v := &viewer{
		screen:   screen,
		cfg:      &cfg,
		interval: max(time.Duration(*intervalMs)*time.Millisecond, minInterval),
		steps:    steps,
		runErr:   runErr,
		audio:    audio,
	}
	return v.run(ctx)
}

func initAudio() error {
	return speaker.Init(sampleRate, sampleRate.N(time.Second/10))
}

func (v *viewer) tone(triple bool) {
	if !v.audio {
		return
	}
	hz := toneHz
	if triple {
		hz = tripleToneHz
	}
	sine, err := generators.SineTone(sampleRate, float64(hz))
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(toneDuration), sine))
}

func (v *viewer) run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	go v.pollEvents(ctx, events)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	v.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !v.handleInput(ev) {
				return nil
			}
			ticker.Reset(v.interval)
			v.draw()
		case <-ticker.C:
			if !v.paused && !v.finished {
				v.advance()
			}
			v.draw()
		}
	}
}

// pollEvents forwards screen events until the screen is finalised or ctx ends.
func (v *viewer) pollEvents(ctx context.Context, events chan<- tcell.Event) {
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// advance takes the next step off the run, if one is ready.
func (v *viewer) advance() {
	select {
	case st, ok := <-v.steps:
		if !ok {
			v.finished = true
			if err := <-v.runErr; err != nil {
				v.status = "run failed: " + err.Error()
			} else {
				v.status = "run complete"
			}
			return
		}
		v.current = &st
		v.history = append(v.history, st)
		if len(v.history) > 4096 {
			v.history = v.history[len(v.history)-4096:]
		}
		if st.Events.PsiFired {
			v.tone(st.Events.TriplePsi)
		}
	default:
	}
}

func (v *viewer) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				v.paused = !v.paused
			case '+':
				v.interval = max(v.interval/2, minInterval)
			case '-':
				v.interval *= 2
			case 'n':
				if v.paused && !v.finished {
					v.advance()
				}
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

var (
	styleLabel = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleValue = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleEvent = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleTitle = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
)

func (v *viewer) draw() {
	v.screen.Clear()
	w, h := v.screen.Size()

	title := fmt.Sprintf("pretzel  %s/%s/%s %s  interval %s",
		v.cfg.Engine, v.cfg.Psi, v.cfg.Koppa, pretzel.PsiTypeLabel(v.cfg), v.interval)
	if v.paused {
		title += "  [paused]"
	}
	v.text(0, 0, w, title, styleTitle)

	row := 2
	if st := v.current; st != nil {
		s := &st.State
		v.text(0, row, w, fmt.Sprintf("tick %d  mt %d  phase %s", st.Tick, st.Microtick, st.Phase), styleValue)
		row += 2
		for _, reg := range []struct {
			name  string
			value pretzel.Rational
		}{
			{"υ", s.Upsilon},
			{"β", s.Beta},
			{"ϙ", s.Koppa},
			{"ϙ sample", s.KoppaSample},
			{"Δυ", s.DeltaUpsilon},
			{"Δβ", s.DeltaBeta},
		} {
			v.text(0, row, 10, reg.name, styleLabel)
			v.text(10, row, w-10, reg.value.String(), styleValue)
			row++
		}
		row++
		for i := 0; i < pretzel.StackSlots; i++ {
			label := fmt.Sprintf("stack[%d]", i)
			val := "-"
			if i < s.KoppaStackSize {
				val = s.KoppaStack[i].String()
			}
			v.text(0, row, 10, label, styleLabel)
			v.text(10, row, w-10, val, styleValue)
			row++
		}
		row++
		v.text(0, row, w, strings.Join(eventTokens(st), " "), styleEvent.Foreground(hexColor(stepColour(st))))
		v.text(0, row+1, w, psiToken(st)+"  "+rhoToken(st), styleLabel)
		row += 3
	}

	if h > row {
		v.drawDivergenceStrip(row, w)
	}
	help := "space pause  n step  +/- speed  q quit"
	if v.status != "" {
		help = v.status + "  |  " + help
	}
	v.text(0, h-1, w, help, styleLabel)
	v.screen.Show()
}

// drawDivergenceStrip shades one cell per recent microtick from cold to hot
// as υ's denominator grows. ψ fires are marked.
func (v *viewer) drawDivergenceStrip(row, w int) {
	start := max(len(v.history)-w, 0)
	for x, st := range v.history[start:] {
		ch := '█'
		if st.Events.PsiFired {
			ch = 'ψ'
		}
		v.screen.SetContent(x, row, ch, nil, tcell.StyleDefault.Foreground(divergenceColor(&st.State)))
	}
}

// divergenceColor blends the ramp in Lab space by log2 of υ's denominator
// bit length, saturating at rampBits.
func divergenceColor(s *pretzel.State) tcell.Color {
	bits := s.Upsilon.Den().BitLen()
	t := math.Min(math.Log2(float64(bits)+1)/math.Log2(rampBits+1), 1)
	return toTcell(rampCold.BlendLab(rampHot, t).Clamped())
}

func hexColor(hex string) tcell.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return tcell.ColorGray
	}
	return toTcell(c)
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func (v *viewer) text(x, y, width int, s string, style tcell.Style) {
	col := 0
	for _, r := range s {
		if col >= width {
			break
		}
		v.screen.SetContent(x+col, y, r, nil, style)
		col++
	}
}
