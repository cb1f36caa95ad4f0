package main

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	pretzel "github.com/rigbyspace/operation-pretzel"
)

// Stream colours, keyed by what happened on the microtick.
const (
	colourIdle      = "#3a86ff"
	colourPsi       = "#ff6f3c"
	colourTriple    = "#ff006e"
	colourRatio     = "#00b894"
	colourThreshold = "#8338ec"
)

// lineSink prints one semicolon-separated line per microtick:
//
//	tick;mt;υ;β;ϙ;psi;rho;stack;events;psi_mode;colour
type lineSink struct {
	w   *bufio.Writer
	psi pretzel.PsiMode
}

func newLineSink(w io.Writer, psi pretzel.PsiMode) *lineSink {
	return &lineSink{w: bufio.NewWriter(w), psi: psi}
}

func (l *lineSink) Record(step *pretzel.Step) error {
	_, err := l.w.WriteString(streamLine(step, l.psi) + "\n")
	return err
}

// Flush writes any buffered lines.
func (l *lineSink) Flush() error { return l.w.Flush() }

func streamLine(st *pretzel.Step, psi pretzel.PsiMode) string {
	s := &st.State
	fields := []string{
		strconv.Itoa(st.Tick),
		strconv.Itoa(st.Microtick),
		s.Upsilon.String(),
		s.Beta.String(),
		s.Koppa.String(),
		psiToken(st),
		rhoToken(st),
		strconv.Itoa(s.KoppaStackSize),
		strings.Join(eventTokens(st), "|"),
		psi.String(),
		stepColour(st),
	}
	return strings.Join(fields, ";")
}

func psiToken(st *pretzel.Step) string {
	switch {
	case !st.Events.PsiFired:
		return "PSI_IDLE"
	case st.Events.TriplePsi:
		return "PSI_FIRE_TRIPLE"
	}
	return "PSI_FIRE"
}

func rhoToken(st *pretzel.Step) string {
	switch {
	case st.Events.RhoEvent:
		return "RHO_EVENT"
	case st.State.RhoPending || st.State.RhoLatched:
		return "RHO_PENDING"
	}
	return "RHO_IDLE"
}

// eventTokens lists the phase followed by whichever flags are set.
func eventTokens(st *pretzel.Step) []string {
	ev := st.Events
	out := []string{st.Phase.String()}
	add := func(on bool, token string) {
		if on {
			out = append(out, token)
		}
	}
	add(ev.MuZero, "mu=0")
	add(ev.ForcedEmission, "forced")
	add(ev.RatioTriggered, "ratio")
	add(ev.RatioThreshold, "threshold")
	add(ev.DualEngine, "dual")
	add(ev.PsiStrengthApplied, "psi_strength")
	if ev.KoppaSampleIndex >= 0 {
		out = append(out, "sample="+strconv.Itoa(ev.KoppaSampleIndex))
	}
	return out
}

// stepColour picks the display colour: triple ψ wins over a ratio window
// hit, which wins over the threshold band, then any ψ fire.
func stepColour(st *pretzel.Step) string {
	ev := st.Events
	switch {
	case ev.TriplePsi:
		return colourTriple
	case ev.RatioTriggered:
		return colourRatio
	case ev.RatioThreshold:
		return colourThreshold
	case ev.PsiFired:
		return colourPsi
	}
	return colourIdle
}
