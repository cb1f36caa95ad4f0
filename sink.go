package pretzel

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// File names written by a batch run.
const (
	EventsFile = "events.csv"
	ValuesFile = "values.csv"
)

// EventsHeader is the column layout of events.csv.
var EventsHeader = []string{
	"tick", "mt", "phase", "rho_event", "psi_fired", "mu_zero", "forced_emission",
	"ratio_triggered", "triple_psi", "dual_engine", "koppa_sample_index",
	"ratio_threshold", "psi_strength_applied", "sign_flip_polarity",
}

// ValuesHeader is the column layout of values.csv. Every rational is written
// as a literal numerator/denominator pair.
var ValuesHeader = []string{
	"tick", "mt",
	"upsilon_num", "upsilon_den",
	"beta_num", "beta_den",
	"koppa_num", "koppa_den",
	"koppa_sample_num", "koppa_sample_den",
	"prev_upsilon_num", "prev_upsilon_den",
	"prev_beta_num", "prev_beta_den",
	"koppa_stack0_num", "koppa_stack0_den",
	"koppa_stack1_num", "koppa_stack1_den",
	"koppa_stack2_num", "koppa_stack2_den",
	"koppa_stack3_num", "koppa_stack3_den",
	"koppa_stack_size",
	"delta_upsilon_num", "delta_upsilon_den",
	"delta_beta_num", "delta_beta_den",
	"triangle_phi_over_epsilon_num", "triangle_phi_over_epsilon_den",
	"triangle_prev_over_phi_num", "triangle_prev_over_phi_den",
	"triangle_epsilon_over_prev_num", "triangle_epsilon_over_prev_den",
}

// FileSink appends one row per microtick to the events and values streams.
type FileSink struct {
	eventsFile *os.File
	valuesFile *os.File
	eventsBuf  *bufio.Writer
	valuesBuf  *bufio.Writer
	events     *csv.Writer
	values     *csv.Writer
}

// OpenFileSink creates events.csv and values.csv in dir and writes their
// headers. If either file cannot be created, whatever was opened is closed
// and an error returned.
func OpenFileSink(dir string) (*FileSink, error) {
	ef, err := os.Create(filepath.Join(dir, EventsFile))
	if err != nil {
		return nil, fmt.Errorf("open events stream: %w", err)
	}
	vf, err := os.Create(filepath.Join(dir, ValuesFile))
	if err != nil {
		ef.Close()
		return nil, fmt.Errorf("open values stream: %w", err)
	}

	s := &FileSink{
		eventsFile: ef,
		valuesFile: vf,
		eventsBuf:  bufio.NewWriter(ef),
		valuesBuf:  bufio.NewWriter(vf),
	}
	s.events = csv.NewWriter(s.eventsBuf)
	s.values = csv.NewWriter(s.valuesBuf)

	if err := s.events.Write(EventsHeader); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	if err := s.values.Write(ValuesHeader); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

// Record writes one row to each stream.
func (s *FileSink) Record(step *Step) error {
	if err := s.events.Write(EventRow(step)); err != nil {
		return fmt.Errorf("write events row: %w", err)
	}
	if err := s.values.Write(ValueRow(step)); err != nil {
		return fmt.Errorf("write values row: %w", err)
	}
	return nil
}

// Close flushes and closes both streams.
func (s *FileSink) Close() error {
	s.events.Flush()
	s.values.Flush()
	return errors.Join(
		s.events.Error(),
		s.values.Error(),
		s.eventsBuf.Flush(),
		s.valuesBuf.Flush(),
		s.eventsFile.Close(),
		s.valuesFile.Close(),
	)
}

// EventRow formats step as an events.csv row.
func EventRow(step *Step) []string {
	ev := step.Events
	return []string{
		strconv.Itoa(step.Tick),
		strconv.Itoa(step.Microtick),
		step.Phase.String(),
		flag(ev.RhoEvent),
		flag(ev.PsiFired),
		flag(ev.MuZero),
		flag(ev.ForcedEmission),
		flag(ev.RatioTriggered),
		flag(ev.TriplePsi),
		flag(ev.DualEngine),
		strconv.Itoa(ev.KoppaSampleIndex),
		flag(ev.RatioThreshold),
		flag(ev.PsiStrengthApplied),
		flag(ev.SignFlipPolarity),
	}
}

// ValueRow formats step as a values.csv row.
func ValueRow(step *Step) []string {
	st := &step.State
	row := make([]string, 0, len(ValuesHeader))
	row = append(row, strconv.Itoa(step.Tick), strconv.Itoa(step.Microtick))
	pair := func(r Rational) {
		row = append(row, r.n().String(), r.d().String())
	}
	pair(st.Upsilon)
	pair(st.Beta)
	pair(st.Koppa)
	pair(st.KoppaSample)
	pair(st.PreviousUpsilon)
	pair(st.PreviousBeta)
	for _, slot := range st.KoppaStack {
		pair(slot)
	}
	row = append(row, strconv.Itoa(st.KoppaStackSize))
	pair(st.DeltaUpsilon)
	pair(st.DeltaBeta)
	pair(st.TrianglePhiOverEpsilon)
	pair(st.TrianglePrevOverPhi)
	pair(st.TriangleEpsilonOverPrevious)
	return row
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// MultiSink fans every step out to several sinks, stopping at the first error.
type MultiSink []Sink

// Record forwards step to each sink in order.
func (m MultiSink) Record(step *Step) error {
	for _, s := range m {
		if err := s.Record(step); err != nil {
			return err
		}
	}
	return nil
}
