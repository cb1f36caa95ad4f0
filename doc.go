// Package pretzel is an exact-rational dynamical engine for studying the long
// run behavior of a coupled map over three registers, υ (upsilon), β (beta)
// and ϙ (koppa).
//
// # Overview
//
// A run replays a fixed number of ticks. Each tick is eleven microticks, and
// each microtick has a phase:
//
//	E (emission)  microticks 1, 4, 7, 10  engine step, then rho detection
//	M (memory)    microticks 2, 5, 8, 11  optional ψ transform, then ϙ accrual
//	R (reset)     microticks 3, 6, 9      ϙ accrual only
//
// Every value is a Rational: an arbitrary-precision numerator/denominator
// pair that is never reduced. 4/2 + 2/1 + 0/1 is 8/2, not 4/1. Denominator
// growth is part of what the engine reports, so cancelling common factors
// would destroy the signal.
//
// Floating point never feeds back into a run. Float64 exists only to
// snapshot values for the statistics in RunSummary.
//
// # Architecture
//
// The package components:
//
//   - rational  - non-reducing arithmetic on math/big integers
//   - pattern   - prime, twin-prime, Fibonacci and perfect-power tests (rho)
//   - engine    - the emission step and its mode resolution
//   - psi       - the ψ inversion, its firing policy and strength loop
//   - koppa     - ϙ accrual and the 4-slot history stack
//   - simulate  - the tick scheduler and its sinks
//   - analysis  - run classification (convergent, oscillating, divergent)
//   - scan      - parallel phase-space sweep
//   - search    - evolutionary configuration search
//   - loader    - JSON configuration files
//
// # Quick Start
//
// Run a configuration and write events.csv and values.csv:
//
//	cfg := pretzel.DefaultConfig()
//	cfg.Ticks = 30
//	if err := pretzel.Simulate(&cfg, "out"); err != nil {
//	    log.Fatal(err)
//	}
//
// Or observe it live, one callback per microtick:
//
//	err := pretzel.SimulateStream(&cfg, func(st *pretzel.Step) {
//	    fmt.Println(st.Tick, st.Microtick, st.State.Upsilon, st.Events.PsiFired)
//	})
//
// Classify a trajectory:
//
//	summary, err := pretzel.SimulateAndAnalyze(&cfg)
//	fmt.Println(summary.Classification, summary.ClosestConstant, summary.ClosestDelta)
//
// # Concurrency
//
// A single run is strictly sequential and owns its State. Scan and Evolve run
// many independent configurations in parallel; runs share nothing mutable.
package pretzel
