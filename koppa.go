package pretzel

// AccrueKoppa runs the ϙ stage of a memory or reset microtick.
//
// The trigger decides whether this microtick accrues. A triggered accrual
// pushes the old ϙ (multi-level only), applies the mode (dump to zero, pop to
// ε, or accumulate ε), then always adds υ+β. Either way the sampled view is
// refreshed last.
func AccrueKoppa(cfg *Config, s *State, psiFired, isMemory bool, microtick int) {
	var trigger bool
	switch cfg.KoppaTrigger {
	case KoppaOnPsi:
		trigger = psiFired
	case KoppaOnMuAfterPsi:
		trigger = isMemory && !psiFired && s.PsiRecent
	case KoppaOnAllMu:
		trigger = isMemory
	}

	if !trigger {
		// psi-recent survives an idle microtick only while OnMuAfterPsi
		// is still waiting to consume it.
		if !psiFired && cfg.KoppaTrigger != KoppaOnAllMu {
			s.PsiRecent = s.PsiRecent && cfg.KoppaTrigger == KoppaOnMuAfterPsi
		}
		refreshSample(cfg, s, microtick)
		return
	}

	if cfg.MultiLevelKoppa {
		s.pushKoppa(s.Koppa)
	}

	switch cfg.Koppa {
	case KoppaDump:
		s.Koppa = Rational{}
	case KoppaPop:
		s.Koppa = s.Epsilon
	case KoppaAccumulate:
		s.Koppa = s.Koppa.Add(s.Epsilon)
	}
	s.Koppa = s.Koppa.Add(s.Upsilon.Add(s.Beta))

	if cfg.KoppaTrigger == KoppaOnMuAfterPsi {
		s.PsiRecent = false
	} else {
		s.PsiRecent = psiFired
	}
	refreshSample(cfg, s, microtick)
}

// refreshSample shows live ϙ, except that with the multi-level stack active
// microtick 11 samples slot 0 and microtick 5 samples slot 2 when filled.
func refreshSample(cfg *Config, s *State, microtick int) {
	s.KoppaSample = s.Koppa
	s.KoppaSampleIndex = -1
	if !cfg.MultiLevelKoppa {
		return
	}
	switch {
	case microtick == 11 && s.KoppaStackSize > 0:
		s.KoppaSample = s.KoppaStack[0]
		s.KoppaSampleIndex = 0
	case microtick == 5 && s.KoppaStackSize > 2:
		s.KoppaSample = s.KoppaStack[2]
		s.KoppaSampleIndex = 2
	}
}
