package pretzel

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// configFile is the on-disk JSON layout. Every field is optional; absent
// fields keep their DefaultConfig value.
type configFile struct {
	PsiMode          *int `json:"psi_mode,omitempty"`
	KoppaMode        *int `json:"koppa_mode,omitempty"`
	EngineMode       *int `json:"engine_mode,omitempty"`
	UpsilonTrack     *int `json:"upsilon_track,omitempty"`
	BetaTrack        *int `json:"beta_track,omitempty"`
	KoppaTrigger     *int `json:"koppa_trigger,omitempty"`
	Mt10Behavior     *int `json:"mt10_behavior,omitempty"`
	RatioTriggerMode *int `json:"ratio_trigger_mode,omitempty"`
	PrimeTarget      *int `json:"prime_target,omitempty"`
	SignFlipMode     *int `json:"sign_flip_mode,omitempty"`

	DualTrackSymmetry     *bool `json:"dual_track_symmetry,omitempty"`
	TriplePsi             *bool `json:"triple_psi,omitempty"`
	MultiLevelKoppa       *bool `json:"multi_level_koppa,omitempty"`
	AsymmetricCascade     *bool `json:"asymmetric_cascade,omitempty"`
	ConditionalTriplePsi  *bool `json:"conditional_triple_psi,omitempty"`
	KoppaGatedEngine      *bool `json:"koppa_gated_engine,omitempty"`
	DeltaCrossPropagation *bool `json:"delta_cross_propagation,omitempty"`
	DeltaKoppaOffset      *bool `json:"delta_koppa_offset,omitempty"`
	RatioThresholdPsi     *bool `json:"ratio_threshold_psi,omitempty"`
	StackDepthModes       *bool `json:"stack_depth_modes,omitempty"`
	EpsilonPhiTriangle    *bool `json:"epsilon_phi_triangle,omitempty"`
	ModularWrap           *bool `json:"modular_wrap,omitempty"`
	PsiStrength           *bool `json:"psi_strength_parameter,omitempty"`
	TwinPrimeTrigger      *bool `json:"twin_prime_trigger,omitempty"`
	FibonacciTrigger      *bool `json:"fibonacci_trigger,omitempty"`
	PerfectPowerTrigger   *bool `json:"perfect_power_trigger,omitempty"`

	TickCount          *int    `json:"tick_count,omitempty"`
	KoppaWrapThreshold *uint64 `json:"koppa_wrap_threshold,omitempty"`

	UpsilonSeed *string `json:"upsilon_seed,omitempty"`
	BetaSeed    *string `json:"beta_seed,omitempty"`
	KoppaSeed   *string `json:"koppa_seed,omitempty"`
	RatioLower  *string `json:"ratio_custom_lower,omitempty"`
	RatioUpper  *string `json:"ratio_custom_upper,omitempty"`
}

// LoadConfig reads a JSON configuration file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := DecodeConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig reads JSON configuration from r on top of DefaultConfig.
// Enum values outside their range are ignored and the default kept, as is a
// non-positive tick_count. A seed that does not parse is an error.
func DecodeConfig(r io.Reader) (Config, error) {
	var raw configFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg := DefaultConfig()
	enum(raw.PsiMode, PsiMode.valid, &cfg.Psi)
	enum(raw.KoppaMode, KoppaMode.valid, &cfg.Koppa)
	enum(raw.EngineMode, EngineMode.valid, &cfg.Engine)
	enum(raw.UpsilonTrack, TrackMode.valid, &cfg.UpsilonTrack)
	enum(raw.BetaTrack, TrackMode.valid, &cfg.BetaTrack)
	enum(raw.KoppaTrigger, KoppaTrigger.valid, &cfg.KoppaTrigger)
	enum(raw.Mt10Behavior, Mt10Behavior.valid, &cfg.Mt10)
	enum(raw.RatioTriggerMode, RatioTriggerMode.valid, &cfg.RatioTrigger)
	enum(raw.PrimeTarget, PrimeTarget.valid, &cfg.PrimeTarget)
	enum(raw.SignFlipMode, SignFlipMode.valid, &cfg.SignFlip)

	for _, b := range []struct {
		src *bool
		dst *bool
	}{
		{raw.DualTrackSymmetry, &cfg.DualTrack},
		{raw.TriplePsi, &cfg.TriplePsi},
		{raw.MultiLevelKoppa, &cfg.MultiLevelKoppa},
		{raw.AsymmetricCascade, &cfg.AsymmetricCascade},
		{raw.ConditionalTriplePsi, &cfg.ConditionalTriplePsi},
		{raw.KoppaGatedEngine, &cfg.KoppaGatedEngine},
		{raw.DeltaCrossPropagation, &cfg.DeltaCrossPropagation},
		{raw.DeltaKoppaOffset, &cfg.DeltaKoppaOffset},
		{raw.RatioThresholdPsi, &cfg.RatioThresholdPsi},
		{raw.StackDepthModes, &cfg.StackDepthModes},
		{raw.EpsilonPhiTriangle, &cfg.EpsilonPhiTriangle},
		{raw.ModularWrap, &cfg.ModularWrap},
		{raw.PsiStrength, &cfg.PsiStrength},
		{raw.TwinPrimeTrigger, &cfg.TwinPrimeTrigger},
		{raw.FibonacciTrigger, &cfg.FibonacciTrigger},
		{raw.PerfectPowerTrigger, &cfg.PerfectPowerTrigger},
	} {
		if b.src != nil {
			*b.dst = *b.src
		}
	}

	if raw.TickCount != nil && *raw.TickCount > 0 {
		cfg.Ticks = *raw.TickCount
	}
	if raw.KoppaWrapThreshold != nil {
		cfg.KoppaWrapThreshold = *raw.KoppaWrapThreshold
	}

	for _, s := range []struct {
		name string
		src  *string
		dst  *Rational
	}{
		{"upsilon seed", raw.UpsilonSeed, &cfg.UpsilonSeed},
		{"beta seed", raw.BetaSeed, &cfg.BetaSeed},
		{"koppa seed", raw.KoppaSeed, &cfg.KoppaSeed},
		{"ratio custom lower", raw.RatioLower, &cfg.RatioLower},
		{"ratio custom upper", raw.RatioUpper, &cfg.RatioUpper},
	} {
		if s.src == nil {
			continue
		}
		v, err := ParseRational(*s.src)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", s.name, err)
		}
		*s.dst = v
	}
	return cfg, nil
}

func enum[T ~int](src *int, valid func(T) bool, dst *T) {
	if src == nil {
		return
	}
	if v := T(*src); valid(v) {
		*dst = v
	}
}

// EncodeConfig writes cfg in the format DecodeConfig reads.
func EncodeConfig(w io.Writer, cfg *Config) error {
	ptr := func(v int) *int { return &v }
	bit := func(v bool) *bool { return &v }
	str := func(r Rational) *string { s := r.String(); return &s }

	raw := configFile{
		PsiMode:          ptr(int(cfg.Psi)),
		KoppaMode:        ptr(int(cfg.Koppa)),
		EngineMode:       ptr(int(cfg.Engine)),
		UpsilonTrack:     ptr(int(cfg.UpsilonTrack)),
		BetaTrack:        ptr(int(cfg.BetaTrack)),
		KoppaTrigger:     ptr(int(cfg.KoppaTrigger)),
		Mt10Behavior:     ptr(int(cfg.Mt10)),
		RatioTriggerMode: ptr(int(cfg.RatioTrigger)),
		PrimeTarget:      ptr(int(cfg.PrimeTarget)),
		SignFlipMode:     ptr(int(cfg.SignFlip)),

		DualTrackSymmetry:     bit(cfg.DualTrack),
		TriplePsi:             bit(cfg.TriplePsi),
		MultiLevelKoppa:       bit(cfg.MultiLevelKoppa),
		AsymmetricCascade:     bit(cfg.AsymmetricCascade),
		ConditionalTriplePsi:  bit(cfg.ConditionalTriplePsi),
		KoppaGatedEngine:      bit(cfg.KoppaGatedEngine),
		DeltaCrossPropagation: bit(cfg.DeltaCrossPropagation),
		DeltaKoppaOffset:      bit(cfg.DeltaKoppaOffset),
		RatioThresholdPsi:     bit(cfg.RatioThresholdPsi),
		StackDepthModes:       bit(cfg.StackDepthModes),
		EpsilonPhiTriangle:    bit(cfg.EpsilonPhiTriangle),
		ModularWrap:           bit(cfg.ModularWrap),
		PsiStrength:           bit(cfg.PsiStrength),
		TwinPrimeTrigger:      bit(cfg.TwinPrimeTrigger),
		FibonacciTrigger:      bit(cfg.FibonacciTrigger),
		PerfectPowerTrigger:   bit(cfg.PerfectPowerTrigger),

		TickCount:          ptr(cfg.Ticks),
		KoppaWrapThreshold: &cfg.KoppaWrapThreshold,

		UpsilonSeed: str(cfg.UpsilonSeed),
		BetaSeed:    str(cfg.BetaSeed),
		KoppaSeed:   str(cfg.KoppaSeed),
	}
	if cfg.RatioTrigger == RatioCustom {
		raw.RatioLower = str(cfg.RatioLower)
		raw.RatioUpper = str(cfg.RatioUpper)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(raw)
}

// SaveConfig writes cfg to path as JSON.
func SaveConfig(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := EncodeConfig(f, cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
