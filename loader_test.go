package pretzel

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeConfig_Overrides(t *testing.T) {
	doc := `{
		"psi_mode": 0,
		"engine_mode": 1,
		"koppa_mode": 2,
		"triple_psi": true,
		"multi_level_koppa": true,
		"tick_count": 12,
		"upsilon_seed": "8/2",
		"beta_seed": "-3/7",
		"koppa_wrap_threshold": 1000
	}`
	cfg, err := DecodeConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}

	if cfg.Psi != PsiMStep || cfg.Engine != EngineMultiply || cfg.Koppa != KoppaAccumulate {
		t.Errorf("❌ Modes %s/%s/%s", cfg.Psi, cfg.Engine, cfg.Koppa)
	}
	if !cfg.TriplePsi || !cfg.MultiLevelKoppa || cfg.Ticks != 12 || cfg.KoppaWrapThreshold != 1000 {
		t.Errorf("❌ Flags not applied: %+v", cfg)
	}
	AssertUnreduced(t, cfg.UpsilonSeed, 8, 2)
	AssertUnreduced(t, cfg.BetaSeed, -3, 7)
	AssertUnreduced(t, cfg.KoppaSeed, 0, 1) // default kept
}

// TestDecodeConfig_IgnoresOutOfRange keeps defaults for bad enums and tick
// counts.
func TestDecodeConfig_IgnoresOutOfRange(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(`{"psi_mode": 9, "koppa_trigger": -1, "tick_count": 0}`))
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	def := DefaultConfig()
	if cfg.Psi != def.Psi || cfg.KoppaTrigger != def.KoppaTrigger || cfg.Ticks != def.Ticks {
		t.Errorf("❌ Out-of-range values applied: psi=%s trigger=%s ticks=%d", cfg.Psi, cfg.KoppaTrigger, cfg.Ticks)
	}
}

func TestDecodeConfig_BadSeed(t *testing.T) {
	_, err := DecodeConfig(strings.NewReader(`{"beta_seed": "5/0"}`))
	if !errors.Is(err, ErrZeroDenominator) {
		t.Fatalf("❌ Got %v, want ErrZeroDenominator", err)
	}
	if !strings.Contains(err.Error(), "beta seed") {
		t.Errorf("❌ Error should name the field: %v", err)
	}
}

func TestDecodeConfig_Malformed(t *testing.T) {
	if _, err := DecodeConfig(strings.NewReader(`{"psi_mode": `)); err == nil {
		t.Errorf("❌ Truncated JSON should fail")
	}
}

func TestEncodeConfig_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine = EngineSlide
	cfg.DualTrack = true
	cfg.BetaTrack = TrackMultiply
	cfg.RatioTrigger = RatioCustom
	cfg.RatioLower = MustRational(6, 4)
	cfg.RatioUpper = MustRational(17, 10)
	cfg.SignFlip = SignFlipAlternate
	cfg.PsiStrength = true
	cfg.UpsilonSeed = MustRational(10, 4)

	var buf bytes.Buffer
	if err := EncodeConfig(&buf, &cfg); err != nil {
		t.Fatalf("EncodeConfig failed: %v", err)
	}
	got, err := DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}

	if got.Engine != cfg.Engine || !got.DualTrack || got.BetaTrack != cfg.BetaTrack ||
		got.RatioTrigger != RatioCustom || got.SignFlip != cfg.SignFlip || !got.PsiStrength {
		t.Errorf("❌ Round trip changed modes: %+v", got)
	}
	AssertUnreduced(t, got.RatioLower, 6, 4)
	AssertUnreduced(t, got.RatioUpper, 17, 10)
	AssertUnreduced(t, got.UpsilonSeed, 10, 4)
	t.Logf("✓ Config survives JSON round trip (%d bytes)", buf.Len())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	cfg := DefaultConfig()
	cfg.Ticks = 7
	if err := SaveConfig(path, &cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got.Ticks != 7 {
		t.Errorf("❌ Ticks %d, want 7", got.Ticks)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("❌ Missing file: got %v", err)
	}
}
