package pretzel

import (
	"math/big"
	"testing"
)

func TestIsPrime(t *testing.T) {
	for _, n := range []int64{2, 3, 5, 7, 13, -7, 2305843009213693951} {
		if !IsPrime(big.NewInt(n)) {
			t.Errorf("❌ %d should be prime", n)
		}
	}
	for _, n := range []int64{-1, 0, 1, 4, 9, 35, 1225} {
		if IsPrime(big.NewInt(n)) {
			t.Errorf("❌ %d should not be prime", n)
		}
	}
}

func TestIsTwinPrimePair(t *testing.T) {
	cases := []struct {
		a, b int64
		want bool
	}{
		{3, 5, true},
		{5, 3, true},
		{11, 13, true},
		{7, 11, false},
		{4, 6, false},
		{1, 3, false},
	}
	for _, tc := range cases {
		if got := IsTwinPrimePair(big.NewInt(tc.a), big.NewInt(tc.b)); got != tc.want {
			t.Errorf("❌ IsTwinPrimePair(%d, %d) = %v", tc.a, tc.b, got)
		}
	}
}

func TestIsFibonacci(t *testing.T) {
	for _, n := range []int64{0, 1, 2, 3, 5, 8, 13, 21, 144, 832040, -8} {
		if !IsFibonacci(big.NewInt(n)) {
			t.Errorf("❌ %d should be Fibonacci", n)
		}
	}
	for _, n := range []int64{4, 6, 7, 100, 145} {
		if IsFibonacci(big.NewInt(n)) {
			t.Errorf("❌ %d should not be Fibonacci", n)
		}
	}
}

func TestIsPerfectPower(t *testing.T) {
	twoTo64 := new(big.Int).Lsh(big.NewInt(1), 64)
	threeTo40 := new(big.Int).Exp(big.NewInt(3), big.NewInt(40), nil)

	for _, n := range []*big.Int{
		big.NewInt(1), big.NewInt(4), big.NewInt(8), big.NewInt(27),
		big.NewInt(32), big.NewInt(1024), twoTo64, threeTo40,
	} {
		if !IsPerfectPower(n) {
			t.Errorf("❌ %s should be a perfect power", n)
		}
	}

	nearMiss := new(big.Int).Add(threeTo40, big.NewInt(1))
	for _, n := range []*big.Int{
		big.NewInt(0), big.NewInt(-8), big.NewInt(2), big.NewInt(6), big.NewInt(12), nearMiss,
	} {
		if IsPerfectPower(n) {
			t.Errorf("❌ %s should not be a perfect power", n)
		}
	}
}

func TestHasPattern(t *testing.T) {
	cfg := DefaultConfig()

	if !HasPattern(&cfg, MustRational(4, 7)) {
		t.Errorf("❌ Prime denominator should match")
	}
	if HasPattern(&cfg, MustRational(4, 9)) {
		t.Errorf("❌ 4/9 has no prime component")
	}
	if HasPattern(&cfg, MustRational(8, 21)) {
		t.Errorf("❌ Fibonacci match should need its trigger")
	}

	cfg.PerfectPowerTrigger = true
	if !HasPattern(&cfg, MustRational(4, 9)) {
		t.Errorf("❌ 4/9 should match as perfect powers")
	}

	cfg = DefaultConfig()
	cfg.FibonacciTrigger = true
	if !HasPattern(&cfg, MustRational(8, 21)) {
		t.Errorf("❌ 8/21 should match as Fibonacci")
	}
	t.Logf("✓ Rho pattern triggers honoured")
}
