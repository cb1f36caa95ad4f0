package pretzel

import "math/big"

// primeRounds is the Miller-Rabin round count handed to ProbablyPrime.
const primeRounds = 10

// IsPrime reports whether |n| is (probably) prime. 0 and ±1 are never prime.
func IsPrime(n *big.Int) bool {
	if n == nil {
		return false
	}
	abs := new(big.Int).Abs(n)
	if abs.Cmp(bigTwo) < 0 {
		return false
	}
	return abs.ProbablyPrime(primeRounds)
}

// IsTwinPrimePair reports whether a and b are both prime and |a-b| == 2.
func IsTwinPrimePair(a, b *big.Int) bool {
	if !IsPrime(a) || !IsPrime(b) {
		return false
	}
	gap := new(big.Int).Sub(a, b)
	return gap.Abs(gap).Cmp(bigTwo) == 0
}

// IsFibonacci reports whether |n| is a Fibonacci number, using the identity
// that 5n²+4 or 5n²-4 is a perfect square exactly when n is one.
func IsFibonacci(n *big.Int) bool {
	if n == nil {
		return false
	}
	abs := new(big.Int).Abs(n)
	five := new(big.Int).Mul(abs, abs)
	five.Mul(five, big.NewInt(5))

	plus := new(big.Int).Add(five, big.NewInt(4))
	if isPerfectSquare(plus) {
		return true
	}
	minus := new(big.Int).Sub(five, big.NewInt(4))
	return minus.Sign() >= 0 && isPerfectSquare(minus)
}

func isPerfectSquare(n *big.Int) bool {
	root := new(big.Int).Sqrt(n)
	return root.Mul(root, root).Cmp(n) == 0
}

// IsPerfectPower reports whether n > 0 equals r^e for some integer r and some
// exponent e in [2, 64]. 1 qualifies as 1².
func IsPerfectPower(n *big.Int) bool {
	if n == nil || n.Sign() <= 0 {
		return false
	}
	if n.Cmp(bigOne) == 0 {
		return true
	}
	for e := 2; e <= 64; e++ {
		// 2^e > n means every base ≥ 2 overshoots from here on.
		if n.BitLen() <= e {
			break
		}
		if _, exact := integerRoot(n, e); exact {
			return true
		}
	}
	return false
}

// integerRoot returns floor(n^(1/e)) for n > 0 and whether it is exact.
// Binary search over [1, 2^(bitlen/e + 1)].
func integerRoot(n *big.Int, e int) (*big.Int, bool) {
	exp := big.NewInt(int64(e))
	lo := big.NewInt(1)
	hi := new(big.Int).Lsh(bigOne, uint(n.BitLen()/e+1))
	mid := new(big.Int)
	pow := new(big.Int)
	for lo.Cmp(hi) < 0 {
		// mid = ceil((lo+hi)/2)
		mid.Add(lo, hi)
		mid.Add(mid, bigOne)
		mid.Rsh(mid, 1)
		pow.Exp(mid, exp, nil)
		if pow.Cmp(n) <= 0 {
			lo.Set(mid)
		} else {
			hi.Sub(mid, bigOne)
		}
	}
	pow.Exp(lo, exp, nil)
	return lo, pow.Cmp(n) == 0
}

// HasPattern reports a rho match on v: a prime numerator or denominator, or,
// when the matching trigger is enabled, a twin-prime (num, den) pair, a
// Fibonacci component or a perfect-power component.
func HasPattern(cfg *Config, v Rational) bool {
	num, den := v.n(), v.d()
	if IsPrime(num) || IsPrime(den) {
		return true
	}
	if cfg.TwinPrimeTrigger && IsTwinPrimePair(num, den) {
		return true
	}
	if cfg.FibonacciTrigger && (IsFibonacci(num) || IsFibonacci(den)) {
		return true
	}
	if cfg.PerfectPowerTrigger && (IsPerfectPower(num) || IsPerfectPower(den)) {
		return true
	}
	return false
}
