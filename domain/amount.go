package domain

import (
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrorNegativeAmount  = fmt.Errorf("amount must not be negative")
	ErrorAmountOverflow  = fmt.Errorf("amount exceeds the coins limit")
	ErrorAmountUnderflow = fmt.Errorf("amount underflow")
	ErrorInvalidAmount   = fmt.Errorf("invalid amount")
)

// MaxAmount is the largest value a VarUInteger 16 field can carry, 2^120 - 1.
var MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 120), big.NewInt(1))

func ZeroAmount() *big.Int {
	return new(big.Int)
}

func CheckAmount(x *big.Int) error {
	if x == nil || x.Sign() < 0 {
		return ErrorNegativeAmount
	}
	if x.Cmp(MaxAmount) > 0 {
		return ErrorAmountOverflow
	}
	return nil
}

// AddAmount returns a+b as a fresh value. Neither argument is modified.
func AddAmount(a, b *big.Int) (*big.Int, error) {
	if err := CheckAmount(a); err != nil {
		return nil, err
	}
	if err := CheckAmount(b); err != nil {
		return nil, err
	}
	res := new(big.Int).Add(a, b)
	if res.Cmp(MaxAmount) > 0 {
		return nil, ErrorAmountOverflow
	}
	return res, nil
}

// SubAmount returns a-b as a fresh value and fails instead of going below zero.
func SubAmount(a, b *big.Int) (*big.Int, error) {
	if err := CheckAmount(a); err != nil {
		return nil, err
	}
	if err := CheckAmount(b); err != nil {
		return nil, err
	}
	if a.Cmp(b) < 0 {
		return nil, ErrorAmountUnderflow
	}
	return new(big.Int).Sub(a, b), nil
}

// ParseAmount converts a decimal string such as "1000.23" into minor units.
func ParseAmount(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrorInvalidAmount
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if hasDot && len(frac) > decimals {
		return nil, fmt.Errorf("%w: more than %v fractional digits in '%v'", ErrorInvalidAmount, decimals, s)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	res, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: '%v'", ErrorInvalidAmount, s)
	}
	if err := CheckAmount(res); err != nil {
		return nil, err
	}
	return res, nil
}

func MustParseAmount(s string, decimals int) *big.Int {
	res, err := ParseAmount(s, decimals)
	if err != nil {
		panic(err)
	}
	return res
}
