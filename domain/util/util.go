package util

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
)

const JettonDecimals = 9

func GramToTonString(gram int64) string {
	return fmt.Sprintf("%v Ton", humanize.Commaf(float64(gram)/1000000000))
}

func GramString(gram int64) string {
	return fmt.Sprintf("%v Gram", humanize.Comma(gram))
}

// JettonString renders minor units with grouped whole part, e.g. "1,000.23".
func JettonString(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(new(big.Int).Abs(amount), scale, new(big.Int))

	res := humanize.BigComma(whole)
	if frac.Sign() != 0 {
		digits := frac.String()
		digits = strings.Repeat("0", decimals-len(digits)) + digits
		res += "." + strings.TrimRight(digits, "0")
	}
	if amount.Sign() < 0 {
		res = "-" + res
	}
	return res
}
