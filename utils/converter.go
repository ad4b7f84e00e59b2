package utils

import (
	"errors"
	"math/big"
	"strings"
)

var (
	ErrInvalidAmount     = errors.New("amount is not a decimal number")
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrTooManyDecimals   = errors.New("amount has more than 18 decimal places")
)

var weiPerEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(NativeDecimals), nil)

// ETHToWei parses a plain decimal string ("2.5", "0.000000000000000001")
// into base units without going through binary floating point.
func ETHToWei(eth string) (*big.Int, error) {
	s := strings.TrimSpace(eth)
	if s == "" {
		return nil, ErrInvalidAmount
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return nil, ErrInvalidAmount
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return nil, ErrInvalidAmount
	}
	if len(fracPart) > NativeDecimals {
		return nil, ErrTooManyDecimals
	}

	digits := intPart + fracPart + strings.Repeat("0", NativeDecimals-len(fracPart))
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	if neg {
		wei.Neg(wei)
	}
	return wei, nil
}

// ParsePositiveAmount is ETHToWei restricted to amounts strictly above zero.
func ParsePositiveAmount(eth string) (*big.Int, error) {
	wei, err := ETHToWei(eth)
	if err != nil {
		return nil, err
	}
	if wei.Sign() <= 0 {
		return nil, ErrNonPositiveAmount
	}
	return wei, nil
}

// WeiToETH renders base units as a decimal string with trailing zeros trimmed.
func WeiToETH(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	abs := new(big.Int).Abs(wei)
	q, r := new(big.Int).QuoRem(abs, weiPerEth, new(big.Int))

	out := q.String()
	if r.Sign() != 0 {
		frac := r.String()
		frac = strings.Repeat("0", NativeDecimals-len(frac)) + frac
		out += "." + strings.TrimRight(frac, "0")
	}
	if wei.Sign() < 0 {
		out = "-" + out
	}
	return out
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
