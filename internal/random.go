package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"strings"
)

// NewNumericCode returns a uniformly random decimal code of exactly digits
// characters, leading zeros preserved. Uses crypto/rand rejection-free via
// big.Int over the full [0, 10^digits) range.
func NewNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", errors.New("invalid code digit count")
	}

	limit := big.NewInt(1)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, ten)
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}

	code := n.String()
	if pad := digits - len(code); pad > 0 {
		code = strings.Repeat("0", pad) + code
	}
	return code, nil
}

// NewUsernameSuffix returns a random decimal suffix in [0, bound) for
// generated usernames, e.g. federated first sign-in.
func NewUsernameSuffix(bound int64) (string, error) {
	if bound <= 0 {
		return "", errors.New("invalid suffix bound")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(bound))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64(), 10), nil
}

// IsNumericString reports whether s is non-empty and all ASCII digits.
func IsNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
