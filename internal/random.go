package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// CryptoSource draws uniform integers from crypto/rand. It is the default
// RandomSource wired by the builder.
type CryptoSource struct{}

// Intn returns a uniform integer in [0, n).
func (CryptoSource) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("invalid bound")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// NewOTPCode builds a numeric code of the given length, each digit uniform in
// 0-9 so leading zeros are as likely as anything else.
func NewOTPCode(src interface{ Intn(int) (int, error) }, digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	for i := 0; i < digits; i++ {
		n, err := src.Intn(10)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n))
	}

	return b.String(), nil
}
