package auth

import (
	"crypto/rand"
	"math/big"
)

// GenerateOTP returns a random numeric code of the given length, suitable
// for SMS delivery. Leading zeros are allowed.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = 6
	}

	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
