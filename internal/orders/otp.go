package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// otpRange covers every six digit code without a leading zero, so the code
// survives clients that strip zeros.
var (
	otpMin    = int64(100000)
	otpSpan   = int64(900000)
	otpDigits = 6
)

// GenerateOTP returns a six digit delivery confirmation code drawn from
// crypto/rand.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%06d", otpMin+n.Int64()), nil
}

// ValidOTPFormat reports whether the submitted code is exactly six digits.
// Format failures are rejected before touching the stored code.
func ValidOTPFormat(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
