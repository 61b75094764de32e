package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OTPTTL is how long a code stays valid after it was last written.
const OTPTTL = 10 * time.Minute

// GenerateOTP produces a new 6-character uppercase code on every call.
// Each invocation draws a fresh UUID, so codes are never reused from a
// cached source.
func GenerateOTP() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(hex[:6])
}

// OTPExpired reports whether a code written at updatedAt (Unix seconds)
// has passed its validity window.
func OTPExpired(updatedAt int64, now time.Time) bool {
	return now.Unix() > updatedAt+int64(OTPTTL.Seconds())
}
