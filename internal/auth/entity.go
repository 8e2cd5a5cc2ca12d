// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

const (
	PurposeLogin    = "login"
	PurposeSignup   = "signup"
	PurposeRecovery = "recovery"
)

// StoredPurpose maps a requested purpose onto the value persisted with the
// code. Recovery codes are login codes.
func StoredPurpose(purpose string) string {
	if purpose == PurposeRecovery {
		return PurposeLogin
	}
	return purpose
}

type OTPState int

const (
	OTPIssued OTPState = iota
	OTPConsumed
	OTPExpired
	OTPExhausted
)

func (s OTPState) String() string {
	switch s {
	case OTPIssued:
		return "issued"
	case OTPConsumed:
		return "consumed"
	case OTPExpired:
		return "expired"
	case OTPExhausted:
		return "attempts_exhausted"
	default:
		return "unknown"
	}
}

type OTPCode struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	Code      string    `db:"code"`
	Purpose   string    `db:"purpose"`
	ExpiresAt time.Time `db:"expires_at"`
	Attempts  int       `db:"attempts"`
	Consumed  bool      `db:"consumed"`
	CreatedAt time.Time `db:"created_at"`
}

// Claim reports the outcome of an attempt that has already been recorded
// on the code, so Attempts includes it. A usable code ends in OTPConsumed.
func (c *OTPCode) Claim(now time.Time, maxAttempts int) OTPState {
	switch {
	case c.Attempts-1 >= maxAttempts:
		return OTPExhausted
	case !now.Before(c.ExpiresAt):
		return OTPExpired
	default:
		return OTPConsumed
	}
}
