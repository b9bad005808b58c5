// Package limits holds the thresholds and windows the decision engine
// enforces, and the hot-reload path that replaces them at runtime.
//
// A *Limits value is immutable once published. Callers take one snapshot per
// decision so a reload never changes limits halfway through an evaluation.
package limits

import "github.com/BradenHooton/customs/internal/models"

// ErrLimitsMissing is returned when a reload candidate is not a settings
// object at all.
var ErrLimitsMissing = models.ErrLimitsMissing

// Limits is an immutable snapshot of every threshold and window, with all
// durations in milliseconds.
type Limits struct {
	BlockIntervalMs     int64
	SuspectIntervalMs   int64
	DisableIntervalMs   int64
	RateLimitIntervalMs int64

	MaxEmails            int
	MaxBadLoginsPerEmail int
	MaxUnblockAttempts   int
	MaxVerifyCodes       int
	MaxSms               int
	MaxTwilioRequests    int

	MaxPasswordResetOtpEmails                     int
	PasswordResetOtpEmailRequestWindowMs          int64
	PasswordResetOtpEmailRateLimitIntervalMs      int64
	MaxPasswordResetOtpVerificationRateLimit      int
	PasswordResetOtpVerificationRateLimitWindowMs int64
	MaxPasswordResetOtpVerificationBlockLimit     int
	PasswordResetOtpVerificationBlockWindowMs     int64
}
