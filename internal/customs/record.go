// Package customs implements the per-identity decision engine: each identity
// (an email address, IP address or account uid) has a Record holding one
// sliding window per tracked action class plus its block, suspect, disable,
// rate-limit and password-reset timestamps.
//
// Decisions are pure computation over an in-memory record. Loading and saving
// records is the caller's job; concurrent callers racing on the same identity
// may under-count by one, which is accepted.
package customs

import (
	"math"
	"time"

	"github.com/BradenHooton/customs/internal/actions"
	"github.com/BradenHooton/customs/internal/limits"
)

// Clock returns the current time. Tests inject fixed clocks.
type Clock func() time.Time

// Record is the state tracked for one identity. Timestamps are epoch
// milliseconds and zero means the event never happened.
type Record struct {
	BlockedAt       int64
	SuspectedAt     int64
	DisabledAt      int64
	RateLimitedAt   int64
	PasswordResetAt int64

	VerifyCodes      Window
	EmailHits        Window
	SmsHits          Window
	TwilioHits       Window
	Unblocks         Window
	BadLogins        Window
	OtpSends         Window
	OtpVerifications Window

	limits *limits.Limits
	clock  Clock
}

func (r *Record) now() int64 {
	return r.clock().UnixMilli()
}

// MinLifetime is how long the store must keep the record for every window it
// tracks to stay meaningful.
func (r *Record) MinLifetime() time.Duration {
	ms := max(
		r.limits.RateLimitIntervalMs,
		r.limits.BlockIntervalMs,
		r.limits.PasswordResetOtpEmailRequestWindowMs,
		r.limits.PasswordResetOtpVerificationBlockWindowMs,
	)
	return time.Duration(ms) * time.Millisecond
}

func (r *Record) IsOverEmailLimit() bool {
	r.EmailHits.Trim(r.now(), r.limits.RateLimitIntervalMs, r.limits.MaxEmails)
	return r.EmailHits.Over(r.limits.MaxEmails)
}

func (r *Record) IsOverVerifyCodes() bool {
	r.VerifyCodes.Trim(r.now(), r.limits.RateLimitIntervalMs, r.limits.MaxVerifyCodes)
	return r.VerifyCodes.Over(r.limits.MaxVerifyCodes)
}

func (r *Record) IsOverSmsLimit() bool {
	r.SmsHits.Trim(r.now(), r.limits.RateLimitIntervalMs, r.limits.MaxSms)
	return r.SmsHits.Over(r.limits.MaxSms)
}

func (r *Record) IsOverTwilioLimit() bool {
	r.TwilioHits.Trim(r.now(), r.limits.RateLimitIntervalMs, r.limits.MaxTwilioRequests)
	return r.TwilioHits.Over(r.limits.MaxTwilioRequests)
}

func (r *Record) IsOverBadLogins() bool {
	r.BadLogins.Trim(r.now(), r.limits.RateLimitIntervalMs, r.limits.MaxBadLoginsPerEmail)
	return r.BadLogins.Over(r.limits.MaxBadLoginsPerEmail)
}

// AddBadLogin records a failed password check.
func (r *Record) AddBadLogin() {
	now := r.now()
	r.BadLogins.Trim(now, r.limits.RateLimitIntervalMs, r.limits.MaxBadLoginsPerEmail)
	r.BadLogins.Add(now)
}

// CanUnblock reports whether another unblock code may be accepted.
func (r *Record) CanUnblock() bool {
	r.Unblocks.Trim(r.now(), r.limits.RateLimitIntervalMs, r.limits.MaxUnblockAttempts)
	return !r.Unblocks.Over(r.limits.MaxUnblockAttempts)
}

// ShouldBlock reports whether any blocking state is active. Being suspected
// alone does not block.
func (r *Record) ShouldBlock() bool {
	return r.IsRateLimited() || r.IsBlocked() || r.IsDisabled()
}

func (r *Record) IsRateLimited() bool {
	return active(r.RateLimitedAt, r.now(), r.limits.RateLimitIntervalMs)
}

func (r *Record) IsBlocked() bool {
	return active(r.BlockedAt, r.now(), r.limits.BlockIntervalMs)
}

func (r *Record) IsSuspected() bool {
	return active(r.SuspectedAt, r.now(), r.limits.SuspectIntervalMs)
}

func (r *Record) IsDisabled() bool {
	return active(r.DisabledAt, r.now(), r.limits.DisableIntervalMs)
}

func active(at, now, intervalMs int64) bool {
	return at != 0 && now-at < intervalMs
}

func (r *Record) Block() {
	r.BlockedAt = r.now()
}

func (r *Record) Suspect() {
	r.SuspectedAt = r.now()
}

func (r *Record) Disable() {
	r.DisabledAt = r.now()
}

// RateLimit starts a rate-limit period. The send logs that caused it are
// cleared; verify-code and bad-login history is kept.
func (r *Record) RateLimit() {
	r.RateLimitedAt = r.now()
	r.EmailHits.Reset()
	r.SmsHits.Reset()
	r.TwilioHits.Reset()
}

// PasswordReset marks a completed reset and clears both OTP logs so another
// reset flow can start.
func (r *Record) PasswordReset() {
	r.PasswordResetAt = r.now()
	r.OtpSends.Reset()
	r.OtpVerifications.Reset()
}

// RetryAfter returns the seconds until the longer of the rate-limit and block
// penalties ends, never negative.
func (r *Record) RetryAfter() int {
	now := r.now()
	rateLimitAfter := ceilSeconds(r.RateLimitedAt + r.limits.RateLimitIntervalMs - now)
	banAfter := ceilSeconds(r.BlockedAt + r.limits.BlockIntervalMs - now)
	return max(0, rateLimitAfter, banAfter)
}

// DisabledFor returns the seconds left on an active disable, or 0.
func (r *Record) DisabledFor() int {
	if !r.IsDisabled() {
		return 0
	}
	return max(0, ceilSeconds(r.DisabledAt+r.limits.DisableIntervalMs-r.now()))
}

func (r *Record) isOverPasswordResetOtpLimit() bool {
	r.OtpSends.Filter(r.now(), r.limits.PasswordResetOtpEmailRequestWindowMs)
	return len(r.OtpSends) >= r.limits.MaxPasswordResetOtpEmails
}

func (r *Record) isOverPasswordResetOtpVerificationBlockLimit() bool {
	r.OtpVerifications.Filter(r.now(), r.limits.PasswordResetOtpVerificationBlockWindowMs)
	return len(r.OtpVerifications) >= r.limits.MaxPasswordResetOtpVerificationBlockLimit
}

func (r *Record) isOverPasswordResetOtpVerificationRateLimit() bool {
	n := r.OtpVerifications.CountSince(r.now(), r.limits.PasswordResetOtpVerificationRateLimitWindowMs)
	return n >= r.limits.MaxPasswordResetOtpVerificationRateLimit
}

// Update evaluates action against the record and returns the number of
// seconds the caller must wait, or 0 when the action is allowed. unblock is
// set when the caller presented an unblock code.
func (r *Record) Update(action string, unblock bool) int {
	// An explicit block wins over everything and touches no counters.
	if r.IsBlocked() {
		return r.RetryAfter()
	}

	if unblock {
		r.Unblocks.Add(r.now())
	}

	if actions.IsCodeVerifyingAction(action) {
		if r.ShouldBlock() {
			return r.RetryAfter()
		}
		r.VerifyCodes.Add(r.now())
		if r.IsOverVerifyCodes() {
			r.RateLimit()
			return r.RetryAfter()
		}
	}

	if actions.IsEmailSendingAction(action) {
		if r.ShouldBlock() {
			return r.RetryAfter()
		}
		r.EmailHits.Add(r.now())
		if r.IsOverEmailLimit() {
			r.RateLimit()
			return r.RetryAfter()
		}
	}

	if actions.IsSmsSendingAction(action) {
		if r.ShouldBlock() {
			return r.RetryAfter()
		}
		r.SmsHits.Add(r.now())
		if r.IsOverSmsLimit() {
			r.RateLimit()
			return r.RetryAfter()
		}
	}

	if actions.IsTwilioAction(action) {
		if r.ShouldBlock() {
			return r.RetryAfter()
		}
		r.TwilioHits.Add(r.now())
		if r.IsOverTwilioLimit() {
			r.RateLimit()
			return r.RetryAfter()
		}
	}

	// Bad logins are checked on every call, whatever the action.
	if r.IsOverBadLogins() {
		r.RateLimit()
		return r.RetryAfter()
	}

	// The OTP paths throttle without entering the rate-limited state.
	if actions.IsResetPasswordOtpSendingAction(action) {
		if r.isOverPasswordResetOtpLimit() {
			latest := r.latest(r.OtpSends)
			return max(0, ceilSeconds(latest+r.limits.PasswordResetOtpEmailRateLimitIntervalMs-r.now()))
		}
		r.OtpSends.Add(r.now())
		return 0
	}

	if actions.IsResetPasswordOtpVerificationAction(action) {
		shouldBlock := r.isOverPasswordResetOtpVerificationBlockLimit()
		shouldRateLimit := r.isOverPasswordResetOtpVerificationRateLimit()

		if shouldBlock || shouldRateLimit {
			latest := r.latest(r.OtpVerifications)
			if shouldBlock {
				return max(0, ceilSeconds(latest+r.limits.PasswordResetOtpVerificationBlockWindowMs-r.now()))
			}
			return max(0, ceilSeconds(latest+r.limits.PasswordResetOtpVerificationRateLimitWindowMs-r.now()))
		}

		r.OtpVerifications.Add(r.now())
		return 0
	}

	return 0
}

// latest returns the newest entry of w, or now for an empty log, which only
// happens when the configured maximum is zero.
func (r *Record) latest(w Window) int64 {
	if ts, ok := w.Last(); ok {
		return ts
	}
	return r.now()
}

func ceilSeconds(ms int64) int {
	return int(math.Ceil(float64(ms) / 1000))
}
