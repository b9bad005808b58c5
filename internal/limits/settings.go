package limits

import (
	"encoding/json"
	"fmt"
	"time"
)

// Settings is the flat, externally supplied form of the limits. Keys are the
// names used in the limits cache and in YAML files. Durations are seconds
// unless the key says otherwise.
type Settings struct {
	BlockIntervalSeconds     int64 `json:"blockIntervalSeconds" yaml:"blockIntervalSeconds" validate:"gt=0"`
	SuspectIntervalMs        int64 `json:"suspectInterval" yaml:"suspectInterval" validate:"gt=0"`
	DisableIntervalMs        int64 `json:"disableInterval" yaml:"disableInterval" validate:"gt=0"`
	RateLimitIntervalSeconds int64 `json:"rateLimitIntervalSeconds" yaml:"rateLimitIntervalSeconds" validate:"gt=0"`

	MaxEmails            int `json:"maxEmails" yaml:"maxEmails" validate:"gte=0"`
	MaxBadLoginsPerEmail int `json:"maxBadLoginsPerEmail" yaml:"maxBadLoginsPerEmail" validate:"gte=0"`
	MaxUnblockAttempts   int `json:"maxUnblockAttempts" yaml:"maxUnblockAttempts" validate:"gte=0"`
	MaxVerifyCodes       int `json:"maxVerifyCodes" yaml:"maxVerifyCodes" validate:"gte=0"`
	MaxSms               int `json:"maxSms" yaml:"maxSms" validate:"gte=0"`
	MaxTwilioRequests    int `json:"maxTwilioRequests" yaml:"maxTwilioRequests" validate:"gte=0"`

	MaxPasswordResetOtpEmails                        int   `json:"maxPasswordResetOtpEmails" yaml:"maxPasswordResetOtpEmails" validate:"gte=0"`
	PasswordResetOtpEmailRequestWindowSeconds        int64 `json:"passwordResetOtpEmailRequestWindowSeconds" yaml:"passwordResetOtpEmailRequestWindowSeconds" validate:"gt=0"`
	PasswordResetOtpRateLimitIntervalSeconds         int64 `json:"passwordResetOtpRateLimitIntervalSeconds" yaml:"passwordResetOtpRateLimitIntervalSeconds" validate:"gt=0"`
	MaxPasswordResetOtpVerificationRateLimit         int   `json:"maxPasswordResetOtpVerificationRateLimit" yaml:"maxPasswordResetOtpVerificationRateLimit" validate:"gte=0"`
	PasswordResetOtpVerificationLimitIntervalSeconds int64 `json:"passwordResetOtpVerificationLimitIntervalSeconds" yaml:"passwordResetOtpVerificationLimitIntervalSeconds" validate:"gt=0"`
	MaxPasswordResetOtpVerificationBlockLimit        int   `json:"maxPasswordResetOtpVerificationBlockLimit" yaml:"maxPasswordResetOtpVerificationBlockLimit" validate:"gte=0"`
	PasswordResetOtpVerificationBlockWindowSeconds   int64 `json:"passwordResetOtpVerificationBlockWindowSeconds" yaml:"passwordResetOtpVerificationBlockWindowSeconds" validate:"gt=0"`
}

// Default returns the settings used when no limits file or cache entry exists.
func Default() Settings {
	day := int64(24 * time.Hour / time.Second)
	return Settings{
		BlockIntervalSeconds:     day,
		SuspectIntervalMs:        day * 1000,
		DisableIntervalMs:        day * 1000,
		RateLimitIntervalSeconds: int64(15 * time.Minute / time.Second),

		MaxEmails:            3,
		MaxBadLoginsPerEmail: 3,
		MaxUnblockAttempts:   5,
		MaxVerifyCodes:       10,
		MaxSms:               5,
		MaxTwilioRequests:    5,

		MaxPasswordResetOtpEmails:                        5,
		PasswordResetOtpEmailRequestWindowSeconds:        day,
		PasswordResetOtpRateLimitIntervalSeconds:         day,
		MaxPasswordResetOtpVerificationRateLimit:         5,
		PasswordResetOtpVerificationLimitIntervalSeconds: 60,
		MaxPasswordResetOtpVerificationBlockLimit:        20,
		PasswordResetOtpVerificationBlockWindowSeconds:   day,
	}
}

// Limits derives the millisecond snapshot the decision engine reads.
func (s Settings) Limits() *Limits {
	return &Limits{
		BlockIntervalMs:     s.BlockIntervalSeconds * 1000,
		SuspectIntervalMs:   s.SuspectIntervalMs,
		DisableIntervalMs:   s.DisableIntervalMs,
		RateLimitIntervalMs: s.RateLimitIntervalSeconds * 1000,

		MaxEmails:            s.MaxEmails,
		MaxBadLoginsPerEmail: s.MaxBadLoginsPerEmail,
		MaxUnblockAttempts:   s.MaxUnblockAttempts,
		MaxVerifyCodes:       s.MaxVerifyCodes,
		MaxSms:               s.MaxSms,
		MaxTwilioRequests:    s.MaxTwilioRequests,

		MaxPasswordResetOtpEmails:                     s.MaxPasswordResetOtpEmails,
		PasswordResetOtpEmailRequestWindowMs:          s.PasswordResetOtpEmailRequestWindowSeconds * 1000,
		PasswordResetOtpEmailRateLimitIntervalMs:      s.PasswordResetOtpRateLimitIntervalSeconds * 1000,
		MaxPasswordResetOtpVerificationRateLimit:      s.MaxPasswordResetOtpVerificationRateLimit,
		PasswordResetOtpVerificationRateLimitWindowMs: s.PasswordResetOtpVerificationLimitIntervalSeconds * 1000,
		MaxPasswordResetOtpVerificationBlockLimit:     s.MaxPasswordResetOtpVerificationBlockLimit,
		PasswordResetOtpVerificationBlockWindowMs:     s.PasswordResetOtpVerificationBlockWindowSeconds * 1000,
	}
}

// AsMap returns the settings as a generic JSON object, the shape the
// validator compares candidates against.
func (s Settings) AsMap() map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		// Settings only holds integers; marshalling cannot fail.
		panic(fmt.Sprintf("limits: marshal settings: %v", err))
	}
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	return out
}

func settingsFromMap(m map[string]any) (Settings, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to encode settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, nil
}
