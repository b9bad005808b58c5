package customs

import (
	"time"

	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/models"
)

// Factory builds records bound to a limits snapshot and a clock.
type Factory struct {
	clock Clock
}

// NewFactory creates a Factory. A nil clock uses time.Now.
func NewFactory(clock Clock) *Factory {
	if clock == nil {
		clock = time.Now
	}
	return &Factory{clock: clock}
}

// New returns an empty record: every log empty, every timestamp absent.
func (f *Factory) New(l *limits.Limits) *Record {
	return f.Parse(l, nil)
}

// Parse materialises a record from its stored form. A nil stored record gives
// an empty record, so callers never need a separate "not found" path.
func (f *Factory) Parse(l *limits.Limits, stored *models.StoredRecord) *Record {
	rec := &Record{
		VerifyCodes:      Window{},
		EmailHits:        Window{},
		SmsHits:          Window{},
		TwilioHits:       Window{},
		Unblocks:         Window{},
		BadLogins:        Window{},
		OtpSends:         Window{},
		OtpVerifications: Window{},
		limits:           l,
		clock:            f.clock,
	}
	if stored == nil {
		return rec
	}

	rec.BlockedAt = stored.BlockedAt
	rec.SuspectedAt = stored.SuspectedAt
	rec.DisabledAt = stored.DisabledAt
	rec.RateLimitedAt = stored.RateLimitedAt
	rec.PasswordResetAt = stored.PasswordResetAt

	rec.VerifyCodes = copyWindow(stored.VerifyCodes)
	rec.EmailHits = copyWindow(stored.EmailHits)
	rec.SmsHits = copyWindow(stored.SmsHits)
	rec.TwilioHits = copyWindow(stored.TwilioHits)
	rec.Unblocks = copyWindow(stored.Unblocks)
	rec.BadLogins = copyWindow(stored.BadLogins)
	rec.OtpSends = copyWindow(stored.OtpSends)
	rec.OtpVerifications = copyWindow(stored.OtpVerifications)
	return rec
}

// Stored returns the record in its persisted form.
func (r *Record) Stored() *models.StoredRecord {
	return &models.StoredRecord{
		BlockedAt:       r.BlockedAt,
		SuspectedAt:     r.SuspectedAt,
		DisabledAt:      r.DisabledAt,
		RateLimitedAt:   r.RateLimitedAt,
		PasswordResetAt: r.PasswordResetAt,

		VerifyCodes:      []int64(copyWindow(r.VerifyCodes)),
		EmailHits:        []int64(copyWindow(r.EmailHits)),
		SmsHits:          []int64(copyWindow(r.SmsHits)),
		TwilioHits:       []int64(copyWindow(r.TwilioHits)),
		Unblocks:         []int64(copyWindow(r.Unblocks)),
		BadLogins:        []int64(copyWindow(r.BadLogins)),
		OtpSends:         []int64(copyWindow(r.OtpSends)),
		OtpVerifications: []int64(copyWindow(r.OtpVerifications)),
	}
}

func copyWindow(src []int64) Window {
	out := make(Window, len(src))
	copy(out, src)
	return out
}
