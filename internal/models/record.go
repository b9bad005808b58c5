package models

import (
	"encoding/json"
	"math"
)

// Identity kinds a record can be keyed by.
const (
	IdentityKindEmail = "email"
	IdentityKindIP    = "ip"
	IdentityKindUID   = "uid"
)

// ValidIdentityKind reports whether kind is one of the known identity kinds.
func ValidIdentityKind(kind string) bool {
	switch kind {
	case IdentityKindEmail, IdentityKindIP, IdentityKindUID:
		return true
	}
	return false
}

// StoredRecord is the persisted form of an identity record. Field names are
// the storage contract shared with every other reader of the store and must
// not change. Timestamps are epoch milliseconds; zero means absent.
type StoredRecord struct {
	BlockedAt       int64 `json:"bk,omitempty"`
	SuspectedAt     int64 `json:"su,omitempty"`
	DisabledAt      int64 `json:"di,omitempty"`
	RateLimitedAt   int64 `json:"rl,omitempty"`
	PasswordResetAt int64 `json:"pr,omitempty"`

	VerifyCodes      []int64 `json:"vc"`
	EmailHits        []int64 `json:"xs"`
	SmsHits          []int64 `json:"sms"`
	TwilioHits       []int64 `json:"twilio"`
	Unblocks         []int64 `json:"ub"`
	BadLogins        []int64 `json:"lf"`
	OtpSends         []int64 `json:"os"`
	OtpVerifications []int64 `json:"ov"`
}

type storedRecordAlias StoredRecord

// MarshalJSON always writes every event log, empty or not.
func (r StoredRecord) MarshalJSON() ([]byte, error) {
	out := storedRecordAlias(r)
	for _, log := range []*[]int64{
		&out.VerifyCodes, &out.EmailHits, &out.SmsHits, &out.TwilioHits,
		&out.Unblocks, &out.BadLogins, &out.OtpSends, &out.OtpVerifications,
	} {
		if *log == nil {
			*log = []int64{}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a stored record field by field. A field with an
// unexpected shape is dropped rather than failing the whole record, so corrupt
// history can never fail a decision. Only a payload that is not a JSON object
// returns an error.
func (r *StoredRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = StoredRecord{
		BlockedAt:       decodeTimestamp(fields["bk"]),
		SuspectedAt:     decodeTimestamp(fields["su"]),
		DisabledAt:      decodeTimestamp(fields["di"]),
		RateLimitedAt:   decodeTimestamp(fields["rl"]),
		PasswordResetAt: decodeTimestamp(fields["pr"]),

		VerifyCodes:      decodeTimestamps(fields["vc"]),
		EmailHits:        decodeTimestamps(fields["xs"]),
		SmsHits:          decodeTimestamps(fields["sms"]),
		TwilioHits:       decodeTimestamps(fields["twilio"]),
		Unblocks:         decodeTimestamps(fields["ub"]),
		BadLogins:        decodeTimestamps(fields["lf"]),
		OtpSends:         decodeTimestamps(fields["os"]),
		OtpVerifications: decodeTimestamps(fields["ov"]),
	}
	return nil
}

func decodeTimestamp(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	ts, ok := toMillis(v)
	if !ok {
		return 0
	}
	return ts
}

func decodeTimestamps(raw json.RawMessage) []int64 {
	if len(raw) == 0 {
		return []int64{}
	}
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return []int64{}
	}
	out := make([]int64, 0, len(values))
	for _, v := range values {
		ts, ok := toMillis(v)
		if !ok {
			return []int64{}
		}
		out = append(out, ts)
	}
	return out
}

func toMillis(v float64) (int64, bool) {
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) || v > math.MaxInt64/2 {
		return 0, false
	}
	return int64(v), true
}
