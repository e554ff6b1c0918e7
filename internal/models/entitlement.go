package models

import "time"

// EpochSeconds is the only time representation stored or compared in the
// entitlement layer. External inputs (ledger block times, wall clocks) are
// converted at the boundary so second and millisecond values can never be
// compared against each other.
type EpochSeconds int64

func ToEpochSeconds(t time.Time) EpochSeconds {
	return EpochSeconds(t.Unix())
}

// Entitlement is a granted, time-bounded right for one holder to view one
// gated signal. Read-only after creation.
type Entitlement struct {
	SignalID  string       `json:"signal_id"`
	Holder    string       `json:"holder"`
	GrantedAt EpochSeconds `json:"granted_at"`
	ExpiresAt EpochSeconds `json:"expires_at"`
}

// Expired reports whether the entitlement is dead at the given instant.
// The boundary instant expiresAt itself counts as expired.
func (e *Entitlement) Expired(now EpochSeconds) bool {
	return now >= e.ExpiresAt
}
