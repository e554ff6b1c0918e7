package services

import (
	"signalgate/internal/structures"
)

const (
	QuotaModeExact = "exact"
	QuotaModeFloor = "floor"
)

type QuotaPolicyInterface interface {
	MaxLiveEntitlements(rawBalance uint64) int
}

// QuotaPolicy maps a governance-token balance to the maximum number of
// simultaneously live entitlements. The observed product gates on exact tier
// balances (69, 420, 1008, 10008 whole tokens), so "exact" is the default
// comparison mode; "floor" treats tiers as thresholds instead.
type QuotaPolicy struct {
	tiers []structures.QuotaTier
	mode  string
	scale uint64
}

func NewQuotaPolicy(conf *structures.Config) QuotaPolicyInterface {
	scale := uint64(1)
	for i := 0; i < conf.Quota.TokenDecimals; i++ {
		scale *= 10
	}
	return &QuotaPolicy{
		tiers: conf.Quota.Tiers,
		mode:  conf.Quota.Mode,
		scale: scale,
	}
}

// MaxLiveEntitlements is a pure function of the raw (smallest-unit) balance.
// In exact mode a balance that is not a whole-token multiple, or that sits
// between tiers, yields quota 0.
func (q *QuotaPolicy) MaxLiveEntitlements(rawBalance uint64) int {
	whole := rawBalance / q.scale

	if q.mode == QuotaModeFloor {
		quota := 0
		for _, tier := range q.tiers {
			if whole >= tier.Balance {
				quota = tier.Quota
			}
		}
		return quota
	}

	if rawBalance%q.scale != 0 {
		return 0
	}
	for _, tier := range q.tiers {
		if whole == tier.Balance {
			return tier.Quota
		}
	}
	return 0
}
