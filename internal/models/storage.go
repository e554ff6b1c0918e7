package models

// StorageVersion is the current on-disk snapshot format.
const StorageVersion = 1

// Storage is the persistence envelope for the entitlement store: live grants
// per holder plus the consumed proof ids that guard against claim replay
// across restarts.
type Storage struct {
	Version        int                     `json:"version"`
	Holders        map[string][]Entitlement `json:"holders"`
	ConsumedProofs map[string]EpochSeconds  `json:"consumed_proofs"`
}
