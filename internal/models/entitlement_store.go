package models

import (
	"errors"
	"sync"
)

var (
	// ErrAlreadyLive: the (holder, signal) pair already has a live entitlement.
	ErrAlreadyLive = errors.New("entitlement already live")
	// ErrUnlockInFlight: another completion for the pair (or the proof id) is
	// mid-verification and has not expired yet.
	ErrUnlockInFlight = errors.New("unlock already in flight")
	// ErrProofConsumed: the proof id was already converted into a grant.
	ErrProofConsumed = errors.New("payment proof already consumed")
)

type pairKey struct {
	holder   string
	signalID string
}

type reservation struct {
	proofID   string
	expiresAt EpochSeconds
}

// EntitlementStore is the single mutable shared resource of the unlock core.
// It holds live grants per (holder, signal) pair, the set of consumed payment
// proof ids, and short-lived reservations that make "verify then grant" an
// atomic unit against concurrent completions. All timestamps are epoch
// seconds.
type EntitlementStore struct {
	mu         sync.RWMutex
	window     EpochSeconds
	reserveTTL EpochSeconds

	holders      map[string]map[string]Entitlement
	consumed     map[string]EpochSeconds
	reservations map[pairKey]reservation
	heldProofs   map[string]pairKey
}

func NewEntitlementStore(expiryWindow, reserveTTL EpochSeconds) *EntitlementStore {
	return &EntitlementStore{
		window:       expiryWindow,
		reserveTTL:   reserveTTL,
		holders:      make(map[string]map[string]Entitlement),
		consumed:     make(map[string]EpochSeconds),
		reservations: make(map[pairKey]reservation),
		heldProofs:   make(map[string]pairKey),
	}
}

// Reserve performs the atomic check-and-set that guards the verification
// window: it fails if the pair is already live, if another completion for the
// pair or proof id is still in flight, or if the proof id was ever consumed.
// A reservation expires on its own after reserveTTL so an abandoned
// verification cannot wedge the pair.
func (s *EntitlementStore) Reserve(signalID, holder, proofID string, now EpochSeconds) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.holders[holder][signalID]; ok {
		if !ent.Expired(now) {
			return ErrAlreadyLive
		}
		delete(s.holders[holder], signalID)
	}
	if _, ok := s.consumed[proofID]; ok {
		return ErrProofConsumed
	}

	key := pairKey{holder: holder, signalID: signalID}
	if res, ok := s.reservations[key]; ok {
		if now < res.expiresAt {
			return ErrUnlockInFlight
		}
		s.dropReservation(key, res)
	}
	if held, ok := s.heldProofs[proofID]; ok {
		res := s.reservations[held]
		if now < res.expiresAt {
			return ErrUnlockInFlight
		}
		s.dropReservation(held, res)
	}

	s.reservations[key] = reservation{proofID: proofID, expiresAt: now + s.reserveTTL}
	s.heldProofs[proofID] = key
	return nil
}

// Release clears the pair's reservation after a failed verification. Failed
// attempts are never recorded, so a fresh claim may retry immediately.
func (s *EntitlementStore) Release(signalID, holder, proofID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{holder: holder, signalID: signalID}
	if res, ok := s.reservations[key]; ok && res.proofID == proofID {
		s.dropReservation(key, res)
	}
}

func (s *EntitlementStore) dropReservation(key pairKey, res reservation) {
	delete(s.reservations, key)
	delete(s.heldProofs, res.proofID)
}

// Grant is the only durable mutator. It consumes the proof id exactly once:
// a replay of an already-consumed proof fails and leaves exactly one live
// entitlement behind. grantedAt is the ledger-confirmed time, not a client
// clock.
func (s *EntitlementStore) Grant(signalID, holder string, grantedAt EpochSeconds, proofID string) (*Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.consumed[proofID]; ok {
		return nil, ErrProofConsumed
	}
	if ent, ok := s.holders[holder][signalID]; ok && !ent.Expired(grantedAt) {
		// a different proof cannot double-grant a live pair
		return nil, ErrAlreadyLive
	}

	ent := Entitlement{
		SignalID:  signalID,
		Holder:    holder,
		GrantedAt: grantedAt,
		ExpiresAt: grantedAt + s.window,
	}
	if s.holders[holder] == nil {
		s.holders[holder] = make(map[string]Entitlement)
	}
	s.holders[holder][signalID] = ent
	s.consumed[proofID] = grantedAt

	key := pairKey{holder: holder, signalID: signalID}
	if res, ok := s.reservations[key]; ok {
		s.dropReservation(key, res)
	}
	return &ent, nil
}

// IsLive answers "is this signal currently unlocked for this holder".
func (s *EntitlementStore) IsLive(signalID, holder string, now EpochSeconds) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.holders[holder][signalID]
	return ok && !ent.Expired(now)
}

// ListLive returns the holder's live entitlements.
func (s *EntitlementStore) ListLive(holder string, now EpochSeconds) []Entitlement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entitlement, 0, len(s.holders[holder]))
	for _, ent := range s.holders[holder] {
		if !ent.Expired(now) {
			out = append(out, ent)
		}
	}
	return out
}

// CountLive counts the holder's live entitlements whose signal the relevance
// filter accepts. A nil filter counts everything.
func (s *EntitlementStore) CountLive(holder string, now EpochSeconds, relevant func(signalID string) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for id, ent := range s.holders[holder] {
		if ent.Expired(now) {
			continue
		}
		if relevant == nil || relevant(id) {
			count++
		}
	}
	return count
}

// TotalLive counts live entitlements across all holders.
func (s *EntitlementStore) TotalLive(now EpochSeconds) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, byID := range s.holders {
		for _, ent := range byID {
			if !ent.Expired(now) {
				count++
			}
		}
	}
	return count
}

// SweepExpired drops expired entitlements, stale reservations, and consumed
// proof ids whose grant window has fully elapsed. Returns the number of
// entitlements removed.
func (s *EntitlementStore) SweepExpired(now EpochSeconds) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for holder, byID := range s.holders {
		for id, ent := range byID {
			if ent.Expired(now) {
				delete(byID, id)
				removed++
			}
		}
		if len(byID) == 0 {
			delete(s.holders, holder)
		}
	}
	for key, res := range s.reservations {
		if now >= res.expiresAt {
			s.dropReservation(key, res)
		}
	}
	for proofID, grantedAt := range s.consumed {
		if now >= grantedAt+s.window {
			delete(s.consumed, proofID)
		}
	}
	return removed
}

// Snapshot exports the durable state (grants and consumed proofs) for
// persistence. Reservations are transient and excluded.
func (s *EntitlementStore) Snapshot() *Storage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	storage := &Storage{
		Version:        StorageVersion,
		Holders:        make(map[string][]Entitlement, len(s.holders)),
		ConsumedProofs: make(map[string]EpochSeconds, len(s.consumed)),
	}
	for holder, byID := range s.holders {
		ents := make([]Entitlement, 0, len(byID))
		for _, ent := range byID {
			ents = append(ents, ent)
		}
		storage.Holders[holder] = ents
	}
	for proofID, grantedAt := range s.consumed {
		storage.ConsumedProofs[proofID] = grantedAt
	}
	return storage
}

// Restore replaces the durable state from a snapshot. Server records win on
// conflict with whatever was in memory.
func (s *EntitlementStore) Restore(storage *Storage) {
	if storage == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holders = make(map[string]map[string]Entitlement, len(storage.Holders))
	for holder, ents := range storage.Holders {
		byID := make(map[string]Entitlement, len(ents))
		for _, ent := range ents {
			byID[ent.SignalID] = ent
		}
		s.holders[holder] = byID
	}
	s.consumed = make(map[string]EpochSeconds, len(storage.ConsumedProofs))
	for proofID, grantedAt := range storage.ConsumedProofs {
		s.consumed[proofID] = grantedAt
	}
}
