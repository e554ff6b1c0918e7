package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	day       = EpochSeconds(86400)
	holderA   = "HolderAAAA11111111111111111111111111111111"
	holderB   = "HolderBBBB22222222222222222222222222222222"
	signalS1  = "signal-1"
	signalS2  = "signal-2"
	proofP1   = "proof-1"
	proofP2   = "proof-2"
	baseTime  = EpochSeconds(1_700_000_000)
	reserveTT = EpochSeconds(45)
)

func newStore() *EntitlementStore {
	return NewEntitlementStore(day, reserveTT)
}

func TestGrantAndIsLive(t *testing.T) {
	s := newStore()

	ent, err := s.Grant(signalS1, holderA, baseTime, proofP1)
	require.NoError(t, err)
	assert.Equal(t, baseTime, ent.GrantedAt)
	assert.Equal(t, baseTime+day, ent.ExpiresAt)

	assert.True(t, s.IsLive(signalS1, holderA, baseTime))
	assert.False(t, s.IsLive(signalS1, holderB, baseTime))
	assert.False(t, s.IsLive(signalS2, holderA, baseTime))
}

func TestExpiryBoundary(t *testing.T) {
	s := newStore()
	_, err := s.Grant(signalS1, holderA, baseTime, proofP1)
	require.NoError(t, err)

	assert.True(t, s.IsLive(signalS1, holderA, baseTime+day-1))
	// the boundary instant itself is expired
	assert.False(t, s.IsLive(signalS1, holderA, baseTime+day))
	assert.False(t, s.IsLive(signalS1, holderA, baseTime+day+1))
}

func TestGrantProofReplay(t *testing.T) {
	s := newStore()
	_, err := s.Grant(signalS1, holderA, baseTime, proofP1)
	require.NoError(t, err)

	// same proof cannot produce a second grant, even for another signal
	_, err = s.Grant(signalS2, holderA, baseTime, proofP1)
	assert.ErrorIs(t, err, ErrProofConsumed)

	assert.Len(t, s.ListLive(holderA, baseTime), 1)
}

func TestGrantAlreadyLivePair(t *testing.T) {
	s := newStore()
	_, err := s.Grant(signalS1, holderA, baseTime, proofP1)
	require.NoError(t, err)

	_, err = s.Grant(signalS1, holderA, baseTime+10, proofP2)
	assert.ErrorIs(t, err, ErrAlreadyLive)
}

func TestGrantAfterExpiry(t *testing.T) {
	s := newStore()
	_, err := s.Grant(signalS1, holderA, baseTime, proofP1)
	require.NoError(t, err)

	_, err = s.Grant(signalS1, holderA, baseTime+day, proofP2)
	assert.NoError(t, err)
	assert.True(t, s.IsLive(signalS1, holderA, baseTime+day))
}

func TestReserve_BlocksSecondAttempt(t *testing.T) {
	s := newStore()

	require.NoError(t, s.Reserve(signalS1, holderA, proofP1, baseTime))
	assert.ErrorIs(t, s.Reserve(signalS1, holderA, proofP2, baseTime+1), ErrUnlockInFlight)
	// the same proof is also held, even for a different pair
	assert.ErrorIs(t, s.Reserve(signalS2, holderA, proofP1, baseTime+1), ErrUnlockInFlight)
	// an unrelated pair with a fresh proof is fine
	assert.NoError(t, s.Reserve(signalS2, holderB, proofP2, baseTime+1))
}

func TestReserve_ExpiresOnItsOwn(t *testing.T) {
	s := newStore()

	require.NoError(t, s.Reserve(signalS1, holderA, proofP1, baseTime))
	assert.NoError(t, s.Reserve(signalS1, holderA, proofP2, baseTime+reserveTT))
}

func TestReserve_AlreadyLiveAndConsumed(t *testing.T) {
	s := newStore()
	_, err := s.Grant(signalS1, holderA, baseTime, proofP1)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Reserve(signalS1, holderA, proofP2, baseTime+1), ErrAlreadyLive)
	assert.ErrorIs(t, s.Reserve(signalS2, holderA, proofP1, baseTime+1), ErrProofConsumed)
}

func TestRelease_AllowsRetry(t *testing.T) {
	s := newStore()

	require.NoError(t, s.Reserve(signalS1, holderA, proofP1, baseTime))
	s.Release(signalS1, holderA, proofP1)
	assert.NoError(t, s.Reserve(signalS1, holderA, proofP1, baseTime+1))
}

func TestReserve_Concurrent_OneWinner(t *testing.T) {
	s := newStore()

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan int, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if s.Reserve(signalS1, holderA, proofP1, baseTime) == nil {
				wins <- i
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestCountLive_RelevanceFilter(t *testing.T) {
	s := newStore()
	_, err := s.Grant(signalS1, holderA, baseTime, proofP1)
	require.NoError(t, err)
	_, err = s.Grant(signalS2, holderA, baseTime, proofP2)
	require.NoError(t, err)

	assert.Equal(t, 2, s.CountLive(holderA, baseTime, nil))
	assert.Equal(t, 1, s.CountLive(holderA, baseTime, func(id string) bool { return id == signalS1 }))
	assert.Equal(t, 0, s.CountLive(holderB, baseTime, nil))
}

func TestSweepExpired(t *testing.T) {
	s := newStore()
	_, err := s.Grant(signalS1, holderA, baseTime, proofP1)
	require.NoError(t, err)
	_, err = s.Grant(signalS2, holderA, baseTime+100, proofP2)
	require.NoError(t, err)

	removed := s.SweepExpired(baseTime + day)
	assert.Equal(t, 1, removed)
	assert.False(t, s.IsLive(signalS1, holderA, baseTime+day))
	assert.True(t, s.IsLive(signalS2, holderA, baseTime+day))

	// once the first grant's window fully elapsed its proof id is reusable
	assert.NoError(t, s.Reserve(signalS1, holderA, proofP1, baseTime+day))
}

func TestSnapshotRestore(t *testing.T) {
	s := newStore()
	_, err := s.Grant(signalS1, holderA, baseTime, proofP1)
	require.NoError(t, err)
	_, err = s.Grant(signalS2, holderB, baseTime, proofP2)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, StorageVersion, snap.Version)

	restored := newStore()
	restored.Restore(snap)

	assert.True(t, restored.IsLive(signalS1, holderA, baseTime))
	assert.True(t, restored.IsLive(signalS2, holderB, baseTime))
	// replay protection survives the round trip
	assert.ErrorIs(t, restored.Reserve(signalS1, holderB, proofP1, baseTime), ErrProofConsumed)
}

func TestTotalLive(t *testing.T) {
	s := newStore()
	_, err := s.Grant(signalS1, holderA, baseTime, proofP1)
	require.NoError(t, err)
	_, err = s.Grant(signalS1, holderB, baseTime, proofP2)
	require.NoError(t, err)

	assert.Equal(t, 2, s.TotalLive(baseTime))
	assert.Equal(t, 0, s.TotalLive(baseTime+day))
}
