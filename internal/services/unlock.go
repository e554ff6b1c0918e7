package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"signalgate/internal/ledger"
	"signalgate/internal/models"
	"signalgate/internal/providers"
	"signalgate/internal/structures"
)

type UnlockStatus string

const (
	StatusGranted         UnlockStatus = "granted"
	StatusAwaitingPayment UnlockStatus = "awaiting_payment"
)

// PriceQuote tells the client exactly what to pay and carries the reference
// that binds the eventual claim to this unlock attempt.
type PriceQuote struct {
	Reference string              `json:"reference"`
	Recipient string              `json:"recipient"`
	AssetID   string              `json:"asset_id"`
	Network   string              `json:"network"`
	Amount    uint64              `json:"amount"`
	ExpiresAt models.EpochSeconds `json:"expires_at"`
}

// UnlockResult is the terminal or intermediate outcome of an unlock attempt.
type UnlockResult struct {
	Status      UnlockStatus
	Payload     string
	Quote       *PriceQuote
	Entitlement *models.Entitlement
}

type UnlockServiceInterface interface {
	RequestUnlock(ctx context.Context, signalID, holder string) (*UnlockResult, error)
	CompleteUnlock(ctx context.Context, signalID, holder, reference, rawClaim string) (*UnlockResult, error)
	ListEntitlements(holder string) []models.Entitlement
	PruneQuotes()
	Attempts() int64
	Grants() int64
}

type pendingQuote struct {
	signalID  string
	holder    string
	expiresAt models.EpochSeconds
}

// UnlockService drives the unlock state machine: quota check, price quote,
// claim verification, grant. The entitlement store's reservation API makes
// verify-then-grant atomic per (holder, signal) pair and per proof id; the
// quote map is the only other state here and is advisory.
type UnlockService struct {
	conf     *structures.Config
	catalog  SignalCatalogInterface
	policy   QuotaPolicyInterface
	verifier PaymentVerifierInterface
	store    *models.EntitlementStore
	ledger   ledger.Client
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface

	quotesMu sync.Mutex
	quotes   map[string]pendingQuote

	attempts atomic.Int64
	grants   atomic.Int64

	now func() models.EpochSeconds
}

func NewUnlockService(conf *structures.Config, catalog SignalCatalogInterface, policy QuotaPolicyInterface, verifier PaymentVerifierInterface, store *models.EntitlementStore, client ledger.Client, logger providers.Logger, metrics providers.MetricsProviderInterface) UnlockServiceInterface {
	return &UnlockService{
		conf:     conf,
		catalog:  catalog,
		policy:   policy,
		verifier: verifier,
		store:    store,
		ledger:   client,
		logger:   logger,
		metrics:  metrics,
		quotes:   make(map[string]pendingQuote),
		now: func() models.EpochSeconds {
			return models.ToEpochSeconds(time.Now())
		},
	}
}

// RequestUnlock is the first half of the state machine: already-live pairs
// short-circuit to Granted without a payment, quota denial is surfaced before
// the client is ever asked to pay, and an allowed attempt gets a fresh quote.
func (u *UnlockService) RequestUnlock(ctx context.Context, signalID, holder string) (*UnlockResult, error) {
	u.attempts.Inc()

	sig, ok := u.catalog.Get(signalID)
	if !ok {
		return nil, ErrUnknownSignal
	}
	now := u.now()

	if u.store.IsLive(signalID, holder, now) {
		return &UnlockResult{Status: StatusGranted, Payload: sig.Payload}, nil
	}

	balance, err := u.ledger.GetTokenAccountBalance(ctx, holder, u.conf.Quota.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("token balance lookup for %s: %w", holder, err)
	}

	quota := u.policy.MaxLiveEntitlements(balance)
	live := u.store.CountLive(holder, now, u.catalog.Has)
	if live >= quota {
		u.metrics.IncUnlockOutcome("denied")
		u.logger.Infof(providers.TypePost, "Unlock denied for %s on %s: %d live of quota %d", holder, signalID, live, quota)
		return nil, ErrQuotaExceeded
	}

	quote := &PriceQuote{
		Reference: uuid.NewString(),
		Recipient: u.conf.Payment.Recipient,
		AssetID:   u.conf.Payment.AssetMint,
		Network:   u.conf.Payment.Network,
		Amount:    u.conf.Payment.PriceAmount,
		ExpiresAt: now + models.EpochSeconds(u.conf.Payment.QuoteTTL.Seconds()),
	}

	u.quotesMu.Lock()
	u.quotes[quote.Reference] = pendingQuote{signalID: signalID, holder: holder, expiresAt: quote.ExpiresAt}
	u.quotesMu.Unlock()

	return &UnlockResult{Status: StatusAwaitingPayment, Quote: quote}, nil
}

// takeQuote consumes the reference if it is valid for the pair. References
// are single-use: a failed completion never reuses one.
func (u *UnlockService) takeQuote(reference, signalID, holder string, now models.EpochSeconds) bool {
	u.quotesMu.Lock()
	defer u.quotesMu.Unlock()

	quote, ok := u.quotes[reference]
	if !ok {
		return false
	}
	delete(u.quotes, reference)
	return quote.signalID == signalID && quote.holder == holder && now < quote.expiresAt
}

// CompleteUnlock is the second half: claim in, payload or terminal failure
// out. The only durable side effect is the grant, and it happens exactly once
// per proof id even under concurrent completions for the same pair.
func (u *UnlockService) CompleteUnlock(ctx context.Context, signalID, holder, reference, rawClaim string) (*UnlockResult, error) {
	sig, ok := u.catalog.Get(signalID)
	if !ok {
		return nil, ErrUnknownSignal
	}
	now := u.now()

	if !u.takeQuote(reference, signalID, holder, now) {
		return nil, ErrUnknownReference
	}

	claim, err := models.ParseClaim(rawClaim)
	if err != nil {
		u.metrics.IncUnlockOutcome("malformed")
		return nil, err
	}

	if err := u.store.Reserve(signalID, holder, claim.ProofID, now); err != nil {
		u.metrics.IncUnlockOutcome("duplicate")
		return nil, err
	}

	verified, err := u.verifier.Verify(ctx, claim)
	if err != nil {
		u.store.Release(signalID, holder, claim.ProofID)
		u.metrics.IncUnlockOutcome("rejected")
		u.logger.Warnf(providers.TypePost, "Unlock of %s for %s rejected: %s", signalID, holder, err)
		return nil, err
	}

	ent, err := u.store.Grant(signalID, holder, verified.ConfirmedAt, claim.ProofID)
	if err != nil {
		u.store.Release(signalID, holder, claim.ProofID)
		u.metrics.IncUnlockOutcome("duplicate")
		return nil, err
	}

	u.grants.Inc()
	u.metrics.IncUnlockOutcome("granted")
	u.logger.Infof(providers.TypePost, "Granted %s to %s until %d (proof %s, payer %s)", signalID, holder, ent.ExpiresAt, verified.ProofID, verified.Payer)

	return &UnlockResult{Status: StatusGranted, Payload: sig.Payload, Entitlement: ent}, nil
}

func (u *UnlockService) ListEntitlements(holder string) []models.Entitlement {
	return u.store.ListLive(holder, u.now())
}

// PruneQuotes drops expired price quotes. Called from the retention sweep.
func (u *UnlockService) PruneQuotes() {
	now := u.now()
	u.quotesMu.Lock()
	defer u.quotesMu.Unlock()
	for ref, quote := range u.quotes {
		if now >= quote.expiresAt {
			delete(u.quotes, ref)
		}
	}
}

func (u *UnlockService) Attempts() int64 {
	return u.attempts.Load()
}

func (u *UnlockService) Grants() int64 {
	return u.grants.Load()
}
