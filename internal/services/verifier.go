package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signalgate/internal/ledger"
	"signalgate/internal/models"
	"signalgate/internal/providers"
	"signalgate/internal/structures"
)

type PaymentVerifierInterface interface {
	Verify(ctx context.Context, claim *models.PaymentClaim) (*models.VerifiedPayment, error)
}

// PaymentVerifier re-derives ground truth from the ledger: the claim is only
// trusted enough to locate the transaction, every money fact is read from the
// transaction's own balance-change log. Verification is idempotent per proof
// id, so retrying after a timeout cannot double-charge.
type PaymentVerifier struct {
	conf    *structures.Config
	ledger  ledger.Client
	logger  providers.Logger
	metrics providers.MetricsProviderInterface

	now func() models.EpochSeconds
}

func NewPaymentVerifier(conf *structures.Config, client ledger.Client, logger providers.Logger, metrics providers.MetricsProviderInterface) PaymentVerifierInterface {
	return &PaymentVerifier{
		conf:    conf,
		ledger:  client,
		logger:  logger,
		metrics: metrics,
		now: func() models.EpochSeconds {
			return models.ToEpochSeconds(time.Now())
		},
	}
}

func (v *PaymentVerifier) Verify(ctx context.Context, claim *models.PaymentClaim) (*models.VerifiedPayment, error) {
	expected := v.conf.Payment

	// claim-level sanity checks, cheap rejections before any network round-trip
	if claim.Recipient != expected.Recipient {
		return nil, &VerifyError{Code: CodeInvalidRecipient}
	}
	if claim.AssetID != expected.AssetMint {
		return nil, &VerifyError{Code: CodeInvalidAsset}
	}
	if claim.Network != expected.Network {
		return nil, &VerifyError{Code: CodeInvalidNetwork}
	}
	if claim.Amount < expected.PriceAmount {
		return nil, &VerifyError{Code: CodeInsufficientAmount}
	}

	v.metrics.IncVerifying()
	defer v.metrics.DecVerifying()
	start := time.Now()
	defer func() {
		v.metrics.ObserveVerificationDuration(time.Since(start))
	}()

	tx, err := v.awaitTransaction(ctx, claim.ProofID)
	if err != nil {
		return nil, err
	}
	if !tx.Success {
		return nil, &VerifyError{Code: CodeTransactionFailed}
	}

	// Consumed proof ids are swept once their grant window has fully elapsed,
	// so a transaction older than the window must never verify: its proof id
	// may no longer be in the consumed set.
	window := models.EpochSeconds(v.conf.Entitlement.ExpiryWindow.Seconds())
	if window > 0 && tx.BlockTime > 0 && v.now() >= models.EpochSeconds(tx.BlockTime)+window {
		return nil, &VerifyError{Code: CodeTransactionExpired, Err: fmt.Errorf("transaction confirmed at %d is older than the entitlement window", tx.BlockTime)}
	}

	// The recipient's token-holding account is identified inside the
	// transaction's balance log by (owner, mint); no separate live query, so
	// the amount cannot drift between check and use.
	post, ok := ledger.FindBalance(tx.PostBalances, expected.Recipient, expected.AssetMint)
	if !ok {
		return nil, &VerifyError{Code: CodeBalanceLookupFailed}
	}
	pre, _ := ledger.FindBalance(tx.PreBalances, expected.Recipient, expected.AssetMint)

	if post < pre {
		return nil, &VerifyError{Code: CodeAmountMismatch}
	}
	transferred := post - pre
	if transferred < expected.PriceAmount {
		return nil, &VerifyError{Code: CodeAmountMismatch, Err: fmt.Errorf("transferred %d, need %d", transferred, expected.PriceAmount)}
	}

	confirmedAt := tx.BlockTime
	if confirmedAt == 0 {
		confirmedAt = time.Now().Unix()
	}

	v.logger.Infof(providers.TypeLedger, "Verified payment %s: %d units of %s to %s", claim.ProofID, transferred, expected.AssetMint, expected.Recipient)

	return &models.VerifiedPayment{
		ProofID:           claim.ProofID,
		Payer:             tx.Payer,
		Recipient:         expected.Recipient,
		AssetID:           expected.AssetMint,
		TransferredAmount: transferred,
		ConfirmedAt:       models.EpochSeconds(confirmedAt),
	}, nil
}

// awaitTransaction polls until the transaction is visible or the confirmation
// window elapses. A transaction that never appears inside the window is a
// definitive TransactionNotFound verdict; transport failures stay plain
// errors and are retried here up to the same deadline.
func (v *PaymentVerifier) awaitTransaction(ctx context.Context, proofID string) (*ledger.TransactionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, v.conf.Payment.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(v.conf.Payment.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		tx, err := v.ledger.GetTransaction(ctx, proofID)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, ledger.ErrTxNotFound) {
			lastErr = err
			v.logger.Warnf(providers.TypeLedger, "Transaction lookup for %s: %s", proofID, err)
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("ledger unreachable during confirmation: %w", lastErr)
			}
			return nil, &VerifyError{Code: CodeTransactionNotFound, Err: ledger.ErrTxNotFound}
		case <-ticker.C:
		}
	}
}
