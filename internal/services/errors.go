package services

import (
	"errors"
	"fmt"
)

// VerifyCode classifies why a payment claim failed verification. Codes up to
// and including CodeInsufficientAmount are claim-level rejections that never
// reached the ledger; the rest are ledger-consistency verdicts.
type VerifyCode string

const (
	CodeInvalidRecipient    VerifyCode = "invalid_recipient"
	CodeInvalidAsset        VerifyCode = "invalid_asset"
	CodeInvalidNetwork      VerifyCode = "invalid_network"
	CodeInsufficientAmount  VerifyCode = "insufficient_amount"
	CodeTransactionNotFound VerifyCode = "transaction_not_found"
	CodeTransactionFailed   VerifyCode = "transaction_failed"
	CodeTransactionExpired  VerifyCode = "transaction_expired"
	CodeBalanceLookupFailed VerifyCode = "balance_lookup_failed"
	CodeAmountMismatch      VerifyCode = "amount_mismatch"
)

// VerifyError is a definitive verification verdict. Infrastructure failures
// (ledger unreachable, cancelled context) are returned as plain errors
// instead, so callers can tell "your payment is not valid" apart from
// "we could not check".
type VerifyError struct {
	Code VerifyCode
	Err  error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment verification failed (%s): %s", e.Code, e.Err)
	}
	return fmt.Sprintf("payment verification failed (%s)", e.Code)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// ClaimLevel reports whether the verdict was reached without any ledger call.
func (e *VerifyError) ClaimLevel() bool {
	switch e.Code {
	case CodeInvalidRecipient, CodeInvalidAsset, CodeInvalidNetwork, CodeInsufficientAmount:
		return true
	}
	return false
}

var (
	// ErrUnknownSignal: the requested signal id is not in the catalog.
	ErrUnknownSignal = errors.New("unknown signal")
	// ErrQuotaExceeded: the holder's tier does not permit another live
	// entitlement. Surfaced before any payment so the client never pays for
	// an unlock that would be denied.
	ErrQuotaExceeded = errors.New("entitlement quota exceeded")
	// ErrUnknownReference: the completion carried no valid quote reference
	// for this (holder, signal) pair. Expired and consumed references are
	// never reused.
	ErrUnknownReference = errors.New("unknown or expired payment reference")
)
