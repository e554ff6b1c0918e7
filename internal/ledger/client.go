package ledger

import (
	"context"
	"errors"
)

// ErrTxNotFound is returned when the ledger has no record of the requested
// transaction. The caller decides whether to keep polling.
var ErrTxNotFound = errors.New("transaction not found")

// TokenBalance is one row of a transaction's token balance-change log,
// identified by the owning wallet and the asset mint.
type TokenBalance struct {
	Owner  string
	Mint   string
	Amount uint64
}

// TransactionResult is a finalized transaction as reported by the ledger.
// PreBalances/PostBalances are the transaction's own balance-change log, so
// diffing them cannot drift against later ledger state.
type TransactionResult struct {
	ProofID      string
	Success      bool
	Payer        string
	BlockTime    int64 // epoch seconds
	PreBalances  []TokenBalance
	PostBalances []TokenBalance
}

// FindBalance locates a balance row for the (owner, mint) pair.
func FindBalance(rows []TokenBalance, owner, mint string) (uint64, bool) {
	for _, row := range rows {
		if row.Owner == owner && row.Mint == mint {
			return row.Amount, true
		}
	}
	return 0, false
}

// Client is the read-only ledger surface the unlock core depends on.
type Client interface {
	// GetTransaction fetches a finalized transaction by signature.
	// Returns ErrTxNotFound if the ledger has no record of it.
	GetTransaction(ctx context.Context, proofID string) (*TransactionResult, error)
	// GetTokenAccountBalance returns the owner's balance of the given mint,
	// in the asset's smallest unit. Missing token accounts read as zero.
	GetTokenAccountBalance(ctx context.Context, owner, mint string) (uint64, error)
}
