package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ChainTag is the only ledger this service understands. Claims asserting any
// other chain are rejected before anything else is looked at.
const ChainTag = "solana"

const claimFieldCount = 6

// ErrMalformedClaim is returned for any claim string that does not decode
// into the six-field wire format.
var ErrMalformedClaim = errors.New("malformed payment claim")

// PaymentClaim is the untrusted, client-asserted description of a payment:
// <chainTag>:<recipient>:<assetId>:<amount>:<proofId>:<networkTag>.
// Nothing in it is believed until the verifier has re-derived the facts from
// the ledger. Immutable once parsed.
type PaymentClaim struct {
	Chain     string
	Recipient string
	AssetID   string
	Amount    uint64
	ProofID   string
	Network   string
}

// ParseClaim decodes the colon-delimited claim wire format. It is a pure
// function: no ledger access, no side effects.
func ParseClaim(raw string) (*PaymentClaim, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != claimFieldCount {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedClaim, claimFieldCount, len(parts))
	}
	if parts[0] != ChainTag {
		return nil, fmt.Errorf("%w: unknown chain tag %q", ErrMalformedClaim, parts[0])
	}
	for i, name := range [claimFieldCount]string{"chain", "recipient", "asset", "amount", "proof", "network"} {
		if parts[i] == "" {
			return nil, fmt.Errorf("%w: empty %s field", ErrMalformedClaim, name)
		}
	}
	amount, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q is not a non-negative integer", ErrMalformedClaim, parts[3])
	}

	return &PaymentClaim{
		Chain:     parts[0],
		Recipient: parts[1],
		AssetID:   parts[2],
		Amount:    amount,
		ProofID:   parts[4],
		Network:   parts[5],
	}, nil
}
