package models

// VerifiedPayment is produced only by the payment verifier after the claimed
// transfer has been confirmed against the ledger's own balance-change log.
// Payer and TransferredAmount come from the ledger, never from the claim.
type VerifiedPayment struct {
	ProofID           string
	Payer             string
	Recipient         string
	AssetID           string
	TransferredAmount uint64
	ConfirmedAt       EpochSeconds
}
