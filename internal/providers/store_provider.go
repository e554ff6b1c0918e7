package providers

import (
	"signalgate/internal/models"
	"signalgate/internal/structures"
)

// NewEntitlementStoreProvider builds the store with the configured expiry
// window. Reservations use the payment confirmation timeout as their TTL so
// an abandoned verification frees the pair as soon as the verifier itself
// would have given up.
func NewEntitlementStoreProvider(conf *structures.Config) *models.EntitlementStore {
	return models.NewEntitlementStore(
		models.EpochSeconds(conf.Entitlement.ExpiryWindow.Seconds()),
		models.EpochSeconds(conf.Payment.ConfirmTimeout.Seconds()),
	)
}
