package providers

import (
	"fmt"

	"github.com/gookit/validate"

	"signalgate/internal/structures"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors
	}

	if len(cv.conf.Quota.Tiers) == 0 {
		return fmt.Errorf("quota: at least one tier is required")
	}
	var prev uint64
	for i, tier := range cv.conf.Quota.Tiers {
		if tier.Balance <= prev {
			return fmt.Errorf("quota: tier balances must be strictly increasing (tier %d)", i)
		}
		prev = tier.Balance
	}
	if cv.conf.Payment.PollInterval >= cv.conf.Payment.ConfirmTimeout {
		return fmt.Errorf("payment: pollInterval must be below confirmTimeout")
	}
	return nil
}
