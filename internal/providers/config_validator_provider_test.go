package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"signalgate/internal/structures"
)

func validConfig() *structures.Config {
	return &structures.Config{
		WebServer: structures.Server{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Ledger: structures.LedgerConfig{
			RpcEndpoint:    "https://api.devnet.solana.com",
			RequestTimeout: 10 * time.Second,
			MaxRetries:     3,
		},
		Payment: structures.PaymentConfig{
			Recipient:      "Recip1111111111111111111111111111111111111",
			AssetMint:      "Asset2222222222222222222222222222222222222",
			Network:        "devnet",
			PriceAmount:    100000,
			ConfirmTimeout: 60 * time.Second,
			PollInterval:   2 * time.Second,
			QuoteTTL:       5 * time.Minute,
		},
		Quota: structures.QuotaConfig{
			TokenMint:     "Token6666666666666666666666666666666666666",
			TokenDecimals: 9,
			Mode:          "exact",
			Tiers: []structures.QuotaTier{
				{Balance: 69, Quota: 1},
				{Balance: 420, Quota: 5},
				{Balance: 1008, Quota: 10},
				{Balance: 10008, Quota: 100},
			},
		},
		Entitlement: structures.EntitlementConfig{
			ExpiryWindow: 24 * time.Hour,
		},
		Catalog: structures.CatalogConfig{
			FilePath: "/tmp/signals.json",
		},
		Persistence: structures.Persistence{
			FilePath:      "/tmp/signalgate.dat",
			SaveInterval:  30 * time.Second,
			SweepInterval: time.Minute,
		},
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0644,
			Dir:   "/tmp/logs",
		},
	}
}

func TestConfigValidator_ValidConfig(t *testing.T) {
	v := NewCnfValidator(validConfig())
	assert.NoError(t, v.Validate())
}

func TestConfigValidator_EmptyHost(t *testing.T) {
	c := validConfig()
	c.WebServer.Host = ""
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_ZeroPort(t *testing.T) {
	c := validConfig()
	c.WebServer.Port = 0
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_InvalidLogLevel(t *testing.T) {
	c := validConfig()
	c.Logger.Level = "verbose"
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_InvalidNetwork(t *testing.T) {
	c := validConfig()
	c.Payment.Network = "localnet"
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_EmptyRecipient(t *testing.T) {
	c := validConfig()
	c.Payment.Recipient = ""
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_NoTiers(t *testing.T) {
	c := validConfig()
	c.Quota.Tiers = nil
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_UnsortedTiers(t *testing.T) {
	c := validConfig()
	c.Quota.Tiers = []structures.QuotaTier{
		{Balance: 420, Quota: 5},
		{Balance: 69, Quota: 1},
	}
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_DuplicateTierBalance(t *testing.T) {
	c := validConfig()
	c.Quota.Tiers = []structures.QuotaTier{
		{Balance: 69, Quota: 1},
		{Balance: 69, Quota: 2},
	}
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_InvalidQuotaMode(t *testing.T) {
	c := validConfig()
	c.Quota.Mode = "ceiling"
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_PollIntervalAboveConfirmTimeout(t *testing.T) {
	c := validConfig()
	c.Payment.PollInterval = 2 * time.Minute
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}
