package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type LedgerConfig struct {
	RpcEndpoint    string        `yaml:"rpcEndpoint" validate:"required"`
	RequestTimeout time.Duration `yaml:"requestTimeout" validate:"required|min:1"`
	MaxRetries     int           `yaml:"maxRetries"`
}

// PaymentConfig pins the expected side of every claim: where the money must
// land, in which asset, on which network, and the fixed unlock price.
type PaymentConfig struct {
	Recipient      string        `yaml:"recipient" validate:"required"`
	AssetMint      string        `yaml:"assetMint" validate:"required"`
	Network        string        `yaml:"network" validate:"required|in:devnet,testnet,mainnet-beta"`
	PriceAmount    uint64        `yaml:"priceAmount" validate:"required|min:1"`
	ConfirmTimeout time.Duration `yaml:"confirmTimeout" validate:"required|min:1"`
	PollInterval   time.Duration `yaml:"pollInterval" validate:"required|min:1"`
	QuoteTTL       time.Duration `yaml:"quoteTTL" validate:"required|min:1"`
}

type QuotaTier struct {
	Balance uint64 `yaml:"balance" validate:"required|min:1"`
	Quota   int    `yaml:"quota" validate:"required|min:1"`
}

type QuotaConfig struct {
	TokenMint     string      `yaml:"tokenMint" validate:"required"`
	TokenDecimals int         `yaml:"tokenDecimals" validate:"uint|max:18"`
	Mode          string      `yaml:"mode" validate:"required|in:exact,floor"`
	Tiers         []QuotaTier `yaml:"tiers" validate:"required"`
}

type EntitlementConfig struct {
	ExpiryWindow time.Duration `yaml:"expiryWindow" validate:"required|min:1"`
}

type CatalogConfig struct {
	FilePath string `yaml:"filePath" validate:"required|unixPath"`
	Watch    bool   `yaml:"watch"`
}

type Persistence struct {
	FilePath         string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval     time.Duration `yaml:"saveInterval" validate:"required|min:1"`
	SweepInterval    time.Duration `yaml:"sweepInterval" validate:"required|min:1"`
	CompressionLevel int           `yaml:"compressionLevel" validate:"min:0|max:4"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server            `yaml:"webServer"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Payment     PaymentConfig     `yaml:"payment"`
	Quota       QuotaConfig       `yaml:"quota"`
	Entitlement EntitlementConfig `yaml:"entitlement"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Persistence Persistence       `yaml:"persistence"`
	Logger      LoggerConfig      `yaml:"logger"`
	Cache       CacheConfig       `yaml:"cache"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}
