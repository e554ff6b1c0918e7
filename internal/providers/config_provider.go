package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"signalgate/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "SIGNALGATE_LOG_LEVEL")
	viper.BindEnv("ledger.rpcEndpoint", "SIGNALGATE_RPC_ENDPOINT")
	viper.BindEnv("payment.recipient", "SIGNALGATE_RECIPIENT_WALLET")
	viper.BindEnv("payment.assetMint", "SIGNALGATE_USDC_MINT")
	viper.BindEnv("payment.network", "SIGNALGATE_NETWORK")
	viper.BindEnv("quota.tokenMint", "SIGNALGATE_TOKEN_MINT")
	viper.BindEnv("cache.enabled", "SIGNALGATE_CACHE_ENABLED")
	viper.BindEnv("cache.size", "SIGNALGATE_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "SignalGate"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
