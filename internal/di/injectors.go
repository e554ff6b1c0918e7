//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"signalgate/internal"
	"signalgate/internal/controllers"
	"signalgate/internal/ledger"
	"signalgate/internal/providers"
	"signalgate/internal/retention"
	"signalgate/internal/services"
	"signalgate/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewEntitlementStoreProvider,
		providers.NewMetricsProvider,
		providers.NewCacheProvider,

		ledger.NewRpcClient,
		services.NewSignalCatalog,
		services.NewQuotaPolicy,
		services.NewPaymentVerifier,
		services.NewUnlockService,

		retention.NewZstdCompressor,
		retention.NewFileManager,
		retention.NewScheduler,

		controllers.NewUnlockController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
