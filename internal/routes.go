package internal

import (
	"net/http"

	"signalgate/internal/controllers"
	"signalgate/internal/providers"
	"signalgate/internal/structures"
)

func InitRoutes(unlockController *controllers.UnlockController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/unlock/request", http.HandlerFunc(unlockController.RequestUnlock))
	routers.Post("/unlock/complete", http.HandlerFunc(unlockController.CompleteUnlock))
	routers.Get("/signals", http.HandlerFunc(unlockController.GetSignals))
	routers.Get("/entitlements", http.HandlerFunc(unlockController.GetEntitlements))
	return routers
}
