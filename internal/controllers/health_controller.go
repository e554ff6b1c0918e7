package controllers

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"signalgate/internal/models"
	"signalgate/internal/services"
)

type HealthController struct {
	service   services.UnlockServiceInterface
	store     *models.EntitlementStore
	startTime time.Time
}

type healthResponse struct {
	Status           string  `json:"status"`
	Uptime           string  `json:"uptime"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	UnlockAttempts   int64   `json:"unlock_attempts"`
	Grants           int64   `json:"grants"`
	LiveEntitlements int     `json:"live_entitlements"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:           "ok",
		Uptime:           formatDuration(uptime),
		UptimeSeconds:    uptime.Seconds(),
		UnlockAttempts:   hc.service.Attempts(),
		Grants:           hc.service.Grants(),
		LiveEntitlements: hc.store.TotalLive(models.ToEpochSeconds(time.Now())),
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(service services.UnlockServiceInterface, store *models.EntitlementStore) *HealthController {
	return &HealthController{
		service:   service,
		store:     store,
		startTime: time.Now(),
	}
}
