package controllers

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"signalgate/internal/models"
	"signalgate/internal/providers"
	"signalgate/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// PaymentHeader carries the raw payment claim on completion requests.
const PaymentHeader = "X-402-Payment"

type UnlockController struct {
	logger  providers.Logger
	service services.UnlockServiceInterface
	catalog services.SignalCatalogInterface
	cache   providers.CacheProviderInterface
	metrics providers.MetricsProviderInterface
}

func NewUnlockController(logger providers.Logger, service services.UnlockServiceInterface, catalog services.SignalCatalogInterface, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface) *UnlockController {
	return &UnlockController{
		logger:  logger,
		service: service,
		catalog: catalog,
		cache:   cache,
		metrics: metrics,
	}
}

type unlockRequest struct {
	SignalID  string `json:"signal_id"`
	Holder    string `json:"holder"`
	Reference string `json:"reference"`
}

type unlockResponse struct {
	Status      string              `json:"status"`
	Payload     string              `json:"payload,omitempty"`
	Quote       *services.PriceQuote `json:"quote,omitempty"`
	Entitlement *models.Entitlement  `json:"entitlement,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	gson, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// writeUnlockError maps the error taxonomy onto HTTP statuses: client input
// errors 400, payment verification verdicts 402, quota denials 403, duplicate
// grants 409, infrastructure 503. Quota denial is distinct from payment
// failure so a client never pays for an unlock that would be denied anyway.
func writeUnlockError(w http.ResponseWriter, err error) {
	var verifyErr *services.VerifyError
	switch {
	case errors.Is(err, services.ErrUnknownSignal):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown_signal", Message: "No such signal"})
	case errors.Is(err, services.ErrQuotaExceeded):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "quota_exceeded", Message: "Tier quota reached, no further unlocks permitted"})
	case errors.Is(err, services.ErrUnknownReference):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown_reference", Message: "Request a new price quote before paying"})
	case errors.Is(err, models.ErrMalformedClaim):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed_claim", Message: err.Error()})
	case errors.As(err, &verifyErr):
		if verifyErr.ClaimLevel() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(verifyErr.Code), Message: "Claim does not match the quoted payment"})
			return
		}
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: string(verifyErr.Code), Message: "Could not verify the payment on the ledger"})
	case errors.Is(err, models.ErrAlreadyLive), errors.Is(err, models.ErrUnlockInFlight), errors.Is(err, models.ErrProofConsumed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "duplicate_unlock", Message: err.Error()})
	default:
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "ledger_unavailable", Message: "Temporarily unable to verify, retry later"})
	}
}

func decodeUnlockRequest(w http.ResponseWriter, r *http.Request) (*unlockRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "Invalid JSON body"})
		return nil, false
	}
	if payload.SignalID == "" || payload.Holder == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "signal_id and holder are required"})
		return nil, false
	}
	return &payload, true
}

func (uc *UnlockController) RequestUnlock(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeUnlockRequest(w, r)
	if !ok {
		return
	}

	result, err := uc.service.RequestUnlock(r.Context(), payload.SignalID, payload.Holder)
	if err != nil {
		writeUnlockError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, unlockResponse{
		Status:  string(result.Status),
		Payload: result.Payload,
		Quote:   result.Quote,
	})
}

func (uc *UnlockController) CompleteUnlock(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeUnlockRequest(w, r)
	if !ok {
		return
	}
	rawClaim := r.Header.Get(PaymentHeader)
	if rawClaim == "" {
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: "payment_required", Message: "Missing " + PaymentHeader + " header"})
		return
	}

	result, err := uc.service.CompleteUnlock(r.Context(), payload.SignalID, payload.Holder, payload.Reference, rawClaim)
	if err != nil {
		writeUnlockError(w, err)
		return
	}

	uc.cache.Del("ents:" + payload.Holder)

	writeJSON(w, http.StatusOK, unlockResponse{
		Status:      string(result.Status),
		Payload:     result.Payload,
		Entitlement: result.Entitlement,
	})
}

func (uc *UnlockController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := uc.cache.Get(cacheKey); ok {
		uc.metrics.IncCacheHits()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	uc.metrics.IncCacheMisses()

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	uc.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (uc *UnlockController) GetSignals(w http.ResponseWriter, r *http.Request) {
	risk := r.URL.Query().Get("risk")
	uc.serveFromCacheOrCompute(w, "signals:"+risk, func() (any, error) {
		return uc.catalog.ListPreviews(risk), nil
	})
}

func (uc *UnlockController) GetEntitlements(w http.ResponseWriter, r *http.Request) {
	holder := r.URL.Query().Get("holder")
	if holder == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "holder is required"})
		return
	}
	uc.serveFromCacheOrCompute(w, "ents:"+holder, func() (any, error) {
		return uc.service.ListEntitlements(holder), nil
	})
}
