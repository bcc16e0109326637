package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/egotech-storefront/internal/common"
	"github.com/noah-isme/egotech-storefront/internal/pricing"
	"github.com/noah-isme/egotech-storefront/internal/refdata"
)

// Handler exposes quote and reference data endpoints.
type Handler struct {
	Svc *Service
}

// Quote prices the posted cart without touching any session.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload Request
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	quote, err := h.Svc.QuoteRequest(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// Zones lists the configured shipping zones.
func (h *Handler) Zones(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"currency":    h.Svc.Currency,
			"zones":       h.Svc.Engine.Zones(),
			"defaultZone": h.Svc.Engine.DefaultZone(),
		},
	})
}

// PickupPoints lists pickup stores, optionally filtered by ?state=.
func (h *Handler) PickupPoints(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	points := h.Svc.Data.PickupPointsFor(r.URL.Query().Get("state"))
	if points == nil {
		points = []refdata.PickupPoint{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": points})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	common.WriteError(w, err, common.ErrorMapping{Target: pricing.ErrInvalidInput, Status: http.StatusBadRequest, Code: "BAD_REQUEST"})
}
