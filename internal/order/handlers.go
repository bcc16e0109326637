package order

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/egotech-storefront/internal/cart"
	"github.com/noah-isme/egotech-storefront/internal/common"
	"github.com/noah-isme/egotech-storefront/internal/obs"
	"github.com/noah-isme/egotech-storefront/internal/pricing"
)

// Handler exposes order submission over HTTP.
type Handler struct {
	Svc *Service
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Submit stores the order and passes the sink response through unchanged.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	var payload Submission
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	receipt, err := h.Svc.Submit(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	obs.AddLogField(r.Context(), "order_ref", receipt.Reference)
	w.Header().Set("X-Order-Reference", receipt.Reference)
	common.JSONRaw(w, http.StatusOK, receipt.SinkResponse)
}

var errorMappings = []common.ErrorMapping{
	{Target: ErrEmptyCart, Status: http.StatusBadRequest, Code: "BAD_REQUEST"},
	{Target: ErrUnknownPickupLocation, Status: http.StatusBadRequest, Code: "BAD_REQUEST"},
	{Target: pricing.ErrInvalidInput, Status: http.StatusBadRequest, Code: "BAD_REQUEST"},
	{Target: cart.ErrNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
}

// writeError keeps the sink's plain {"error": "..."} shape for save failures so storefront
// clients see the same body whether the sink or this service failed.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Namespace(), Rule: fe.Tag()})
		}
		appErr := common.NewAppError("VALIDATION_FAILED", "invalid order details", http.StatusBadRequest, err)
		appErr.Details = details
		err = appErr
	}
	if appErr, ok := common.Classify(err, errorMappings...); ok {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save order"})
}
