package cart

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/egotech-storefront/internal/checkout"
	"github.com/noah-isme/egotech-storefront/internal/common"
	"github.com/noah-isme/egotech-storefront/internal/coupon"
	"github.com/noah-isme/egotech-storefront/internal/lock"
	"github.com/noah-isme/egotech-storefront/internal/obs"
	"github.com/noah-isme/egotech-storefront/internal/pricing"
)

// Handler wires cart sessions to HTTP. Every response carries a fresh quote.
type Handler struct {
	Svc    *Service
	Quotes *checkout.Service
}

// Create starts a session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	sess, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	obs.AddLogField(r.Context(), "session_id", sess.ID)
	h.respond(w, r, http.StatusCreated, sess, nil)
}

// Get returns the session and its quote.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, sess, nil)
}

// Delete drops the session.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem adds or merges a line.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload Item
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	sess, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, sess, nil)
}

// UpdateItem sets the quantity of a line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	sess, err := h.Svc.UpdateQty(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, sess, nil)
}

// IncrementItem adds one unit.
func (h *Handler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.IncrementItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, sess, nil)
}

// DecrementItem removes one unit.
func (h *Handler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.DecrementItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, sess, nil)
}

// RemoveItem deletes a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, sess, nil)
}

// SetLocation stores the shopper location.
func (h *Handler) SetLocation(w http.ResponseWriter, r *http.Request) {
	var payload pricing.Location
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	sess, err := h.Svc.SetLocation(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, sess, nil)
}

// SetShippingMethod records standard delivery or store pickup.
func (h *Handler) SetShippingMethod(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	sess, err := h.Svc.SetShippingMethod(r.Context(), chi.URLParam(r, "id"), payload.Method)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, sess, nil)
}

// ApplyCoupon attaches a coupon code. Unknown codes are rejected and not stored.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	sess, outcome, err := h.Svc.ApplyCoupon(r.Context(), chi.URLParam(r, "id"), payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view := checkout.NewCouponView(outcome)
	if outcome.Status == coupon.StatusInvalid {
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_INVALID", view.Message, map[string]any{"code": outcome.Code})
		return
	}
	h.respond(w, r, http.StatusOK, sess, &view)
}

// RemoveCoupon detaches the coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.RemoveCoupon(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, sess, nil)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, sess Session, cv *checkout.CouponView) {
	data := map[string]any{
		"session":   sess,
		"itemCount": sess.Cart.Count(),
	}
	if h.Quotes != nil {
		quote, err := h.Quotes.Quote(r.Context(), sess.Input())
		if err != nil {
			h.writeError(w, err)
			return
		}
		data["quote"] = quote
	}
	if cv != nil {
		data["coupon"] = cv
	}
	common.JSON(w, status, map[string]any{"data": data})
}

var errorMappings = []common.ErrorMapping{
	{Target: ErrInvalidInput, Status: http.StatusBadRequest, Code: "BAD_REQUEST"},
	{Target: pricing.ErrInvalidInput, Status: http.StatusBadRequest, Code: "BAD_REQUEST"},
	{Target: ErrMinQuantity, Status: http.StatusConflict, Code: "MIN_QUANTITY"},
	{Target: ErrNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
	{Target: ErrItemNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND"},
	{Target: lock.ErrBusy, Status: http.StatusConflict, Code: "SESSION_BUSY"},
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	common.WriteError(w, err, errorMappings...)
}
