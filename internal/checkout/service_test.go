package checkout_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/egotech-storefront/internal/checkout"
	"github.com/noah-isme/egotech-storefront/internal/obs"
	"github.com/noah-isme/egotech-storefront/internal/pricing"
	"github.com/noah-isme/egotech-storefront/internal/refdata"
)

func newService(t *testing.T) *checkout.Service {
	t.Helper()
	ds, err := refdata.Default()
	require.NoError(t, err)
	return checkout.NewService(ds, checkout.Options{TaxLabel: "7.5%"})
}

func TestQuoteThresholdFreeShipping(t *testing.T) {
	svc := newService(t)
	q, err := svc.QuoteRequest(context.Background(), checkout.Request{
		Items: []checkout.ItemInput{
			{ID: "laptop", Price: pricing.Major(50000), Quantity: 2},
			{ID: "mouse", Price: pricing.Major(15000), Quantity: 1},
		},
		Location: pricing.Location{Country: "Nigeria", State: "Lagos", LGA: "Ikeja"},
	})
	require.NoError(t, err)
	require.Equal(t, "NGN", q.Currency)
	require.Equal(t, pricing.Major(115000), q.Subtotal)
	require.Equal(t, int64(0), q.Shipping)
	require.Equal(t, pricing.Major(115000), q.Total)
	require.Equal(t, pricing.ShippingFree, q.ShippingStatus)
	require.Equal(t, pricing.FreeShippingThreshold, q.FreeShippingReason)
	require.NotNil(t, q.Zone)
	require.Equal(t, "Lagos Mainland", q.Zone.Name)
	require.Equal(t, "lga", q.Zone.Match)
	require.True(t, q.PickupAvailable)
	require.Equal(t, "none", q.Coupon.Status)
	require.Equal(t, "7.5%", q.TaxInfo.Label)
	require.Equal(t, "Nigeria VAT", q.TaxInfo.Rule)
	require.False(t, q.TaxInfo.Applied)
	require.Equal(t, 3, q.ItemCount)
}

func TestQuotePendingShipping(t *testing.T) {
	svc := newService(t)
	q, err := svc.QuoteRequest(context.Background(), checkout.Request{
		Items:      []checkout.ItemInput{{ID: "a", Price: pricing.Major(10000), Quantity: 1}},
		CouponCode: "SAVE10",
	})
	require.NoError(t, err)
	require.Equal(t, pricing.ShippingPending, q.ShippingStatus)
	require.Equal(t, "Calculated at next step", q.ShippingNote)
	require.Nil(t, q.Zone)
	require.Equal(t, pricing.Major(1000), q.Discount)
	require.Equal(t, pricing.Major(9000), q.Total)
	require.Equal(t, "applied", q.Coupon.Status)
	require.Equal(t, "Coupon applied! 10% off your order", q.Coupon.Message)
}

func TestQuoteInvalidCouponAndPickupFallback(t *testing.T) {
	svc := newService(t)
	q, err := svc.QuoteRequest(context.Background(), checkout.Request{
		Items:          []checkout.ItemInput{{ID: "a", Price: pricing.Major(10000), Quantity: 1}},
		Location:       pricing.Location{Country: "Nigeria", State: "Kano"},
		CouponCode:     "bogus",
		ShippingMethod: "pickup",
	})
	require.NoError(t, err)
	require.Equal(t, "invalid", q.Coupon.Status)
	require.Equal(t, "Invalid coupon code", q.Coupon.Message)
	require.True(t, q.PickupUnavailable)
	require.False(t, q.PickupAvailable)
	require.Equal(t, pricing.ShippingResolved, q.ShippingStatus)
	require.Equal(t, pricing.Major(7000), q.Shipping)
	require.Equal(t, pricing.Major(17000), q.Total)
}

func TestQuoteDefaultZoneView(t *testing.T) {
	ds, err := refdata.Parse([]byte(`{"defaultZone": {"name": "Default Shipping", "rate": 5000, "estimatedDays": "3-7"}}`), refdata.FormatJSON)
	require.NoError(t, err)
	svc := checkout.NewService(ds, checkout.Options{})
	q, err := svc.QuoteRequest(context.Background(), checkout.Request{
		Items:    []checkout.ItemInput{{ID: "a", Price: pricing.Major(1000), Quantity: 1}},
		Location: pricing.Location{Country: "Nigeria"},
	})
	require.NoError(t, err)
	require.Equal(t, pricing.ShippingDefault, q.ShippingStatus)
	require.NotNil(t, q.Zone)
	require.Equal(t, "default", q.Zone.Match)
	require.Equal(t, pricing.Major(6000), q.Total)
	require.Equal(t, "0%", q.TaxInfo.Label)
}

func TestQuoteAppliedTaxLabel(t *testing.T) {
	ds, err := refdata.Default()
	require.NoError(t, err)
	svc := checkout.NewService(ds, checkout.Options{ApplyTax: true, TaxLabel: "7.5%"})
	q, err := svc.QuoteRequest(context.Background(), checkout.Request{
		Items:    []checkout.ItemInput{{ID: "a", Price: pricing.Major(10000), Quantity: 1}},
		Location: pricing.Location{Country: "Nigeria", State: "Kano"},
	})
	require.NoError(t, err)
	require.True(t, q.TaxInfo.Applied)
	require.Equal(t, "7.5%", q.TaxInfo.Label)
	require.Equal(t, pricing.Major(750), q.Tax)
}

func TestQuoteRecordsMetrics(t *testing.T) {
	obs.MustRegisterDomainMetrics("test", prometheus.NewRegistry())
	svc := newService(t)
	before := testutil.ToFloat64(obs.PricingQuotesTotal.WithLabelValues(string(pricing.ShippingPending)))
	rejectedBefore := testutil.ToFloat64(obs.PricingRejectedLinesTotal)

	_, err := svc.QuoteRequest(context.Background(), checkout.Request{
		Items: []checkout.ItemInput{{ID: "bad", Price: -5, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, before+1, testutil.ToFloat64(obs.PricingQuotesTotal.WithLabelValues(string(pricing.ShippingPending))))
	require.Equal(t, rejectedBefore+1, testutil.ToFloat64(obs.PricingRejectedLinesTotal))
}

func TestQuoteHandler(t *testing.T) {
	h := &checkout.Handler{Svc: newService(t)}
	r := chi.NewRouter()
	r.Post("/api/v1/checkout/quote", h.Quote)
	r.Get("/api/v1/shipping/zones", h.Zones)
	r.Get("/api/v1/pickup-points", h.PickupPoints)

	body, _ := json.Marshal(map[string]any{
		"items":          []map[string]any{{"id": "a", "price": 500000, "quantity": 2}},
		"location":       map[string]string{"country": "Nigeria", "state": "Lagos"},
		"couponCode":     "freeship",
		"shippingMethod": "standard",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data checkout.Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1000000), resp.Data.Subtotal)
	require.Equal(t, pricing.FreeShippingCoupon, resp.Data.FreeShippingReason)
	require.Equal(t, int64(1000000), resp.Data.Total)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", bytes.NewReader([]byte(`{"shippingMethod":"drone"}`))))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", bytes.NewReader([]byte(`{`))))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/shipping/zones", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var zones struct {
		Data struct {
			Currency    string                 `json:"currency"`
			Zones       []pricing.ShippingZone `json:"zones"`
			DefaultZone *pricing.ShippingZone  `json:"defaultZone"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zones))
	require.NotEmpty(t, zones.Data.Zones)
	require.NotNil(t, zones.Data.DefaultZone)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pickup-points?state=Kano", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pickup-points?state=Lagos", nil))
	var points struct {
		Data []refdata.PickupPoint `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points.Data, 2)
}
