package gin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402-bch/x402-go/pkg/types"
)

const testPayTo = "bitcoincash:qr95sy3j9xwd2ap32xkykttr4cvcu7as4y0qverfuy"

func newRouter(opts ...Options) (*gin.Engine, *bool) {
	gin.SetMode(gin.TestMode)

	routes := types.RoutesConfig{Routes: map[string]types.RouteEntry{
		"GET /protected": types.Price(1500),
	}}

	var called bool
	router := gin.New()
	router.Use(PaymentMiddleware(testPayTo, routes, opts...))
	router.GET("/protected", func(c *gin.Context) {
		called = true
		payer := c.GetString(PayerContextKey)
		c.String(http.StatusOK, payer)
	})
	router.GET("/public", func(c *gin.Context) {
		called = true
		c.String(http.StatusOK, "ok")
	})
	return router, &called
}

func TestPaymentMiddlewarePassThrough(t *testing.T) {
	router, called := newRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public", nil))

	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPaymentMiddlewareChallenge(t *testing.T) {
	router, called := newRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.False(t, *called)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var challenge types.PaymentRequired
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &challenge))
	assert.Equal(t, "X-PAYMENT header is required", challenge.Error)
	require.Len(t, challenge.Accepts, 1)
	assert.Equal(t, "1500", challenge.Accepts[0].MinAmountRequired)
}

func TestPaymentMiddlewareVerifiedRequest(t *testing.T) {
	facilitator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.VerifyResponse{IsValid: true, Payer: "payer-id"})
	}))
	defer facilitator.Close()

	router, called := newRouter(WithFacilitatorConfig(&types.FacilitatorConfig{URL: facilitator.URL}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-PAYMENT", `{"x402Version":1,"scheme":"utxo","network":"bch","payload":{}}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payer-id", rec.Body.String())
}

func TestPaymentMiddlewarePaywallForBrowsers(t *testing.T) {
	router, called := newRouter(WithCustomPaywallHTML("<html><body>Pay up</body></html>"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Pay up")
}

func TestPaymentMiddlewarePanicsOnBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		PaymentMiddleware(testPayTo, types.RoutesConfig{Routes: map[string]types.RouteEntry{
			" ": types.Price(100),
		}})
	})
}
