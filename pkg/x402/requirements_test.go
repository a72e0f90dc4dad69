package x402

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402-bch/x402-go/pkg/types"
)

const testPayTo = "bitcoincash:qr95sy3j9xwd2ap32xkykttr4cvcu7as4y0qverfuy"

func testRequest() RequestContext {
	return RequestContext{
		Protocol: "https",
		Host:     "api.example.com",
		Path:     "/protected",
		Method:   "get",
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestResolveAmount(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.RouteConfig
		want int64
	}{
		{"explicit min amount", types.RouteConfig{MinAmountRequired: floatPtr(5000)}, 5000},
		{"explicit min amount is floored", types.RouteConfig{MinAmountRequired: floatPtr(5000.9)}, 5000},
		{"numeric price", types.RouteConfig{Price: &types.PriceValue{Number: floatPtr(1500)}}, 1500},
		{"numeric price is floored", types.RouteConfig{Price: &types.PriceValue{Number: floatPtr(1500.7)}}, 1500},
		{"non-positive numeric price falls to default", types.RouteConfig{Price: &types.PriceValue{Number: floatPtr(0)}}, DefaultAmount},
		{"sats string", types.RouteConfig{Price: &types.PriceValue{Text: "1500 sats"}}, 1500},
		{"sat string", types.RouteConfig{Price: &types.PriceValue{Text: "750 SAT"}}, 750},
		{"satoshis string", types.RouteConfig{Price: &types.PriceValue{Text: "2500 satoshis"}}, 2500},
		{"all-digits string", types.RouteConfig{Price: &types.PriceValue{Text: "1500"}}, 1500},
		{"fractional sats string is floored", types.RouteConfig{Price: &types.PriceValue{Text: "2.5 sats"}}, 2},
		{"sub-satoshi sats string falls to default", types.RouteConfig{Price: &types.PriceValue{Text: "0.5 sats"}}, DefaultAmount},
		{"sub-satoshi numeric price falls to default", types.RouteConfig{Price: &types.PriceValue{Number: floatPtr(0.5)}}, DefaultAmount},
		{"unknown unit falls to default", types.RouteConfig{Price: &types.PriceValue{Text: "$2.00"}}, DefaultAmount},
		{"non-numeric string falls to default", types.RouteConfig{Price: &types.PriceValue{Text: "sats"}}, DefaultAmount},
		{"no price at all", types.RouteConfig{}, DefaultAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveAmount(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid explicit amounts are configuration errors", func(t *testing.T) {
		for _, value := range []float64{0, -1, 0.5} {
			_, err := resolveAmount(types.RouteConfig{MinAmountRequired: floatPtr(value)})
			assert.ErrorIs(t, err, ErrInvalidAmount)
		}
	})
}

func TestBuildPaymentRequirements(t *testing.T) {
	t.Run("always emits exactly one requirement", func(t *testing.T) {
		accepts, err := BuildPaymentRequirements(testPayTo, types.RouteConfig{Network: "bch"}, testRequest())
		require.NoError(t, err)
		require.Len(t, accepts, 1)
	})

	t.Run("amount is a decimal string", func(t *testing.T) {
		accepts, err := BuildPaymentRequirements(testPayTo, types.RouteConfig{
			Network: "bch",
			Price:   &types.PriceValue{Number: floatPtr(1500)},
		}, testRequest())
		require.NoError(t, err)
		assert.Equal(t, "1500", accepts[0].MinAmountRequired)
	})

	t.Run("resource is synthesized from the request", func(t *testing.T) {
		accepts, err := BuildPaymentRequirements(testPayTo, types.RouteConfig{Network: "bch"}, testRequest())
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/protected", accepts[0].Resource)
	})

	t.Run("resource override is used verbatim", func(t *testing.T) {
		accepts, err := BuildPaymentRequirements(testPayTo, types.RouteConfig{
			Network:  "bch",
			Resource: "https://cdn.example.com/weather",
		}, testRequest())
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/weather", accepts[0].Resource)
	})

	t.Run("defaults", func(t *testing.T) {
		accepts, err := BuildPaymentRequirements(testPayTo, types.RouteConfig{Network: "bch"}, testRequest())
		require.NoError(t, err)

		requirement := accepts[0]
		assert.Equal(t, SchemeUTXO, requirement.Scheme)
		assert.Equal(t, "bch", requirement.Network)
		assert.Equal(t, testPayTo, requirement.PayTo)
		assert.Equal(t, DefaultMaxTimeoutSeconds, requirement.MaxTimeoutSeconds)
		assert.Equal(t, DefaultAsset, requirement.Asset)
		assert.NotNil(t, requirement.Extra)
		assert.Empty(t, requirement.Extra)

		require.NotNil(t, requirement.OutputSchema)
		require.NotNil(t, requirement.OutputSchema.Input)
		assert.Equal(t, "http", requirement.OutputSchema.Input.Type)
		assert.Equal(t, "GET", requirement.OutputSchema.Input.Method)
		assert.True(t, requirement.OutputSchema.Input.Discoverable)
	})

	t.Run("overrides win over defaults", func(t *testing.T) {
		discoverable := false
		accepts, err := BuildPaymentRequirements(testPayTo, types.RouteConfig{
			Network:           "bch",
			Description:       "premium weather",
			MimeType:          "application/json",
			MaxTimeoutSeconds: 120,
			Asset:             "FLIPSTARTER",
			Discoverable:      &discoverable,
			Extra:             map[string]any{"tier": "gold"},
		}, testRequest())
		require.NoError(t, err)

		requirement := accepts[0]
		assert.Equal(t, "premium weather", requirement.Description)
		assert.Equal(t, "application/json", requirement.MimeType)
		assert.Equal(t, 120, requirement.MaxTimeoutSeconds)
		assert.Equal(t, "FLIPSTARTER", requirement.Asset)
		assert.False(t, requirement.OutputSchema.Input.Discoverable)
		assert.Equal(t, "gold", requirement.Extra["tier"])
	})
}
