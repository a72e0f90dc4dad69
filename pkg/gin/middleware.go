// Package gin adapts the payment gate to Gin middleware.
package gin

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/x402-bch/x402-go/pkg/types"
	"github.com/x402-bch/x402-go/pkg/x402"
)

// PayerContextKey is the gin context key under which the verified payer
// identity is stored for admitted requests.
const PayerContextKey = "x402-payer"

// PaymentMiddlewareOptions is the options for the PaymentMiddleware.
type PaymentMiddlewareOptions struct {
	FacilitatorConfig *types.FacilitatorConfig
	CustomPaywallHTML string
	GateOptions       []x402.GateOption
}

// Options is the type for the options for the PaymentMiddleware.
type Options func(*PaymentMiddlewareOptions)

// WithFacilitatorConfig is an option for the PaymentMiddleware to set the facilitator config.
func WithFacilitatorConfig(config *types.FacilitatorConfig) Options {
	return func(options *PaymentMiddlewareOptions) {
		options.FacilitatorConfig = config
	}
}

// WithCustomPaywallHTML is an option for the PaymentMiddleware to set the
// HTML served to browsers on an unpaid request instead of the JSON envelope.
func WithCustomPaywallHTML(customPaywallHTML string) Options {
	return func(options *PaymentMiddlewareOptions) {
		options.CustomPaywallHTML = customPaywallHTML
	}
}

// WithGateOptions is an option for the PaymentMiddleware to pass options
// through to the underlying gate.
func WithGateOptions(opts ...x402.GateOption) Options {
	return func(options *PaymentMiddlewareOptions) {
		options.GateOptions = append(options.GateOptions, opts...)
	}
}

// PaymentMiddleware is the Gin middleware for a resource server using the
// BCH x402 payment protocol. Configuration defects panic at construction.
func PaymentMiddleware(payTo string, routesCfg types.RoutesConfig, opts ...Options) gin.HandlerFunc {
	options := &PaymentMiddlewareOptions{}
	for _, opt := range opts {
		opt(options)
	}

	gate, err := x402.NewPaymentGate(payTo, routesCfg, options.FacilitatorConfig, options.GateOptions...)
	if err != nil {
		panic(fmt.Sprintf("invalid x402 middleware configuration: %v", err))
	}

	return func(c *gin.Context) {
		result := gate.Process(c.Request.Context(), requestContext(c))

		switch result.Type {
		case x402.ResultPassThrough:
			c.Next()
		case x402.ResultPaymentVerified:
			c.Set(PayerContextKey, result.Payer)
			c.Next()
		default:
			if options.CustomPaywallHTML != "" && isBrowserRequest(c) && result.Response.Error == x402.MsgMissingPaymentHeader {
				c.Abort()
				c.Data(http.StatusPaymentRequired, "text/html; charset=utf-8", []byte(options.CustomPaywallHTML))
				return
			}
			c.AbortWithStatusJSON(http.StatusPaymentRequired, result.Response)
		}
	}
}

func requestContext(c *gin.Context) x402.RequestContext {
	protocol := "http"
	if c.Request.TLS != nil {
		protocol = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		protocol = forwarded
	}

	return x402.RequestContext{
		Protocol:      protocol,
		Host:          c.Request.Host,
		Path:          c.Request.URL.EscapedPath(),
		Method:        c.Request.Method,
		PaymentHeader: c.GetHeader("X-PAYMENT"),
	}
}

func isBrowserRequest(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html") &&
		strings.Contains(c.GetHeader("User-Agent"), "Mozilla")
}
