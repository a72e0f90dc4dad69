// Package echo adapts the payment gate to Echo middleware.
package echo

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/x402-bch/x402-go/pkg/types"
	"github.com/x402-bch/x402-go/pkg/x402"
)

// PayerContextKey is the echo context key under which the verified payer
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

// PaymentMiddleware is the Echo middleware for a resource server using the
// BCH x402 payment protocol. Configuration defects panic at construction.
func PaymentMiddleware(payTo string, routesCfg types.RoutesConfig, opts ...Options) echo.MiddlewareFunc {
	options := &PaymentMiddlewareOptions{}
	for _, opt := range opts {
		opt(options)
	}

	gate, err := x402.NewPaymentGate(payTo, routesCfg, options.FacilitatorConfig, options.GateOptions...)
	if err != nil {
		panic(fmt.Sprintf("invalid x402 middleware configuration: %v", err))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result := gate.Process(c.Request().Context(), requestContext(c))

			switch result.Type {
			case x402.ResultPassThrough:
				return next(c)
			case x402.ResultPaymentVerified:
				c.Set(PayerContextKey, result.Payer)
				return next(c)
			default:
				if options.CustomPaywallHTML != "" && isBrowserRequest(c) && result.Response.Error == x402.MsgMissingPaymentHeader {
					return c.HTML(http.StatusPaymentRequired, options.CustomPaywallHTML)
				}
				return c.JSON(http.StatusPaymentRequired, result.Response)
			}
		}
	}
}

func requestContext(c echo.Context) x402.RequestContext {
	return x402.RequestContext{
		Protocol:      c.Scheme(),
		Host:          c.Request().Host,
		Path:          c.Request().URL.EscapedPath(),
		Method:        c.Request().Method,
		PaymentHeader: c.Request().Header.Get("X-PAYMENT"),
	}
}

func isBrowserRequest(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get("Accept"), "text/html") &&
		strings.Contains(c.Request().Header.Get("User-Agent"), "Mozilla")
}
