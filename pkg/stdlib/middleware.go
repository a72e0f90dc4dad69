// Package stdlib adapts the payment gate to net/http middleware.
package stdlib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/x402-bch/x402-go/pkg/types"
	"github.com/x402-bch/x402-go/pkg/x402"
)

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

type contextKey string

const payerContextKey contextKey = "x402-payer"

// PayerFromContext returns the verified payer identity for an admitted
// request, when the facilitator reported one.
func PayerFromContext(ctx context.Context) (string, bool) {
	payer, ok := ctx.Value(payerContextKey).(string)
	return payer, ok && payer != ""
}

// PaymentMiddleware gates the wrapped handler behind the given route-pricing
// map. The gate is built once here; a configuration defect panics so a
// misconfigured server fails at startup, not on its first paid request.
func PaymentMiddleware(payTo string, routesCfg types.RoutesConfig, opts ...Options) func(http.Handler) http.Handler {
	options := &PaymentMiddlewareOptions{}
	for _, opt := range opts {
		opt(options)
	}

	gate, err := x402.NewPaymentGate(payTo, routesCfg, options.FacilitatorConfig, options.GateOptions...)
	if err != nil {
		panic(fmt.Sprintf("invalid x402 middleware configuration: %v", err))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := gate.Process(r.Context(), RequestContext(r))

			switch result.Type {
			case x402.ResultPassThrough:
				next.ServeHTTP(w, r)
			case x402.ResultPaymentVerified:
				ctx := context.WithValue(r.Context(), payerContextKey, result.Payer)
				next.ServeHTTP(w, r.WithContext(ctx))
			default:
				if options.CustomPaywallHTML != "" && isBrowserRequest(r) && result.Response.Error == x402.MsgMissingPaymentHeader {
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					w.WriteHeader(http.StatusPaymentRequired)
					w.Write([]byte(options.CustomPaywallHTML))
					return
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusPaymentRequired)
				json.NewEncoder(w).Encode(result.Response)
			}
		})
	}
}

// RequestContext extracts the gate's request attributes from an
// *http.Request. The escaped path is passed through so the matcher owns
// percent-decoding, including its soft failure on malformed encoding.
func RequestContext(r *http.Request) x402.RequestContext {
	protocol := "http"
	if r.TLS != nil {
		protocol = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		protocol = forwarded
	}

	return x402.RequestContext{
		Protocol:      protocol,
		Host:          r.Host,
		Path:          r.URL.EscapedPath(),
		Method:        r.Method,
		PaymentHeader: r.Header.Get("X-PAYMENT"),
	}
}

func isBrowserRequest(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html") &&
		strings.Contains(r.Header.Get("User-Agent"), "Mozilla")
}
