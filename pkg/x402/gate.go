// Package x402 implements the BCH x402 payment gate: it matches inbound
// requests against a compiled route-pricing map and either passes them
// through, issues a 402 payment challenge, or verifies a supplied payment
// proof with a facilitator before admitting the request.
package x402

import (
	"context"
	"fmt"

	"github.com/x402-bch/x402-go/pkg/facilitatorclient"
	"github.com/x402-bch/x402-go/pkg/routes"
	"github.com/x402-bch/x402-go/pkg/types"
)

// ResultType enumerates the terminal states of gating one request.
type ResultType string

const (
	// ResultPassThrough means the route is not priced; continue unmodified.
	ResultPassThrough ResultType = "pass_through"

	// ResultPaymentRequired means a single 402 response must be written.
	ResultPaymentRequired ResultType = "payment_required"

	// ResultPaymentVerified means the payment proof was accepted; continue.
	ResultPaymentVerified ResultType = "payment_verified"
)

// Result is the outcome of gating one request. Exactly one of "continue to
// the next handler" (ResultPassThrough, ResultPaymentVerified) or "write the
// 402 Response" (ResultPaymentRequired) applies.
type Result struct {
	Type ResultType

	// Response is the 402 envelope when Type is ResultPaymentRequired.
	Response *types.PaymentRequired

	// Payer is the verified payer identity when Type is
	// ResultPaymentVerified.
	Payer string
}

// GateOption customizes a PaymentGate at construction.
type GateOption func(*PaymentGate)

// WithRequirementsExtension registers a hook that may amend every payment
// requirement before it is advertised in a challenge or sent for
// verification.
func WithRequirementsExtension(fn func(*types.PaymentRequirements)) GateOption {
	return func(g *PaymentGate) {
		g.extensions = append(g.extensions, fn)
	}
}

// PaymentGate gates HTTP requests behind per-route payment requirements.
// The compiled route list is built once here and never mutated, so a single
// gate is safe for concurrent request handling without locking.
type PaymentGate struct {
	payTo       string
	routes      []routes.CompiledRoute
	facilitator *facilitatorclient.FacilitatorClient
	extensions  []func(*types.PaymentRequirements)
}

// NewPaymentGate compiles the route map and resolves the facilitator
// transport. Configuration defects (bad patterns, bad amounts, missing
// transport) surface here and should abort setup.
func NewPaymentGate(payTo string, routesCfg types.RoutesConfig, facilitatorCfg *types.FacilitatorConfig, opts ...GateOption) (*PaymentGate, error) {
	compiled, err := routes.Compile(routesCfg)
	if err != nil {
		return nil, err
	}

	for i := range compiled {
		if _, err := resolveAmount(compiled[i].Config); err != nil {
			return nil, fmt.Errorf("route %q: %w", compiled[i].Key, err)
		}
	}

	facilitator, err := facilitatorclient.NewFacilitatorClient(facilitatorCfg)
	if err != nil {
		return nil, err
	}

	gate := &PaymentGate{
		payTo:       payTo,
		routes:      compiled,
		facilitator: facilitator,
	}
	for _, opt := range opts {
		opt(gate)
	}
	return gate, nil
}

// Process runs the challenge/verify state machine for one request.
func (g *PaymentGate) Process(ctx context.Context, req RequestContext) Result {
	route := routes.FindMatchingRoute(g.routes, req.Path, req.Method)
	if route == nil {
		return Result{Type: ResultPassThrough}
	}

	accepts, err := g.buildRequirements(route.Config, req)
	if err != nil {
		// Amounts are validated at construction; this is a terminal
		// misconfiguration guard, reported through the protocol envelope.
		return paymentRequired(err.Error(), nil, "")
	}

	if req.PaymentHeader == "" {
		return paymentRequired(MsgMissingPaymentHeader, accepts, "")
	}

	payload, err := types.DecodePaymentHeader(req.PaymentHeader)
	if err != nil {
		return paymentRequired(err.Error(), accepts, "")
	}

	selected := selectRequirement(accepts, payload)
	if selected == nil {
		return paymentRequired(MsgNoMatchingRequirements, accepts, "")
	}

	verification, err := g.facilitator.Verify(ctx, payload, selected)
	if err != nil {
		return paymentRequired(err.Error(), accepts, "")
	}

	if !verification.IsValid {
		return paymentRequired(verification.InvalidReason, accepts, verification.Payer)
	}

	return Result{Type: ResultPaymentVerified, Payer: verification.Payer}
}

// Facilitator exposes the resolved facilitator client.
func (g *PaymentGate) Facilitator() *facilitatorclient.FacilitatorClient {
	return g.facilitator
}

func (g *PaymentGate) buildRequirements(cfg types.RouteConfig, req RequestContext) ([]*types.PaymentRequirements, error) {
	accepts, err := BuildPaymentRequirements(g.payTo, cfg, req)
	if err != nil {
		return nil, err
	}
	for _, requirement := range accepts {
		for _, extension := range g.extensions {
			extension(requirement)
		}
	}
	return accepts, nil
}

// selectRequirement picks the advertised requirement the client's payload
// claims to satisfy.
func selectRequirement(accepts []*types.PaymentRequirements, payload *types.PaymentPayload) *types.PaymentRequirements {
	for _, requirement := range accepts {
		if requirement.Scheme == payload.Scheme && requirement.Network == payload.Network {
			return requirement
		}
	}
	return nil
}

func paymentRequired(message string, accepts []*types.PaymentRequirements, payer string) Result {
	if accepts == nil {
		accepts = []*types.PaymentRequirements{}
	}
	return Result{
		Type: ResultPaymentRequired,
		Response: &types.PaymentRequired{
			X402Version: types.CurrentVersion,
			Error:       message,
			Accepts:     accepts,
			Payer:       payer,
		},
	}
}
