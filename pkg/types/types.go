package types

import (
	"context"
	"encoding/json"
	"net/http"
)

// CurrentVersion is the x402 protocol version this gate speaks.
const CurrentVersion = 1

// DefaultNetwork is the ledger used when a route map does not set one.
const DefaultNetwork = "bch"

// PaymentRequirements advertises the price and policy for a protected
// resource. It populates the 402 challenge and is echoed back to the
// facilitator during verification.
type PaymentRequirements struct {
	Scheme            string         `json:"scheme"`
	Network           string         `json:"network"`
	MinAmountRequired string         `json:"minAmountRequired"`
	Resource          string         `json:"resource"`
	Description       string         `json:"description,omitempty"`
	MimeType          string         `json:"mimeType,omitempty"`
	PayTo             string         `json:"payTo"`
	MaxTimeoutSeconds int            `json:"maxTimeoutSeconds"`
	Asset             string         `json:"asset"`
	OutputSchema      *OutputSchema  `json:"outputSchema,omitempty"`
	Extra             map[string]any `json:"extra"`
}

// OutputSchema describes how a protected resource is invoked, in the format
// used by the discovery extension.
type OutputSchema struct {
	Input  *OutputSchemaInput `json:"input,omitempty"`
	Output any                `json:"output,omitempty"`
}

// OutputSchemaInput describes the input side of a protected resource.
type OutputSchemaInput struct {
	Type           string          `json:"type,omitempty"`
	Method         string          `json:"method,omitempty"`
	Discoverable   bool            `json:"discoverable"`
	DiscoveryInput json.RawMessage `json:"discoveryInput,omitempty"`
}

// PaymentPayload is the client-supplied payment proof carried in the
// X-PAYMENT header.
type PaymentPayload struct {
	X402Version int            `json:"x402Version"`
	Scheme      string         `json:"scheme"`
	Network     string         `json:"network"`
	Payload     map[string]any `json:"payload"`
}

// VerifyResponse is the facilitator's verdict for a payment proof.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// VerifyRequest is the body of the facilitator /verify call.
type VerifyRequest struct {
	X402Version         int                  `json:"x402Version"`
	PaymentPayload      *PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements *PaymentRequirements `json:"paymentRequirements"`
}

// PaymentRequired is the JSON envelope of every 402 response.
type PaymentRequired struct {
	X402Version int                    `json:"x402Version"`
	Error       string                 `json:"error"`
	Accepts     []*PaymentRequirements `json:"accepts"`
	Payer       string                 `json:"payer,omitempty"`
}

// Doer executes a single HTTP request. *http.Client satisfies it; tests and
// callers with bespoke transports inject their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AuthHeaders carries per-endpoint authentication headers produced by a
// facilitator auth hook.
type AuthHeaders struct {
	Verify map[string]string `json:"verify,omitempty"`
}

// FacilitatorConfig configures how the gate reaches its facilitator service.
type FacilitatorConfig struct {
	// URL is the base URL of the facilitator service.
	URL string

	// HTTPClient is the transport used for facilitator requests. When nil the
	// package default client is used. Timeouts are the transport's concern;
	// the gate imposes none of its own.
	HTTPClient Doer

	// VerifyHeaders are static headers attached to every /verify request.
	VerifyHeaders map[string]string

	// CreateAuthHeaders, when set, is invoked per request and its Verify map
	// is merged over VerifyHeaders (hook values win on conflict).
	CreateAuthHeaders func(ctx context.Context) (AuthHeaders, error)
}
