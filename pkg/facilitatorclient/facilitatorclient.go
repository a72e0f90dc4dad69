// Package facilitatorclient performs the verification exchange with an
// external x402 facilitator service.
package facilitatorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/x402-bch/x402-go/pkg/types"
)

const (
	// DefaultFacilitatorURL is the default public facilitator.
	DefaultFacilitatorURL = "https://x402.org/facilitator"

	headerContentType   = "Content-Type"
	mimeApplicationJSON = "application/json"
)

// DefaultHTTPClient is the process-wide transport used when a facilitator
// config does not inject one. It carries no timeout; callers that need a
// deadline inject their own client or cancel the request context.
var DefaultHTTPClient types.Doer = &http.Client{}

// ErrTransportUnavailable is returned when neither an injected transport nor
// the package default client exists.
var ErrTransportUnavailable = errors.New("no HTTP transport available for facilitator requests")

// VerificationError reports a facilitator /verify response with a
// non-success HTTP status.
type VerificationError struct {
	StatusCode int
	Status     string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("Facilitator verification failed: %s", e.Status)
}

// FacilitatorClient talks to a single facilitator service.
type FacilitatorClient struct {
	url               string
	httpClient        types.Doer
	verifyHeaders     map[string]string
	createAuthHeaders func(ctx context.Context) (types.AuthHeaders, error)
}

// NewFacilitatorClient resolves the transport and builds a client. The
// transport is resolved once, here, so a misconfigured deployment fails at
// setup rather than on the first paid request.
func NewFacilitatorClient(config *types.FacilitatorConfig) (*FacilitatorClient, error) {
	if config == nil {
		config = &types.FacilitatorConfig{}
	}

	url := config.URL
	if url == "" {
		url = DefaultFacilitatorURL
	}

	transport := config.HTTPClient
	if transport == nil {
		transport = DefaultHTTPClient
	}
	if transport == nil {
		return nil, ErrTransportUnavailable
	}

	return &FacilitatorClient{
		url:               url,
		httpClient:        transport,
		verifyHeaders:     config.VerifyHeaders,
		createAuthHeaders: config.CreateAuthHeaders,
	}, nil
}

// URL returns the facilitator base URL.
func (c *FacilitatorClient) URL() string {
	return c.url
}

// Verify sends the selected payment requirement and the client's payload to
// the facilitator in a single POST {url}/verify exchange. A non-success
// status yields a *VerificationError; transport failures propagate with the
// underlying message. A response with isValid=false is a normal outcome, not
// an error.
func (c *FacilitatorClient) Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.VerifyResponse, error) {
	body, err := json.Marshal(&types.VerifyRequest{
		X402Version:         types.CurrentVersion,
		PaymentPayload:      payload,
		PaymentRequirements: requirements,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/verify", c.url), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set(headerContentType, mimeApplicationJSON)

	headers, err := c.resolveVerifyHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to apply verify auth headers: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &VerificationError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var verifyResp types.VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verifyResp); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}
	return &verifyResp, nil
}

// resolveVerifyHeaders merges the static verify headers with the auth hook's
// output; hook values win on conflict.
func (c *FacilitatorClient) resolveVerifyHeaders(ctx context.Context) (map[string]string, error) {
	headers := make(map[string]string, len(c.verifyHeaders))
	for key, value := range c.verifyHeaders {
		headers[key] = value
	}

	if c.createAuthHeaders != nil {
		auth, err := c.createAuthHeaders(ctx)
		if err != nil {
			return nil, err
		}
		for key, value := range auth.Verify {
			headers[key] = value
		}
	}
	return headers, nil
}
