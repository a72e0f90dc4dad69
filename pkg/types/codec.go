package types

import (
	"encoding/json"
	"fmt"
)

// MissingFieldError reports a structurally invalid payment header.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("invalid payment header: missing required field: %s", e.Field)
}

var requiredPayloadFields = []string{"x402Version", "scheme", "network", "payload"}

// DecodePaymentHeader decodes the raw X-PAYMENT header value into a
// PaymentPayload. The client's version claim is informational only: the
// decoded X402Version is always overwritten with CurrentVersion.
func DecodePaymentHeader(header string) (*PaymentPayload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(header), &raw); err != nil {
		return nil, fmt.Errorf("invalid payment header: failed to parse JSON: %w", err)
	}

	for _, field := range requiredPayloadFields {
		if _, ok := raw[field]; !ok {
			return nil, &MissingFieldError{Field: field}
		}
	}

	var payload PaymentPayload
	if err := json.Unmarshal([]byte(header), &payload); err != nil {
		return nil, fmt.Errorf("invalid payment header: failed to parse JSON: %w", err)
	}

	payload.X402Version = CurrentVersion
	return &payload, nil
}
