// Package paymentidentifier stamps unique payment identifiers onto
// advertised payment requirements so facilitators and sellers can correlate
// a challenge with the proof that answers it.
package paymentidentifier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/x402-bch/x402-go/pkg/types"
)

// ExtraKey is the requirement extra field carrying the identifier.
const ExtraKey = "paymentIdentifier"

const (
	// PaymentIDMinLength is the shortest accepted identifier.
	PaymentIDMinLength = 16
	// PaymentIDMaxLength is the longest accepted identifier.
	PaymentIDMaxLength = 128
)

var paymentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// GeneratePaymentID generates a unique payment identifier with the given
// prefix. If prefix is empty, "pay_" is used.
//
// The generated ID format is: prefix + UUID v4 without hyphens.
// Example: "pay_7d5d747be160e280504c099d984bcfe0"
func GeneratePaymentID(prefix string) string {
	if prefix == "" {
		prefix = "pay_"
	}
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// PayloadFingerprint computes a deterministic hash of a PaymentPayload,
// allowing detection of whether two payloads carrying the same payment ID
// have identical content.
func PayloadFingerprint(payload types.PaymentPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// IsValidPaymentID reports whether an identifier meets the format rules:
// 16-128 characters of alphanumerics, hyphens, and underscores.
func IsValidPaymentID(id string) bool {
	if len(id) < PaymentIDMinLength || len(id) > PaymentIDMaxLength {
		return false
	}
	return paymentIDPattern.MatchString(id)
}

// RequirementsExtension returns a gate extension that stamps a fresh payment
// identifier into the extra metadata of every requirement it sees. Wire it
// with x402.WithRequirementsExtension.
func RequirementsExtension(prefix string) func(*types.PaymentRequirements) {
	return func(requirement *types.PaymentRequirements) {
		if requirement.Extra == nil {
			requirement.Extra = map[string]any{}
		}
		requirement.Extra[ExtraKey] = GeneratePaymentID(prefix)
	}
}
