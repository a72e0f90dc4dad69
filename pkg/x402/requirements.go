package x402

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/x402-bch/x402-go/pkg/types"
)

const (
	// SchemeUTXO is the payment mechanism family this gate advertises.
	SchemeUTXO = "utxo"

	// DefaultAmount is the satoshi price applied when a route names none.
	DefaultAmount = 1000

	// DefaultMaxTimeoutSeconds bounds how long an advertised requirement
	// stays actionable for the client.
	DefaultMaxTimeoutSeconds = 60

	// DefaultAsset is the placeholder asset token for native BCH payments.
	DefaultAsset = "BCH"
)

// RequestContext carries the request attributes the gate needs. Host
// framework adapters populate it and the core never touches the framework's
// request object directly.
type RequestContext struct {
	Protocol      string
	Host          string
	Path          string
	Method        string
	PaymentHeader string
}

// BuildPaymentRequirements expands a matched route's config into the
// protocol-level requirement descriptors for a request. The result is a list
// to leave room for multi-requirement support; today it always holds one
// entry.
func BuildPaymentRequirements(payTo string, cfg types.RouteConfig, req RequestContext) ([]*types.PaymentRequirements, error) {
	amount, err := resolveAmount(cfg)
	if err != nil {
		return nil, err
	}

	resource := cfg.Resource
	if resource == "" {
		resource = fmt.Sprintf("%s://%s%s", req.Protocol, req.Host, req.Path)
	}

	timeout := cfg.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultMaxTimeoutSeconds
	}

	asset := cfg.Asset
	if asset == "" {
		asset = DefaultAsset
	}

	extra := cfg.Extra
	if extra == nil {
		extra = map[string]any{}
	}

	outputSchema := cfg.OutputSchema
	if outputSchema == nil {
		discoverable := true
		if cfg.Discoverable != nil {
			discoverable = *cfg.Discoverable
		}
		outputSchema = &types.OutputSchema{
			Input: &types.OutputSchemaInput{
				Type:         "http",
				Method:       strings.ToUpper(req.Method),
				Discoverable: discoverable,
			},
		}
	}

	requirement := &types.PaymentRequirements{
		Scheme:            SchemeUTXO,
		Network:           cfg.Network,
		MinAmountRequired: strconv.FormatInt(amount, 10),
		Resource:          resource,
		Description:       cfg.Description,
		MimeType:          cfg.MimeType,
		PayTo:             payTo,
		MaxTimeoutSeconds: timeout,
		Asset:             asset,
		OutputSchema:      outputSchema,
		Extra:             extra,
	}
	return []*types.PaymentRequirements{requirement}, nil
}

var (
	nonNumericChars = regexp.MustCompile(`[^0-9.]`)
	satsSuffix      = regexp.MustCompile(`(?i)(sat|sats|satoshis)\s*$`)
	allDigits       = regexp.MustCompile(`^[0-9]+$`)
)

// resolveAmount applies the documented precedence: an explicit
// minAmountRequired (validated), then a numeric price, then a
// satoshi-denominated price string, then the default. Every branch floors,
// and a floored amount below one satoshi never surfaces: explicit amounts
// error out, prices fall through to the default.
func resolveAmount(cfg types.RouteConfig) (int64, error) {
	if cfg.MinAmountRequired != nil {
		value := *cfg.MinAmountRequired
		if math.IsNaN(value) || math.IsInf(value, 0) || math.Floor(value) < 1 {
			return 0, fmt.Errorf("%w: got %v", ErrInvalidAmount, value)
		}
		return int64(math.Floor(value)), nil
	}

	if cfg.Price != nil {
		if cfg.Price.Number != nil {
			value := *cfg.Price.Number
			if !math.IsNaN(value) && !math.IsInf(value, 0) && math.Floor(value) >= 1 {
				return int64(math.Floor(value)), nil
			}
		} else if cfg.Price.Text != "" {
			if amount, ok := parsePriceString(cfg.Price.Text); ok {
				return amount, nil
			}
		}
	}

	return DefaultAmount, nil
}

// parsePriceString accepts "1500", "1500 sats", "1500 SAT", "1500 satoshis".
// Strings in other units ("$2", "0.5 BCH") are rejected so they fall through
// to the default rather than being silently misread as satoshis. The floored
// amount must stay positive, so sub-satoshi values are rejected too.
func parsePriceString(price string) (int64, bool) {
	trimmed := strings.TrimSpace(price)
	if !satsSuffix.MatchString(trimmed) && !allDigits.MatchString(trimmed) {
		return 0, false
	}

	numeric := nonNumericChars.ReplaceAllString(trimmed, "")
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil || math.Floor(value) < 1 {
		return 0, false
	}
	return int64(math.Floor(value)), true
}
