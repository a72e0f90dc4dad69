package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RoutesConfig is the user-authored route-pricing map. Keys are either
// "VERB /path" or "/path" patterns; the reserved "network" key sets the
// default network for every entry.
type RoutesConfig struct {
	// Network is the default network for all routes. Empty means "bch".
	Network string

	// Routes maps pattern keys to their pricing entries.
	Routes map[string]RouteEntry
}

// UnmarshalJSON accepts the flat user-authored map and splits the reserved
// "network" key out of the route entries.
func (c *RoutesConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Routes = make(map[string]RouteEntry, len(raw))
	for key, value := range raw {
		if key == "network" {
			if err := json.Unmarshal(value, &c.Network); err != nil {
				return fmt.Errorf("routes config: network must be a string: %w", err)
			}
			continue
		}

		var entry RouteEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return fmt.Errorf("routes config: entry %q: %w", key, err)
		}
		c.Routes[key] = entry
	}
	return nil
}

// RouteEntry is a tagged variant: either a shorthand price (bare number or
// price string) or a verbose route object. Exactly one of the fields is set.
type RouteEntry struct {
	Price *PriceValue
	Route *RouteOptions
}

// Price builds a shorthand entry charging a flat satoshi amount.
func Price(sats float64) RouteEntry {
	return RouteEntry{Price: &PriceValue{Number: &sats}}
}

// PriceString builds a shorthand entry from a price string such as
// "1500 sats".
func PriceString(price string) RouteEntry {
	return RouteEntry{Price: &PriceValue{Text: price}}
}

// Route builds a verbose entry.
func Route(opts RouteOptions) RouteEntry {
	return RouteEntry{Route: &opts}
}

// UnmarshalJSON resolves the bare-price-versus-object variant once, at
// configuration load time.
func (e *RouteEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("route entry is empty")
	}

	if trimmed[0] == '{' {
		var opts RouteOptions
		if err := json.Unmarshal(trimmed, &opts); err != nil {
			return err
		}
		e.Route = &opts
		e.Price = nil
		return nil
	}

	var price PriceValue
	if err := json.Unmarshal(trimmed, &price); err != nil {
		return err
	}
	e.Price = &price
	e.Route = nil
	return nil
}

// Resolve normalizes the entry into the canonical route config, applying the
// map-level default network unless the entry overrides it.
func (e RouteEntry) Resolve(network string) RouteConfig {
	if e.Route == nil {
		return RouteConfig{Network: network, Price: e.Price}
	}

	opts := *e.Route
	cfg := RouteConfig{
		Network:           network,
		MinAmountRequired: opts.MinAmountRequired,
		Price:             opts.Price,
	}
	if opts.Network != "" {
		cfg.Network = opts.Network
	}
	if opts.Config != nil {
		cfg.Description = opts.Config.Description
		cfg.MimeType = opts.Config.MimeType
		cfg.MaxTimeoutSeconds = opts.Config.MaxTimeoutSeconds
		cfg.Resource = opts.Config.Resource
		cfg.Asset = opts.Config.Asset
		cfg.Discoverable = opts.Config.Discoverable
		cfg.Extra = opts.Config.Extra
		cfg.OutputSchema = opts.Config.OutputSchema
	}
	return cfg
}

// PriceValue is a price given either as a satoshi number or as a display
// string ("1500 sats", "1500").
type PriceValue struct {
	Number *float64
	Text   string
}

// UnmarshalJSON accepts a JSON number or string.
func (p *PriceValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &p.Text)
	}

	var n float64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("price must be a number or string: %w", err)
	}
	p.Number = &n
	return nil
}

// MarshalJSON emits the form the value was built from.
func (p PriceValue) MarshalJSON() ([]byte, error) {
	if p.Number != nil {
		return json.Marshal(*p.Number)
	}
	return json.Marshal(p.Text)
}

// RouteOptions is the verbose form of a route entry.
type RouteOptions struct {
	MinAmountRequired *float64    `json:"minAmountRequired,omitempty"`
	Price             *PriceValue `json:"price,omitempty"`
	Network           string      `json:"network,omitempty"`
	Config            *RouteMeta  `json:"config,omitempty"`
}

// RouteMeta is the nested metadata block of a verbose route entry.
type RouteMeta struct {
	Description       string         `json:"description,omitempty"`
	MimeType          string         `json:"mimeType,omitempty"`
	MaxTimeoutSeconds int            `json:"maxTimeoutSeconds,omitempty"`
	Resource          string         `json:"resource,omitempty"`
	Asset             string         `json:"asset,omitempty"`
	Discoverable      *bool          `json:"discoverable,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
	OutputSchema      *OutputSchema  `json:"outputSchema,omitempty"`
}

// RouteConfig is the canonical per-route configuration produced at compile
// time. Repeated variant inspection at match time is avoided by resolving
// entries into this shape exactly once.
type RouteConfig struct {
	Network           string
	MinAmountRequired *float64
	Price             *PriceValue
	Description       string
	MimeType          string
	MaxTimeoutSeconds int
	Resource          string
	Asset             string
	Discoverable      *bool
	Extra             map[string]any
	OutputSchema      *OutputSchema
}
