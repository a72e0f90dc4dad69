// Package routes compiles a route-pricing map into matchable patterns and
// resolves inbound requests to the most specific priced route.
package routes

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/xeipuuv/gojsonschema"

	"github.com/x402-bch/x402-go/pkg/types"
)

// ErrInvalidRoutePattern is returned when a pattern key has no usable path.
var ErrInvalidRoutePattern = errors.New("invalid route pattern")

// CompiledRoute pairs a request verb and compiled path pattern with the
// canonical config for one priced route. Built once per gate and immutable
// afterwards.
type CompiledRoute struct {
	// Key is the original pattern key, kept for diagnostics.
	Key string

	// Verb is the uppercased method token, or "*" for any method.
	Verb string

	// Pattern is the compiled whole-string, case-insensitive path matcher.
	Pattern *regexp.Regexp

	// Source is the translated pattern text. Its length drives the
	// specificity tie-break in FindMatchingRoute.
	Source string

	// Config is the normalized pricing config for the route.
	Config types.RouteConfig
}

var (
	pathMetaChars  = regexp.MustCompile(`[$()+.?^{|}]`)
	bracketSegment = regexp.MustCompile(`\[[^\]]+\]`)
)

// Compile translates a route-pricing map into an ordered pattern list.
// Go maps iterate in random order, so entries are compiled in sorted-key
// order to keep matching deterministic between equally specific patterns.
func Compile(cfg types.RoutesConfig) ([]CompiledRoute, error) {
	network := cfg.Network
	if network == "" {
		network = types.DefaultNetwork
	}

	keys := make([]string, 0, len(cfg.Routes))
	for key := range cfg.Routes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	compiled := make([]CompiledRoute, 0, len(keys))
	for _, key := range keys {
		verb, path, err := splitPatternKey(key)
		if err != nil {
			return nil, err
		}

		source := translatePath(path)
		pattern, err := regexp.Compile(`(?i)^` + source + `$`)
		if err != nil {
			return nil, fmt.Errorf("%w: %q does not compile: %v", ErrInvalidRoutePattern, key, err)
		}

		config := cfg.Routes[key].Resolve(network)
		if err := validateDiscoveryInput(key, config); err != nil {
			return nil, err
		}

		compiled = append(compiled, CompiledRoute{
			Key:     key,
			Verb:    verb,
			Pattern: pattern,
			Source:  source,
			Config:  config,
		})
	}
	return compiled, nil
}

// splitPatternKey parses "VERB /path" or "/path". A key containing
// whitespace must carry both tokens; the path is always required.
func splitPatternKey(key string) (verb, path string, err error) {
	fields := strings.Fields(key)
	if strings.ContainsFunc(key, unicode.IsSpace) {
		if len(fields) < 2 {
			return "", "", fmt.Errorf("%w: %q has no path", ErrInvalidRoutePattern, key)
		}
		return strings.ToUpper(fields[0]), fields[1], nil
	}
	if len(fields) == 0 {
		return "", "", fmt.Errorf("%w: %q has no path", ErrInvalidRoutePattern, key)
	}
	return "*", fields[0], nil
}

// translatePath turns a route path into regex source text. The order of the
// rewrites matters: metacharacters are escaped before wildcard and parameter
// tokens are substituted, and slashes are escaped last so the substituted
// character classes keep their meaning.
func translatePath(path string) string {
	source := pathMetaChars.ReplaceAllString(path, `\${0}`)
	source = strings.ReplaceAll(source, "*", `.*?`)
	source = bracketSegment.ReplaceAllString(source, `[^/]+`)
	return strings.ReplaceAll(source, "/", `\/`)
}

// validateDiscoveryInput checks that a route-declared discovery input schema
// is itself a loadable JSON Schema, so broken schemas abort setup instead of
// surfacing in challenge responses.
func validateDiscoveryInput(key string, cfg types.RouteConfig) error {
	if cfg.OutputSchema == nil || cfg.OutputSchema.Input == nil || len(cfg.OutputSchema.Input.DiscoveryInput) == 0 {
		return nil
	}

	loader := gojsonschema.NewBytesLoader(cfg.OutputSchema.Input.DiscoveryInput)
	if _, err := gojsonschema.NewSchema(loader); err != nil {
		return fmt.Errorf("route %q: invalid discovery input schema: %w", key, err)
	}
	return nil
}
