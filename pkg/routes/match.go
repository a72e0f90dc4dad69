package routes

import (
	"net/url"
	"regexp"
	"strings"
)

var repeatedSlashes = regexp.MustCompile(`/{2,}`)

// FindMatchingRoute returns the most specific compiled route for the request,
// or nil when the path is not priced. Among matching candidates the route
// with the longest pattern source text wins; this is a character-count
// heuristic, kept as-is for compatibility with existing route maps.
func FindMatchingRoute(compiled []CompiledRoute, path, method string) *CompiledRoute {
	normalized, ok := NormalizePath(path)
	if !ok {
		return nil
	}

	verb := strings.ToUpper(method)
	var best *CompiledRoute
	for i := range compiled {
		route := &compiled[i]
		if route.Verb != "*" && route.Verb != verb {
			continue
		}
		if !route.Pattern.MatchString(normalized) {
			continue
		}
		if best == nil || len(route.Source) > len(best.Source) {
			best = route
		}
	}
	return best
}

// NormalizePath prepares a request path for matching: the query string and
// fragment are stripped, percent-encoding is decoded, backslashes become
// slashes, slash runs collapse, and trailing slashes are trimmed (a lone "/"
// survives). Malformed percent-encoding fails softly with ok=false, which
// callers treat as "no match" rather than an error.
func NormalizePath(path string) (string, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	decoded, err := url.PathUnescape(path)
	if err != nil {
		return "", false
	}

	decoded = strings.ReplaceAll(decoded, `\`, "/")
	decoded = repeatedSlashes.ReplaceAllString(decoded, "/")
	if len(decoded) > 1 {
		decoded = strings.TrimRight(decoded, "/")
	}
	return decoded, true
}
