// Package cachekey builds deterministic cache keys from an endpoint
// identifier and a parameter map. Two logically identical requests always
// produce byte-identical keys, regardless of parameter insertion order, so
// keys are stable across process restarts and safe to use for cross-process
// coordination.
package cachekey

import (
	"fmt"
	"sort"
	"strings"
)

// Prefix is the namespace prepended to every cache key.
const Prefix = "naksir:cache:"

// DefaultAppID identifies the default deployment. Keys built for it omit the
// app scope so single-tenant deployments keep short keys.
const DefaultAppID = "naksir.premium"

// Build returns the cache key for endpoint with the given parameters.
// Parameters are serialized in sorted-key order as canonical JSON.
func Build(endpoint string, params map[string]any) string {
	return BuildScoped(endpoint, params, DefaultAppID)
}

// BuildScoped is like Build but scopes the key to appID. The default app ID
// produces the same key as Build.
func BuildScoped(endpoint string, params map[string]any, appID string) string {
	base := endpoint + ":" + canonical(params)
	if appID == DefaultAppID || appID == "" {
		return Prefix + base
	}
	return Prefix + appID + ":" + base
}

// canonical serializes params as JSON with keys in sorted order. Values are
// rendered with %v, quoted when they are strings, so that ints and floats
// keep their natural representation.
func canonical(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: ", k)
		switch v := params[k].(type) {
		case string:
			fmt.Fprintf(&b, "%q", v)
		case nil:
			b.WriteString("null")
		default:
			fmt.Fprintf(&b, "%v", v)
		}
	}
	b.WriteByte('}')
	return b.String()
}
