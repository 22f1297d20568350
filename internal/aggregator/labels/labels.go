// Package labels implements the three-tier label reconciliation described in
// spec.md §4.3/§4.5: parsing pod/node/namespace label columns (which may
// arrive as JSON strings or native maps), filtering pod labels against the
// enabled-key set, and merging the three tiers with node < namespace < pod
// precedence into a canonical sorted-key JSON string.
package labels

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// EnabledKeySet is the set of pod-label keys considered meaningful for
// grouping. Keys not in this set are dropped from the pod-label tier
// before merging.
type EnabledKeySet map[string]struct{}

// NewEnabledKeySet builds a set from a slice of keys.
func NewEnabledKeySet(keys []string) EnabledKeySet {
	s := make(EnabledKeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Contains reports whether key is enabled.
func (s EnabledKeySet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Parse normalizes a label column value into a map[string]string.
//
// The input element is either a JSON-encoded string (what the columnar
// reader produces), a native map[string]any / map[string]string, or nil. A nil or empty input yields an empty, non-nil map — callers must
// never distinguish "no labels" from "empty map".
//
// Per spec.md §9 Design Notes ("mixed types in label columns"), no
// implicit per-row type switching happens beyond this single dispatch
// point; both paths return the same canonical map type.
func Parse(raw any) (map[string]string, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]string{}, nil
	case string:
		if v == "" {
			return map[string]string{}, nil
		}
		var m map[string]string
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("labels: parsing JSON label string: %w", err)
		}
		if m == nil {
			m = map[string]string{}
		}
		return m, nil
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			out[k] = fmt.Sprintf("%v", val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("labels: unsupported label column type %T", raw)
	}
}

// Filter drops keys from m that are not present in enabled. m is not
// mutated; a new map is returned.
func Filter(m map[string]string, enabled EnabledKeySet) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if enabled.Contains(k) {
			out[k] = v
		}
	}
	return out
}

// Merge combines the node, namespace, and pod label tiers with precedence
// pod > namespace > node: on key collision the later tier in that order
// wins. The caller is responsible for filtering the pod tier against the
// enabled-key set before calling Merge (spec.md §4.5 step 4 — the enabled
// filter applies only to the pod tier).
func Merge(node, namespace, pod map[string]string) map[string]string {
	out := make(map[string]string, len(node)+len(namespace)+len(pod))
	for k, v := range node {
		out[k] = v
	}
	for k, v := range namespace {
		out[k] = v
	}
	for k, v := range pod {
		out[k] = v
	}
	return out
}

// Canonical serializes m to compact JSON with lexicographically sorted
// keys. An empty (or nil) map canonicalizes to "{}". Canonical is
// idempotent: Parse(Canonical(m)) is equal to m as a map (spec.md §8
// round-trip property).
func Canonical(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodeJSONString(&buf, k)
		buf.WriteByte(':')
		encodeJSONString(&buf, m[k])
	}
	buf.WriteByte('}')
	return buf.String()
}

func encodeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
