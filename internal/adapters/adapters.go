// Package adapters normalizes source-specific webhook payloads into uniform
// feedback items. Adapters are pure functions: no state, no I/O, and they
// never fail on missing optional fields. Unrecognizable payloads simply
// yield no items, and unknown sources fall through to the generic adapter.
package adapters

import (
	"sort"
	"strconv"
	"strings"
)

// Item is one normalized feedback unit produced by an adapter. Every item an
// adapter returns has non-empty Content; Metadata carries the source-specific
// fields worth keeping (author, ids, urls).
type Item struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Adapter maps one source payload into zero or more feedback items.
type Adapter interface {
	// Source is the identifier the adapter is selected by, lowercase.
	Source() string
	// Adapt converts a decoded JSON payload into feedback items. Multiple
	// sub-items in one payload (an issue plus its comment) come back as
	// independent items.
	Adapt(payload any) []Item
}

// Registry holds the known source adapters plus the generic fallback.
// Selection is a case-insensitive exact match on the source identifier;
// anything unknown gets the fallback, never an error.
type Registry struct {
	adapters map[string]Adapter
	fallback Adapter
}

// NewRegistry builds a registry with every built-in adapter registered.
func NewRegistry() *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter),
		fallback: GenericAdapter{},
	}

	for _, a := range []Adapter{
		GitHubAdapter{},
		DiscordAdapter{},
		TwitterAdapter{},
		EmailAdapter{},
		ZendeskAdapter{},
		DiscourseAdapter{},
	} {
		r.adapters[a.Source()] = a
	}

	return r
}

// Lookup returns the adapter for the given source, or the generic fallback
// when the source is unknown. It never returns nil.
func (r *Registry) Lookup(source string) Adapter {
	if a, ok := r.adapters[strings.ToLower(strings.TrimSpace(source))]; ok {
		return a
	}
	return r.fallback
}

// Sources lists the registered source identifiers, sorted, for diagnostics.
func (r *Registry) Sources() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// asMap coerces a decoded JSON payload to an object, or nil if it is not one.
func asMap(payload any) map[string]any {
	m, _ := payload.(map[string]any)
	return m
}

// childMap returns the object stored under key, or nil.
func childMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	child, _ := m[key].(map[string]any)
	return child
}

// firstString returns the value of the first key that holds a non-empty
// string. This is the explicit ordered-fallback lookup the adapters use in
// place of guessing at payload shapes.
func firstString(m map[string]any, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, key := range keys {
		if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// numberString renders a JSON number (or numeric string) without a decimal
// point, so issue 5 prints as "5" rather than "5e+00".
func numberString(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case string:
		return n
	default:
		return ""
	}
}

// withAuthor adds the author annotation to metadata when one was found.
func withAuthor(metadata map[string]any, author string) map[string]any {
	if author != "" {
		metadata["author"] = author
	}
	return metadata
}
