// Package resource maps trigger keywords to shareable course assets and
// defines the attachment marker protocol the presentation layer parses to
// render a rich attachment card.
package resource

import (
	"strings"

	"peerloop/internal/logging"
)

// Resource is a shareable asset (worksheet, replay, template) referenced
// from a coach reply via the attachment marker.
type Resource struct {
	ID               string   `yaml:"id"`
	Title            string   `yaml:"title"`
	Type             string   `yaml:"type"` // pdf, video, link
	TriggerKeywords  []string `yaml:"trigger_keywords"`
	ValueProposition string   `yaml:"value_proposition"`
}

// Matcher scans a resource catalog in catalog order. First match wins; at
// most one resource is ever attached to a single outgoing message.
type Matcher struct {
	catalog []Resource
}

// NewMatcher builds a matcher over the catalog. Order is preserved: there is
// no ranking beyond catalog order.
func NewMatcher(catalog []Resource) *Matcher {
	return &Matcher{catalog: catalog}
}

// Match returns the first resource whose trigger keywords substring-match
// the lower-cased message, or nil when nothing matches. A nil result is a
// normal state, not an error.
func (m *Matcher) Match(message string) *Resource {
	lower := strings.ToLower(message)
	for i := range m.catalog {
		for _, kw := range m.catalog[i].TriggerKeywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				logging.Resource("matched resource %s on keyword %q", m.catalog[i].ID, kw)
				res := m.catalog[i]
				return &res
			}
		}
	}
	return nil
}

// Len returns the catalog size.
func (m *Matcher) Len() int {
	return len(m.catalog)
}

// =============================================================================
// ATTACHMENT MARKER PROTOCOL
// =============================================================================

const (
	markerPrefix = "[[resource:"
	markerSuffix = "]]"
)

// Marker returns the sentinel token for a resource id. The marker is
// appended after the natural-language text, never embedded inside it.
func Marker(resourceID string) string {
	return markerPrefix + resourceID + markerSuffix
}

// EnsureMarker appends the marker for resourceID unless the text already
// ends with it. Generators are instructed to emit the marker themselves;
// this keeps the protocol intact when they don't.
func EnsureMarker(text, resourceID string) string {
	marker := Marker(resourceID)
	trimmed := strings.TrimRight(text, " \n\t")
	if strings.HasSuffix(trimmed, marker) {
		return trimmed
	}
	// Strip a malformed or foreign trailing marker before appending ours.
	if body, _, ok := ParseMarker(trimmed); ok {
		trimmed = strings.TrimRight(body, " \n\t")
	}
	return trimmed + " " + marker
}

// ParseMarker splits generated text into its natural-language body and a
// trailing resource id. ok is false when no trailing marker is present.
func ParseMarker(text string) (body, resourceID string, ok bool) {
	trimmed := strings.TrimRight(text, " \n\t")
	if !strings.HasSuffix(trimmed, markerSuffix) {
		return text, "", false
	}
	start := strings.LastIndex(trimmed, markerPrefix)
	if start < 0 {
		return text, "", false
	}
	id := trimmed[start+len(markerPrefix) : len(trimmed)-len(markerSuffix)]
	if id == "" || strings.ContainsAny(id, " \n\t") {
		return text, "", false
	}
	return strings.TrimRight(trimmed[:start], " \n\t"), id, true
}
