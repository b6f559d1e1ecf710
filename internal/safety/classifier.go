// Package safety flags messages containing risk or dispute language so human
// operators can review them. Flagging runs independently of reply
// generation and never alters the generated content.
package safety

import (
	"strings"

	"peerloop/internal/logging"
)

// defaultRiskTerms is the built-in risk/dispute list. Matching is
// lower-cased substring, so "refunds" and "scammed" also hit.
var defaultRiskTerms = []string{
	"refund",
	"money back",
	"cancel",
	"chargeback",
	"dispute",
	"scam",
	"fraud",
	"rip off",
	"ripoff",
	"lawsuit",
	"lawyer",
	"attorney",
	"sue you",
	"suing",
	"better business bureau",
	"report you",
	"pyramid scheme",
}

// Classifier performs substring matching against the risk-term list.
type Classifier struct {
	terms []string
}

// NewClassifier builds a classifier with the built-in terms plus any
// configured extras. Extras extend the list; they never replace it.
func NewClassifier(extraTerms ...string) *Classifier {
	terms := make([]string, 0, len(defaultRiskTerms)+len(extraTerms))
	terms = append(terms, defaultRiskTerms...)
	for _, t := range extraTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return &Classifier{terms: terms}
}

// IsFlagged reports whether the message contains any risk term.
func (c *Classifier) IsFlagged(message string) bool {
	return len(c.MatchedTerms(message)) > 0
}

// MatchedTerms returns every risk term present in the message, for operator
// surfacing. An empty result means the message is clean.
func (c *Classifier) MatchedTerms(message string) []string {
	if message == "" {
		return nil
	}
	lower := strings.ToLower(message)
	var matched []string
	for _, term := range c.terms {
		if strings.Contains(lower, term) {
			matched = append(matched, term)
		}
	}
	if len(matched) > 0 {
		logging.Safety("message flagged on terms %v", matched)
	}
	return matched
}
