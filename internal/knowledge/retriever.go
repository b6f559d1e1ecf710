// Package knowledge provides keyword-overlap retrieval over two tiers of
// course knowledge: coach-specific entries (uncapped) and general entries
// (capped per query). This is best-effort substring retrieval, not semantic
// search: false negatives are acceptable and false positives are tolerated
// because the generator is told to prioritize, not recite, matches.
package knowledge

import (
	"strings"
	"unicode"

	"peerloop/internal/logging"
)

// SourceTier distinguishes coach-specific knowledge from general entries.
type SourceTier string

const (
	// TierCoach - entries only the coach grounds on; always outrank general
	// entries and are never capped.
	TierCoach SourceTier = "persona-specific"
	// TierGeneral - shared course knowledge; capped to a few best matches
	// per query to bound prompt size.
	TierGeneral SourceTier = "general"
)

// Entry is one keyword-indexed question/answer pair.
type Entry struct {
	Question string     `yaml:"question"`
	Answer   string     `yaml:"answer"`
	Tier     SourceTier `yaml:"tier"`
}

// Retriever matches incoming messages against the knowledge base.
type Retriever struct {
	coach      []Entry
	general    []Entry
	generalCap int
	minTokLen  int
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithGeneralCap overrides the general-tier match cap.
func WithGeneralCap(n int) Option {
	return func(r *Retriever) { r.generalCap = n }
}

// WithMinTokenLength overrides the minimum token length.
func WithMinTokenLength(n int) Option {
	return func(r *Retriever) { r.minTokLen = n }
}

// NewRetriever builds a retriever over the given entries, split by tier.
// Entries with an empty tier default to general.
func NewRetriever(entries []Entry, opts ...Option) *Retriever {
	r := &Retriever{generalCap: 3, minTokLen: 3}
	for _, e := range entries {
		if e.Tier == TierCoach {
			r.coach = append(r.coach, e)
		} else {
			r.general = append(r.general, e)
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tokenize splits a message into lower-cased words longer than minLen
// characters. Punctuation is stripped so "Module 2?" matches "module".
func Tokenize(message string, minLen int) []string {
	fields := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > minLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Retrieve returns grounding text for a message. Coach-tier entries are
// included only when includeCoachTier is set (peers never ground on them)
// and are uncapped; general matches keep source order and stop at the cap.
// No match returns the empty string, which composers must tolerate.
func (r *Retriever) Retrieve(message string, includeCoachTier bool) string {
	tokens := Tokenize(message, r.minTokLen)
	if len(tokens) == 0 {
		return ""
	}

	var matches []Entry
	if includeCoachTier {
		for _, e := range r.coach {
			if questionMatches(e.Question, tokens) {
				matches = append(matches, e)
			}
		}
	}

	generalHits := 0
	for _, e := range r.general {
		if generalHits >= r.generalCap {
			break
		}
		if questionMatches(e.Question, tokens) {
			matches = append(matches, e)
			generalHits++
		}
	}

	if len(matches) == 0 {
		return ""
	}
	logging.Knowledge("retrieved %d entries for %d tokens", len(matches), len(tokens))

	var sb strings.Builder
	for i, e := range matches {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Q: ")
		sb.WriteString(e.Question)
		sb.WriteString("\nA: ")
		sb.WriteString(e.Answer)
		sb.WriteString("\n")
	}
	return sb.String()
}

// questionMatches reports whether the entry question contains at least one
// of the message tokens.
func questionMatches(question string, tokens []string) bool {
	q := strings.ToLower(question)
	for _, t := range tokens {
		if strings.Contains(q, t) {
			return true
		}
	}
	return false
}
