package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"peerloop/internal/config"
	"peerloop/internal/logging"
	"peerloop/internal/persona"
	"peerloop/internal/types"
)

// =============================================================================
// RESPONDER SELECTION POLICY
// =============================================================================
//
// The keyword gate guarantees the authoritative voice answers anything that
// looks like a real need; randomization elsewhere preserves the illusion of
// an organic group. All randomness flows through the injected RNG, so a
// fixed seed makes every decision reproducible.

// SelectionReason explains why a steady-state responder was chosen.
type SelectionReason int

const (
	// ReasonQuestion - the message contains a question marker.
	ReasonQuestion SelectionReason = iota
	// ReasonHelp - the message contains a help/confusion word.
	ReasonHelp
	// ReasonAppreciation - the message contains a gratitude word.
	ReasonAppreciation
	// ReasonCoachSubstitution - no keyword matched but the random coach
	// substitution branch fired.
	ReasonCoachSubstitution
	// ReasonRandomPeer - no keyword matched; a peer was drawn uniformly.
	ReasonRandomPeer
)

func (r SelectionReason) String() string {
	switch r {
	case ReasonQuestion:
		return "question"
	case ReasonHelp:
		return "help"
	case ReasonAppreciation:
		return "appreciation"
	case ReasonCoachSubstitution:
		return "coach_substitution"
	case ReasonRandomPeer:
		return "random_peer"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Keyword tables for the steady-state gate. Checked in priority order
// (question > help > appreciation); the first match short-circuits.
var (
	interrogativeWords = []string{
		"how", "what", "why", "when", "where", "who", "which",
		"can", "could", "should", "would", "does", "do i",
	}

	helpWords = []string{
		"help", "stuck", "confused", "confusing", "lost",
		"struggling", "don't understand", "dont understand",
		"not sure", "issue", "problem", "error", "broken",
	}

	appreciationWords = []string{
		"thank", "thanks", "thx", "appreciate", "grateful",
		"awesome", "amazing", "love this", "love it", "helpful",
	}
)

// Selector implements the responder selection policy over a persona
// registry. Safe for concurrent use; the RNG is mutex-guarded.
type Selector struct {
	reg *persona.Registry
	cfg config.EngineConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector. The RNG is injected so tests can pin a
// seed; production callers pass a time-seeded source.
func NewSelector(reg *persona.Registry, cfg config.EngineConfig, rng *rand.Rand) *Selector {
	return &Selector{reg: reg, cfg: cfg, rng: rng}
}

// SelectResponders returns the ordered personas that should reply to a
// message in the given phase. The coach is always first when more than one
// persona is returned.
func (s *Selector) SelectResponders(phase types.Phase, message string) []types.Persona {
	switch phase {
	case types.PhaseFirstMessage:
		return s.welcomeEnsemble()
	case types.PhaseDailyStandup, types.PhaseReEngagement:
		// Coach-exclusive proactive nudges, not replies to user content.
		return []types.Persona{s.reg.Coach()}
	default:
		p, reason := s.selectSteadyState(message)
		logging.Selection("steady_state responder=%s reason=%s", p.ID, reason)
		return []types.Persona{p}
	}
}

// welcomeEnsemble returns the coach followed by 2-3 peers sampled without
// replacement, the count itself randomized.
func (s *Selector) welcomeEnsemble() []types.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()

	span := s.cfg.WelcomePeersMax - s.cfg.WelcomePeersMin
	count := s.cfg.WelcomePeersMin
	if span > 0 {
		count += s.rng.Intn(span + 1)
	}

	out := []types.Persona{s.reg.Coach()}
	out = append(out, s.reg.SamplePeers(s.rng, count)...)
	return out
}

// selectSteadyState applies the keyword gate, then the random-peer path
// with coach substitution.
func (s *Selector) selectSteadyState(message string) (types.Persona, SelectionReason) {
	if reason, ok := matchKeywordGate(message); ok {
		return s.reg.Coach(), reason
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.cfg.CoachSubstitutionRate {
		return s.reg.Coach(), ReasonCoachSubstitution
	}
	return s.reg.RandomPeer(s.rng), ReasonRandomPeer
}

// matchKeywordGate evaluates the keyword checks in fixed priority order and
// short-circuits on the first hit, keeping the decision deterministic.
func matchKeywordGate(message string) (SelectionReason, bool) {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "?") || containsWord(lower, interrogativeWords) {
		return ReasonQuestion, true
	}
	if containsAny(lower, helpWords) {
		return ReasonHelp, true
	}
	if containsAny(lower, appreciationWords) {
		return ReasonAppreciation, true
	}
	return ReasonRandomPeer, false
}

// containsWord matches whole leading words only, so "showcase" does not
// trip the "how" interrogative.
func containsWord(lower string, words []string) bool {
	fields := strings.Fields(lower)
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:'\"")
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	// Multi-word entries ("do i") still need a substring check.
	for _, w := range words {
		if strings.Contains(w, " ") && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func containsAny(lower string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
