// Package types defines the shared domain types for the peerloop
// conversation engine: personas, conversation turns, orchestration phases,
// and the scheduled-reply unit the orchestrator emits.
package types

import (
	"fmt"
	"time"
)

// =============================================================================
// PERSONAS
// =============================================================================

// PersonaRole distinguishes the single privileged coach from scripted peers.
type PersonaRole string

const (
	// RoleCoach - the singular authoritative voice. Only the coach may
	// attach resources or speak first on real questions.
	RoleCoach PersonaRole = "coach"
	// RolePeer - a scripted community member.
	RolePeer PersonaRole = "peer"
)

// VoiceContract is the enumerable style contract for a persona. It is a
// tagged struct rather than free-text rule concatenation so contracts can be
// tested in isolation from prompt assembly.
type VoiceContract struct {
	Style             string   `yaml:"style"`               // one-line voice summary
	Rules             []string `yaml:"rules"`               // ordered style rules, injected verbatim
	Lowercase         bool     `yaml:"lowercase"`           // never use capital letters
	EmojiLevel        int      `yaml:"emoji_level"`         // 0 = none, 1 = occasional, 2 = heavy
	AlwaysAskQuestion bool     `yaml:"always_ask_question"` // end with a follow-up question
	CanNameSender     bool     `yaml:"can_name_sender"`     // may reference the sender by name (coach only)
}

// antiRepetitionRule is appended to every rendered contract so the ensemble
// never sounds templated.
const antiRepetitionRule = "Do not reuse stock phrases already used earlier in this conversation."

// Lines renders the contract as ordered instruction lines. The
// anti-repetition rule is always the final line.
func (c VoiceContract) Lines() []string {
	lines := make([]string, 0, len(c.Rules)+5)
	if c.Style != "" {
		lines = append(lines, "Voice: "+c.Style)
	}
	lines = append(lines, c.Rules...)
	if c.Lowercase {
		lines = append(lines, "Write in all lowercase, no capital letters.")
	}
	switch c.EmojiLevel {
	case 0:
		lines = append(lines, "Do not use emoji.")
	case 2:
		lines = append(lines, "Use emoji freely and keep the energy high.")
	}
	if c.AlwaysAskQuestion {
		lines = append(lines, "End your reply with a short follow-up question.")
	}
	if c.CanNameSender {
		lines = append(lines, "You may address the sender by name and reference their message directly.")
	}
	lines = append(lines, antiRepetitionRule)
	return lines
}

// Persona is a named reply identity. Personas are immutable once loaded.
type Persona struct {
	ID          string        `yaml:"id"`
	DisplayName string        `yaml:"display_name"`
	Role        PersonaRole   `yaml:"role"`
	Voice       VoiceContract `yaml:"voice"`
}

// IsCoach reports whether this persona is the privileged coach.
func (p Persona) IsCoach() bool {
	return p.Role == RoleCoach
}

// =============================================================================
// CONVERSATION
// =============================================================================

// ConversationTurn is one entry in the caller-supplied, append-only history.
// The engine only reads it; it never persists turns itself.
type ConversationTurn struct {
	SenderLabel string
	Text        string
	Timestamp   time.Time
}

// Trigger is an out-of-band event selecting the orchestration path. It is
// computed per call, never stored.
type Trigger string

const (
	// TriggerNone - phase is inferred from history.
	TriggerNone Trigger = ""
	// TriggerDailyStandup - caller-initiated morning check-in nudge.
	TriggerDailyStandup Trigger = "daily_standup"
	// TriggerReEngagement - caller-initiated nudge for an inactive learner.
	TriggerReEngagement Trigger = "re_engagement"
)

// Phase is the orchestration path selected for an incoming message.
type Phase int

const (
	// PhaseFirstMessage - the sender's first-ever turn; triggers the
	// multi-persona welcome sequence.
	PhaseFirstMessage Phase = iota
	// PhaseDailyStandup - coach-exclusive proactive standup prompt.
	PhaseDailyStandup
	// PhaseReEngagement - coach-exclusive nudge for a quiet learner.
	PhaseReEngagement
	// PhaseSteadyState - the normal single-responder path.
	PhaseSteadyState
)

func (p Phase) String() string {
	switch p {
	case PhaseFirstMessage:
		return "first_message"
	case PhaseDailyStandup:
		return "daily_standup"
	case PhaseReEngagement:
		return "re_engagement"
	case PhaseSteadyState:
		return "steady_state"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// =============================================================================
// SCHEDULED REPLIES
// =============================================================================

// ScheduledReply is the unit the orchestrator emits. DelayMillis is relative
// to "now" for a single reply, or relative to the previous reply for
// ensemble members. The delay is a display hint consumed by the presentation
// layer, not a durable schedule.
type ScheduledReply struct {
	PersonaID     string
	PersonaName   string
	Text          string
	DelayMillis   int64
	SequenceIndex int
	ResourceID    string // set only when a resource marker is attached (coach only)
}

// InstructionBlock is the composed payload handed to the external text
// generator. Composition is deterministic; randomness lives in responder
// selection and delivery scheduling only.
type InstructionBlock struct {
	PersonaID string
	System    string // voice contract and behavioral rules
	User      string // transcript, grounding, and the message to answer
}
