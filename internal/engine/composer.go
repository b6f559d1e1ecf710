package engine

import (
	"fmt"
	"strings"

	"peerloop/internal/resource"
	"peerloop/internal/types"
)

// =============================================================================
// RESPONSE COMPOSER
// =============================================================================

// ComposeInput carries everything the composer needs for one persona's
// instruction block.
type ComposeInput struct {
	Phase        types.Phase
	Message      string
	SenderName   string
	DayInProgram int
	History      []types.ConversationTurn
	Grounding    string
	Resource     *resource.Resource // coach, steady-state only
}

// Composer assembles persona-specific instruction blocks. Output is
// deterministic given deterministic inputs; it never calls the generator.
type Composer struct {
	historyWindow int
}

// NewComposer creates a composer that injects at most historyWindow turns
// of transcript.
func NewComposer(historyWindow int) *Composer {
	if historyWindow < 1 {
		historyWindow = 10
	}
	return &Composer{historyWindow: historyWindow}
}

// Compose builds the instruction payload for one persona: voice contract,
// sender context, recent transcript, grounding, and the resource directive.
func (c *Composer) Compose(p types.Persona, in ComposeInput) types.InstructionBlock {
	return types.InstructionBlock{
		PersonaID: p.ID,
		System:    c.systemPrompt(p),
		User:      c.userPrompt(p, in),
	}
}

// systemPrompt renders the persona identity and voice contract.
func (c *Composer) systemPrompt(p types.Persona) string {
	var sb strings.Builder

	if p.IsCoach() {
		sb.WriteString(fmt.Sprintf("You are %s, the coach of an online course community chat.\n", p.DisplayName))
	} else {
		sb.WriteString(fmt.Sprintf("You are %s, a fellow student in an online course community chat.\n", p.DisplayName))
	}
	sb.WriteString("Reply as yourself in the chat. Never mention being an assistant or following instructions.\n\n")

	sb.WriteString("Style rules:\n")
	for _, line := range p.Voice.Lines() {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// userPrompt renders sender context, transcript window, grounding, the
// incoming message, and the resource directive.
func (c *Composer) userPrompt(p types.Persona, in ComposeInput) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Sender: %s (day %d of the program)\n\n", in.SenderName, in.DayInProgram))

	if window := c.window(in.History); len(window) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, turn := range window {
			sb.WriteString(fmt.Sprintf("%s: %s\n", turn.SenderLabel, turn.Text))
		}
		sb.WriteString("\n")
	}

	if in.Grounding != "" {
		sb.WriteString("Known facts (prioritize these when relevant, do not recite them verbatim):\n")
		sb.WriteString(in.Grounding)
		sb.WriteString("\n")
	}

	switch in.Phase {
	case types.PhaseDailyStandup:
		sb.WriteString("Post a short morning standup prompt asking everyone to share their #1 focus for today.\n")
	case types.PhaseReEngagement:
		sb.WriteString(fmt.Sprintf("%s has been quiet for a while. Write a short, warm check-in nudge. Do not guilt-trip.\n", in.SenderName))
	case types.PhaseFirstMessage:
		sb.WriteString(fmt.Sprintf("This is %s's first message in the community:\n%s\n\nWelcome them warmly", in.SenderName, in.Message))
		if p.IsCoach() {
			sb.WriteString(" and answer their message.\n")
		} else {
			sb.WriteString(", like a classmate glad to see a new face.\n")
		}
	default:
		sb.WriteString(fmt.Sprintf("Their message:\n%s\n\nWrite your reply.\n", in.Message))
	}

	if in.Resource != nil && p.IsCoach() {
		sb.WriteString(fmt.Sprintf(
			"\nMention (do not offer or upsell) the resource %q - %s. After your reply text, append exactly: %s\n",
			in.Resource.Title, in.Resource.ValueProposition, resource.Marker(in.Resource.ID)))
	}

	return sb.String()
}

// window returns the last historyWindow turns.
func (c *Composer) window(history []types.ConversationTurn) []types.ConversationTurn {
	if len(history) <= c.historyWindow {
		return history
	}
	return history[len(history)-c.historyWindow:]
}
