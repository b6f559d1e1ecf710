package engine

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"peerloop/internal/resource"
	"peerloop/internal/types"
)

var testCoach = types.Persona{
	ID:          "coach-maya",
	DisplayName: "Maya",
	Role:        types.RoleCoach,
	Voice: types.VoiceContract{
		Style:         "warm, direct",
		Rules:         []string{"Answer the actual question before anything else."},
		CanNameSender: true,
	},
}

var testPeer = types.Persona{
	ID:          "peer-jess",
	DisplayName: "jess",
	Role:        types.RolePeer,
	Voice:       types.VoiceContract{Lowercase: true},
}

func TestComposeSystemPromptCarriesVoiceContract(t *testing.T) {
	c := NewComposer(10)

	block := c.Compose(testPeer, ComposeInput{Phase: types.PhaseSteadyState, Message: "hi"})
	if block.PersonaID != "peer-jess" {
		t.Fatalf("PersonaID = %q", block.PersonaID)
	}
	for _, want := range []string{
		"fellow student",
		"Write in all lowercase, no capital letters.",
		"Do not reuse stock phrases",
	} {
		if !strings.Contains(block.System, want) {
			t.Errorf("system prompt missing %q:\n%s", want, block.System)
		}
	}
	if strings.Contains(block.System, "coach of an online course") {
		t.Errorf("peer prompt should not carry the coach identity")
	}
}

func TestComposeWindowsHistory(t *testing.T) {
	c := NewComposer(3)

	history := []types.ConversationTurn{
		{SenderLabel: "Maya", Text: "turn one"},
		{SenderLabel: "Alex", Text: "turn two"},
		{SenderLabel: "jess", Text: "turn three"},
		{SenderLabel: "Alex", Text: "turn four"},
	}
	block := c.Compose(testCoach, ComposeInput{
		Phase:      types.PhaseSteadyState,
		Message:    "what's next?",
		SenderName: "Alex",
		History:    history,
	})

	if strings.Contains(block.User, "turn one") {
		t.Errorf("oldest turn should fall outside the window")
	}
	for _, want := range []string{"turn two", "turn three", "turn four"} {
		if !strings.Contains(block.User, want) {
			t.Errorf("user prompt missing windowed turn %q", want)
		}
	}
}

func TestComposePhaseDirectives(t *testing.T) {
	c := NewComposer(10)
	in := ComposeInput{SenderName: "Alex", Message: "hello everyone!"}

	tests := []struct {
		phase types.Phase
		want  string
	}{
		{types.PhaseDailyStandup, "morning standup prompt"},
		{types.PhaseReEngagement, "Do not guilt-trip"},
		{types.PhaseFirstMessage, "first message in the community"},
		{types.PhaseSteadyState, "Write your reply."},
	}
	for _, tt := range tests {
		in.Phase = tt.phase
		block := c.Compose(testCoach, in)
		if !strings.Contains(block.User, tt.want) {
			t.Errorf("phase %v: user prompt missing %q:\n%s", tt.phase, tt.want, block.User)
		}
	}
}

func TestComposeResourceDirectiveIsCoachOnly(t *testing.T) {
	c := NewComposer(10)
	res := &resource.Resource{
		ID:               "worksheet-m2",
		Title:            "Module 2 Worksheet",
		ValueProposition: "step-by-step practice",
	}
	in := ComposeInput{Phase: types.PhaseSteadyState, Message: "worksheet?", Resource: res}

	coachBlock := c.Compose(testCoach, in)
	if !strings.Contains(coachBlock.User, resource.Marker("worksheet-m2")) {
		t.Errorf("coach prompt missing the attachment marker directive")
	}
	if !strings.Contains(coachBlock.User, "Module 2 Worksheet") {
		t.Errorf("coach prompt missing the resource title")
	}

	peerBlock := c.Compose(testPeer, in)
	if strings.Contains(peerBlock.User, "worksheet-m2") {
		t.Errorf("peer prompt must never carry a resource directive")
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	c := NewComposer(10)
	in := ComposeInput{
		Phase:      types.PhaseSteadyState,
		Message:    "how do refunds work?",
		SenderName: "Alex",
		Grounding:  "Q: something\nA: answer\n",
		History: []types.ConversationTurn{
			{SenderLabel: "Maya", Text: "welcome"},
		},
	}

	a := c.Compose(testCoach, in)
	b := c.Compose(testCoach, in)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("composition not deterministic (-first +second):\n%s", diff)
	}
}
