package types

import (
	"strings"
	"testing"
)

func TestVoiceContractLines(t *testing.T) {
	c := VoiceContract{
		Style:             "dry one-liners",
		Rules:             []string{"Keep it under two sentences."},
		Lowercase:         true,
		EmojiLevel:        0,
		AlwaysAskQuestion: true,
	}

	lines := c.Lines()

	wantOrder := []string{
		"Voice: dry one-liners",
		"Keep it under two sentences.",
		"Write in all lowercase, no capital letters.",
		"Do not use emoji.",
		"End your reply with a short follow-up question.",
	}
	for i, want := range wantOrder {
		if lines[i] != want {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want)
		}
	}
	if got := lines[len(lines)-1]; !strings.Contains(got, "stock phrases") {
		t.Errorf("anti-repetition rule must always be last, got %q", got)
	}
}

func TestVoiceContractEmojiLevels(t *testing.T) {
	none := VoiceContract{EmojiLevel: 0}.Lines()
	occasional := VoiceContract{EmojiLevel: 1}.Lines()
	heavy := VoiceContract{EmojiLevel: 2}.Lines()

	if !containsLine(none, "Do not use emoji.") {
		t.Errorf("level 0 should forbid emoji")
	}
	if containsLine(occasional, "Do not use emoji.") {
		t.Errorf("level 1 should carry no emoji directive at all")
	}
	if !containsLine(heavy, "Use emoji freely and keep the energy high.") {
		t.Errorf("level 2 should encourage emoji")
	}
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseFirstMessage, "first_message"},
		{PhaseDailyStandup, "daily_standup"},
		{PhaseReEngagement, "re_engagement"},
		{PhaseSteadyState, "steady_state"},
		{Phase(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(tt.phase), got, tt.want)
		}
	}
}

func TestIsCoach(t *testing.T) {
	if !(Persona{Role: RoleCoach}).IsCoach() {
		t.Error("coach role should report IsCoach")
	}
	if (Persona{Role: RolePeer}).IsCoach() {
		t.Error("peer role should not report IsCoach")
	}
}
