package persona

import (
	"math/rand"
	"strings"
	"testing"

	"peerloop/internal/types"
)

func peer(id string) types.Persona {
	return types.Persona{ID: id, DisplayName: id, Role: types.RolePeer}
}

func coach(id string) types.Persona {
	return types.Persona{ID: id, DisplayName: id, Role: types.RoleCoach}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name    string
		roster  []types.Persona
		wantErr string
	}{
		{"valid roster", []types.Persona{coach("c"), peer("p1")}, ""},
		{"no coach", []types.Persona{peer("p1"), peer("p2")}, "no coach"},
		{"two coaches", []types.Persona{coach("c1"), coach("c2"), peer("p")}, "multiple coach"},
		{"no peers", []types.Persona{coach("c")}, "no peer"},
		{"duplicate id", []types.Persona{coach("c"), peer("p"), peer("p")}, "duplicate"},
		{"missing id", []types.Persona{coach("c"), {DisplayName: "x", Role: types.RolePeer}}, "no id"},
		{"unknown role", []types.Persona{coach("c"), {ID: "x", Role: "moderator"}}, "unknown role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.roster)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("NewRegistry() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewRegistry() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSamplePeersWithoutReplacement(t *testing.T) {
	r := DefaultRegistry()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		got := r.SamplePeers(rng, 3)
		if len(got) != 3 {
			t.Fatalf("SamplePeers(3) returned %d", len(got))
		}
		seen := make(map[string]bool)
		for _, p := range got {
			if p.IsCoach() {
				t.Fatalf("coach in peer sample")
			}
			if seen[p.ID] {
				t.Fatalf("peer %s sampled twice", p.ID)
			}
			seen[p.ID] = true
		}
	}
}

func TestSamplePeersClampsToPoolSize(t *testing.T) {
	r := DefaultRegistry()
	rng := rand.New(rand.NewSource(1))

	got := r.SamplePeers(rng, 100)
	if len(got) != len(r.Peers()) {
		t.Errorf("SamplePeers(100) returned %d, want whole pool %d", len(got), len(r.Peers()))
	}
}

func TestPeersReturnsCopy(t *testing.T) {
	r := DefaultRegistry()

	peers := r.Peers()
	peers[0].ID = "mutated"
	if r.Peers()[0].ID == "mutated" {
		t.Errorf("Peers() exposed internal state")
	}
}

func TestDefaultRosterIsValid(t *testing.T) {
	r := DefaultRegistry()

	if r.Coach().ID != "coach-maya" {
		t.Errorf("coach = %s", r.Coach().ID)
	}
	if r.Len() != 5 {
		t.Errorf("roster size = %d, want 5", r.Len())
	}
	if _, ok := r.Get("peer-jess"); !ok {
		t.Errorf("Get(peer-jess) missing")
	}

	// Voice contracts stay distinct: no two personas share a style line.
	styles := make(map[string]string)
	for _, p := range append(r.Peers(), r.Coach()) {
		if prev, dup := styles[p.Voice.Style]; dup {
			t.Errorf("personas %s and %s share a voice style", prev, p.ID)
		}
		styles[p.Voice.Style] = p.ID
	}
}
