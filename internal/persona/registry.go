// Package persona manages the static catalog of response personas: one
// privileged coach and a pool of scripted peers. Each persona carries a
// fixed, non-overlapping voice contract that is injected verbatim into
// composed instructions.
package persona

import (
	"fmt"
	"math/rand"

	"peerloop/internal/types"
)

// Registry holds the immutable persona roster for one engine instance.
// A catalog reload swaps the whole registry; personas never mutate in place.
type Registry struct {
	coach types.Persona
	peers []types.Persona
	byID  map[string]types.Persona
}

// NewRegistry builds a registry from a roster. Exactly one coach is
// required; at least one peer is required for the welcome sequence to have
// anyone to stagger.
func NewRegistry(roster []types.Persona) (*Registry, error) {
	r := &Registry{byID: make(map[string]types.Persona, len(roster))}

	for _, p := range roster {
		if p.ID == "" {
			return nil, fmt.Errorf("persona %q has no id", p.DisplayName)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		switch p.Role {
		case types.RoleCoach:
			if r.coach.ID != "" {
				return nil, fmt.Errorf("multiple coach personas (%q and %q)", r.coach.ID, p.ID)
			}
			r.coach = p
		case types.RolePeer:
			r.peers = append(r.peers, p)
		default:
			return nil, fmt.Errorf("persona %q has unknown role %q", p.ID, p.Role)
		}
		r.byID[p.ID] = p
	}

	if r.coach.ID == "" {
		return nil, fmt.Errorf("roster has no coach persona")
	}
	if len(r.peers) == 0 {
		return nil, fmt.Errorf("roster has no peer personas")
	}
	return r, nil
}

// Coach returns the singular coach persona.
func (r *Registry) Coach() types.Persona {
	return r.coach
}

// Peers returns a copy of the peer pool in roster order.
func (r *Registry) Peers() []types.Persona {
	out := make([]types.Persona, len(r.peers))
	copy(out, r.peers)
	return out
}

// Get looks up a persona by id.
func (r *Registry) Get(id string) (types.Persona, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Len returns the total roster size.
func (r *Registry) Len() int {
	return len(r.byID)
}

// SamplePeers returns n distinct peers chosen without replacement using the
// supplied RNG. When n exceeds the pool size the whole pool is returned
// (shuffled).
func (r *Registry) SamplePeers(rng *rand.Rand, n int) []types.Persona {
	pool := r.Peers()
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

// RandomPeer returns one peer chosen uniformly at random.
func (r *Registry) RandomPeer(rng *rand.Rand) types.Persona {
	return r.peers[rng.Intn(len(r.peers))]
}

// DefaultRoster returns the built-in persona roster used when no catalog
// directory is configured. The peer voices are deliberately non-overlapping.
func DefaultRoster() []types.Persona {
	return []types.Persona{
		{
			ID:          "coach-maya",
			DisplayName: "Maya",
			Role:        types.RoleCoach,
			Voice: types.VoiceContract{
				Style: "warm, direct program coach who answers first and answers fully",
				Rules: []string{
					"Answer the actual question before anything else.",
					"Keep it to a few sentences; this is chat, not email.",
				},
				EmojiLevel:    1,
				CanNameSender: true,
			},
		},
		{
			ID:          "peer-jess",
			DisplayName: "jess",
			Role:        types.RolePeer,
			Voice: types.VoiceContract{
				Style: "chill, understated classmate",
				Rules: []string{
					"Short, casual messages, like texting a friend.",
				},
				Lowercase:  true,
				EmojiLevel: 0,
			},
		},
		{
			ID:          "peer-tyler",
			DisplayName: "Tyler",
			Role:        types.RolePeer,
			Voice: types.VoiceContract{
				Style: "high-energy hype man of the cohort",
				Rules: []string{
					"Big enthusiasm, exclamation points welcome.",
				},
				EmojiLevel: 2,
			},
		},
		{
			ID:          "peer-priya",
			DisplayName: "Priya",
			Role:        types.RolePeer,
			Voice: types.VoiceContract{
				Style: "curious, thoughtful study partner",
				Rules: []string{
					"Relate the message to your own progress in the course.",
				},
				EmojiLevel:        1,
				AlwaysAskQuestion: true,
			},
		},
		{
			ID:          "peer-sam",
			DisplayName: "Sam",
			Role:        types.RolePeer,
			Voice: types.VoiceContract{
				Style: "blunt but supportive",
				Rules: []string{
					"Short, punchy sentences. No filler.",
				},
				EmojiLevel: 0,
			},
		},
	}
}

// DefaultRegistry returns a registry over the built-in roster.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultRoster())
	if err != nil {
		// The built-in roster is static; a failure here is a programming error.
		panic(fmt.Sprintf("default roster invalid: %v", err))
	}
	return r
}
