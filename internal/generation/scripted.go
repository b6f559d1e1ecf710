package generation

import (
	"context"
	"sync"

	"peerloop/internal/types"
)

// Scripted is a deterministic generator for tests and offline dry runs. It
// returns a canned reply per persona and can be told to fail specific
// persona slots.
type Scripted struct {
	mu sync.Mutex

	// ByPersona maps persona id to the reply text to return.
	ByPersona map[string]string
	// Fail maps persona id to the error to return instead of text.
	Fail map[string]error
	// Default is returned for personas absent from ByPersona.
	Default string

	// Calls records every block received, in arrival order.
	Calls []types.InstructionBlock
}

// NewScripted returns a scripted generator with a generic default line.
func NewScripted() *Scripted {
	return &Scripted{Default: "sounds good, keep going!"}
}

// Generate returns the scripted reply for the block's persona.
func (s *Scripted) Generate(ctx context.Context, block types.InstructionBlock, maxTokens int) (string, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, block)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", &GenerationError{Provider: "scripted", Persona: block.PersonaID, Err: err}
	}
	if s.Fail != nil {
		if err, ok := s.Fail[block.PersonaID]; ok {
			return "", &GenerationError{Provider: "scripted", Persona: block.PersonaID, Err: err}
		}
	}
	if s.ByPersona != nil {
		if text, ok := s.ByPersona[block.PersonaID]; ok {
			return text, nil
		}
	}
	return s.Default, nil
}

// CallCount returns how many generation calls were made.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// CallsFor returns the blocks received for one persona.
func (s *Scripted) CallsFor(personaID string) []types.InstructionBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.InstructionBlock
	for _, b := range s.Calls {
		if b.PersonaID == personaID {
			out = append(out, b)
		}
	}
	return out
}
