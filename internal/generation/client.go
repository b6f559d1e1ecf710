// Package generation adapts external text generators to the engine's
// Generator interface. Provider failures are wrapped in GenerationError so
// raw provider errors never reach the orchestrator's caller.
package generation

import "fmt"

// GenerationError wraps any provider or network failure. The engine treats
// it as "no text" for the affected persona slot.
type GenerationError struct {
	Provider string
	Persona  string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (provider=%s persona=%s): %v", e.Provider, e.Persona, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
