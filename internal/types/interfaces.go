package types

import (
	"context"
	"errors"
)

// Generator is the minimal interface the engine uses to call the external
// text generator. Lives here to avoid import cycles between the engine and
// the generation adapters.
type Generator interface {
	Generate(ctx context.Context, block InstructionBlock, maxTokens int) (string, error)
}

// ErrEmptyMessage is returned when a request carries no message text and no
// explicit trigger. It is the only caller-visible validation error: there is
// nothing meaningful to classify or schedule.
var ErrEmptyMessage = errors.New("message text is required")
