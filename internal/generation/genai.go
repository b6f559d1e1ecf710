package generation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"peerloop/internal/logging"
	"peerloop/internal/types"
)

// =============================================================================
// GOOGLE GENAI GENERATOR
// =============================================================================

// GenAIClient generates persona replies using Google's Gemini API.
type GenAIClient struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// NewGenAIClient creates a new GenAI-backed generator.
func NewGenAIClient(ctx context.Context, apiKey, model string, log *zap.Logger) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if log == nil {
		log = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{client: client, model: model, log: log}, nil
}

// Generate renders one instruction block into persona prose. Any provider
// failure or empty candidate comes back as *GenerationError.
func (c *GenAIClient) Generate(ctx context.Context, block types.InstructionBlock, maxTokens int) (string, error) {
	start := time.Now()

	cfg := &genai.GenerateContentConfig{}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	if block.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(block.System, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(block.User), cfg)
	if err != nil {
		logging.GenerationError("genai call failed for %s: %v", block.PersonaID, err)
		return "", &GenerationError{Provider: "genai", Persona: block.PersonaID, Err: err}
	}

	text := result.Text()
	if text == "" {
		return "", &GenerationError{Provider: "genai", Persona: block.PersonaID,
			Err: fmt.Errorf("empty candidate")}
	}

	c.log.Debug("generated reply",
		zap.String("persona", block.PersonaID),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	logging.Generation("persona %s: %d chars in %v", block.PersonaID, len(text), time.Since(start))

	return text, nil
}
