package ai

import "context"

// TextRequest describes one generation call. MaxTokens <= 0 leaves the
// provider default in place.
type TextRequest struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// TextGenerator produces text from a prompt. The production implementation
// talks to an OpenAI-compatible chat-completions endpoint.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}
