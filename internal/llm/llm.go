package llm

import "context"

// Client defines the interface for text-generation providers.
type Client interface {
	// Generate produces a reply for userPrompt under the given system
	// instruction. The reply is returned with surrounding whitespace trimmed.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
