package domain

import "context"

// CompletionRequest is the ordered message sequence sent to the completion
// provider: global init sequence, optional scope instruction, then the ledger
// entries mapped one to one.
type CompletionRequest struct {
	Model       string
	Temperature *float32
	Messages    []ChatMessage
}

// CompletionResult is the provider's answer plus token accounting for cost
// logging.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Completer produces a chat completion. An upstream response without at least
// one non-empty choice is a hard error.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// ImageRequest describes one image generation call. Size is a provider size
// string such as "512x512".
type ImageRequest struct {
	Prompt string
	Count  int
	Size   string
}

// ImageGenerator produces image URLs for a prompt.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, req ImageRequest) ([]string, error)
}

// Moderator classifies text for content safety. Flagged text must not be
// relayed in either direction.
type Moderator interface {
	Moderate(ctx context.Context, text string) (flagged bool, err error)
}
