package openai

import (
	"github.com/sashabaranov/go-openai"

	"github.com/chatrelay/chatrelay/internal/domain"
)

// Response shapes are validated explicitly here; the rest of the bot only
// ever sees a value or a tagged upstream error.

func validateCompletion(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", domain.E(domain.KindUpstream, "completion response contained no choices")
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", domain.E(domain.KindUpstream, "completion response contained no text content")
	}
	return text, nil
}

func validateImages(resp openai.ImageResponse) ([]string, error) {
	if len(resp.Data) == 0 {
		return nil, domain.E(domain.KindUpstream, "image response contained no images")
	}

	urls := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL == "" {
			return nil, domain.E(domain.KindUpstream, "image response contained an entry without a URL")
		}
		urls = append(urls, d.URL)
	}
	return urls, nil
}

// validateModeration flags the input when any item anywhere in the result
// list is flagged.
func validateModeration(resp openai.ModerationResponse) (bool, error) {
	if len(resp.Results) == 0 {
		return false, domain.E(domain.KindUpstream, "moderation response contained no results")
	}

	for _, r := range resp.Results {
		if r.Flagged {
			return true, nil
		}
	}
	return false, nil
}
