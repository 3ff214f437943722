// Package openai adapts the go-openai client to the bot's completion, image
// and moderation facades. The API key and base URL are resolved per call from
// the property store, falling back to bootstrap configuration, so an admin
// /set takes effect on the next request without a restart.
package openai

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/props"
)

type Service struct {
	store           domain.PropertyStore
	fallbackKey     string
	fallbackBaseURL string
}

type ServiceOptions struct {
	// FallbackAPIKey is used when the OPENAI_API_KEY property is unset.
	FallbackAPIKey string
	// FallbackBaseURL overrides the provider endpoint when the
	// OPENAI_BASE_URL property is unset. Empty means the provider default.
	FallbackBaseURL string
}

func NewService(store domain.PropertyStore, opts ServiceOptions) *Service {
	return &Service{
		store:           store,
		fallbackKey:     opts.FallbackAPIKey,
		fallbackBaseURL: opts.FallbackBaseURL,
	}
}

func (s *Service) client(ctx context.Context) (*openai.Client, error) {
	typed := props.NewTyped(s.store)

	key, ok, err := typed.GetString(ctx, props.KeyAPIKey)
	if err != nil {
		return nil, err
	}
	if !ok || key == "" {
		key = s.fallbackKey
	}
	if key == "" {
		return nil, domain.E(domain.KindConfig, "OPENAI_API_KEY is not configured")
	}

	baseURL, _, err := typed.GetString(ctx, props.KeyBaseURL)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = s.fallbackBaseURL
	}

	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return openai.NewClientWithConfig(cfg), nil
}

func (s *Service) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	client, err := s.client(ctx)
	if err != nil {
		return domain.CompletionResult{}, err
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	creq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if req.Temperature != nil {
		creq.Temperature = *req.Temperature
	}

	resp, err := client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return domain.CompletionResult{}, domain.WrapError(domain.KindUpstream, "completion request failed", err)
	}

	text, err := validateCompletion(resp)
	if err != nil {
		return domain.CompletionResult{}, err
	}

	return domain.CompletionResult{
		Text:             text,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (s *Service) GenerateImages(ctx context.Context, req domain.ImageRequest) ([]string, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		N:              req.Count,
		Size:           req.Size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create image")
		return nil, domain.WrapError(domain.KindUpstream, "image request failed", err)
	}

	return validateImages(resp)
}

func (s *Service) Moderate(ctx context.Context, text string) (bool, error) {
	client, err := s.client(ctx)
	if err != nil {
		return false, err
	}

	resp, err := client.Moderations(ctx, openai.ModerationRequest{Input: text})
	if err != nil {
		return false, domain.WrapError(domain.KindUpstream, "moderation request failed", err)
	}

	return validateModeration(resp)
}
