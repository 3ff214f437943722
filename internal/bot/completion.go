package bot

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/history"
	"github.com/chatrelay/chatrelay/internal/props"
)

// completeFromLedger requests a completion over the ledger's entries, folds
// the reply back into the ledger and persists it.
func (h *Handler) completeFromLedger(ctx context.Context, rt *props.Runtime, scope domain.Scope, ledger *history.Ledger) (domain.Response, error) {
	req, err := h.buildCompletionRequest(ctx, rt, scope, ledger)
	if err != nil {
		return domain.Response{}, err
	}

	result, err := h.completer.Complete(ctx, req)
	if err != nil {
		return domain.Response{}, err
	}

	flagged, err := h.moderator.Moderate(ctx, result.Text)
	if err != nil {
		return domain.Response{}, err
	}
	if flagged {
		return domain.Response{}, domain.E(domain.KindFlagged, "the generated reply was flagged by content moderation")
	}

	h.logUsage(ctx, rt, result)

	ledger.Append(domain.RoleAssistant, result.Text, h.now())
	if err := h.history.SaveHistory(ctx, ledger); err != nil {
		return domain.Response{}, err
	}

	return domain.Response{Text: result.Text}, nil
}

// buildCompletionRequest assembles the ordered message sequence: global init
// sequence, then the scope's instruction override if any, then the ledger
// entries one to one.
func (h *Handler) buildCompletionRequest(ctx context.Context, rt *props.Runtime, scope domain.Scope, ledger *history.Ledger) (domain.CompletionRequest, error) {
	initSeq, err := rt.InitSequence(ctx)
	if err != nil {
		return domain.CompletionRequest{}, err
	}

	messages := append([]domain.ChatMessage(nil), initSeq...)

	cfg, ok, err := h.scopeCfg.Get(ctx, scope)
	if err != nil {
		return domain.CompletionRequest{}, err
	}
	if ok && cfg.Instructions != "" {
		messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: cfg.Instructions})
	}

	for _, e := range ledger.Entries {
		messages = append(messages, domain.ChatMessage{Role: e.Role, Content: e.Text})
	}

	model, err := rt.Model(ctx)
	if err != nil {
		return domain.CompletionRequest{}, err
	}

	req := domain.CompletionRequest{Model: model, Messages: messages}
	if ok {
		req.Temperature = cfg.Temperature
	}

	if rt.VerboseLogging(ctx) {
		log.Debug().
			Str("scope", string(scope)).
			Str("model", model).
			Interface("messages", messages).
			Msg("Completion request")
	}

	return req, nil
}

func (h *Handler) logUsage(ctx context.Context, rt *props.Runtime, result domain.CompletionResult) {
	price, err := rt.PricePerToken(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read token price")
	}

	total := result.PromptTokens + result.CompletionTokens
	e := log.Info().
		Int("prompt_tokens", result.PromptTokens).
		Int("completion_tokens", result.CompletionTokens)
	if price > 0 {
		e = e.Float64("cost", float64(total)*price)
	}
	e.Msg("Completion usage")
}
