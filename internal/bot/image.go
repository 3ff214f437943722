package bot

import (
	"context"

	"github.com/chatrelay/chatrelay/internal/command"
	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/history"
	"github.com/chatrelay/chatrelay/internal/props"
)

// cmdImage moderates the prompt, records the raw arguments as the scope's
// repeatable command, then requests image generation.
func (h *Handler) cmdImage(ctx context.Context, scope domain.Scope, args string) (domain.Response, error) {
	return h.runImage(ctx, scope, args)
}

// runImage is shared between /image and an /again replay; a replay passes the
// remembered raw arguments verbatim, so the resulting request is identical.
func (h *Handler) runImage(ctx context.Context, scope domain.Scope, rawArgs string) (domain.Response, error) {
	args, err := command.ParseImageArgs(rawArgs)
	if err != nil {
		return domain.Response{}, err
	}

	flagged, err := h.moderator.Moderate(ctx, args.Prompt)
	if err != nil {
		return domain.Response{}, err
	}
	if flagged {
		return domain.Response{}, domain.E(domain.KindFlagged, "the image prompt was flagged by content moderation")
	}

	ledger, err := h.history.GetHistory(ctx, scope, "", false)
	if err != nil {
		return domain.Response{}, err
	}
	ledger.Pending = &history.RepeatableCommand{Timestamp: h.now(), RawArguments: rawArgs}
	if err := h.history.SaveHistory(ctx, ledger); err != nil {
		return domain.Response{}, err
	}

	urls, err := h.images.GenerateImages(ctx, domain.ImageRequest{
		Prompt: args.Prompt,
		Count:  args.Count,
		Size:   args.Size,
	})
	if err != nil {
		return domain.Response{}, err
	}

	return domain.Response{Text: args.Prompt, ImageURLs: urls}, nil
}

// cmdAgain replays the last repeatable command when one is remembered.
// Otherwise it rewinds trailing assistant replies and re-requests completion
// over the remaining history.
func (h *Handler) cmdAgain(ctx context.Context, rt *props.Runtime, scope domain.Scope) (domain.Response, error) {
	ledger, err := h.history.GetHistory(ctx, scope, "", false)
	if err != nil {
		return domain.Response{}, err
	}

	if ledger.Pending != nil {
		return h.runImage(ctx, scope, ledger.Pending.RawArguments)
	}

	ledger.DropTrailingAssistant()
	if len(ledger.Entries) == 0 {
		return domain.Response{}, domain.E(domain.KindNothingToRepeat, "nothing to repeat")
	}

	if err := h.history.SaveHistory(ctx, ledger); err != nil {
		return domain.Response{}, err
	}

	return h.completeFromLedger(ctx, rt, scope, ledger)
}
