package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/chatrelay/chatrelay/internal/command"
	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/props"
	"github.com/chatrelay/chatrelay/internal/scopeconfig"
)

// dispatch routes a parsed command. It reports handled=false for a
// well-formed but unrecognized command name, in which case the caller treats
// the whole message as ordinary conversation.
func (h *Handler) dispatch(ctx context.Context, rt *props.Runtime, ev domain.MessageReceived, cmd *command.Command) (domain.Response, bool, error) {
	run := func(resp domain.Response, err error) (domain.Response, bool, error) {
		return resp, true, err
	}

	switch cmd.Name {
	case "help":
		return run(h.cmdHelp(ctx, rt, ev))
	case "intro":
		return run(h.cmdIntro(ctx, rt, ev))
	case "image":
		return run(h.cmdImage(ctx, ev.Scope, cmd.Args))
	case "again":
		return run(h.cmdAgain(ctx, rt, ev.Scope))
	case "instruct":
		return run(h.cmdInstruct(ctx, ev.Scope, cmd.Args))
	case "history":
		return run(h.cmdHistory(ctx, ev.Scope, cmd.Args))
	case "init":
		if err := h.requireAdmin(ctx, rt, ev); err != nil {
			return domain.Response{}, true, err
		}
		return run(h.cmdInit(ctx, rt, cmd.Args))
	case "show":
		if err := h.requireAdmin(ctx, rt, ev); err != nil {
			return domain.Response{}, true, err
		}
		return run(h.cmdShow(ctx, cmd.Args))
	case "set":
		if err := h.requireAdmin(ctx, rt, ev); err != nil {
			return domain.Response{}, true, err
		}
		return run(h.cmdSet(ctx, cmd.Args))
	}

	return domain.Response{}, false, nil
}

// requireAdmin enforces the admin tier: a direct one-to-one conversation and
// a sender on the ADMINS allow-list. Violations are unauthorized errors,
// distinct from parse and argument errors.
func (h *Handler) requireAdmin(ctx context.Context, rt *props.Runtime, ev domain.MessageReceived) error {
	if !ev.OneToOne {
		return domain.E(domain.KindUnauthorized, "admin commands are only available in a direct conversation with the bot")
	}

	isAdmin, err := rt.IsAdmin(ctx, ev.Sender)
	if err != nil {
		return err
	}
	if !isAdmin {
		return domain.E(domain.KindUnauthorized, "you are not authorized to use admin commands")
	}
	return nil
}

func (h *Handler) cmdHelp(ctx context.Context, rt *props.Runtime, ev domain.MessageReceived) (domain.Response, error) {
	text := helpText

	if ev.OneToOne {
		isAdmin, err := rt.IsAdmin(ctx, ev.Sender)
		if err != nil {
			return domain.Response{}, err
		}
		if isAdmin {
			text += "\n" + adminHelpText
		}
	}

	return domain.Response{Text: text}, nil
}

// cmdIntro returns the static introduction, best-effort extended with a
// one-shot completion self-introduction. A completion failure is logged and
// swallowed; the static text still ships.
func (h *Handler) cmdIntro(ctx context.Context, rt *props.Runtime, ev domain.MessageReceived) (domain.Response, error) {
	text := introText

	req, err := h.selfIntroRequest(ctx, rt)
	if err == nil {
		var result domain.CompletionResult
		result, err = h.completer.Complete(ctx, req)
		if err == nil {
			text += "\n\n" + result.Text
		}
	}
	if err != nil {
		log.Warn().Err(err).Msg("Self-introduction completion failed")
	}

	return domain.Response{Text: text}, nil
}

func (h *Handler) selfIntroRequest(ctx context.Context, rt *props.Runtime) (domain.CompletionRequest, error) {
	initSeq, err := rt.InitSequence(ctx)
	if err != nil {
		return domain.CompletionRequest{}, err
	}

	model, err := rt.Model(ctx)
	if err != nil {
		return domain.CompletionRequest{}, err
	}

	messages := append([]domain.ChatMessage(nil), initSeq...)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleUser,
		Content: "Please introduce yourself in one short paragraph.",
	})

	return domain.CompletionRequest{Model: model, Messages: messages}, nil
}

// cmdInstruct sets or clears the scope's instruction override. New
// instructions pass through moderation first.
func (h *Handler) cmdInstruct(ctx context.Context, scope domain.Scope, args string) (domain.Response, error) {
	if args == "" {
		err := h.scopeCfg.Update(ctx, scope, func(c *scopeconfig.Config) {
			c.Instructions = ""
		})
		if err != nil {
			return domain.Response{}, err
		}
		return domain.Response{Text: "Instructions cleared."}, nil
	}

	flagged, err := h.moderator.Moderate(ctx, args)
	if err != nil {
		return domain.Response{}, err
	}
	if flagged {
		return domain.Response{}, domain.E(domain.KindFlagged, "the instructions were flagged by content moderation")
	}

	err = h.scopeCfg.Update(ctx, scope, func(c *scopeconfig.Config) {
		c.Instructions = args
	})
	if err != nil {
		return domain.Response{}, err
	}
	return domain.Response{Text: "Instructions updated."}, nil
}

// cmdHistory renders the scope's transcript, or clears it.
func (h *Handler) cmdHistory(ctx context.Context, scope domain.Scope, args string) (domain.Response, error) {
	switch args {
	case "clear":
		if err := h.history.ClearHistory(ctx, scope); err != nil {
			return domain.Response{}, err
		}
		return domain.Response{Text: "History cleared."}, nil
	case "":
	default:
		return domain.Response{}, domain.Ef(domain.KindInvalidArguments, "unknown history argument %q, expected /history [clear]", args)
	}

	ledger, err := h.history.GetHistory(ctx, scope, "", false)
	if err != nil {
		return domain.Response{}, err
	}

	var b strings.Builder

	instructions, ok, err := h.scopeCfg.Instructions(ctx, scope)
	if err != nil {
		return domain.Response{}, err
	}
	if ok {
		fmt.Fprintf(&b, "Instructions: %s\n\n", instructions)
	}

	if len(ledger.Entries) == 0 {
		b.WriteString("History is empty.")
	}
	for i, e := range ledger.Entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s: %s", e.Timestamp.Format("2006-01-02 15:04"), e.Role, e.Text)
	}

	return domain.Response{Text: b.String()}, nil
}
