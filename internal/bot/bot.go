// Package bot ties the conversation core together: it parses incoming
// messages for slash commands, dispatches them, and otherwise runs the
// default completion pipeline over the scope's history ledger.
package bot

import (
	"context"
	"time"

	"github.com/chatrelay/chatrelay/internal/command"
	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/history"
	"github.com/chatrelay/chatrelay/internal/props"
	"github.com/chatrelay/chatrelay/internal/scopeconfig"
)

type Handler struct {
	store     domain.PropertyStore
	history   *history.Service
	scopeCfg  *scopeconfig.Store
	completer domain.Completer
	images    domain.ImageGenerator
	moderator domain.Moderator
	now       func() time.Time
}

type HandlerDependencies struct {
	Store          domain.PropertyStore
	History        *history.Service
	ScopeConfig    *scopeconfig.Store
	Completer      domain.Completer
	ImageGenerator domain.ImageGenerator
	Moderator      domain.Moderator
}

func NewHandler(deps HandlerDependencies) *Handler {
	return &Handler{
		store:     deps.Store,
		history:   deps.History,
		scopeCfg:  deps.ScopeConfig,
		completer: deps.Completer,
		images:    deps.ImageGenerator,
		moderator: deps.Moderator,
		now:       time.Now,
	}
}

// SetClock overrides the handler clock, for tests.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// HandleMessage processes one inbound chat message and returns the response
// to send back. Command-shaped text is dispatched; everything else, including
// well-formed commands with an unrecognized name, runs through the default
// completion pipeline.
func (h *Handler) HandleMessage(ctx context.Context, ev domain.MessageReceived) (domain.Response, error) {
	rt := props.NewRuntime(h.store)

	cmd, err := command.Parse(ev.Text)
	if err != nil {
		return domain.Response{}, err
	}

	if cmd != nil {
		resp, handled, err := h.dispatch(ctx, rt, ev, cmd)
		if handled || err != nil {
			return resp, err
		}
	}

	return h.completeMessage(ctx, rt, ev)
}

// HandleAdded greets a space the bot was just added to.
func (h *Handler) HandleAdded(ctx context.Context) (domain.Response, error) {
	return domain.Response{Text: introText}, nil
}

// HandleRemoved tears down every ledger under the removed space and its
// configuration override.
func (h *Handler) HandleRemoved(ctx context.Context, ev domain.ConversationRemoved) error {
	if err := h.history.RemoveHistoriesForScope(ctx, ev.Scope); err != nil {
		return err
	}
	return h.scopeCfg.Remove(ctx, ev.Scope)
}

// completeMessage is the default path: moderate the inbound text, fold it
// into the ledger, persist, then request a completion. The ledger is saved
// before the completion call so context survives an upstream failure.
func (h *Handler) completeMessage(ctx context.Context, rt *props.Runtime, ev domain.MessageReceived) (domain.Response, error) {
	flagged, err := h.moderator.Moderate(ctx, ev.Text)
	if err != nil {
		return domain.Response{}, err
	}
	if flagged {
		return domain.Response{}, domain.E(domain.KindFlagged, "your message was flagged by content moderation")
	}

	ledger, err := h.history.GetHistory(ctx, ev.Scope, ev.Text, true)
	if err != nil {
		return domain.Response{}, err
	}
	if err := h.history.SaveHistory(ctx, ledger); err != nil {
		return domain.Response{}, err
	}

	return h.completeFromLedger(ctx, rt, ev.Scope, ledger)
}
