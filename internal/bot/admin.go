package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/props"
)

// cmdInit sets or clears the global initialization sequence, stored as a
// single synthetic user message prepended to every completion request.
func (h *Handler) cmdInit(ctx context.Context, rt *props.Runtime, args string) (domain.Response, error) {
	typed := rt.Typed()

	if args == "" {
		if _, err := typed.DeleteExisting(ctx, props.KeyInit); err != nil {
			return domain.Response{}, err
		}
		return domain.Response{Text: "Initialization sequence cleared."}, nil
	}

	msgs := []domain.ChatMessage{{Role: domain.RoleUser, Content: args}}
	if err := typed.SetJSON(ctx, props.KeyInit, msgs); err != nil {
		return domain.Response{}, err
	}
	return domain.Response{Text: "Initialization sequence updated."}, nil
}

// cmdShow lists properties. Without arguments every non-secret, non-internal
// property is shown. Explicitly requested secret or internal properties are
// reported as hidden rather than silently omitted.
func (h *Handler) cmdShow(ctx context.Context, args string) (domain.Response, error) {
	requested := strings.Fields(args)

	var lines []string

	if len(requested) == 0 {
		keys, err := h.store.ListKeys(ctx)
		if err != nil {
			return domain.Response{}, err
		}
		sort.Strings(keys)

		for _, key := range keys {
			if props.IsSecretKey(key) || props.IsInternalKey(key) {
				continue
			}
			value, _, err := h.store.Get(ctx, key)
			if err != nil {
				return domain.Response{}, err
			}
			lines = append(lines, fmt.Sprintf("%s: %s", key, value))
		}

		if len(lines) == 0 {
			return domain.Response{Text: "No properties set."}, nil
		}
		return domain.Response{Text: strings.Join(lines, "\n")}, nil
	}

	for _, key := range requested {
		if props.IsSecretKey(key) || props.IsInternalKey(key) {
			lines = append(lines, fmt.Sprintf("%s: (hidden)", key))
			continue
		}

		value, ok, err := h.store.Get(ctx, key)
		if err != nil {
			return domain.Response{}, err
		}
		if !ok {
			lines = append(lines, fmt.Sprintf("%s: (not set)", key))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", key, value))
	}

	return domain.Response{Text: strings.Join(lines, "\n")}, nil
}

// cmdSet writes or deletes one property. The API key, the admin list and
// internally-prefixed keys are never touchable through chat, regardless of
// caller.
func (h *Handler) cmdSet(ctx context.Context, args string) (domain.Response, error) {
	name, value := splitNameValue(args)
	if name == "" {
		return domain.Response{}, domain.E(domain.KindInvalidArguments, "property name is required, expected /set <property> [<value>]")
	}

	if props.IsSecretKey(name) || props.IsInternalKey(name) {
		return domain.Response{}, domain.Ef(domain.KindUnauthorized, "property %q cannot be changed through chat", name)
	}

	typed := props.NewTyped(h.store)

	if value == "" {
		existed, err := typed.DeleteExisting(ctx, name)
		if err != nil {
			return domain.Response{}, err
		}
		if !existed {
			return domain.Response{Text: fmt.Sprintf("Property %s was not set.", name)}, nil
		}
		return domain.Response{Text: fmt.Sprintf("Property %s deleted.", name)}, nil
	}

	if err := h.store.Set(ctx, name, value); err != nil {
		return domain.Response{}, err
	}
	return domain.Response{Text: fmt.Sprintf("Property %s updated.", name)}, nil
}

// splitNameValue splits "NAME rest of value" on the first whitespace run.
// The value keeps its interior formatting, which may span lines.
func splitNameValue(args string) (string, string) {
	idx := strings.IndexFunc(args, unicode.IsSpace)
	if idx < 0 {
		return args, ""
	}
	return args[:idx], strings.TrimSpace(args[idx:])
}
