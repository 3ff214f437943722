package props

import (
	"context"
	"regexp"
	"strings"

	"github.com/chatrelay/chatrelay/internal/domain"
)

// Property keys reserved by the bot. Keys starting with InternalPrefix hold
// bot-internal state (history ledgers, the scope configuration map) and are
// never exposed through admin commands.
const (
	KeyAPIKey         = "OPENAI_API_KEY"
	KeyAdmins         = "ADMINS"
	KeyModel          = "MODEL"
	KeyBaseURL        = "OPENAI_BASE_URL"
	KeyInit           = "INIT"
	KeyHistoryMinutes = "HISTORY_MINUTES"
	KeyPricePerToken  = "PRICE_PER_TOKEN"
	KeyVerboseLogging = "VERBOSE_LOGGING"

	InternalPrefix = "_"
)

// DefaultModel is used when no MODEL property is set.
const DefaultModel = "gpt-3.5-turbo"

// DefaultHistoryMinutes is the retention window when HISTORY_MINUTES is
// unset.
const DefaultHistoryMinutes = 60

// IsSecretKey reports whether key must never be shown or mutated through
// chat commands.
func IsSecretKey(key string) bool {
	return key == KeyAPIKey || key == KeyAdmins
}

// IsInternalKey reports whether key belongs to the bot's reserved internal
// namespace.
func IsInternalKey(key string) bool {
	return strings.HasPrefix(key, InternalPrefix)
}

var adminListSeparators = regexp.MustCompile(`[,\s]+`)

// SplitAdminList splits the ADMINS property on commas and whitespace.
func SplitAdminList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return adminListSeparators.Split(raw, -1)
}

// Runtime is a per-event view of the named runtime properties. One Runtime is
// constructed for each inbound event and discarded afterwards; it memoizes
// raw reads so a single event handling never reads the same property twice,
// without any process-global cache surviving across events.
type Runtime struct {
	typed *Typed
	memo  map[string]memoEntry
}

type memoEntry struct {
	value string
	ok    bool
}

func NewRuntime(store domain.PropertyStore) *Runtime {
	return &Runtime{
		typed: NewTyped(store),
		memo:  map[string]memoEntry{},
	}
}

func (r *Runtime) Typed() *Typed {
	return r.typed
}

func (r *Runtime) get(ctx context.Context, key string) (string, bool, error) {
	if e, ok := r.memo[key]; ok {
		return e.value, e.ok, nil
	}

	v, ok, err := r.typed.GetString(ctx, key)
	if err != nil {
		return "", false, err
	}

	r.memo[key] = memoEntry{value: v, ok: ok}
	return v, ok, nil
}

// APIKey returns the completion provider key. An absent key is a config
// error: the bot cannot reach its provider without it.
func (r *Runtime) APIKey(ctx context.Context) (string, error) {
	v, ok, err := r.get(ctx, KeyAPIKey)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return "", domain.E(domain.KindConfig, "OPENAI_API_KEY property is not set")
	}
	return v, nil
}

func (r *Runtime) Model(ctx context.Context) (string, error) {
	v, ok, err := r.get(ctx, KeyModel)
	if err != nil || !ok || v == "" {
		return DefaultModel, err
	}
	return v, nil
}

func (r *Runtime) BaseURL(ctx context.Context) (string, error) {
	v, _, err := r.get(ctx, KeyBaseURL)
	return v, err
}

// Admins returns the parsed admin allow-list.
func (r *Runtime) Admins(ctx context.Context) ([]string, error) {
	v, ok, err := r.get(ctx, KeyAdmins)
	if err != nil || !ok {
		return nil, err
	}
	return SplitAdminList(v), nil
}

// IsAdmin reports whether sender appears in the admin allow-list.
func (r *Runtime) IsAdmin(ctx context.Context, sender string) (bool, error) {
	admins, err := r.Admins(ctx)
	if err != nil {
		return false, err
	}
	for _, a := range admins {
		if a == sender {
			return true, nil
		}
	}
	return false, nil
}

// InitSequence returns the global initialization messages prepended to every
// completion request. A stored value that fails to decode is a config error.
func (r *Runtime) InitSequence(ctx context.Context) ([]domain.ChatMessage, error) {
	raw, ok, err := r.get(ctx, KeyInit)
	if err != nil || !ok {
		return nil, err
	}

	var msgs []domain.ChatMessage
	if err := decodeJSONString(raw, &msgs); err != nil {
		return nil, domain.WrapError(domain.KindConfig, "INIT property holds a malformed message sequence", err)
	}
	return msgs, nil
}

// RetentionMinutes returns the history retention window.
func (r *Runtime) RetentionMinutes(ctx context.Context) (int, error) {
	raw, ok, err := r.get(ctx, KeyHistoryMinutes)
	if err != nil || !ok {
		return DefaultHistoryMinutes, err
	}

	minutes, parseErr := parsePositiveInt(raw)
	if parseErr != nil {
		return 0, domain.WrapError(domain.KindConfig, "HISTORY_MINUTES property is not a positive number", parseErr)
	}
	return minutes, nil
}

// PricePerToken returns the configured token price, 0 when unset.
func (r *Runtime) PricePerToken(ctx context.Context) (float64, error) {
	raw, ok, err := r.get(ctx, KeyPricePerToken)
	if err != nil || !ok {
		return 0, err
	}

	price, parseErr := parseFloat(raw)
	if parseErr != nil {
		return 0, domain.WrapError(domain.KindConfig, "PRICE_PER_TOKEN property is not a number", parseErr)
	}
	return price, nil
}

// VerboseLogging reports whether request and response bodies should be
// logged at debug level.
func (r *Runtime) VerboseLogging(ctx context.Context) bool {
	raw, ok, err := r.get(ctx, KeyVerboseLogging)
	if err != nil || !ok {
		return false
	}
	return raw == "true" || raw == "1"
}
