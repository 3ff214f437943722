package props

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/chatrelay/chatrelay/internal/domain"
)

// Typed layers explicit codecs over the string-only PropertyStore. All
// persisted values are strings; parsing and validation happen here, at the
// adapter boundary, so business logic never sees raw encodings.
type Typed struct {
	store domain.PropertyStore
}

func NewTyped(store domain.PropertyStore) *Typed {
	return &Typed{store: store}
}

func (t *Typed) Store() domain.PropertyStore {
	return t.store
}

func (t *Typed) GetString(ctx context.Context, key string) (string, bool, error) {
	return t.store.Get(ctx, key)
}

func (t *Typed) GetFloat(ctx context.Context, key string) (float64, bool, error) {
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil || !ok {
		return 0, ok, err
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, domain.WrapError(domain.KindConfig, fmt.Sprintf("property %q is not a number", key), err)
	}
	return v, true, nil
}

func (t *Typed) GetBool(ctx context.Context, key string) (bool, bool, error) {
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil || !ok {
		return false, ok, err
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, domain.WrapError(domain.KindConfig, fmt.Sprintf("property %q is not a boolean", key), err)
	}
	return v, true, nil
}

// GetJSON decodes the stored value into out. A present but undecodable value
// is a config error, not a panic.
func (t *Typed) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, domain.WrapError(domain.KindConfig, fmt.Sprintf("property %q holds malformed JSON", key), err)
	}
	return true, nil
}

func (t *Typed) SetJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return domain.WrapError(domain.KindPersistence, fmt.Sprintf("failed to encode %q", key), err)
	}
	return t.store.Set(ctx, key, string(raw))
}

// DeleteExisting deletes key and reports whether it was present beforehand.
func (t *Typed) DeleteExisting(ctx context.Context, key string) (bool, error) {
	_, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return true, t.store.Delete(ctx, key)
}
