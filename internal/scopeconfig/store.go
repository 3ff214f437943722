// Package scopeconfig stores optional per-conversation overrides: custom
// instructions and a sampling temperature. All scopes share one persisted
// JSON map; empty entries are garbage-collected on update.
package scopeconfig

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/props"
)

// Key is the single property under which every scope's configuration lives.
const Key = "_scopeConfigs"

// lastUsedRefreshAfter bounds how often a read refreshes the bookkeeping
// timestamp.
const lastUsedRefreshAfter = 24 * time.Hour

// Config is the override aggregate for one scope. A Config with no
// overridable field set is considered empty and removed from the map.
type Config struct {
	LastUsed     time.Time `json:"lastUsed"`
	Instructions string    `json:"instructions,omitempty"`
	Temperature  *float32  `json:"temperature,omitempty"`
}

func (c Config) empty() bool {
	return c.Instructions == "" && c.Temperature == nil
}

// Store owns the persisted scope-configuration map.
type Store struct {
	typed *props.Typed
	now   func() time.Time
}

func NewStore(store domain.PropertyStore) *Store {
	return &Store{
		typed: props.NewTyped(store),
		now:   time.Now,
	}
}

// SetClock overrides the store clock, for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) load(ctx context.Context) (map[string]Config, error) {
	configs := map[string]Config{}
	if _, err := s.typed.GetJSON(ctx, Key, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (s *Store) save(ctx context.Context, configs map[string]Config) error {
	if len(configs) == 0 {
		_, err := s.typed.DeleteExisting(ctx, Key)
		return err
	}
	return s.typed.SetJSON(ctx, Key, configs)
}

// Get returns the configuration for scope, if any. A hit older than a day
// gets its lastUsed timestamp refreshed and persisted, best-effort.
func (s *Store) Get(ctx context.Context, scope domain.Scope) (Config, bool, error) {
	configs, err := s.load(ctx)
	if err != nil {
		return Config{}, false, err
	}

	cfg, ok := configs[string(scope)]
	if !ok {
		return Config{}, false, nil
	}

	if now := s.now(); now.Sub(cfg.LastUsed) > lastUsedRefreshAfter {
		cfg.LastUsed = now
		configs[string(scope)] = cfg
		if err := s.save(ctx, configs); err != nil {
			log.Warn().Err(err).Str("scope", string(scope)).Msg("Failed to refresh scope config timestamp")
		}
	}

	return cfg, true, nil
}

// Instructions returns the instruction override for scope, if set.
func (s *Store) Instructions(ctx context.Context, scope domain.Scope) (string, bool, error) {
	cfg, ok, err := s.Get(ctx, scope)
	if err != nil || !ok || cfg.Instructions == "" {
		return "", false, err
	}
	return cfg.Instructions, true, nil
}

// Update loads or lazily creates the entry for scope, applies mutate to it,
// garbage-collects the entry when every overridable field is unset, then
// persists the whole map.
func (s *Store) Update(ctx context.Context, scope domain.Scope, mutate func(*Config)) error {
	configs, err := s.load(ctx)
	if err != nil {
		return err
	}

	cfg := configs[string(scope)]
	mutate(&cfg)
	cfg.LastUsed = s.now()

	if cfg.empty() {
		delete(configs, string(scope))
	} else {
		configs[string(scope)] = cfg
	}

	return s.save(ctx, configs)
}

// Remove drops the entry for scope outright.
func (s *Store) Remove(ctx context.Context, scope domain.Scope) error {
	configs, err := s.load(ctx)
	if err != nil {
		return err
	}

	if _, ok := configs[string(scope)]; !ok {
		return nil
	}

	delete(configs, string(scope))
	return s.save(ctx, configs)
}
