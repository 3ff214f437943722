// Package history maintains the per-scope conversation ledger: an ordered,
// time-pruned log of exchanged messages plus the most recent repeatable
// command, persisted as JSON in the property store.
package history

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/props"
)

// KeyPrefix namespaces ledger keys inside the flat property store.
const KeyPrefix = "_history:"

// Entry is one exchanged message.
type Entry struct {
	Timestamp time.Time   `json:"timestamp"`
	Role      domain.Role `json:"role"`
	Text      string      `json:"text"`
}

// RepeatableCommand remembers the raw arguments of the last replayable
// command (currently only /image) so /again can re-issue it verbatim.
type RepeatableCommand struct {
	Timestamp    time.Time `json:"timestamp"`
	RawArguments string    `json:"rawArguments"`
}

// Ledger is the per-scope history aggregate. Entries are kept in timestamp
// order; pruning only ever removes a prefix of them.
type Ledger struct {
	Scope       domain.Scope       `json:"scope"`
	LastUpdated time.Time          `json:"lastUpdated"`
	Entries     []Entry            `json:"entries"`
	Pending     *RepeatableCommand `json:"pendingCommand,omitempty"`
}

// Append adds a message with the current timestamp.
func (l *Ledger) Append(role domain.Role, text string, at time.Time) {
	l.Entries = append(l.Entries, Entry{Timestamp: at, Role: role, Text: text})
}

// DropTrailingAssistant removes assistant entries from the tail until the
// last entry is user-authored or the ledger is empty. Used by /again to
// rewind past the bot's own replies.
func (l *Ledger) DropTrailingAssistant() {
	for len(l.Entries) > 0 && l.Entries[len(l.Entries)-1].Role == domain.RoleAssistant {
		l.Entries = l.Entries[:len(l.Entries)-1]
	}
}

func (l *Ledger) prune(now time.Time, retention time.Duration) {
	sort.SliceStable(l.Entries, func(i, j int) bool {
		return l.Entries[i].Timestamp.Before(l.Entries[j].Timestamp)
	})

	idx := 0
	for idx < len(l.Entries) && now.Sub(l.Entries[idx].Timestamp) > retention {
		idx++
	}
	if idx > 0 {
		l.Entries = append([]Entry(nil), l.Entries[idx:]...)
	}

	if l.Pending != nil && now.Sub(l.Pending.Timestamp) > retention {
		l.Pending = nil
	}
}

// stale reports whether nothing in the ledger is younger than the retention
// window, in which case a sweep may delete it outright.
func (l *Ledger) stale(now time.Time, retention time.Duration) bool {
	newest := l.LastUpdated
	if n := len(l.Entries); n > 0 && l.Entries[n-1].Timestamp.After(newest) {
		newest = l.Entries[n-1].Timestamp
	}
	if l.Pending != nil && l.Pending.Timestamp.After(newest) {
		newest = l.Pending.Timestamp
	}
	return now.Sub(newest) > retention
}

// Service owns every read and write of persisted ledgers. It alone knows the
// key layout, the pruning policy and the save-retry behavior.
type Service struct {
	store domain.PropertyStore
	typed *props.Typed
	now   func() time.Time
}

func NewService(store domain.PropertyStore) *Service {
	return &Service{
		store: store,
		typed: props.NewTyped(store),
		now:   time.Now,
	}
}

// SetClock overrides the service clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func ledgerKey(scope domain.Scope) string {
	return KeyPrefix + string(scope)
}

func scopeOfKey(key string) (domain.Scope, bool) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return "", false
	}
	return domain.Scope(strings.TrimPrefix(key, KeyPrefix)), true
}

func (s *Service) retention(ctx context.Context) (time.Duration, error) {
	minutes, err := props.NewRuntime(s.store).RetentionMinutes(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(minutes) * time.Minute, nil
}

// GetHistory loads the ledger for scope, creating an empty one when absent
// or unreadable, prunes entries older than the retention window, and unless
// suppressed appends incomingText as a new user entry. The result is not
// persisted; callers decide when to save.
func (s *Service) GetHistory(ctx context.Context, scope domain.Scope, incomingText string, appendIncoming bool) (*Ledger, error) {
	retention, err := s.retention(ctx)
	if err != nil {
		return nil, err
	}

	ledger := &Ledger{Scope: scope}

	raw, ok, err := s.store.Get(ctx, ledgerKey(scope))
	if err != nil {
		return nil, err
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), ledger); err != nil {
			// Corrupt state heals as an empty ledger rather than failing the
			// conversation.
			log.Warn().Err(err).Str("scope", string(scope)).Msg("Discarding unreadable history ledger")
			ledger = &Ledger{}
		}
		ledger.Scope = scope
	}

	now := s.now()
	ledger.prune(now, retention)

	if appendIncoming {
		ledger.Append(domain.RoleUser, incomingText, now)
	}

	return ledger, nil
}

// SaveHistory persists the ledger. A global prune sweep runs first. When the
// store rejects the payload for size, the single oldest entry is dropped and
// the save retried, until it succeeds or nothing is left to drop.
func (s *Service) SaveHistory(ctx context.Context, ledger *Ledger) error {
	retention, err := s.retention(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	s.sweep(ctx, now, retention)

	ledger.LastUpdated = now

	for {
		raw, err := json.Marshal(ledger)
		if err != nil {
			return domain.WrapError(domain.KindPersistence, "failed to encode history ledger", err)
		}

		err = s.store.Set(ctx, ledgerKey(ledger.Scope), string(raw))
		if err == nil {
			return nil
		}
		if !domain.IsValueTooLarge(err) {
			return domain.WrapError(domain.KindPersistence, "failed to save history", err)
		}
		if len(ledger.Entries) == 0 {
			return domain.WrapError(domain.KindPersistence, "failed to save history", err)
		}

		log.Warn().
			Str("scope", string(ledger.Scope)).
			Int("entries", len(ledger.Entries)).
			Msg("History too large to save, dropping oldest entry")
		ledger.Entries = ledger.Entries[1:]
	}
}

// ClearHistory removes the persisted ledger for one scope.
func (s *Service) ClearHistory(ctx context.Context, scope domain.Scope) error {
	_, err := s.typed.DeleteExisting(ctx, ledgerKey(scope))
	return err
}

// RemoveHistoriesForScope deletes the ledger for parent and every thread
// ledger nested under it, used when the bot is removed from a space.
func (s *Service) RemoveHistoriesForScope(ctx context.Context, parent domain.Scope) error {
	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		scope, ok := scopeOfKey(key)
		if !ok || !parent.Contains(scope) {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// sweep deletes every persisted ledger that is stale beyond the retention
// window or fails to parse. It is best-effort: a sweep error never blocks the
// save that triggered it, and a concurrent writer losing its ledger to the
// sweep is an accepted race.
func (s *Service) sweep(ctx context.Context, now time.Time, retention time.Duration) {
	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("History sweep could not list keys")
		return
	}

	for _, key := range keys {
		if _, ok := scopeOfKey(key); !ok {
			continue
		}

		raw, ok, err := s.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}

		var ledger Ledger
		if err := json.Unmarshal([]byte(raw), &ledger); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Deleting corrupt history ledger")
			if delErr := s.store.Delete(ctx, key); delErr != nil {
				log.Warn().Err(delErr).Str("key", key).Msg("Failed to delete corrupt ledger")
			}
			continue
		}

		if ledger.stale(now, retention) {
			if err := s.store.Delete(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Failed to delete stale ledger")
			}
		}
	}
}
