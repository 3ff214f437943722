package history

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/props"
)

var testNow = time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *props.MemoryStore) {
	store := props.NewMemoryStore()
	svc := NewService(store)
	svc.SetClock(func() time.Time { return testNow })
	return svc, store
}

func seedLedger(t *testing.T, store *props.MemoryStore, ledger *Ledger) {
	t.Helper()
	raw, err := json.Marshal(ledger)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), KeyPrefix+string(ledger.Scope), string(raw)))
}

func agedEntry(role domain.Role, text string, ageMinutes int) Entry {
	return Entry{
		Timestamp: testNow.Add(-time.Duration(ageMinutes) * time.Minute),
		Role:      role,
		Text:      text,
	}
}

func TestGetHistoryAppendsIncomingInOrder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	scope := domain.Scope("spaces/A")

	clock := testNow
	svc.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	for _, text := range []string{"one", "two", "three"} {
		ledger, err := svc.GetHistory(ctx, scope, text, true)
		require.NoError(t, err)
		require.NoError(t, svc.SaveHistory(ctx, ledger))
	}

	ledger, err := svc.GetHistory(ctx, scope, "", false)
	require.NoError(t, err)

	require.Len(t, ledger.Entries, 3)
	for i := 1; i < len(ledger.Entries); i++ {
		assert.False(t, ledger.Entries[i].Timestamp.Before(ledger.Entries[i-1].Timestamp))
	}
	assert.Equal(t, "one", ledger.Entries[0].Text)
	assert.Equal(t, "three", ledger.Entries[2].Text)
}

func TestGetHistoryPrunesExactlyTheStalePrefix(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	scope := domain.Scope("spaces/A")

	seedLedger(t, store, &Ledger{
		Scope:       scope,
		LastUpdated: testNow,
		Entries: []Entry{
			agedEntry(domain.RoleUser, "oldest", 120),
			agedEntry(domain.RoleAssistant, "old", 90),
			agedEntry(domain.RoleUser, "recent", 40),
			agedEntry(domain.RoleAssistant, "fresh", 5),
		},
	})

	ledger, err := svc.GetHistory(ctx, scope, "", false)
	require.NoError(t, err)

	require.Len(t, ledger.Entries, 2)
	assert.Equal(t, "recent", ledger.Entries[0].Text)
	assert.Equal(t, "fresh", ledger.Entries[1].Text)
}

func TestPruningIsIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	scope := domain.Scope("spaces/A")

	seedLedger(t, store, &Ledger{
		Scope:       scope,
		LastUpdated: testNow,
		Entries: []Entry{
			agedEntry(domain.RoleUser, "old", 90),
			agedEntry(domain.RoleUser, "recent", 10),
		},
	})

	first, err := svc.GetHistory(ctx, scope, "", false)
	require.NoError(t, err)
	require.NoError(t, svc.SaveHistory(ctx, first))

	second, err := svc.GetHistory(ctx, scope, "", false)
	require.NoError(t, err)

	assert.Equal(t, first.Entries, second.Entries)
}

func TestGetHistoryDropsExpiredPendingCommand(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	scope := domain.Scope("spaces/A")

	seedLedger(t, store, &Ledger{
		Scope:       scope,
		LastUpdated: testNow,
		Entries:     []Entry{agedEntry(domain.RoleUser, "hi", 5)},
		Pending: &RepeatableCommand{
			Timestamp:    testNow.Add(-2 * time.Hour),
			RawArguments: "a cat",
		},
	})

	ledger, err := svc.GetHistory(ctx, scope, "", false)
	require.NoError(t, err)
	assert.Nil(t, ledger.Pending)
}

func TestGetHistoryHealsCorruptLedger(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	scope := domain.Scope("spaces/A")

	require.NoError(t, store.Set(ctx, KeyPrefix+string(scope), "{not json"))

	ledger, err := svc.GetHistory(ctx, scope, "hello", true)
	require.NoError(t, err)
	require.Len(t, ledger.Entries, 1)
	assert.Equal(t, "hello", ledger.Entries[0].Text)
}

func TestSaveHistoryRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	scope := domain.Scope("spaces/A/threads/T")

	original := &Ledger{
		Scope: scope,
		Entries: []Entry{
			agedEntry(domain.RoleUser, "hi", 10),
			agedEntry(domain.RoleAssistant, "hello", 9),
		},
		Pending: &RepeatableCommand{Timestamp: testNow, RawArguments: "n=2 a cat"},
	}

	require.NoError(t, svc.SaveHistory(ctx, original))

	loaded, err := svc.GetHistory(ctx, scope, "", false)
	require.NoError(t, err)

	require.Len(t, loaded.Entries, 2)
	for i := range original.Entries {
		assert.True(t, loaded.Entries[i].Timestamp.Equal(original.Entries[i].Timestamp))
		assert.Equal(t, original.Entries[i].Role, loaded.Entries[i].Role)
		assert.Equal(t, original.Entries[i].Text, loaded.Entries[i].Text)
	}
	require.NotNil(t, loaded.Pending)
	assert.Equal(t, "n=2 a cat", loaded.Pending.RawArguments)
}

func TestSaveHistoryDropsOldestUntilItFits(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	scope := domain.Scope("spaces/A")
	store.MaxValueBytes = 400

	ledger := &Ledger{Scope: scope}
	for i := 0; i < 6; i++ {
		ledger.Entries = append(ledger.Entries, agedEntry(domain.RoleUser, "padding padding padding padding", 30-i))
	}

	require.NoError(t, svc.SaveHistory(ctx, ledger))

	loaded, err := svc.GetHistory(ctx, scope, "", false)
	require.NoError(t, err)

	require.NotEmpty(t, loaded.Entries)
	assert.Less(t, len(loaded.Entries), 6)
	// The newest entry always survives trimming.
	assert.True(t, loaded.Entries[len(loaded.Entries)-1].Timestamp.Equal(testNow.Add(-25*time.Minute)))
}

func TestSaveHistoryFailsWhenNothingLeftToDrop(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.MaxValueBytes = 10

	err := svc.SaveHistory(ctx, &Ledger{Scope: "spaces/A"})
	require.Error(t, err)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
	assert.Contains(t, err.Error(), "failed to save history")
}

func TestSaveHistorySurfacesNonSizeErrors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	failing := &failingStore{err: domain.E(domain.KindPersistence, "store offline")}
	svc = NewService(failing)
	svc.SetClock(func() time.Time { return testNow })

	ledger := &Ledger{Scope: "spaces/A", Entries: []Entry{agedEntry(domain.RoleUser, "hi", 1)}}
	err := svc.SaveHistory(ctx, ledger)
	require.Error(t, err)
	// No retry loop for non-size failures: the entry list is untouched.
	assert.Len(t, ledger.Entries, 1)
}

func TestRemoveHistoriesForScopeDeletesNestedThreads(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	for _, scope := range []domain.Scope{"spaces/A", "spaces/A/threads/T1", "spaces/A/threads/T2", "spaces/B"} {
		seedLedger(t, store, &Ledger{
			Scope:       scope,
			LastUpdated: testNow,
			Entries:     []Entry{agedEntry(domain.RoleUser, "hi", 1)},
		})
	}

	require.NoError(t, svc.RemoveHistoriesForScope(ctx, "spaces/A"))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyPrefix + "spaces/B"}, keys)
}

func TestSweepDeletesStaleAndCorruptLedgers(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	seedLedger(t, store, &Ledger{
		Scope:       "spaces/stale",
		LastUpdated: testNow.Add(-3 * time.Hour),
		Entries:     []Entry{agedEntry(domain.RoleUser, "old", 180)},
	})
	seedLedger(t, store, &Ledger{
		Scope:       "spaces/live",
		LastUpdated: testNow,
		Entries:     []Entry{agedEntry(domain.RoleUser, "hi", 1)},
	})
	require.NoError(t, store.Set(ctx, KeyPrefix+"spaces/corrupt", "oops"))
	require.NoError(t, store.Set(ctx, "MODEL", "gpt-4"))

	// Any save triggers the sweep.
	require.NoError(t, svc.SaveHistory(ctx, &Ledger{
		Scope:   "spaces/new",
		Entries: []Entry{agedEntry(domain.RoleUser, "hello", 0)},
	}))

	_, ok, err := store.Get(ctx, KeyPrefix+"spaces/stale")
	require.NoError(t, err)
	assert.False(t, ok, "stale ledger should be swept")

	_, ok, err = store.Get(ctx, KeyPrefix+"spaces/corrupt")
	require.NoError(t, err)
	assert.False(t, ok, "corrupt ledger should be swept")

	_, ok, err = store.Get(ctx, KeyPrefix+"spaces/live")
	require.NoError(t, err)
	assert.True(t, ok, "live ledger should survive the sweep")

	_, ok, err = store.Get(ctx, "MODEL")
	require.NoError(t, err)
	assert.True(t, ok, "non-ledger properties are never swept")
}

// failingStore rejects every write with a fixed error.
type failingStore struct {
	err error
}

func (s *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	return s.err
}

func (s *failingStore) Delete(ctx context.Context, key string) error {
	return nil
}

func (s *failingStore) ListKeys(ctx context.Context) ([]string, error) {
	return nil, nil
}
