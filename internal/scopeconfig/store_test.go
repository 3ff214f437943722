package scopeconfig

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/chatrelay/internal/props"
)

var testNow = time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)

func newTestStore() (*Store, *props.MemoryStore) {
	mem := props.NewMemoryStore()
	store := NewStore(mem)
	store.SetClock(func() time.Time { return testNow })
	return store, mem
}

func TestUpdateCreatesEntryLazily(t *testing.T) {
	store, mem := newTestStore()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "spaces/A")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Update(ctx, "spaces/A", func(c *Config) {
		c.Instructions = "be brief"
	}))

	instructions, ok, err := store.Instructions(ctx, "spaces/A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "be brief", instructions)

	_, present, err := mem.Get(ctx, Key)
	require.NoError(t, err)
	assert.True(t, present)
}

func TestUpdateGarbageCollectsEmptyEntry(t *testing.T) {
	store, mem := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "spaces/A", func(c *Config) {
		c.Instructions = "be brief"
	}))
	require.NoError(t, store.Update(ctx, "spaces/A", func(c *Config) {
		c.Instructions = ""
	}))

	_, ok, err := store.Get(ctx, "spaces/A")
	require.NoError(t, err)
	assert.False(t, ok)

	// With no entries left the whole map property disappears.
	_, present, err := mem.Get(ctx, Key)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestUpdateKeepsEntryWhileAnyFieldIsSet(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	temp := float32(0.4)
	require.NoError(t, store.Update(ctx, "spaces/A", func(c *Config) {
		c.Instructions = "be brief"
		c.Temperature = &temp
	}))
	require.NoError(t, store.Update(ctx, "spaces/A", func(c *Config) {
		c.Instructions = ""
	}))

	cfg, ok, err := store.Get(ctx, "spaces/A")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.4, float64(*cfg.Temperature), 0.0001)
}

func TestRemoveDropsOnlyTheGivenScope(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "spaces/A", func(c *Config) { c.Instructions = "a" }))
	require.NoError(t, store.Update(ctx, "spaces/B", func(c *Config) { c.Instructions = "b" }))

	require.NoError(t, store.Remove(ctx, "spaces/A"))

	_, ok, err := store.Get(ctx, "spaces/A")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Get(ctx, "spaces/B")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetRefreshesStaleLastUsed(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "spaces/A", func(c *Config) { c.Instructions = "a" }))

	later := testNow.Add(48 * time.Hour)
	store.SetClock(func() time.Time { return later })

	cfg, ok, err := store.Get(ctx, "spaces/A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cfg.LastUsed.Equal(later))

	// The refreshed timestamp is persisted: a fresh read stays recent.
	reloaded, ok, err := store.Get(ctx, "spaces/A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, reloaded.LastUsed.Equal(later))
}

func TestGetDoesNotRefreshRecentLastUsed(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "spaces/A", func(c *Config) { c.Instructions = "a" }))

	soon := testNow.Add(time.Hour)
	store.SetClock(func() time.Time { return soon })

	cfg, ok, err := store.Get(ctx, "spaces/A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cfg.LastUsed.Equal(testNow))
}
