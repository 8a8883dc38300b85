package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory DurableStore for exercising the two-tier path.
type memStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	gets    int
	failGet bool
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]Entry)}
}

func (m *memStore) GetEntry(_ context.Context, key string, now time.Time) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.failGet {
		return Entry{}, false, fmt.Errorf("store unavailable")
	}
	entry, ok := m.entries[key]
	if !ok || !now.Before(entry.ExpiresAt) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (m *memStore) PutEntry(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return fmt.Errorf("store unavailable")
	}
	m.entries[entry.Key] = entry
	return nil
}

func (m *memStore) DeleteEntry(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memStore) DeleteExpiredEntries(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for key, entry := range m.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *memStore) ClearEntries(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	return nil
}

func TestKey_DistinguishesLanguagePairs(t *testing.T) {
	assert.NotEqual(t, Key("Hello", "en", "fr"), Key("Hello", "en", "de"))
	assert.NotEqual(t, Key("Hello", "en", "fr"), Key("Hello", "fr", "en"))
	assert.NotEqual(t, Key("ab", "c", "d"), Key("a", "bc", "d"))
	assert.Equal(t, Key("Hello", "en", "fr"), Key("Hello", "en", "fr"))
}

func TestCache_SetThenGet(t *testing.T) {
	store := newMemStore()
	c := New(store, 10, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "Hello", "en", "fr", "Bonjour")

	got, ok := c.Get(ctx, "Hello", "en", "fr")
	require.True(t, ok)
	assert.Equal(t, "Bonjour", got)

	// Write-through reached the durable tier.
	_, found, err := store.GetEntry(ctx, Key("Hello", "en", "fr"), time.Now())
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCache_TTLBoundary(t *testing.T) {
	base := time.Now()
	current := base
	c := New(nil, 10, 100*time.Millisecond)
	c.now = func() time.Time { return current }
	ctx := context.Background()

	c.Set(ctx, "Hello", "en", "fr", "Bonjour")

	current = base.Add(100*time.Millisecond - time.Millisecond)
	_, ok := c.Get(ctx, "Hello", "en", "fr")
	assert.True(t, ok, "entry must be served just before TTL")

	current = base.Add(100*time.Millisecond + time.Millisecond)
	_, ok = c.Get(ctx, "Hello", "en", "fr")
	assert.False(t, ok, "entry must be a miss just after TTL")
}

func TestCache_DurableHitPromotesToFastTier(t *testing.T) {
	store := newMemStore()
	c := New(store, 10, time.Hour)
	ctx := context.Background()
	now := time.Now()

	key := Key("Hello", "en", "fr")
	store.entries[key] = Entry{
		Key:            key,
		SourceText:     "Hello",
		SourceLanguage: "en",
		TargetLanguage: "fr",
		TranslatedText: "Bonjour",
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Hour),
	}

	got, ok := c.Get(ctx, "Hello", "en", "fr")
	require.True(t, ok)
	assert.Equal(t, "Bonjour", got)
	require.Equal(t, 1, store.gets)

	// Second read is served by the fast tier.
	_, ok = c.Get(ctx, "Hello", "en", "fr")
	require.True(t, ok)
	assert.Equal(t, 1, store.gets)
	assert.EqualValues(t, 1, c.Stats().Promotions)
}

func TestCache_FIFOEviction(t *testing.T) {
	c := New(nil, 2, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "first", "en", "fr", "premier")
	c.Set(ctx, "second", "en", "fr", "deuxieme")

	// Touch "first" so LRU would keep it; FIFO must still evict it.
	_, ok := c.Get(ctx, "first", "en", "fr")
	require.True(t, ok)

	c.Set(ctx, "third", "en", "fr", "troisieme")

	_, ok = c.Get(ctx, "first", "en", "fr")
	assert.False(t, ok, "oldest-inserted entry must be evicted")
	_, ok = c.Get(ctx, "second", "en", "fr")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "third", "en", "fr")
	assert.True(t, ok)
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestCache_StoreFailureDegradesToMiss(t *testing.T) {
	store := newMemStore()
	store.failGet = true
	store.failPut = true
	c := New(store, 10, time.Hour)
	ctx := context.Background()

	_, ok := c.Get(ctx, "Hello", "en", "fr")
	assert.False(t, ok)

	// Set still lands in the fast tier even when the durable write fails.
	c.Set(ctx, "Hello", "en", "fr", "Bonjour")
	got, ok := c.Get(ctx, "Hello", "en", "fr")
	require.True(t, ok)
	assert.Equal(t, "Bonjour", got)
}

func TestCache_CleanupExpiredSweepsBothTiers(t *testing.T) {
	store := newMemStore()
	base := time.Now()
	current := base
	c := New(store, 10, 50*time.Millisecond)
	c.now = func() time.Time { return current }
	ctx := context.Background()

	c.Set(ctx, "one", "en", "fr", "un")
	c.Set(ctx, "two", "en", "fr", "deux")

	current = base.Add(time.Second)
	fastRemoved, durableRemoved := c.CleanupExpired(ctx)
	assert.Equal(t, 2, fastRemoved)
	assert.EqualValues(t, 2, durableRemoved)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentReadWriteCleanup(t *testing.T) {
	c := New(newMemStore(), 100, 20*time.Millisecond)
	ctx := context.Background()

	var wg sync.WaitGroup
	for worker := 0; worker < 4; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				text := fmt.Sprintf("text-%d-%d", worker, i)
				c.Set(ctx, text, "en", "fr", "translated")
				c.Get(ctx, text, "en", "fr")
				if i%10 == 0 {
					c.CleanupExpired(ctx)
				}
			}
		}(worker)
	}
	wg.Wait()

	// Entries written moments ago are still retrievable after the sweeps.
	c.Set(ctx, "final", "en", "fr", "finale")
	got, ok := c.Get(ctx, "final", "en", "fr")
	require.True(t, ok)
	assert.Equal(t, "finale", got)
}

func TestCache_Clear(t *testing.T) {
	store := newMemStore()
	c := New(store, 10, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "Hello", "en", "fr", "Bonjour")
	c.Clear(ctx)

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(ctx, "Hello", "en", "fr")
	assert.False(t, ok)
}
