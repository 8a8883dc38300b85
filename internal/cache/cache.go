// Package cache is the two-tier translation cache: a bounded in-process fast
// tier in front of a durable key-value store. Entries are keyed by the
// (text, source language, target language) triple and expire after a TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"github.com/khiemphamm/translate-json/pkg/log"
	"golang.org/x/sync/singleflight"
)

// Entry is one cached translation.
type Entry struct {
	Key            string
	SourceText     string
	SourceLanguage string
	TargetLanguage string
	TranslatedText string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// DurableStore is the durable tier contract. Implementations must filter
// expired entries on read and support a timestamp sweep.
type DurableStore interface {
	GetEntry(ctx context.Context, key string, now time.Time) (Entry, bool, error)
	PutEntry(ctx context.Context, entry Entry) error
	DeleteEntry(ctx context.Context, key string) error
	DeleteExpiredEntries(ctx context.Context, now time.Time) (int64, error)
	ClearEntries(ctx context.Context) error
}

// Key derives the cache key from the triple. Length-prefixing each part
// before hashing keeps ("ab","c") and ("a","bc") distinct, so identical text
// translated between different language pairs never collides.
func Key(text, sourceLang, targetLang string) string {
	h := sha256.New()
	for _, part := range []string{sourceLang, targetLang, text} {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(part)))
		h.Write(size[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Promotions uint64
}

// Cache coordinates the fast and durable tiers. Safe for concurrent use;
// durable failures are logged and degrade to a miss, never an error.
type Cache struct {
	capacity int
	ttl      time.Duration
	store    DurableStore

	mu      sync.Mutex
	entries map[string]Entry
	order   []string // insertion order for FIFO eviction
	stats   Stats

	group singleflight.Group
	now   func() time.Time
}

// New creates a cache with the given fast-tier capacity and entry TTL. The
// durable store may be nil, leaving only the fast tier active.
func New(store DurableStore, capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		store:    store,
		entries:  make(map[string]Entry),
		now:      time.Now,
	}
}

// Get returns the cached translation for the triple, or false on a miss.
// Expired entries behave as misses. A durable hit is promoted to the fast
// tier; concurrent identical durable lookups are collapsed to one query.
func (c *Cache) Get(ctx context.Context, text, sourceLang, targetLang string) (string, bool) {
	key := Key(text, sourceLang, targetLang)
	now := c.now()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if now.Before(entry.ExpiresAt) {
			c.stats.Hits++
			c.mu.Unlock()
			return entry.TranslatedText, true
		}
		c.removeLocked(key)
	}
	c.mu.Unlock()

	if c.store == nil {
		c.miss()
		return "", false
	}

	type lookup struct {
		entry Entry
		found bool
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		entry, found, err := c.store.GetEntry(ctx, key, now)
		return lookup{entry: entry, found: found}, err
	})
	if err != nil {
		log.Warn("Durable cache lookup failed, treating as miss: %v", err)
		c.miss()
		return "", false
	}
	result := v.(lookup)
	if !result.found {
		c.miss()
		return "", false
	}

	c.mu.Lock()
	c.insertLocked(result.entry)
	c.stats.Hits++
	c.stats.Promotions++
	c.mu.Unlock()
	return result.entry.TranslatedText, true
}

// Set writes the translation through both tiers.
func (c *Cache) Set(ctx context.Context, text, sourceLang, targetLang, translatedText string) {
	now := c.now()
	entry := Entry{
		Key:            Key(text, sourceLang, targetLang),
		SourceText:     text,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		TranslatedText: translatedText,
		CreatedAt:      now,
		ExpiresAt:      now.Add(c.ttl),
	}

	c.mu.Lock()
	c.insertLocked(entry)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.PutEntry(ctx, entry); err != nil {
			log.Warn("Durable cache write failed: %v", err)
		}
	}
}

// CleanupExpired sweeps entries past their TTL from both tiers and returns
// how many were removed. The fast-tier sweep is a filtering pass under the
// lock, so it never corrupts in-flight lookups.
func (c *Cache) CleanupExpired(ctx context.Context) (fastRemoved int, durableRemoved int64) {
	now := c.now()

	c.mu.Lock()
	kept := c.order[:0]
	for _, key := range c.order {
		entry, ok := c.entries[key]
		if !ok {
			continue
		}
		if now.Before(entry.ExpiresAt) {
			kept = append(kept, key)
			continue
		}
		delete(c.entries, key)
		fastRemoved++
	}
	c.order = kept
	c.mu.Unlock()

	if c.store != nil {
		removed, err := c.store.DeleteExpiredEntries(ctx, now)
		if err != nil {
			log.Warn("Durable cache sweep failed: %v", err)
		} else {
			durableRemoved = removed
		}
	}
	return fastRemoved, durableRemoved
}

// Clear empties both tiers.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.order = nil
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.ClearEntries(ctx); err != nil {
			log.Warn("Durable cache clear failed: %v", err)
		}
	}
}

// Stats returns a snapshot of the cumulative counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len reports the fast-tier entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) miss() {
	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()
}

// insertLocked adds or updates an entry, evicting the oldest-inserted entry
// when the fast tier is full. Eviction order is insertion order, not access
// order.
func (c *Cache) insertLocked(entry Entry) {
	if _, exists := c.entries[entry.Key]; exists {
		c.entries[entry.Key] = entry
		return
	}
	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.stats.Evictions++
	}
	c.entries[entry.Key] = entry
	c.order = append(c.order, entry.Key)
}

func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
