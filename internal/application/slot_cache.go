package application

import (
	"sync"
	"time"

	"github.com/example/roombook/internal/timeslot"
)

// slotCache stores recently computed day-slot annotations to avoid repeated
// repository queries for identical room-day requests while the booking set
// remains unchanged. Mutations invalidate the affected room.
type slotCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]slotCacheEntry
}

type slotCacheEntry struct {
	roomID    string
	slots     []timeslot.Slot
	expiresAt time.Time
}

func newSlotCache(ttl time.Duration, maxEntries int, now func() time.Time) *slotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &slotCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]slotCacheEntry),
	}
}

func slotCacheKey(roomID string, date time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return roomID + "|" + date.In(loc).Format("2006-01-02")
}

func (c *slotCache) Get(key string) ([]timeslot.Slot, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneSlots(entry.slots), true
}

func (c *slotCache) Store(key, roomID string, slots []timeslot.Slot) {
	if c == nil {
		return
	}
	cloned := cloneSlots(slots)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = slotCacheEntry{roomID: roomID, slots: cloned, expiresAt: expiry}
}

// InvalidateRoom drops every cached day for the room. Called after a
// successful create or cancel so occupancy annotations never lag behind a
// mutation made through this process.
func (c *slotCache) InvalidateRoom(roomID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.roomID == roomID {
			delete(c.entries, key)
		}
	}
}

func (c *slotCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *slotCache) evictOneLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func cloneSlots(slots []timeslot.Slot) []timeslot.Slot {
	if len(slots) == 0 {
		return nil
	}
	cloned := make([]timeslot.Slot, len(slots))
	copy(cloned, slots)
	return cloned
}
