package reconcile

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"assignment-status/internal/domain"
)

// Cache keeps recent join tuples per (student, course set). It never holds statuses: a hit is
// re-derived against the current clock. A nil *Cache is a disabled cache.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	// gens and epoch only grow; a pass may store its tuples only if neither moved since it started.
	gens  map[string]uint64
	epoch uint64
}

type cacheEntry struct {
	studentID string
	tuples    []Tuple
	expires   time.Time
}

// NewCache returns nil when ttl <= 0.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return nil
	}
	return &Cache{ttl: ttl, now: time.Now, entries: map[string]cacheEntry{}, gens: map[string]uint64{}}
}

// CacheKey depends on the enrollment, so a changed course set never hits an old entry.
// Every id is length-prefixed, so ids containing separators cannot collide.
func CacheKey(studentID string, courses []domain.Course) string {
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)

	var b strings.Builder
	writeField := func(v string) {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	writeField(studentID)
	b.WriteByte('|')
	for _, id := range ids {
		writeField(id)
	}
	return b.String()
}

// Generation changes whenever the student's entries are invalidated. Read it before fetching
// and hand it to Put.
func (c *Cache) Generation(studentID string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch + c.gens[studentID]
}

func (c *Cache) Get(key string) ([]Tuple, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return append([]Tuple(nil), e.tuples...), true
}

// Put stores tuples fetched under gen. It refuses, and returns false, when an invalidation
// for the student happened after gen was read.
func (c *Cache) Put(key, studentID string, gen uint64, tuples []Tuple) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch+c.gens[studentID] != gen {
		return false
	}

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{
		studentID: studentID,
		tuples:    append([]Tuple(nil), tuples...),
		expires:   now.Add(c.ttl),
	}
	return true
}

// Invalidate drops every entry of the student and reports how many were removed.
func (c *Cache) Invalidate(studentID string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[studentID]++
	n := 0
	for k, e := range c.entries {
		if e.studentID == studentID {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *Cache) InvalidateAll() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	n := len(c.entries)
	c.entries = map[string]cacheEntry{}
	return n
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
