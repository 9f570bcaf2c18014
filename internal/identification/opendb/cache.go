package opendb

import (
	"sync"

	"discshelf/internal/normalize"
)

// IndexCache holds the barcode and title indexes for one session.
type IndexCache struct {
	load   sync.Mutex
	mu     sync.RWMutex
	loaded bool
	upc    map[string]Record
	titles map[string][]Record
}

// NewIndexCache returns an empty, unloaded cache.
func NewIndexCache() *IndexCache {
	return &IndexCache{}
}

// Loaded reports whether the indexes have been fetched.
func (c *IndexCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *IndexCache) store(upc map[string]Record, titles map[string][]Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upc = upc
	c.titles = titles
	c.loaded = true
}

// Size returns the number of barcode and title keys held.
func (c *IndexCache) Size() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.upc), len(c.titles)
}

// LookupUPC returns the first indexed record among the code variants.
func (c *IndexCache) LookupUPC(variants []string) (Record, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, code := range variants {
		if record, ok := c.upc[code]; ok && record.Valid() {
			return record, code, true
		}
	}
	return Record{}, "", false
}

// LookupTitle returns the records filed under the normalized form of title.
func (c *IndexCache) LookupTitle(title string) []Record {
	key := normalize.NormalizeTitle(title)
	if key == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	records := c.titles[key]
	out := make([]Record, 0, len(records))
	for _, record := range records {
		if record.Valid() {
			out = append(out, record)
		}
	}
	return out
}
