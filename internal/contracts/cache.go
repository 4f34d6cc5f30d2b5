package contracts

import (
	"log"
	"sync"

	"github.com/huber0203/shioaji-gateway/internal/broker"
)

// Entry is one cached instrument under its composite key. A warrant is
// reachable under two entries: its stock key and a warrant alias key, both
// holding the same contract.
type Entry struct {
	Key      string
	Market   string
	Contract broker.Contract
}

// Cache is the process-lifetime instrument lookup, built exactly once from
// the contract directories and never refreshed. Staleness against the live
// instrument universe is accepted for the life of the process.
type Cache struct {
	mu        sync.Mutex
	populated bool
	entries   []Entry
	byKey     map[string]int
}

func NewCache() *Cache {
	return &Cache{byKey: make(map[string]int)}
}

// Populate builds the cache from the directory. It is a no-op once the cache
// has been populated; concurrent callers serialize on the lock, so only the
// first does the work. Returns true when this call performed the build.
func (c *Cache) Populate(dir *broker.Directory) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.populated {
		return false
	}

	for _, v := range []broker.Venue{broker.VenueTSE, broker.VenueOTC, broker.VenueOES} {
		board, ok := boardFor(dir, v)
		if !ok {
			log.Printf("contracts: %s not supported", v)
			continue
		}
		for _, ct := range board {
			if ct.Code == "" {
				continue
			}
			c.add("stock_"+ct.Code, string(v), ct)
			if ct.Category == broker.CategoryWarrant {
				c.add("warrant_"+ct.Code, string(v)+"_Warrant", ct)
			}
		}
	}
	for _, ct := range dir.Futures {
		if ct.Code != "" {
			c.add("futures_"+ct.Code, "Futures", ct)
		}
	}
	for _, ct := range dir.Options {
		if ct.Code != "" {
			c.add("options_"+ct.Code, "Options", ct)
		}
	}

	c.populated = true
	log.Printf("contracts: cached %d entries", len(c.entries))
	return true
}

func boardFor(dir *broker.Directory, v broker.Venue) ([]broker.Contract, bool) {
	switch v {
	case broker.VenueTSE:
		return dir.Stocks.TSE, true
	case broker.VenueOTC:
		return dir.Stocks.OTC, true
	case broker.VenueOES:
		if dir.Stocks.OES == nil {
			return nil, false
		}
		return dir.Stocks.OES, true
	}
	return nil, false
}

func (c *Cache) add(key, market string, ct broker.Contract) {
	if i, ok := c.byKey[key]; ok {
		// Same composite key seen again: later entry wins in place.
		c.entries[i] = Entry{Key: key, Market: market, Contract: ct}
		return
	}
	c.byKey[key] = len(c.entries)
	c.entries = append(c.entries, Entry{Key: key, Market: market, Contract: ct})
}

// Populated reports whether the one-time build has happened.
func (c *Cache) Populated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.populated
}

// All returns every entry in insertion order, warrant aliases included.
func (c *Cache) All() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Get looks up a single entry by composite key.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Len returns the number of entries, warrant aliases included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
