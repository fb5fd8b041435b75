package layout

import "github.com/mubtakir/bayan-sub000/internal/types"

type cacheEntry struct {
	Layout TypeLayout
	Err    *LayoutError
}

type cache struct {
	byType map[types.TypeID]*cacheEntry
}

func newCache() *cache {
	return &cache{byType: make(map[types.TypeID]*cacheEntry, 256)}
}

func (c *cache) get(id types.TypeID) (*cacheEntry, bool) {
	entry, ok := c.byType[id]
	return entry, ok
}

func (c *cache) put(id types.TypeID, entry *cacheEntry) {
	if entry == nil {
		delete(c.byType, id)
		return
	}
	c.byType[id] = entry
}
