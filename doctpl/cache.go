package doctpl

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// TreeCache memoizes parsed templates by a hash of their dialect and markup. Entries are added
// once and never replaced or modified, so lookups need no locking. The zero value is ready to
// use; a nil *TreeCache disables caching.
type TreeCache struct {
	m    sync.Map // uint64 -> *Template
	size atomic.Int64
}

// Parse returns the cached template for markup, parsing and storing it on a miss. Templates
// that fail to parse are not cached.
func (c *TreeCache) Parse(markup string, d Dialect) (*Template, error) {
	if c == nil {
		return Parse(markup, d)
	}

	key := cacheKey(markup, d)
	if v, ok := c.m.Load(key); ok {
		t := v.(*Template)
		if t.Markup == markup {
			return t, nil
		}
		// hash collision: serve without caching
		return Parse(markup, d)
	}

	t, err := Parse(markup, d)
	if err != nil {
		return nil, err
	}
	v, loaded := c.m.LoadOrStore(key, t)
	if !loaded {
		c.size.Add(1)
		return t, nil
	}
	if cached := v.(*Template); cached.Markup == markup {
		return cached, nil
	}
	return t, nil
}

// Len returns the number of cached templates.
func (c *TreeCache) Len() int {
	if c == nil {
		return 0
	}
	return int(c.size.Load())
}

func cacheKey(markup string, d Dialect) uint64 {
	h := fnv.New64a()
	h.Write([]byte{byte(d)})
	h.Write([]byte(markup))
	return h.Sum64()
}
