package hover

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"
)

type cacheItem struct {
	key    uint64
	source string
	val    *outcome
}

// Cache is a fixed-size LRU of compilation outcomes keyed by the xxhash of
// the source text. It is safe for concurrent use.
type Cache struct {
	maxNum int
	mutex  sync.Mutex
	data   *list.List
	index  map[uint64]*list.Element
}

func NewCache(maxNum int) *Cache {
	if maxNum < 1 {
		maxNum = 1
	}
	return &Cache{maxNum: maxNum, data: list.New(), index: make(map[uint64]*list.Element)}
}

func Key(source string) uint64 { return xxhash.Sum64String(source) }

// Get returns the cached outcome for source and marks it recently used.
func (c *Cache) Get(source string) (*outcome, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	e, ok := c.index[Key(source)]
	if !ok {
		return nil, false
	}
	item := e.Value.(cacheItem)
	if item.source != source {
		return nil, false
	}
	c.data.MoveToFront(e)
	return item.val, true
}

// Put stores val, evicting the least recently used entry when full.
func (c *Cache) Put(source string, val *outcome) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	key := Key(source)
	if e, ok := c.index[key]; ok {
		e.Value = cacheItem{key: key, source: source, val: val}
		c.data.MoveToFront(e)
		return
	}
	if c.data.Len() == c.maxNum {
		back := c.data.Back()
		delete(c.index, back.Value.(cacheItem).key)
		c.data.Remove(back)
	}
	c.index[key] = c.data.PushFront(cacheItem{key: key, source: source, val: val})
}

func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.data.Len()
}
