package wordpool

import (
	"sync"

	"github.com/samber/lo"
)

// Catalog maps categories to their ordered word lists
type Catalog struct {
	mu    sync.RWMutex
	pools map[Category][]string
}

// NewCatalog returns a catalog seeded with the built-in word lists
func NewCatalog() *Catalog {
	pools := make(map[Category][]string, len(builtin))
	for c, words := range builtin {
		pools[c] = append([]string(nil), words...)
	}
	return &Catalog{pools: pools}
}

// NewCatalogFrom builds a catalog from explicit lists, mainly for tests
func NewCatalogFrom(pools map[Category][]string) *Catalog {
	cat := &Catalog{pools: make(map[Category][]string, len(pools))}
	for c, words := range pools {
		cat.pools[c] = lo.Uniq(words)
	}
	return cat
}

// Lookup returns the ordered pool for a category. Unknown or empty
// categories yield an empty slice, meaning "always open-ended".
func (c *Catalog) Lookup(category Category) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.pools[category]...)
}

// Size returns the number of words in a category's pool
func (c *Catalog) Size(category Category) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pools[category])
}

// Extend appends words to a category's pool, skipping words already present.
// Returns the number of words added.
func (c *Catalog) Extend(category Category, words []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing := c.pools[category]
	seen := lo.SliceToMap(existing, func(w string) (string, struct{}) {
		return w, struct{}{}
	})

	added := 0
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		existing = append(existing, w)
		added++
	}
	c.pools[category] = existing
	return added
}

// Remaining returns the pool words not contained in exclude, in pool order
func Remaining(pool []string, exclude []string) []string {
	if len(exclude) == 0 {
		return append([]string(nil), pool...)
	}
	excluded := lo.SliceToMap(exclude, func(w string) (string, struct{}) {
		return w, struct{}{}
	})
	return lo.Filter(pool, func(w string, _ int) bool {
		_, skip := excluded[w]
		return !skip
	})
}
