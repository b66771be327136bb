package mockapi

import (
	"encoding/json"
	"sync"
)

// collection is an ordered in-memory table keyed by the entity's "id".
type collection[T any] struct {
	mu    sync.RWMutex
	items []T
	idOf  func(T) string
}

func newCollection[T any](idOf func(T) string, seed ...T) *collection[T] {
	return &collection[T]{items: append([]T(nil), seed...), idOf: idOf}
}

func (c *collection[T]) list() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

func (c *collection[T]) get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if c.idOf(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *collection[T]) add(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

// update applies mutate to a copy of the stored item and stores the result.
func (c *collection[T]) update(id string, mutate func(*T) error) (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if c.idOf(item) != id {
			continue
		}
		next := item
		if err := mutate(&next); err != nil {
			return item, true, err
		}
		c.items[i] = next
		return next, true, nil
	}
	var zero T
	return zero, false, nil
}

func (c *collection[T]) remove(ids ...string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0:0]
	for _, item := range c.items {
		if _, ok := drop[c.idOf(item)]; ok {
			continue
		}
		kept = append(kept, item)
	}
	removed := len(c.items) - len(kept)
	c.items = kept
	return removed
}

// forceID overwrites the "id" member of any entity without knowing its type.
func forceID[T any](item *T, id string) error {
	payload, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, item)
}
