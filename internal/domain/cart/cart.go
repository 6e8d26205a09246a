// Package cart provides the in-memory line collection shared by the order
// and prescription stores. A cart guards against duplicate catalog entries,
// notifies its owner on every mutation so drafts get scheduled, and can
// serialize itself for draft persistence.
package cart

import (
	"encoding/json"
	"sync"

	"github.com/clinicdesk/clinicdesk/pkg/precond"
)

// Line is one cart entry. RefID identifies the catalog item the line was
// built from; two lines with the same RefID are the same orderable thing.
type Line interface {
	RefID() string
}

// Cart is a duplicate-free ordered collection of lines. onDirty fires
// after every successful mutation.
type Cart[T Line] struct {
	mu      sync.Mutex
	items   []T
	onDirty func()
}

func New[T Line](onDirty func()) *Cart[T] {
	return &Cart[T]{onDirty: onDirty}
}

// Add appends item, rejecting a line whose catalog item is already in the
// cart.
func (c *Cart[T]) Add(item T) error {
	c.mu.Lock()
	if c.containsLocked(item.RefID()) {
		c.mu.Unlock()
		return precond.Failf("item %s is already in the cart", item.RefID())
	}
	c.items = append(c.items, item)
	c.mu.Unlock()
	c.notify()
	return nil
}

// BatchAdd appends every item not already present and reports how many
// were added and how many were skipped as duplicates. Partial success is
// not an error; the caller surfaces the counts.
func (c *Cart[T]) BatchAdd(items []T) (added, skipped int) {
	c.mu.Lock()
	for _, item := range items {
		if c.containsLocked(item.RefID()) {
			skipped++
			continue
		}
		c.items = append(c.items, item)
		added++
	}
	c.mu.Unlock()
	if added > 0 {
		c.notify()
	}
	return added, skipped
}

// RemoveAt deletes the line at index i.
func (c *Cart[T]) RemoveAt(i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.items) {
		c.mu.Unlock()
		return precond.Failf("no cart line at position %d", i)
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.mu.Unlock()
	c.notify()
	return nil
}

// Update replaces the line at index i in place, keeping its position.
func (c *Cart[T]) Update(i int, item T) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.items) {
		c.mu.Unlock()
		return precond.Failf("no cart line at position %d", i)
	}
	c.items[i] = item
	c.mu.Unlock()
	c.notify()
	return nil
}

// Items returns a copy of the lines in insertion order.
func (c *Cart[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear empties the cart.
func (c *Cart[T]) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
	c.notify()
}

// Snapshot serializes the lines for draft persistence. An empty cart
// returns nil so the owning autosaver deletes the draft key instead.
func (c *Cart[T]) Snapshot() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return nil, nil
	}
	return json.Marshal(c.items)
}

// Restore loads lines from a draft payload, but only into an empty cart;
// lines the user already placed this session win over a stale draft.
func (c *Cart[T]) Restore(payload []byte) error {
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return err
	}
	c.mu.Lock()
	if len(c.items) > 0 {
		c.mu.Unlock()
		return nil
	}
	c.items = items
	c.mu.Unlock()
	return nil
}

func (c *Cart[T]) containsLocked(refID string) bool {
	for _, item := range c.items {
		if item.RefID() == refID {
			return true
		}
	}
	return false
}

func (c *Cart[T]) notify() {
	if c.onDirty != nil {
		c.onDirty()
	}
}
