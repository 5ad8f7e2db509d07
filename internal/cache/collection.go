package cache

import (
	"context"
	"sync"

	"estimator/internal/gateway"
	"estimator/internal/log"
)

// collection is the shared bookkeeping behind both stores: the cached page,
// the remote total, the selected record, the load FSM and the last error.
// Gateway calls are made by the stores without holding mu; results are
// applied through the methods below.
type collection[T any] struct {
	mu       sync.RWMutex
	name     string
	items    []T
	total    int
	selected *T
	state    State
	loaded   bool
	err      *gateway.Error
	gen      uint64
	pending  int
	insert   InsertPosition
	paged    bool
	idOf     func(T) string
	clone    func(T) T
	logger   *log.Logger
}

// newCollection builds a collection. A paged collection holds one page of a
// larger remote collection, so its total is tracked independently of items.
func newCollection[T any](name string, paged bool, o options, idOf func(T) string, clone func(T) T) *collection[T] {
	return &collection[T]{
		name:   name,
		insert: o.insert,
		paged:  paged,
		idOf:   idOf,
		clone:  clone,
		logger: o.logger,
	}
}

func (c *collection[T]) cloneAll(in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = c.clone(v)
	}
	return out
}

func (c *collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cloneAll(c.items)
}

func (c *collection[T]) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

func (c *collection[T]) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Loading reports whether any call for this collection is in flight.
func (c *collection[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending > 0
}

// Err returns the last recorded error, or nil.
func (c *collection[T]) Err() *gateway.Error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *collection[T]) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = nil
}

func (c *collection[T]) Selected() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		var zero T
		return zero, false
	}
	return c.clone(*c.selected), true
}

func (c *collection[T]) setSelected(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := c.clone(v)
	c.selected = &cp
}

func (c *collection[T]) clearSelected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
}

// beginLoad issues a new load generation.
func (c *collection[T]) beginLoad() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.pending++
	c.state = StateLoading
	c.err = nil
	return c.gen
}

// finishLoad applies a load result if gen is still the latest generation and
// ctx has not been cancelled.
func (c *collection[T]) finishLoad(ctx context.Context, gen uint64, items []T, total int, callErr error, fallback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--

	if gen != c.gen {
		c.logger.DebugContext(ctx, "Discarding stale load response",
			log.FieldResource, c.name, log.FieldGeneration, gen, "latest", c.gen)
		return ErrSuperseded
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.state = c.settledState()
		c.logger.DebugContext(ctx, "Load cancelled, result not applied",
			log.FieldResource, c.name, log.FieldGeneration, gen)
		return gateway.Normalize(ctxErr, fallback)
	}
	if callErr != nil {
		c.state = StateError
		c.err = gateway.Normalize(callErr, fallback)
		c.logger.WarnContext(ctx, "Load failed",
			log.FieldResource, c.name, log.FieldError, callErr)
		return c.err
	}
	c.items = c.cloneAll(items)
	c.total = total
	c.state = StateReady
	c.loaded = true
	return nil
}

// settledState is the state a cancelled load falls back to. Caller holds mu.
func (c *collection[T]) settledState() State {
	if c.err != nil {
		return StateError
	}
	if c.loaded {
		return StateReady
	}
	return StateIdle
}

// begin marks a non-load call as in flight and clears the last error.
func (c *collection[T]) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending++
	c.err = nil
}

// done marks a non-load call as finished. A non-nil callErr is recorded and
// returned as a *gateway.Error. Unlike a load, a confirmed write is applied
// even when ctx is already cancelled: the remote record has changed either way.
func (c *collection[T]) done(ctx context.Context, op string, callErr error, fallback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if callErr == nil {
		return nil
	}
	c.err = gateway.Normalize(callErr, fallback)
	c.logger.WarnContext(ctx, "Gateway call failed",
		log.FieldResource, c.name, log.FieldOperation, op, log.FieldError, callErr)
	return c.err
}

// add inserts v at the configured position and counts it in the total.
func (c *collection[T]) add(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v = c.clone(v)
	if c.insert == InsertFirst {
		c.items = append([]T{v}, c.items...)
	} else {
		c.items = append(c.items, v)
	}
	c.total++
}

// replace swaps the record with v's id in place, and the selection too when
// it matches. It reports whether anything was replaced.
func (c *collection[T]) replace(id string, v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := false
	for i := range c.items {
		if c.idOf(c.items[i]) == id {
			c.items[i] = c.clone(v)
			found = true
			break
		}
	}
	if c.selected != nil && c.idOf(*c.selected) == id {
		cp := c.clone(v)
		c.selected = &cp
		found = true
	}
	return found
}

// remove drops the record with id, decrements the total and clears a
// matching selection. A paged collection decrements its total even when the
// record is not on the cached page, since the total counts the remote side.
func (c *collection[T]) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0:0]
	for _, v := range c.items {
		if c.idOf(v) != id {
			kept = append(kept, v)
		}
	}
	found := len(kept) != len(c.items)
	c.items = kept
	if (found || c.paged) && c.total > 0 {
		c.total--
	}
	if c.selected != nil && c.idOf(*c.selected) == id {
		c.selected = nil
	}
}

// mutate applies fn to a copy of the cached record with id and of the
// selection when it matches, committing each copy only when fn reports that
// it found its nested target. It reports whether anything was committed.
func (c *collection[T]) mutate(id string, fn func(*T) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	applied := false
	for i := range c.items {
		if c.idOf(c.items[i]) != id {
			continue
		}
		cp := c.clone(c.items[i])
		if fn(&cp) {
			c.items[i] = cp
			applied = true
		}
		break
	}
	if c.selected != nil && c.idOf(*c.selected) == id {
		cp := c.clone(*c.selected)
		if fn(&cp) {
			c.selected = &cp
			applied = true
		}
	}
	return applied
}
