package plan

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is the opaque plan handle spec §6's compile operation returns.
type Handle struct {
	id uuid.UUID
}

func (h Handle) String() string { return h.id.String() }

// Cache is the engine's plan cache (spec §4.6): canonical pipeline form ->
// compiled plan, so repeated compiles of an equivalent pipeline reuse the
// same Plan rather than re-running the rewrite fixpoint.
type Cache struct {
	mu      sync.Mutex
	byHash  map[string]*entry
	byHandle map[uuid.UUID]*entry
}

type entry struct {
	handle Handle
	plan   *Plan
}

func NewCache() *Cache {
	return &Cache{
		byHash:   make(map[string]*entry),
		byHandle: make(map[uuid.UUID]*entry),
	}
}

// Compile returns the cached plan for raw's canonical form, building and
// caching a new one on first use. The bool result reports whether the
// plan was freshly built (callers use this to decide whether new operator
// state needs initializing from the current live-set, per spec §4.6
// "late compiles see existing data").
func (c *Cache) Compile(raw Pipeline) (Handle, *Plan, bool) {
	key := Hash(raw)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.byHash[key]; ok {
		return e.handle, e.plan, false
	}
	p := Build(raw)
	h := Handle{id: uuid.New()}
	e := &entry{handle: h, plan: p}
	c.byHash[key] = e
	c.byHandle[h.id] = e
	return h, p, true
}

// Lookup resolves a previously returned Handle back to its Plan.
func (c *Cache) Lookup(h Handle) (*Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byHandle[h.id]
	if !ok {
		return nil, false
	}
	return e.plan, true
}

// Len reports the number of distinct compiled plans currently cached, for
// statistics()'s "compiled-plan count".
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byHash)
}

// Clear drops every cached plan (spec §4.6 clear()).
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byHash = make(map[string]*entry)
	c.byHandle = make(map[uuid.UUID]*entry)
}
