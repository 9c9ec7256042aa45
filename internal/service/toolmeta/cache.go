// Package toolmeta aggregates the usage descriptions of every tool the agent can call,
// built-in or discovered from MCP servers, for inclusion in the agent's system prompt.
package toolmeta

import "sync"

// DescriptionCache memoizes a tool name to description mapping.
// The mapping is built on first use and kept until Invalidate is called.
type DescriptionCache struct {
	build func() map[string]string

	mu    sync.Mutex
	value map[string]string
}

// NewDescriptionCache returns an empty cache that populates itself with build.
func NewDescriptionCache(build func() map[string]string) *DescriptionCache {
	return &DescriptionCache{build: build}
}

// Get returns the cached mapping, building it first if needed.
// The returned map is shared, callers must not modify it.
func (c *DescriptionCache) Get() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil {
		v := c.build()
		if v == nil {
			v = map[string]string{}
		}
		c.value = v
	}
	return c.value
}

// Invalidate drops the cached mapping so the next Get rebuilds it.
func (c *DescriptionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
}

// IsPopulated reports whether a mapping is currently cached.
func (c *DescriptionCache) IsPopulated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value != nil
}
