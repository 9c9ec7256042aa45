package toolmeta

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptionCacheMemoizes(t *testing.T) {
	builds := 0
	c := NewDescriptionCache(func() map[string]string {
		builds++
		return map[string]string{"read_file": "reads a file"}
	})

	assert.False(t, c.IsPopulated())

	first := c.Get()
	second := c.Get()
	assert.Equal(t, 1, builds)
	assert.True(t, c.IsPopulated())
	assert.Equal(t, "reads a file", first["read_file"])
	assert.Equal(t, first, second)
}

func TestDescriptionCacheInvalidate(t *testing.T) {
	builds := 0
	c := NewDescriptionCache(func() map[string]string {
		builds++
		return map[string]string{"n": "x"}
	})

	c.Get()
	c.Invalidate()
	assert.False(t, c.IsPopulated())

	c.Get()
	assert.Equal(t, 2, builds, "get after invalidate must recompute")
	assert.True(t, c.IsPopulated())
}

func TestDescriptionCacheNilBuild(t *testing.T) {
	c := NewDescriptionCache(func() map[string]string { return nil })
	assert.NotNil(t, c.Get())
	assert.True(t, c.IsPopulated())
}

func TestDescriptionCacheConcurrentGet(t *testing.T) {
	var mu sync.Mutex
	builds := 0
	c := NewDescriptionCache(func() map[string]string {
		mu.Lock()
		builds++
		mu.Unlock()
		return map[string]string{}
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Get()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, builds)
}
