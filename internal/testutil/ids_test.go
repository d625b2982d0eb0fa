package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator(t *testing.T) {
	gen := NewFixedIDGenerator("corr-123")

	assert.Equal(t, "corr-123", gen.Generate())
	assert.Equal(t, "corr-123", gen.Generate())
}

func TestFixedIDGenerator_EmptyDefault(t *testing.T) {
	assert.Equal(t, "test-corr-default", NewFixedIDGenerator("").Generate())
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("log")

	assert.Equal(t, "log-1", gen.Generate())
	assert.Equal(t, "log-2", gen.Generate())

	gen.Reset()
	assert.Equal(t, "log-1", gen.Generate())
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceGenerator("corr")

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
	assert.True(t, seen["corr-1000"])
}
